package apiapp

import (
	"fmt"
	"log"
	"net/http"

	"github.com/phillip-england/branchdesk/internal/security"
)

var profileFields = &entity{
	Name:  "profile",
	Title: "Profile",
	Table: tableUsers,
	Fields: []field{
		{Name: "name", Label: "name", Required: true},
		{Name: "mobile", Label: "mobile"},
		{Name: "email", Label: "email", Email: true},
	},
}

func (s *server) profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"user_details": userJSON(userFromContext(r.Context())),
	})
}

func (s *server) updateProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var input map[string]any
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(input) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "No changes to update",
			"user_details": userJSON(user),
		})
		return
	}
	changes, errs, err := profileFields.validate(r.Context(), s.store, input, user.integer("id"), true)
	if err != nil {
		log.Printf("validate profile failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	changes["updated_at"] = now()
	if err := s.store.Update(r.Context(), tableUsers, user.integer("id"), changes); err != nil {
		log.Printf("update profile failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	updated := user.clone()
	for k, v := range changes {
		updated[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Profile updated successfully",
		"user_details": userJSON(updated),
	})
}

type passwordRequest struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

func (s *server) changePassword(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req passwordRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	errs := fieldErrors{}
	switch {
	case req.CurrentPassword == "":
		errs.add("current_password", "The current password field is required.")
	case !security.VerifyPassword(req.CurrentPassword, user.text("password_hash")):
		errs.add("current_password", "The current password is incorrect.")
	}
	switch {
	case req.NewPassword == "":
		errs.add("new_password", "The new password field is required.")
	case len(req.NewPassword) < security.MinPasswordLength:
		errs.add("new_password", fmt.Sprintf("The new password must be at least %d characters.", security.MinPasswordLength))
	case req.NewPassword != req.NewPasswordConfirmation:
		errs.add("new_password", "The new password confirmation does not match.")
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}
	if err := s.store.Update(r.Context(), tableUsers, user.integer("id"), record{"password_hash": hash, "updated_at": now()}); err != nil {
		log.Printf("change password failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}
