package clientapp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/security"
	"github.com/phillip-england/branchdesk/internal/session"
)

var profileFields = []formField{
	{Name: "name", Label: "Name", Type: "text", Required: true},
	{Name: "mobile", Label: "Mobile", Type: "tel"},
	{Name: "email", Label: "Email", Type: "email"},
}

var passwordFields = []formField{
	{Name: "current_password", Label: "Current password", Type: "password", Required: true},
	{Name: "new_password", Label: "New password", Type: "password", Required: true},
	{Name: "new_password_confirmation", Label: "Confirm new password", Type: "password", Required: true},
}

func (s *server) dashboard(w http.ResponseWriter, r *http.Request, v *visit) {
	data := v.page(r, "Dashboard", "dashboard")
	if v.sess.User.Role == session.RoleBranch {
		stats, err := v.api.BranchStats(r.Context())
		if err != nil {
			data.Error = apiclient.MessageOf(err, "Unable to load dashboard")
		} else {
			data.BranchStats = &stats
		}
	} else {
		stats, err := v.api.AdminStats(r.Context())
		if err != nil {
			data.Error = apiclient.MessageOf(err, "Unable to load dashboard")
		} else {
			data.Stats = &stats
		}
	}
	s.render(w, s.dashboardTmpl, data, "dashboard")
}

func profileValues(u session.User) map[string]string {
	return map[string]string{"name": u.Name, "mobile": u.Mobile, "email": u.Email}
}

func (s *server) renderProfile(w http.ResponseWriter, r *http.Request, v *visit, profile session.User, values map[string]string, profileErrs, passwordErrs map[string][]string, status int) {
	data := v.page(r, "Profile", "profile")
	data.Profile = &profile
	profileView, _ := buildForm(r.Context(), v.api, profileFields, values, profileErrs)
	passwordView, _ := buildForm(r.Context(), v.api, passwordFields, map[string]string{}, passwordErrs)
	data.ProfileForm = &formView{
		Title:  "Profile details",
		Action: v.area.Prefix + "/profile",
		Submit: "Save profile",
		Error:  firstError(profileErrs),
		Fields: profileView,
	}
	data.PasswordForm = &formView{
		Title:  "Change password",
		Action: v.area.Prefix + "/profile/password",
		Submit: "Update password",
		Error:  firstError(passwordErrs),
		Fields: passwordView,
	}
	s.renderStatus(w, s.profileTmpl, data, "profile", status)
}

func (s *server) profilePage(w http.ResponseWriter, r *http.Request, v *visit) {
	profile, err := v.api.Profile(r.Context())
	if err != nil {
		redirectWith(w, r, v.area.Prefix+"/dashboard", "error", apiclient.MessageOf(err, "Unable to load profile"))
		return
	}
	s.renderProfile(w, r, v, profile, profileValues(profile), nil, nil, http.StatusOK)
}

func (s *server) updateProfile(w http.ResponseWriter, r *http.Request, v *visit) {
	back := v.area.Prefix + "/profile"
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, back, "error", "Invalid form submission")
		return
	}
	profile, err := v.api.Profile(r.Context())
	if err != nil {
		redirectWith(w, r, back, "error", apiclient.MessageOf(err, "Unable to load profile"))
		return
	}
	values := formValues(r, profileFields)
	if errs := validateFields(profileFields, values); errs != nil {
		s.renderProfile(w, r, v, profile, values, errs, nil, http.StatusUnprocessableEntity)
		return
	}
	changes := changedPayload(profileFields, profileValues(profile), values)
	if len(changes) == 0 {
		redirectWith(w, r, back, "message", "No changes to update")
		return
	}
	if _, err := v.api.UpdateProfile(r.Context(), changes); err != nil {
		if fields := fieldErrors(err); fields != nil {
			s.renderProfile(w, r, v, profile, values, fields, nil, http.StatusUnprocessableEntity)
			return
		}
		redirectWith(w, r, back, "error", apiclient.MessageOf(err, "Failed to update profile"))
		return
	}
	redirectWith(w, r, back, "message", "Profile updated successfully")
}

func (s *server) changePassword(w http.ResponseWriter, r *http.Request, v *visit) {
	back := v.area.Prefix + "/profile"
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, back, "error", "Invalid form submission")
		return
	}
	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	confirmation := r.FormValue("new_password_confirmation")

	errs := passwordErrors(current, next, confirmation)
	if errs == nil {
		message, err := v.api.ChangePassword(r.Context(), current, next, confirmation)
		if err == nil {
			if message == "" {
				message = "Password updated successfully"
			}
			redirectWith(w, r, back, "message", message)
			return
		}
		errs = fieldErrors(err)
		if errs == nil {
			redirectWith(w, r, back, "error", apiclient.MessageOf(err, "Failed to update password"))
			return
		}
	}
	profile, err := v.api.Profile(r.Context())
	if err != nil {
		redirectWith(w, r, back, "error", apiclient.MessageOf(err, "Unable to load profile"))
		return
	}
	s.renderProfile(w, r, v, profile, profileValues(profile), nil, errs, http.StatusUnprocessableEntity)
}

func passwordErrors(current, next, confirmation string) map[string][]string {
	errs := map[string][]string{}
	if strings.TrimSpace(current) == "" {
		errs["current_password"] = append(errs["current_password"], "The current password field is required.")
	}
	if len(next) < security.MinPasswordLength {
		errs["new_password"] = append(errs["new_password"], fmt.Sprintf("The new password field must be at least %d characters.", security.MinPasswordLength))
	}
	if next != confirmation {
		errs["new_password_confirmation"] = append(errs["new_password_confirmation"], "The new password confirmation does not match.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func fieldErrors(err error) map[string][]string {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	return apiErr.Fields
}
