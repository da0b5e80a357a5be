package apiapp

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/phillip-england/branchdesk/internal/security"
	"github.com/phillip-england/branchdesk/internal/session"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// requireRole admits requests carrying a live bearer token whose user is
// active. With no roles given any signed-in user passes.
func (s *server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthenticated.")
				return
			}
			userID, err := s.store.TokenUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, errNotFound) {
					writeError(w, http.StatusUnauthorized, "Unauthenticated.")
					return
				}
				log.Printf("token lookup failed: %v", err)
				writeError(w, http.StatusInternalServerError, "session check failed")
				return
			}
			user, err := s.store.Get(r.Context(), tableUsers, userID)
			if err != nil {
				if errors.Is(err, errNotFound) {
					writeError(w, http.StatusUnauthorized, "Unauthenticated.")
					return
				}
				log.Printf("user lookup failed: %v", err)
				writeError(w, http.StatusInternalServerError, "session check failed")
				return
			}
			if user.integer("status") != 1 {
				writeError(w, http.StatusForbidden, "Your account is inactive.")
				return
			}
			if len(roles) > 0 && !contains(roles, user.text("role")) {
				writeError(w, http.StatusForbidden, "You do not have access to this resource.")
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func userFromContext(ctx context.Context) record {
	user, _ := ctx.Value(userContextKey).(record)
	return user
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

func isAdminRole(role string) bool {
	return role == session.RoleSuperAdmin || role == session.RoleAdmin
}

// userJSON is the public shape of a users row.
func userJSON(user record) session.User {
	out := session.User{
		ID:       user.integer("id"),
		Username: user.text("username"),
		Name:     user.text("name"),
		Email:    user.text("email"),
		Mobile:   user.text("mobile"),
		Role:     user.text("role"),
	}
	if branchID := user.integer("branch_id"); branchID > 0 {
		out.BranchID = &branchID
	}
	return out
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	errs := fieldErrors{}
	if req.Username == "" {
		errs.add("username", "The username field is required.")
	}
	if req.Password == "" {
		errs.add("password", "The password field is required.")
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	users, err := s.store.Find(r.Context(), tableUsers, "username", req.Username)
	if err != nil {
		log.Printf("login lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	if len(users) == 0 || !security.VerifyPassword(req.Password, users[0].text("password_hash")) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	user := users[0]
	if user.integer("status") != 1 {
		writeError(w, http.StatusForbidden, "Your account is inactive.")
		return
	}

	token, err := security.RandomToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	expires := time.Now().UTC().Add(s.tokenTTL)
	if err := s.store.CreateToken(r.Context(), token, user.integer("id"), expires); err != nil {
		log.Printf("create token failed: %v", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    userJSON(user),
		"message": "Login successful",
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteToken(r.Context(), tokenFromContext(r.Context())); err != nil {
		log.Printf("delete token failed: %v", err)
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userJSON(userFromContext(r.Context())),
	})
}
