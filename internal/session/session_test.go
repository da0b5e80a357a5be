package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type fakeAuth struct {
	loginErr  error
	logoutErr error
	loggedOut []string
}

func (a *fakeAuth) Login(ctx context.Context, username, password string) (string, User, error) {
	if a.loginErr != nil {
		return "", User{}, a.loginErr
	}
	return "tok-" + username, User{ID: 1, Username: username, Name: "Asha Rao", Role: RoleAdmin}, nil
}

func (a *fakeAuth) Logout(ctx context.Context, token string) error {
	a.loggedOut = append(a.loggedOut, token)
	return a.logoutErr
}

func TestLoginPersistsAndRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(&fakeAuth{}, FilePersister{Path: path})

	user, err := store.Login(context.Background(), " asha ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Username != "asha" || store.Token() != "tok-asha" {
		t.Fatalf("unexpected session %+v", store.Current())
	}

	restored := NewStore(&fakeAuth{}, FilePersister{Path: path})
	if restored.Token() != "tok-asha" || restored.Current().User.Role != RoleAdmin {
		t.Fatalf("session not restored: %+v", restored.Current())
	}
}

func TestLoginFailureKeepsSignedOut(t *testing.T) {
	store := NewStore(&fakeAuth{loginErr: errors.New("Invalid credentials")}, nil)
	if _, err := store.Login(context.Background(), "x", "y"); err == nil {
		t.Fatalf("expected error")
	}
	if store.Current().Authenticated() {
		t.Fatalf("should remain signed out")
	}
}

func TestLogoutIsFailOpen(t *testing.T) {
	auth := &fakeAuth{logoutErr: errors.New("network down")}
	persist := &MemoryPersister{}
	store := NewStore(auth, persist)
	if _, err := store.Login(context.Background(), "asha", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	err := store.Logout(context.Background())
	if err == nil {
		t.Fatalf("expected server error to be reported")
	}
	if store.Current().Authenticated() || store.Token() != "" {
		t.Fatalf("local state not cleared")
	}
	if saved, _ := persist.Load(); saved.Token != "" {
		t.Fatalf("persisted token not cleared")
	}
	if len(auth.loggedOut) != 1 || auth.loggedOut[0] != "tok-asha" {
		t.Fatalf("server not notified: %v", auth.loggedOut)
	}
}

func TestAuthorize(t *testing.T) {
	admin := Session{Token: "t", User: User{Role: RoleAdmin}}
	branch := Session{Token: "t", User: User{Role: RoleBranch}}

	if redirect, ok := Authorize(Session{}, RoleAdmin); ok || redirect != LoginPath {
		t.Fatalf("unauthenticated should redirect to login")
	}
	if _, ok := Authorize(admin, RoleSuperAdmin, RoleAdmin); !ok {
		t.Fatalf("admin should pass")
	}
	if redirect, ok := Authorize(branch, RoleSuperAdmin, RoleAdmin); ok || redirect != LoginPath {
		t.Fatalf("wrong role should redirect to login")
	}
	if _, ok := Authorize(branch); !ok {
		t.Fatalf("any role should pass an open gate")
	}
}

func TestHomePath(t *testing.T) {
	cases := map[string]string{
		RoleSuperAdmin: "/super-admin/dashboard",
		RoleAdmin:      "/admin/dashboard",
		RoleBranch:     "/branch/dashboard",
		"":             LoginPath,
	}
	for role, want := range cases {
		if got := HomePath(role); got != want {
			t.Fatalf("HomePath(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"asha rao":         "AR",
		"  Vikram  ":       "V",
		"ravi kumar singh": "RK",
		"":                 "?",
		"élodie durand":    "ÉD",
	}
	for name, want := range cases {
		if got := Initials(name); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}
