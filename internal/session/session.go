// Package session holds the signed-in user and bearer token for a client,
// their persistence, and the role gates that decide where a user may go.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleBranch     = "branch"
)

const LoginPath = "/login"

var ErrNotAuthenticated = errors.New("not authenticated")

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
	Role     string `json:"role"`
	BranchID *int64 `json:"branch_id,omitempty"`
}

type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.User.Role != ""
}

// Authenticator exchanges credentials for a token and revokes it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, User, error)
	Logout(ctx context.Context, token string) error
}

// Store is the process-wide session of one client. It is safe for
// concurrent use.
type Store struct {
	auth    Authenticator
	persist Persister

	mu      sync.RWMutex
	current Session
}

// NewStore restores any persisted session. A persister read error starts
// signed out.
func NewStore(auth Authenticator, persist Persister) *Store {
	if persist == nil {
		persist = &MemoryPersister{}
	}
	s := &Store{auth: auth, persist: persist}
	if saved, err := persist.Load(); err == nil && saved.Authenticated() {
		s.current = saved
	}
	return s
}

func (s *Store) Login(ctx context.Context, username, password string) (User, error) {
	token, user, err := s.auth.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return User{}, err
	}
	sess := Session{User: user, Token: token}
	if err := s.persist.Save(sess); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return user, nil
}

// Logout tells the server on a best-effort basis and always clears local
// state. The returned error is the server's, for logging only.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.current.Token
	s.current = Session{}
	s.mu.Unlock()

	clearErr := s.persist.Clear()
	var serverErr error
	if token != "" && s.auth != nil {
		serverErr = s.auth.Logout(ctx, token)
	}
	return errors.Join(serverErr, clearErr)
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token satisfies the HTTP client's token source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// UpdateUser replaces the cached profile after an edit.
func (s *Store) UpdateUser(user User) error {
	s.mu.Lock()
	if !s.current.Authenticated() {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.current.User = user
	sess := s.current
	s.mu.Unlock()
	return s.persist.Save(sess)
}

// Guard returns the login redirect when the current session may not enter a
// screen restricted to allowed roles.
func (s *Store) Guard(allowed ...string) (string, bool) {
	return Authorize(s.Current(), allowed...)
}

// Authorize is Guard for an explicit session. An empty allowed list admits
// any signed-in user.
func Authorize(sess Session, allowed ...string) (string, bool) {
	if !sess.Authenticated() {
		return LoginPath, false
	}
	if len(allowed) == 0 {
		return "", true
	}
	for _, role := range allowed {
		if sess.User.Role == role {
			return "", true
		}
	}
	return LoginPath, false
}

func HomePath(role string) string {
	switch role {
	case RoleSuperAdmin:
		return "/super-admin/dashboard"
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleBranch:
		return "/branch/dashboard"
	default:
		return LoginPath
	}
}

// RolePrefix is the URL prefix of a role's screens.
func RolePrefix(role string) string {
	switch role {
	case RoleSuperAdmin:
		return "/super-admin"
	case RoleAdmin:
		return "/admin"
	case RoleBranch:
		return "/branch"
	default:
		return ""
	}
}

func RoleLabel(role string) string {
	switch role {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleBranch:
		return "Branch"
	default:
		return role
	}
}

// Initials returns the avatar letters: the first letter of the first two
// words, upper-cased.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}
