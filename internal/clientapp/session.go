package clientapp

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/listing"
	"github.com/phillip-england/branchdesk/internal/session"
	"github.com/phillip-england/branchdesk/internal/theme"
)

const (
	tokenCookieName = "branchdesk_token"
	themeCookieName = "theme"
	themeCookieAge  = 365 * 24 * time.Hour
)

// cookieSession keeps the bearer token in an HttpOnly cookie and resolves
// the user through /me on load.
type cookieSession struct {
	w      http.ResponseWriter
	r      *http.Request
	api    *apiclient.Client
	secure bool
}

func (c cookieSession) Load() (session.Session, error) {
	cookie, err := c.r.Cookie(tokenCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return session.Session{}, nil
	}
	user, err := c.api.WithToken(cookie.Value).Me(c.r.Context())
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			_ = c.Clear()
		}
		return session.Session{}, err
	}
	return session.Session{User: user, Token: cookie.Value}, nil
}

func (c cookieSession) Save(sess session.Session) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c cookieSession) Clear() error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

type themeCookie struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool
}

func (c themeCookie) Load() (theme.Mode, error) {
	cookie, err := c.r.Cookie(themeCookieName)
	if err != nil {
		return theme.Light, nil
	}
	return theme.ParseMode(cookie.Value), nil
}

func (c themeCookie) Save(mode theme.Mode) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     themeCookieName,
		Value:    string(mode),
		Path:     "/",
		MaxAge:   int(themeCookieAge.Seconds()),
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *server) sessions(w http.ResponseWriter, r *http.Request) *session.Store {
	return session.NewStore(s.api, cookieSession{w: w, r: r, api: s.api, secure: s.secureCookies})
}

func (s *server) themes(w http.ResponseWriter, r *http.Request) *theme.Store {
	return theme.NewStore(themeCookie{w: w, r: r, secure: s.secureCookies})
}

// visit is one signed-in request inside an area.
type visit struct {
	area *area
	sess session.Session
	api  *apiclient.Client
	mode theme.Mode
}

type visitHandler func(http.ResponseWriter, *http.Request, *visit)

// guard admits signed-in users whose role may enter a. A nil area admits any
// signed-in user. Users in the wrong area are sent to their own dashboard.
func (s *server) guard(a *area, next visitHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := s.sessions(w, r)
		var roles []string
		if a != nil {
			roles = a.Roles
		}
		if redirect, ok := store.Guard(roles...); !ok {
			if current := store.Current(); current.Authenticated() {
				http.Redirect(w, r, session.HomePath(current.User.Role), http.StatusFound)
				return
			}
			http.Redirect(w, r, redirect, http.StatusFound)
			return
		}
		sess := store.Current()
		next(w, r, &visit{
			area: a,
			sess: sess,
			api:  s.api.WithToken(sess.Token),
			mode: s.themes(w, r).Mode(),
		})
	})
}

// page fills the shell every signed-in page shares.
func (v *visit) page(r *http.Request, title, active string) pageData {
	data := pageData{
		Title:      title,
		User:       v.sess.User,
		Initials:   session.Initials(v.sess.User.Name),
		RoleLabel:  session.RoleLabel(v.sess.User.Role),
		Theme:      string(v.mode),
		ThemeCSS:   themeCSS(v.mode),
		ReturnPath: r.URL.RequestURI(),
		Toasts:     flashToasts(r),
	}
	if v.area != nil {
		data.Prefix = v.area.Prefix
		data.Nav = v.area.nav(active)
	}
	return data
}

func flashToasts(r *http.Request) []listing.Toast {
	var toasts []listing.Toast
	if msg := strings.TrimSpace(r.URL.Query().Get("message")); msg != "" {
		toasts = append(toasts, listing.Toast{ID: 1, Message: msg, Kind: listing.ToastSuccess})
	}
	if msg := strings.TrimSpace(r.URL.Query().Get("error")); msg != "" {
		toasts = append(toasts, listing.Toast{ID: 2, Message: msg, Kind: listing.ToastError})
	}
	return toasts
}

func themeCSS(mode theme.Mode) template.CSS {
	p := theme.PaletteFor(mode)
	return template.CSS(fmt.Sprintf(
		":root{--bd-primary:%s;--bd-bg:%s;--bd-sidebar:%s;--bd-card:%s;--bd-text:%s;--bd-muted:%s;--bd-border:%s}",
		p.Primary, p.Background, p.Sidebar, p.Card, p.Text, p.Muted, p.Border,
	))
}

func (s *server) root(w http.ResponseWriter, r *http.Request) {
	current := s.sessions(w, r).Current()
	if current.Authenticated() {
		http.Redirect(w, r, session.HomePath(current.User.Role), http.StatusFound)
		return
	}
	http.Redirect(w, r, session.LoginPath, http.StatusFound)
}

func (s *server) loginPage(w http.ResponseWriter, r *http.Request) {
	if current := s.sessions(w, r).Current(); current.Authenticated() {
		http.Redirect(w, r, session.HomePath(current.User.Role), http.StatusFound)
		return
	}
	mode := s.themes(w, r).Mode()
	data := pageData{
		Title:    "Sign in",
		Theme:    string(mode),
		ThemeCSS: themeCSS(mode),
		Error:    r.URL.Query().Get("error"),
		Toasts:   flashToasts(r),
	}
	s.render(w, s.loginTmpl, data, "login")
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Invalid+form+submission", http.StatusFound)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/login?error=Username+and+password+are+required", http.StatusFound)
		return
	}

	user, err := s.sessions(w, r).Login(r.Context(), username, password)
	if err != nil {
		var apiErr *apiclient.APIError
		if !errors.As(err, &apiErr) {
			log.Printf("login failed: %v", err)
			redirectWith(w, r, "/login", "error", "Authentication service unavailable")
			return
		}
		redirectWith(w, r, "/login", "error", apiclient.MessageOf(err, "Invalid credentials"))
		return
	}
	http.Redirect(w, r, session.HomePath(user.Role), http.StatusFound)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions(w, r).Logout(r.Context()); err != nil {
		log.Printf("logout failed: %v", err)
	}
	redirectWith(w, r, "/login", "message", "Logged out successfully")
}

func (s *server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if _, err := s.themes(w, r).Toggle(); err != nil {
		log.Printf("theme toggle failed: %v", err)
	}
	http.Redirect(w, r, localPath(r.FormValue("return"), "/"), http.StatusFound)
}
