package clientapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/listing"
	"github.com/phillip-england/branchdesk/internal/middleware"
	"github.com/phillip-england/branchdesk/internal/session"
)

//go:embed templates/layout.html templates/login.html templates/dashboard.html templates/list.html templates/form.html templates/profile.html templates/import.html templates/item_image.html assets/app.css assets/app.js
var templatesFS embed.FS

type Config struct {
	Addr          string
	APIBaseURL    string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	SecureCookies bool
}

type pageData struct {
	Title      string
	User       session.User
	Initials   string
	RoleLabel  string
	Prefix     string
	Nav        []navLink
	ThemeCSS   template.CSS
	Theme      string
	ReturnPath string
	Toasts     []listing.Toast
	Error      string

	Table  template.HTML
	Screen *screenView
	Form   *formView

	Stats       *apiclient.Stats
	BranchStats *apiclient.BranchStats

	Profile      *session.User
	ProfileForm  *formView
	PasswordForm *formView

	Import    *importView
	ItemImage *itemImageView
}

type navLink struct {
	Label  string
	Href   string
	Active bool
}

type server struct {
	api           *apiclient.Client
	tables        *datatable.Renderer
	secureCookies bool

	loginTmpl     *template.Template
	dashboardTmpl *template.Template
	listTmpl      *template.Template
	formTmpl      *template.Template
	profileTmpl   *template.Template
	importTmpl    *template.Template
	imageTmpl     *template.Template
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:          envOrDefault("CLIENT_ADDR", ":3000"),
		APIBaseURL:    envOrDefault("API_BASE_URL", "http://localhost:8080"),
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  10 * time.Second,
		SecureCookies: envOrDefault("CLIENT_SECURE_COOKIES", "false") == "true",
	}
}

func Run(ctx context.Context, cfg Config) error {
	handler, err := NewHandler(cfg, apiclient.New(cfg.APIBaseURL, nil))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("client listening on http://localhost%s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewHandler builds the web client around an API client. Every page talks to
// the API with the token from the visitor's cookie.
func NewHandler(cfg Config, api *apiclient.Client) (http.Handler, error) {
	tables, err := datatable.NewRenderer()
	if err != nil {
		return nil, err
	}
	s := &server{
		api:           api,
		tables:        tables,
		secureCookies: cfg.SecureCookies,
		loginTmpl:     template.Must(template.ParseFS(templatesFS, "templates/login.html")),
		dashboardTmpl: pageTemplate("templates/dashboard.html"),
		listTmpl:      pageTemplate("templates/list.html"),
		formTmpl:      pageTemplate("templates/form.html"),
		profileTmpl:   pageTemplate("templates/profile.html"),
		importTmpl:    pageTemplate("templates/import.html"),
		imageTmpl:     pageTemplate("templates/item_image.html"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.root).Methods(http.MethodGet)
	router.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)
	router.HandleFunc("/login", s.login).Methods(http.MethodPost)
	router.HandleFunc("/logout", s.logout).Methods(http.MethodPost)
	router.HandleFunc("/theme", s.toggleTheme).Methods(http.MethodPost)
	router.HandleFunc("/assets/app.css", assetFile("assets/app.css", "text/css; charset=utf-8")).Methods(http.MethodGet)
	router.HandleFunc("/assets/app.js", assetFile("assets/app.js", "text/javascript; charset=utf-8")).Methods(http.MethodGet)
	router.Handle("/media/{path:.+}", s.guard(nil, s.mediaProxy)).Methods(http.MethodGet)

	for _, a := range areas {
		s.mountArea(router, a)
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self'",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		router,
		middleware.RequestLog("client"),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	), nil
}

func (s *server) mountArea(router *mux.Router, a *area) {
	sub := router.PathPrefix(a.Prefix).Subrouter()
	sub.Handle("/dashboard", s.guard(a, s.dashboard)).Methods(http.MethodGet)
	sub.Handle("/profile", s.guard(a, s.profilePage)).Methods(http.MethodGet)
	sub.Handle("/profile", s.guard(a, s.updateProfile)).Methods(http.MethodPost)
	sub.Handle("/profile/password", s.guard(a, s.changePassword)).Methods(http.MethodPost)

	for _, sc := range a.Screens {
		base := "/" + sc.Slug
		sub.Handle(base, s.guard(a, s.listPage(sc))).Methods(http.MethodGet)
		sub.Handle(base+"/search", s.guard(a, s.tableSearch)).Methods(http.MethodPost)
		sub.Handle(base+"/filter", s.guard(a, s.tableFilter)).Methods(http.MethodPost)
		sub.Handle(base+"/per-page", s.guard(a, s.tablePerPage)).Methods(http.MethodPost)
		if !sc.Writable {
			continue
		}
		sub.Handle(base+"/new", s.guard(a, s.newForm(sc))).Methods(http.MethodGet)
		sub.Handle(base, s.guard(a, s.create(sc))).Methods(http.MethodPost)
		sub.Handle(base+"/{id:[0-9]+}/edit", s.guard(a, s.editForm(sc))).Methods(http.MethodGet)
		sub.Handle(base+"/{id:[0-9]+}", s.guard(a, s.update(sc))).Methods(http.MethodPost)
		sub.Handle(base+"/{id:[0-9]+}/status", s.guard(a, s.toggleStatus(sc))).Methods(http.MethodPost)
		if sc.Entity != apiclient.EntityItem {
			continue
		}
		sub.Handle(base+"/export", s.guard(a, s.exportItems)).Methods(http.MethodGet)
		sub.Handle(base+"/import", s.guard(a, s.importPage)).Methods(http.MethodGet)
		sub.Handle(base+"/import", s.guard(a, s.importItems)).Methods(http.MethodPost)
		sub.Handle(base+"/import/template", s.guard(a, s.importTemplate)).Methods(http.MethodGet)
		sub.Handle(base+"/{id:[0-9]+}/image", s.guard(a, s.itemImagePage(sc))).Methods(http.MethodGet)
		sub.Handle(base+"/{id:[0-9]+}/image", s.guard(a, s.uploadItemImage(sc))).Methods(http.MethodPost)
	}
}

func pageTemplate(page string) *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/layout.html", page))
}

func assetFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := templatesFS.ReadFile(name)
		if err != nil {
			http.Error(w, "asset not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(data)
	}
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData, status int) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *server) render(w http.ResponseWriter, tmpl *template.Template, data pageData, name string) {
	s.renderStatus(w, tmpl, data, name, http.StatusOK)
}

func (s *server) renderStatus(w http.ResponseWriter, tmpl *template.Template, data pageData, name string, status int) {
	if err := renderHTMLTemplate(w, tmpl, data, status); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("%s template render failed: %v", name, err)
	}
}

// redirectWith sends the visitor to target with a toast message attached.
func redirectWith(w http.ResponseWriter, r *http.Request, target, key, message string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Del("message")
	q.Del("error")
	if message != "" {
		q.Set(key, message)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// localPath accepts only same-site absolute paths.
func localPath(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return u.String()
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func idFromRequest(r *http.Request) int64 {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func formatPrice(v any) string {
	f, err := strconv.ParseFloat(datatable.ValueString(v), 64)
	if err != nil {
		return datatable.ValueString(v)
	}
	return fmt.Sprintf("%.2f", f)
}
