package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/phillip-england/branchdesk/internal/middleware"
	"github.com/phillip-england/branchdesk/internal/session"
)

type Config struct {
	Addr          string
	Driver        string
	DBPath        string
	MySQLDSN      string
	AdminUsername string
	AdminPassword string
	TokenTTL      time.Duration
	UploadDir     string
	CORSOrigins   []string
}

type server struct {
	store     Store
	tokenTTL  time.Duration
	uploadDir string
}

func DefaultConfigFromEnv() Config {
	ttl := 12 * time.Hour
	if hours := parsePositiveInt(os.Getenv("TOKEN_TTL_HOURS"), 0); hours > 0 {
		ttl = time.Duration(hours) * time.Hour
	}
	var origins []string
	for _, origin := range strings.Split(os.Getenv("API_CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return Config{
		Addr:          envOrDefault("API_ADDR", ":8080"),
		Driver:        envOrDefault("DB_DRIVER", "sqlite"),
		DBPath:        envOrDefault("AUTH_DB_PATH", "branchdesk.db"),
		MySQLDSN:      strings.TrimSpace(os.Getenv("MYSQL_DSN")),
		AdminUsername: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		TokenTTL:      ttl,
		UploadDir:     envOrDefault("UPLOAD_DIR", "uploads"),
		CORSOrigins:   origins,
	}
}

func Run(ctx context.Context, cfg Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required")
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := ensureSuperAdmin(ctx, store, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(store, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("api listening on http://localhost%s (%s store)", cfg.Addr, cfg.Driver)
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

// NewHandler wires every API route over store.
func NewHandler(store Store, cfg Config) http.Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	s := &server{store: store, tokenTTL: cfg.TokenTTL, uploadDir: cfg.UploadDir}

	anyRole := s.requireRole()
	admins := s.requireRole(session.RoleSuperAdmin, session.RoleAdmin)
	branchOnly := s.requireRole(session.RoleBranch)
	gate := func(h http.HandlerFunc, guard func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(h, guard)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/login", s.login).Methods(http.MethodPost)
	api.Handle("/logout", gate(s.logout, anyRole)).Methods(http.MethodPost)
	api.Handle("/me", gate(s.me, anyRole)).Methods(http.MethodGet)

	api.Handle("/profile", gate(s.profile, anyRole)).Methods(http.MethodGet)
	api.Handle("/profile", gate(s.updateProfile, anyRole)).Methods(http.MethodPut)
	api.Handle("/profile/password", gate(s.changePassword, anyRole)).Methods(http.MethodPost)

	api.Handle("/items", gate(s.listHandler("item"), anyRole)).Methods(http.MethodGet)
	api.Handle("/designations", gate(s.listHandler("designation"), anyRole)).Methods(http.MethodGet)
	api.Handle("/designations/active", gate(s.activeDesignations, anyRole)).Methods(http.MethodGet)
	api.Handle("/admin/branches", gate(s.listHandler("branch"), admins)).Methods(http.MethodGet)
	api.Handle("/admin/branches/minimal", gate(s.minimalBranches, admins)).Methods(http.MethodGet)
	api.Handle("/admin/all-employees", gate(s.listHandler("employee"), admins)).Methods(http.MethodGet)
	api.Handle("/admin/dashboard/stats", gate(s.adminStats, admins)).Methods(http.MethodGet)
	api.Handle("/branch/dashboard/stats", gate(s.branchStats, branchOnly)).Methods(http.MethodGet)

	const entityPattern = "{entity:branch|employee|designation|item}"
	api.Handle("/"+entityPattern+"/show/{id:[0-9]+}", gate(s.show, anyRole)).Methods(http.MethodGet)
	api.Handle("/create/"+entityPattern, gate(s.create, admins)).Methods(http.MethodPost)
	api.Handle("/"+entityPattern+"/update/{id:[0-9]+}", gate(s.update, admins)).Methods(http.MethodPut)
	api.Handle("/"+entityPattern+"/update-status", gate(s.updateStatus, admins)).Methods(http.MethodPost)

	api.Handle("/import/items", gate(s.importItems, admins)).Methods(http.MethodPost)
	api.Handle("/import/items/template", gate(s.importTemplate, admins)).Methods(http.MethodGet)
	api.Handle("/export/items", gate(s.exportItems, admins)).Methods(http.MethodGet)
	api.Handle("/item/{id:[0-9]+}/image", gate(s.uploadItemImage, admins)).Methods(http.MethodPost)

	r.PathPrefix(uploadsPrefix).Handler(http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(s.uploadDir))))

	csp := strings.Join([]string{
		"default-src 'none'",
		"img-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		r,
		middleware.RequestLog("api"),
		middleware.CORS(cfg.CORSOrigins),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func parsePositiveInt(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func decodeJSONBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.UseNumber()
	return decoder.Decode(out)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message, "message": message})
}

// writeValidation answers 422 with per-field messages; the top-level message
// is the first field's first message.
func writeValidation(w http.ResponseWriter, errs fieldErrors) {
	message := "The given data was invalid."
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 && len(errs[names[0]]) > 0 {
		message = errs[names[0]][0]
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"success": false,
		"message": message,
		"errors":  errs,
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": true, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
