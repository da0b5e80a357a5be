// Package console is the terminal front end: the same list screens as the
// web client, driven from the keyboard.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/listing"
	"github.com/phillip-england/branchdesk/internal/session"
	"github.com/phillip-england/branchdesk/internal/theme"
)

type Config struct {
	APIBaseURL  string
	SessionPath string
	ThemePath   string
	// LogPath receives log output while the console owns the terminal.
	// Empty discards it.
	LogPath string
}

func DefaultConfigFromEnv() Config {
	home := strings.TrimSpace(os.Getenv("BRANCHDESK_HOME"))
	if home == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			home = filepath.Join(dir, "branchdesk")
		} else {
			home = ".branchdesk"
		}
	}
	base := strings.TrimSpace(os.Getenv("API_BASE_URL"))
	if base == "" {
		base = "http://localhost:8080"
	}
	return Config{
		APIBaseURL:  base,
		SessionPath: filepath.Join(home, "session.json"),
		ThemePath:   filepath.Join(home, "theme.json"),
		LogPath:     strings.TrimSpace(os.Getenv("BRANCHDESK_CONSOLE_LOG")),
	}
}

func Run(ctx context.Context, cfg Config) error {
	if cfg.LogPath != "" {
		f, err := tea.LogToFile(cfg.LogPath, "console")
		if err != nil {
			return fmt.Errorf("open console log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	auth := apiclient.New(cfg.APIBaseURL, nil)
	sessions := session.NewStore(auth, session.FilePersister{Path: cfg.SessionPath})
	api := apiclient.New(cfg.APIBaseURL, sessions)
	themes := theme.NewStore(theme.FilePersister{Path: cfg.ThemePath})

	m := newModel(deps{
		ctx:      ctx,
		sessions: sessions,
		themes:   themes,
		source: func(e apiclient.Entity) listing.Source {
			return apiclient.EntitySource{Client: api, Entity: e}
		},
	})

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
