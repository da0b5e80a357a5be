// Package theme is the light/dark palette selection shared by the web client
// and the console.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// ParseMode accepts "light" or "dark"; anything else is light.
func ParseMode(raw string) Mode {
	if Mode(raw) == Dark {
		return Dark
	}
	return Light
}

type Palette struct {
	Primary    string
	Background string
	Sidebar    string
	Card       string
	Text       string
	Muted      string
	Border     string
}

const Primary = "#17B8A6"

func PaletteFor(mode Mode) Palette {
	if mode == Dark {
		return Palette{
			Primary:    Primary,
			Background: "#121212",
			Sidebar:    "#23272f",
			Card:       "#23272f",
			Text:       "#FFFFFF",
			Muted:      "#9CA3AF",
			Border:     "#374151",
		}
	}
	return Palette{
		Primary:    Primary,
		Background: "#FAFAFA",
		Sidebar:    "#F5F5F5",
		Card:       "#FFFFFF",
		Text:       "#212121",
		Muted:      "#6B7280",
		Border:     "#E5E7EB",
	}
}

type Persister interface {
	Load() (Mode, error)
	Save(Mode) error
}

// Store holds the current mode. Every change is persisted.
type Store struct {
	persist Persister

	mu   sync.RWMutex
	mode Mode
}

func NewStore(persist Persister) *Store {
	if persist == nil {
		persist = &MemoryPersister{}
	}
	s := &Store{persist: persist, mode: Light}
	if mode, err := persist.Load(); err == nil {
		s.mode = ParseMode(string(mode))
	}
	return s
}

func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Store) Palette() Palette {
	return PaletteFor(s.Mode())
}

func (s *Store) Set(mode Mode) error {
	mode = ParseMode(string(mode))
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return s.persist.Save(mode)
}

func (s *Store) Toggle() (Mode, error) {
	s.mu.Lock()
	next := Dark
	if s.mode == Dark {
		next = Light
	}
	s.mode = next
	s.mu.Unlock()
	return next, s.persist.Save(next)
}

// FilePersister stores {"theme": "<mode>"} at Path.
type FilePersister struct {
	Path string
}

type stored struct {
	Theme Mode `json:"theme"`
}

func (p FilePersister) Load() (Mode, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Light, nil
		}
		return Light, fmt.Errorf("read theme file: %w", err)
	}
	var s stored
	if err := json.Unmarshal(data, &s); err != nil {
		return Light, fmt.Errorf("decode theme file: %w", err)
	}
	return ParseMode(string(s.Theme)), nil
}

func (p FilePersister) Save(mode Mode) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create theme dir: %w", err)
	}
	data, err := json.Marshal(stored{Theme: mode})
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0o644)
}

type MemoryPersister struct {
	mu   sync.Mutex
	mode Mode
}

func (p *MemoryPersister) Load() (Mode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ParseMode(string(p.mode)), nil
}

func (p *MemoryPersister) Save(mode Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	return nil
}
