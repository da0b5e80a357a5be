package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persister keeps the session between runs.
type Persister interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FilePersister stores the session as JSON, readable only by the owner.
type FilePersister struct {
	Path string
}

func (p FilePersister) Load() (Session, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}
	return sess, nil
}

func (p FilePersister) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0o600)
}

func (p FilePersister) Clear() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

type MemoryPersister struct {
	mu   sync.Mutex
	sess Session
}

func (p *MemoryPersister) Load() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess, nil
}

func (p *MemoryPersister) Save(sess Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess = sess
	return nil
}

func (p *MemoryPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess = Session{}
	return nil
}
