package apiapp

import (
	"context"
	"sync"
	"time"
)

type memoryToken struct {
	userID    int64
	expiresAt time.Time
}

// memoryStore keeps everything in process. It backs tests and
// DB_DRIVER=memory demos.
type memoryStore struct {
	mu     sync.Mutex
	tables map[string][]record
	seq    map[string]int64
	tokens map[string]memoryToken
	unique map[string][]string
}

func NewMemoryStore() Store {
	return &memoryStore{
		tables: map[string][]record{},
		seq:    map[string]int64{},
		tokens: map[string]memoryToken{},
		unique: map[string][]string{
			tableUsers:        {"username"},
			tableBranches:     {"code"},
			tableEmployees:    {"employee_code"},
			tableDesignations: {"designation"},
		},
	}
}

func (s *memoryStore) Init(ctx context.Context) error {
	return nil
}

func (s *memoryStore) List(ctx context.Context, table string) ([]record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	out := make([]record, len(rows))
	for i, row := range rows {
		out[i] = row.clone()
	}
	return out, nil
}

func (s *memoryStore) Find(ctx context.Context, table, column string, value any) ([]record, error) {
	want, err := valueAsString(value)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []record{}
	for _, row := range s.tables[table] {
		if row.text(column) == want {
			out = append(out, row.clone())
		}
	}
	return out, nil
}

func (s *memoryStore) Get(ctx context.Context, table string, id int64) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(table, id); idx >= 0 {
		return s.tables[table][idx].clone(), nil
	}
	return nil, errNotFound
}

func (s *memoryStore) Insert(ctx context.Context, table string, values record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.violatesUnique(table, 0, values) {
		return 0, errConflict
	}
	s.seq[table]++
	id := s.seq[table]
	row := values.clone()
	row["id"] = id
	s.tables[table] = append(s.tables[table], row)
	return id, nil
}

func (s *memoryStore) Update(ctx context.Context, table string, id int64, changes record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(table, id)
	if idx < 0 {
		return errNotFound
	}
	if s.violatesUnique(table, id, changes) {
		return errConflict
	}
	row := s.tables[table][idx]
	for k, v := range changes {
		row[k] = v
	}
	return nil
}

func (s *memoryStore) CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *memoryStore) TokenUser(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return 0, errNotFound
	}
	if !time.Now().Before(t.expiresAt) {
		delete(s.tokens, token)
		return 0, errNotFound
	}
	return t.userID, nil
}

func (s *memoryStore) DeleteToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func (s *memoryStore) indexOf(table string, id int64) int {
	for i, row := range s.tables[table] {
		if row.integer("id") == id {
			return i
		}
	}
	return -1
}

func (s *memoryStore) violatesUnique(table string, id int64, values record) bool {
	for _, column := range s.unique[table] {
		value, ok := values[column]
		if !ok {
			continue
		}
		want, _ := valueAsString(value)
		for _, row := range s.tables[table] {
			if row.integer("id") != id && row.text(column) == want {
				return true
			}
		}
	}
	return false
}
