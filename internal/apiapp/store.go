package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	errNotFound = errors.New("not found")
	errConflict = errors.New("already exists")
)

const (
	tableUsers        = "users"
	tableTokens       = "api_tokens"
	tableBranches     = "branches"
	tableEmployees    = "employees"
	tableDesignations = "designations"
	tableItems        = "items"
)

const timestampLayout = "2006-01-02 15:04:05"

// Store is the persistence boundary of the API. Rows travel as records keyed
// by column name; filtering, sorting and paging happen above it.
type Store interface {
	Init(ctx context.Context) error
	List(ctx context.Context, table string) ([]record, error)
	Find(ctx context.Context, table, column string, value any) ([]record, error)
	Get(ctx context.Context, table string, id int64) (record, error)
	Insert(ctx context.Context, table string, values record) (int64, error)
	Update(ctx context.Context, table string, id int64, changes record) error

	CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	// TokenUser returns errNotFound for unknown and expired tokens.
	TokenUser(ctx context.Context, token string) (int64, error)
	DeleteToken(ctx context.Context, token string) error

	Close() error
}

// OpenStore returns the store selected by cfg.Driver, schema initialised.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	var store Store
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		store = &sqliteStore{dbPath: cfg.DBPath}
	case "mysql":
		gs, err := openGormStore(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		store = gs
	case "memory":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q (want sqlite, mysql or memory)", cfg.Driver)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

type record map[string]any

func (r record) text(key string) string {
	value, err := valueAsString(r[key])
	if err != nil {
		return ""
	}
	return value
}

func (r record) integer(key string) int64 {
	value, err := valueAsInt64(r[key])
	if err != nil {
		return 0
	}
	return value
}

func (r record) decimal(key string) float64 {
	value, err := valueAsFloat64(r[key])
	if err != nil {
		return 0
	}
	return value
}

func (r record) clone() record {
	out := make(record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func now() string {
	return time.Now().UTC().Format(timestampLayout)
}

func valueAsString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("unexpected type for string: %T", value)
	}
}

func valueAsInt64(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type for int64: %T", value)
	}
}

func valueAsFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unexpected type for float64: %T", value)
	}
}
