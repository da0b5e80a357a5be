package apiapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// sqliteStore drives the sqlite3 command line tool. Parameters are bound as
// quoted literals; column names only ever come from code.
type sqliteStore struct {
	dbPath string
}

func (s *sqliteStore) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			mobile TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			branch_id INTEGER NOT NULL DEFAULT 0,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS api_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_api_tokens_expires_at ON api_tokens(expires_at);`,
		`CREATE TABLE IF NOT EXISTS branches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			mobile TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			status INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS designations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			designation TEXT NOT NULL UNIQUE COLLATE NOCASE,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			mobile TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			branch_id INTEGER NOT NULL,
			designation_id INTEGER NOT NULL,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(branch_id) REFERENCES branches(id),
			FOREIGN KEY(designation_id) REFERENCES designations(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_employees_branch_id ON employees(branch_id);`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			image_url TEXT NOT NULL DEFAULT '',
			status INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, statement := range statements {
		if _, err := s.exec(ctx, statement, nil); err != nil {
			return err
		}
	}
	_, err := s.exec(ctx, `DELETE FROM api_tokens WHERE expires_at <= @now;`, map[string]string{
		"now": strconv.FormatInt(time.Now().UTC().Unix(), 10),
	})
	return err
}

func (s *sqliteStore) List(ctx context.Context, table string) ([]record, error) {
	return s.query(ctx, `SELECT * FROM `+table+` ORDER BY id;`, nil)
}

func (s *sqliteStore) Find(ctx context.Context, table, column string, value any) ([]record, error) {
	literal, err := valueAsString(value)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, `SELECT * FROM `+table+` WHERE `+column+` = @value ORDER BY id;`, map[string]string{"value": literal})
}

func (s *sqliteStore) Get(ctx context.Context, table string, id int64) (record, error) {
	rows, err := s.query(ctx, `SELECT * FROM `+table+` WHERE id = @id LIMIT 1;`, map[string]string{
		"id": strconv.FormatInt(id, 10),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNotFound
	}
	return rows[0], nil
}

func (s *sqliteStore) Insert(ctx context.Context, table string, values record) (int64, error) {
	columns, params, err := sqliteColumns(values)
	if err != nil {
		return 0, err
	}
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		placeholders[i] = "@" + column
	}
	statement := `INSERT INTO ` + table + ` (` + strings.Join(columns, ", ") + `) VALUES (` + strings.Join(placeholders, ", ") + `);
		SELECT last_insert_rowid() AS id;`

	var rows []record
	err = withSQLiteRetry(func() error {
		var queryErr error
		rows, queryErr = s.query(ctx, statement, params)
		return queryErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errConflict
		}
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("insert into %s returned no id", table)
	}
	return valueAsInt64(rows[0]["id"])
}

func (s *sqliteStore) Update(ctx context.Context, table string, id int64, changes record) error {
	if len(changes) == 0 {
		return nil
	}
	columns, params, err := sqliteColumns(changes)
	if err != nil {
		return err
	}
	sets := make([]string, len(columns))
	for i, column := range columns {
		sets[i] = column + " = @" + column
	}
	params["row_id"] = strconv.FormatInt(id, 10)
	statement := `UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = @row_id;
		SELECT changes() AS changed;`

	var rows []record
	err = withSQLiteRetry(func() error {
		var queryErr error
		rows, queryErr = s.query(ctx, statement, params)
		return queryErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return errConflict
		}
		return err
	}
	if len(rows) == 0 || rows[0].integer("changed") == 0 {
		return errNotFound
	}
	return nil
}

func (s *sqliteStore) CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := s.exec(ctx, `
		INSERT INTO api_tokens (token, user_id, expires_at, created_at)
		VALUES (@token, @user_id, @expires_at, @created_at);
	`, map[string]string{
		"token":      token,
		"user_id":    strconv.FormatInt(userID, 10),
		"expires_at": strconv.FormatInt(expiresAt.UTC().Unix(), 10),
		"created_at": strconv.FormatInt(time.Now().UTC().Unix(), 10),
	})
	return err
}

func (s *sqliteStore) TokenUser(ctx context.Context, token string) (int64, error) {
	rows, err := s.query(ctx, `
		SELECT user_id, expires_at
		FROM api_tokens
		WHERE token = @token
		LIMIT 1;
	`, map[string]string{"token": token})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errNotFound
	}
	if time.Now().UTC().Unix() >= rows[0].integer("expires_at") {
		_ = s.DeleteToken(ctx, token)
		return 0, errNotFound
	}
	return rows[0].integer("user_id"), nil
}

func (s *sqliteStore) DeleteToken(ctx context.Context, token string) error {
	_, err := s.exec(ctx, `DELETE FROM api_tokens WHERE token = @token;`, map[string]string{"token": token})
	return err
}

func (s *sqliteStore) Close() error {
	return nil
}

func sqliteColumns(values record) ([]string, map[string]string, error) {
	columns := make([]string, 0, len(values))
	params := make(map[string]string, len(values))
	for column, value := range values {
		literal, err := valueAsString(value)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", column, err)
		}
		columns = append(columns, column)
		params[column] = literal
	}
	sort.Strings(columns)
	return columns, params, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *sqliteStore) exec(ctx context.Context, statement string, params map[string]string) (string, error) {
	return s.run(ctx, statement, params, false)
}

func (s *sqliteStore) query(ctx context.Context, statement string, params map[string]string) ([]record, error) {
	out, err := s.run(ctx, statement, params, true)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return []record{}, nil
	}

	var rows []record
	if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *sqliteStore) run(ctx context.Context, statement string, params map[string]string, jsonMode bool) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	args := []string{s.dbPath, ".timeout 5000"}
	if jsonMode {
		args = append(args, ".mode json")
	}
	args = append(args, "PRAGMA foreign_keys = ON;")
	args = append(args, bindSQLParams(statement, params))

	cmd := exec.CommandContext(runCtx, "sqlite3", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("sqlite3 command failed: %w (%s)", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

var sqlParamPattern = regexp.MustCompile(`@[A-Za-z_][A-Za-z0-9_]*`)

// bindSQLParams substitutes @name tokens in one pass, so bound values that
// contain @ (email addresses) are never rescanned.
func bindSQLParams(statement string, params map[string]string) string {
	if len(params) == 0 {
		return statement
	}
	return sqlParamPattern.ReplaceAllStringFunc(statement, func(token string) string {
		if value, ok := params[token[1:]]; ok {
			return sqliteStringLiteral(value)
		}
		return token
	})
}

func withSQLiteRetry(fn func() error) error {
	const maxAttempts = 3
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		lower := strings.ToLower(err.Error())
		if !strings.Contains(lower, "database is locked") && !strings.Contains(lower, "database is busy") {
			return err
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * 125 * time.Millisecond)
		}
	}
	return err
}

func sqliteStringLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
