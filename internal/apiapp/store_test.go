package apiapp

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestBindSQLParamsDoesNotRescanValues(t *testing.T) {
	got := bindSQLParams(
		`UPDATE branches SET email = @email, code = @code WHERE id = @row_id;`,
		map[string]string{"email": "ops@code.example", "code": "O'Neil", "row_id": "4"},
	)
	want := `UPDATE branches SET email = 'ops@code.example', code = 'O''Neil' WHERE id = '4';`
	if got != want {
		t.Fatalf("bindSQLParams:\n got %s\nwant %s", got, want)
	}
}

func TestBindSQLParamsLeavesUnknownTokens(t *testing.T) {
	got := bindSQLParams(`SELECT @name, @name_x;`, map[string]string{"name": "a"})
	if got != `SELECT 'a', @name_x;` {
		t.Fatalf("unexpected binding %s", got)
	}
}

func TestWithSQLiteRetryOnlyRetriesBusy(t *testing.T) {
	calls := 0
	err := withSQLiteRetry(func() error {
		calls++
		return errors.New("syntax error")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one attempt for non-busy error, got %d", calls)
	}

	calls = 0
	err = withSQLiteRetry(func() error {
		calls++
		if calls < 2 {
			return errors.New("Error: database is locked")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected retry to succeed on second attempt, got %d calls err %v", calls, err)
	}
}

func TestMemoryStoreUniqueAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id, err := store.Insert(ctx, tableBranches, record{"code": "A", "name": "Alpha"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, tableBranches, record{"code": "A", "name": "Again"}); !errors.Is(err, errConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := store.Update(ctx, tableBranches, id, record{"name": "Renamed"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Update(ctx, tableBranches, 99, record{"name": "x"}); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	row, err := store.Get(ctx, tableBranches, id)
	if err != nil || row.text("name") != "Renamed" {
		t.Fatalf("expected renamed row, got %v %v", row, err)
	}
	row["name"] = "mutated copy"
	again, _ := store.Get(ctx, tableBranches, id)
	if again.text("name") != "Renamed" {
		t.Fatalf("store returned a shared row")
	}
}

func TestMemoryStoreTokensExpire(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.CreateToken(ctx, "live", 1, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateToken(ctx, "dead", 1, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if id, err := store.TokenUser(ctx, "live"); err != nil || id != 1 {
		t.Fatalf("expected live token, got %d %v", id, err)
	}
	if _, err := store.TokenUser(ctx, "dead"); !errors.Is(err, errNotFound) {
		t.Fatalf("expected expired token to be not found, got %v", err)
	}
}

func TestValueConversions(t *testing.T) {
	r := record{"a": float64(3), "b": "12", "c": 2.5, "d": nil}
	if r.integer("a") != 3 || r.integer("b") != 12 {
		t.Fatalf("integer conversions failed")
	}
	if r.text("a") != "3" || r.text("c") != "2.5" || r.text("d") != "" {
		t.Fatalf("text conversions failed: %q %q %q", r.text("a"), r.text("c"), r.text("d"))
	}
	if r.decimal("b") != 12 {
		t.Fatalf("decimal conversion failed")
	}
}

func TestPaginateClampsPerPage(t *testing.T) {
	rows := make([]record, 250)
	for i := range rows {
		rows[i] = record{"id": int64(i + 1)}
	}
	page, meta := paginate(rows, url.Values{"per_page": {"500"}, "page": {"2"}})
	if meta.PerPage != maxPerPage || len(page) != maxPerPage || meta.From != 101 || meta.LastPage != 3 {
		t.Fatalf("unexpected page %d rows %+v", len(page), meta)
	}
	_, meta = paginate(nil, url.Values{})
	if meta.LastPage != 1 || meta.Total != 0 || meta.PerPage != defaultPerPage {
		t.Fatalf("unexpected empty pagination %+v", meta)
	}
}

func TestPaginateClampsPagePastTheEnd(t *testing.T) {
	rows := make([]record, 20)
	for i := range rows {
		rows[i] = record{"id": int64(i + 1)}
	}
	page, meta := paginate(rows, url.Values{"page": {"3"}, "per_page": {"10"}})
	want := pagination{CurrentPage: 2, PerPage: 10, Total: 20, From: 11, To: 20, LastPage: 2}
	if meta != want || len(page) != 10 || page[0].integer("id") != 11 {
		t.Fatalf("expected %+v, got %d rows %+v", want, len(page), meta)
	}
	_, meta = paginate(nil, url.Values{"page": {"4"}})
	if meta.CurrentPage != 1 || meta.From != 0 || meta.To != 0 {
		t.Fatalf("unexpected empty pagination %+v", meta)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := OpenStore(context.Background(), Config{Driver: "mysql"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
