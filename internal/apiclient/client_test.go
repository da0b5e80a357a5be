package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/phillip-england/branchdesk/internal/listing"
)

type mutableToken struct{ value string }

func (m *mutableToken) Token() string { return m.value }

func TestBearerInjectedOnlyWhenTokenPresent(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	tokens := &mutableToken{}
	c := New(srv.URL, tokens)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	tokens.value = "abc"
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if seen[0] != "" || seen[1] != "Bearer abc" {
		t.Fatalf("unexpected auth headers %q", seen)
	}
}

func TestLoginAndLogout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["username"] != "root" || in["password"] != "correct horse" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":"Invalid credentials","message":"Invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"token":"t1","user":{"id":1,"username":"root","name":"Root","role":"super_admin"},"message":"Login successful"}`))
		case "/api/logout":
			if r.Header.Get("Authorization") != "Bearer t1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"message":"Logged out"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	token, user, err := c.Login(context.Background(), "root", "correct horse")
	if err != nil || token != "t1" || user.Role != "super_admin" {
		t.Fatalf("login: %q %+v %v", token, user, err)
	}
	if err := c.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, _, err = c.Login(context.Background(), "root", "nope")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if MessageOf(err, "fallback") != "Invalid credentials" {
		t.Fatalf("unexpected message %q", MessageOf(err, "fallback"))
	}
}

func TestValidationErrorsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"message":"Validation failed","errors":{"code":["The code has already been taken."]}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, StaticToken("x")).Create(context.Background(), EntityBranch, map[string]any{"code": "B1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Fields["code"][0] != "The code has already been taken." {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestListDecodesRowsAndPagination(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"success":true,"items":[{"id":3,"name":"Puff","price":15}],"pagination":{"current_page":2,"per_page":10,"total":11,"from":11,"to":11,"last_page":2}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("x"))
	src := EntitySource{Client: c, Entity: EntityItem}
	var _ listing.Source = src

	res, err := src.List(context.Background(), url.Values{"page": {"2"}, "category": {"snacks"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery.Get("category") != "snacks" {
		t.Fatalf("filters not forwarded: %v", gotQuery)
	}
	if len(res.Rows) != 1 || res.Rows[0]["name"] != "Puff" {
		t.Fatalf("unexpected rows %v", res.Rows)
	}
	if res.Pagination.LastPage != 2 || res.Pagination.From != 11 {
		t.Fatalf("unexpected pagination %+v", res.Pagination)
	}
}

func TestUpdateSendsOnlyChanges(t *testing.T) {
	var body map[string]any
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"success":true,"message":"Item updated successfully"}`))
	}))
	defer srv.Close()

	msg, err := New(srv.URL, StaticToken("x")).Update(context.Background(), EntityItem, 9, map[string]any{"price": 20})
	if err != nil || msg != "Item updated successfully" {
		t.Fatalf("update: %q %v", msg, err)
	}
	if method != http.MethodPut || path != "/api/item/update/9" || len(body) != 1 {
		t.Fatalf("unexpected request %s %s %v", method, path, body)
	}
}

func TestImportItemsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "items.xlsx" || string(data) != "sheet" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Imported 1 item","imported":1,"errors":[{"row":3,"errors":{"category":["Invalid category"]}}]}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, StaticToken("x")).ImportItems(context.Background(), "items.xlsx", strings.NewReader("sheet"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || len(res.Errors) != 1 || res.Errors[0].Row != 3 || res.Errors[0].Errors["category"][0] != "Invalid category" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSetStatusPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/branch/update-status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"database unavailable","message":"database unavailable"}`))
	}))
	defer srv.Close()

	err := EntitySource{Client: New(srv.URL, StaticToken("x")), Entity: EntityBranch}.SetStatus(context.Background(), 4, 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if body["id"] != float64(4) || body["status"] != float64(0) {
		t.Fatalf("unexpected payload %v", body)
	}
}
