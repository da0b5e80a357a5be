package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindInt
	kindFloat
)

type field struct {
	Name     string
	Label    string
	Kind     fieldKind
	Required bool
	Email    bool
	// Unique compares case-insensitively against other rows.
	Unique  bool
	Options []string
	// Ref names the table an id must exist in.
	Ref    string
	Search bool
}

type entity struct {
	Name      string
	Title     string
	Table     string
	ListKey   string
	AdminOnly bool
	Fields    []field
	// Extra are read-only columns that can still be listed, sorted and filtered.
	Extra []field
}

var itemCategories = []string{"snacks", "food_item", "cake"}

var entities = map[string]*entity{
	"branch": {
		Name: "branch", Title: "Branch", Table: tableBranches, ListKey: "branches", AdminOnly: true,
		Fields: []field{
			{Name: "code", Label: "code", Required: true, Unique: true, Search: true},
			{Name: "name", Label: "name", Required: true, Search: true},
			{Name: "address", Label: "address", Required: true, Search: true},
			{Name: "mobile", Label: "mobile", Required: true, Search: true},
			{Name: "email", Label: "email", Required: true, Email: true, Search: true},
			{Name: "phone", Label: "phone", Search: true},
		},
	},
	"employee": {
		Name: "employee", Title: "Employee", Table: tableEmployees, ListKey: "employees", AdminOnly: true,
		Fields: []field{
			{Name: "employee_code", Label: "employee code", Required: true, Unique: true, Search: true},
			{Name: "name", Label: "name", Required: true, Search: true},
			{Name: "mobile", Label: "mobile", Required: true, Search: true},
			{Name: "email", Label: "email", Email: true, Search: true},
			{Name: "branch_id", Label: "branch", Kind: kindInt, Required: true, Ref: tableBranches},
			{Name: "designation_id", Label: "designation", Kind: kindInt, Required: true, Ref: tableDesignations},
		},
		Extra: []field{
			{Name: "branch_name", Search: true},
			{Name: "designation", Search: true},
		},
	},
	"designation": {
		Name: "designation", Title: "Designation", Table: tableDesignations, ListKey: "designations",
		Fields: []field{
			{Name: "designation", Label: "designation", Required: true, Unique: true, Search: true},
		},
	},
	"item": {
		Name: "item", Title: "Item", Table: tableItems, ListKey: "items",
		Fields: []field{
			{Name: "name", Label: "name", Required: true, Search: true},
			{Name: "category", Label: "category", Required: true, Options: itemCategories, Search: true},
			{Name: "price", Label: "price", Kind: kindFloat},
		},
		Extra: []field{
			{Name: "image_url"},
		},
	},
}

var commonColumns = []field{
	{Name: "id", Kind: kindInt},
	{Name: "status", Kind: kindInt, Options: []string{"0", "1"}},
	{Name: "created_at"},
	{Name: "updated_at"},
}

func (e *entity) field(name string) (field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field{}, false
}

// column finds any listable column, editable or not.
func (e *entity) column(name string) (field, bool) {
	if f, ok := e.field(name); ok {
		return f, true
	}
	for _, group := range [][]field{e.Extra, commonColumns} {
		for _, f := range group {
			if f.Name == name {
				return f, true
			}
		}
	}
	return field{}, false
}

func (e *entity) columns() []field {
	out := make([]field, 0, len(e.Fields)+len(e.Extra)+len(commonColumns))
	out = append(out, commonColumns[0])
	out = append(out, e.Fields...)
	out = append(out, e.Extra...)
	return append(out, commonColumns[1:]...)
}

// normalize gives every known column its Go type whatever the store returned.
func (e *entity) normalize(r record) record {
	out := make(record, len(r))
	for _, f := range e.columns() {
		raw, ok := r[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case kindInt:
			out[f.Name] = r.integer(f.Name)
		case kindFloat:
			out[f.Name] = r.decimal(f.Name)
		default:
			if raw == nil {
				out[f.Name] = ""
			} else {
				out[f.Name] = r.text(f.Name)
			}
		}
	}
	return out
}

type fieldErrors map[string][]string

func (fe fieldErrors) add(name, message string) {
	fe[name] = append(fe[name], message)
}

// validate checks input against the entity. With partial set only the
// present fields are checked and returned; otherwise every required field
// must be there. Row id is excluded from uniqueness checks.
func (e *entity) validate(ctx context.Context, store Store, input map[string]any, id int64, partial bool) (record, fieldErrors, error) {
	errs := fieldErrors{}
	out := record{}

	for name := range input {
		if _, ok := e.field(name); !ok {
			errs.add(name, fmt.Sprintf("The %s field is not allowed.", strings.ReplaceAll(name, "_", " ")))
		}
	}

	for _, f := range e.Fields {
		raw, present := input[f.Name]
		if !present && partial {
			continue
		}
		value, msg := coerce(f, raw)
		if msg != "" {
			errs.add(f.Name, msg)
			continue
		}
		if isBlank(value) {
			if f.Required {
				errs.add(f.Name, fmt.Sprintf("The %s field is required.", f.Label))
				continue
			}
			out[f.Name] = value
			continue
		}
		if msg := checkValue(f, value); msg != "" {
			errs.add(f.Name, msg)
			continue
		}
		out[f.Name] = value
	}

	for _, f := range e.Fields {
		value, ok := out[f.Name]
		if !ok || isBlank(value) || len(errs[f.Name]) > 0 {
			continue
		}
		if f.Unique {
			taken, err := e.taken(ctx, store, f.Name, value.(string), id)
			if err != nil {
				return nil, nil, err
			}
			if taken {
				errs.add(f.Name, fmt.Sprintf("The %s has already been taken.", f.Label))
			}
		}
		if f.Ref != "" {
			if _, err := store.Get(ctx, f.Ref, value.(int64)); err != nil {
				if !errors.Is(err, errNotFound) {
					return nil, nil, err
				}
				errs.add(f.Name, fmt.Sprintf("The selected %s is invalid.", f.Label))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs, nil
	}
	return out, nil, nil
}

func (e *entity) taken(ctx context.Context, store Store, column, value string, id int64) (bool, error) {
	rows, err := store.List(ctx, e.Table)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.integer("id") != id && strings.EqualFold(strings.TrimSpace(row.text(column)), value) {
			return true, nil
		}
	}
	return false, nil
}

// coerce converts a decoded JSON or spreadsheet value to the field's type.
// A non-empty message reports a type mismatch.
func coerce(f field, raw any) (any, string) {
	switch f.Kind {
	case kindInt:
		if raw == nil || raw == "" {
			return int64(0), ""
		}
		value, err := valueAsInt64(raw)
		if err != nil {
			return nil, fmt.Sprintf("The %s must be an integer.", f.Label)
		}
		return value, ""
	case kindFloat:
		if raw == nil || raw == "" {
			return float64(0), ""
		}
		value, err := valueAsFloat64(raw)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Sprintf("The %s must be a number.", f.Label)
		}
		return value, ""
	default:
		switch v := raw.(type) {
		case nil:
			return "", ""
		case string:
			return strings.TrimSpace(v), ""
		case json.Number:
			return v.String(), ""
		default:
			return nil, fmt.Sprintf("The %s must be a string.", f.Label)
		}
	}
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case string:
		return v == ""
	case int64:
		return v == 0
	}
	return false
}

func checkValue(f field, value any) string {
	switch v := value.(type) {
	case string:
		if len(v) > 255 {
			return fmt.Sprintf("The %s may not be greater than 255 characters.", f.Label)
		}
		if f.Email {
			if _, err := mail.ParseAddress(v); err != nil {
				return fmt.Sprintf("The %s must be a valid email address.", f.Label)
			}
		}
		if len(f.Options) > 0 && !contains(f.Options, v) {
			return fmt.Sprintf("The selected %s is invalid.", f.Label)
		}
	case int64:
		if v < 0 {
			return fmt.Sprintf("The selected %s is invalid.", f.Label)
		}
	case float64:
		if v < 0 {
			return fmt.Sprintf("The %s must be at least 0.", f.Label)
		}
	}
	return ""
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// decorate fills the joined display columns of employees.
func (s *server) decorate(ctx context.Context, e *entity, rows []record) error {
	if e.Name != "employee" || len(rows) == 0 {
		return nil
	}
	branches, err := s.store.List(ctx, tableBranches)
	if err != nil {
		return err
	}
	designations, err := s.store.List(ctx, tableDesignations)
	if err != nil {
		return err
	}
	branchNames := make(map[int64]string, len(branches))
	for _, b := range branches {
		branchNames[b.integer("id")] = b.text("name")
	}
	designationNames := make(map[int64]string, len(designations))
	for _, d := range designations {
		designationNames[d.integer("id")] = d.text("designation")
	}
	for _, row := range rows {
		row["branch_name"] = branchNames[row.integer("branch_id")]
		row["designation"] = designationNames[row.integer("designation_id")]
	}
	return nil
}

func (s *server) loadRows(ctx context.Context, e *entity) ([]record, error) {
	raw, err := s.store.List(ctx, e.Table)
	if err != nil {
		return nil, err
	}
	rows := make([]record, len(raw))
	for i, row := range raw {
		rows[i] = e.normalize(row)
	}
	if err := s.decorate(ctx, e, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *server) loadRow(ctx context.Context, e *entity, id int64) (record, error) {
	raw, err := s.store.Get(ctx, e.Table, id)
	if err != nil {
		return nil, err
	}
	row := e.normalize(raw)
	if err := s.decorate(ctx, e, []record{row}); err != nil {
		return nil, err
	}
	return row, nil
}
