// Package datatable holds the state machine behind every list screen: sort,
// staged and committed filters, column visibility, drag resize, the column
// popover and the pagination window. It has no I/O; hosts feed it rows and
// listen for the intents it emits.
package datatable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type FilterType string

const (
	FilterNone   FilterType = ""
	FilterText   FilterType = "text"
	FilterSelect FilterType = "select"
)

type Option struct {
	Value string
	Label string
}

// Row is one record of the current page, keyed by column accessor.
type Row map[string]any

type Column struct {
	Accessor      string
	Header        string
	Sortable      bool
	Filterable    bool
	FilterType    FilterType
	FilterOptions []Option
	// Cell overrides the default rendering of Row[Accessor]. Panics are not
	// recovered.
	Cell func(Row) string
}

var ErrInvalidColumns = errors.New("invalid column set")

// ValidateColumns checks that accessors are unique and non-empty and that
// every filterable column declares a usable filter type.
func ValidateColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		accessor := strings.TrimSpace(col.Accessor)
		if accessor == "" {
			return fmt.Errorf("%w: column %d has an empty accessor", ErrInvalidColumns, i)
		}
		if seen[accessor] {
			return fmt.Errorf("%w: duplicate accessor %q", ErrInvalidColumns, accessor)
		}
		seen[accessor] = true
		if !col.Filterable {
			continue
		}
		switch col.FilterType {
		case FilterText:
		case FilterSelect:
			if len(col.FilterOptions) == 0 {
				return fmt.Errorf("%w: select filter on %q has no options", ErrInvalidColumns, accessor)
			}
		default:
			return fmt.Errorf("%w: filterable column %q has no filter type", ErrInvalidColumns, accessor)
		}
	}
	return nil
}

// CellText renders a row value for a column, using Cell when present.
func (c Column) CellText(row Row) string {
	if c.Cell != nil {
		return c.Cell(row)
	}
	return ValueString(row[c.Accessor])
}

// OptionLabel maps a select filter value to its label, falling back to the
// value itself.
func (c Column) OptionLabel(value string) string {
	for _, opt := range c.FilterOptions {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// RowKey identifies a row by its id field, or by its position in the page
// when the row has none. Positional keys are unstable across reorders.
func RowKey(row Row, index int) string {
	if id, ok := row["id"]; ok && id != nil {
		if s := ValueString(id); s != "" {
			return s
		}
	}
	return "idx-" + strconv.Itoa(index)
}

func ValueString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', 2, 64)
	case float32:
		return ValueString(float64(typed))
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
