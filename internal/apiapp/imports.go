package apiapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RowError reports why a spreadsheet row was skipped. Row is the 1-based
// sheet row number.
type RowError struct {
	Row    int         `json:"row"`
	Errors fieldErrors `json:"errors"`
}

// ImportFileError is returned when the upload as a whole is unusable.
type ImportFileError struct {
	Message string
}

func (e *ImportFileError) Error() string { return e.Message }

type ImportResult struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

func (r ImportResult) Message() string {
	if len(r.Errors) > 0 {
		return fmt.Sprintf("%d items imported, %d rows skipped", r.Imported, len(r.Errors))
	}
	return fmt.Sprintf("%d items imported successfully", r.Imported)
}

var itemImportColumns = []string{"name", "category", "price"}

func (s *server) importItems(w http.ResponseWriter, r *http.Request) {
	raw, _, filename, err := parseUploadedFileWithField(r, "file", 10<<20, nil, "The file field is required.")
	if err != nil {
		writeValidation(w, fieldErrors{"file": {err.Error()}})
		return
	}
	result, err := ImportItems(r.Context(), s.store, filename, raw)
	if err != nil {
		var fileErr *ImportFileError
		if errors.As(err, &fileErr) {
			writeValidation(w, fieldErrors{"file": {fileErr.Message}})
			return
		}
		log.Printf("import items failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to import items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  result.Message(),
		"imported": result.Imported,
		"errors":   result.Errors,
	})
}

// ImportItems inserts every valid spreadsheet row as an active item. Invalid
// rows are skipped and reported; blank rows are ignored.
func ImportItems(ctx context.Context, store Store, filename string, raw []byte) (ImportResult, error) {
	result := ImportResult{Errors: []RowError{}}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls":
	default:
		return result, &ImportFileError{Message: "The file must be a file of type: xlsx, xls."}
	}
	rows, err := readRowsFromSpreadsheet(bytes.NewReader(raw), filename)
	if err != nil {
		return result, &ImportFileError{Message: "Unable to read spreadsheet: " + err.Error()}
	}

	header := map[string]int{}
	for idx, name := range rows[0] {
		header[normalizeHeader(name)] = idx
	}
	for _, required := range []string{"name", "category"} {
		if _, ok := header[required]; !ok {
			return result, &ImportFileError{Message: "The header row must contain name and category columns."}
		}
	}

	e := entities["item"]
	for i, row := range rows[1:] {
		sheetRow := i + 2
		input := map[string]any{}
		blank := true
		for _, column := range itemImportColumns {
			idx, ok := header[column]
			if !ok {
				continue
			}
			value := cellValue(row, idx)
			if value != "" {
				blank = false
			}
			if column == "category" {
				value = normalizeCategory(value)
			}
			input[column] = value
		}
		if blank {
			continue
		}
		values, errs, err := e.validate(ctx, store, input, 0, false)
		if err != nil {
			return result, fmt.Errorf("validate row %d: %w", sheetRow, err)
		}
		if errs != nil {
			result.Errors = append(result.Errors, RowError{Row: sheetRow, Errors: errs})
			continue
		}
		stamp := now()
		values["status"] = int64(1)
		values["image_url"] = ""
		values["created_at"] = stamp
		values["updated_at"] = stamp
		if _, err := store.Insert(ctx, tableItems, values); err != nil {
			log.Printf("import insert failed: %v", err)
			result.Errors = append(result.Errors, RowError{Row: sheetRow, Errors: fieldErrors{"name": {"Unable to save this row."}}})
			continue
		}
		result.Imported++
	}
	return result, nil
}

// normalizeCategory accepts a category value or its label ("Food Item").
func normalizeCategory(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "_")
}

func (s *server) exportItems(w http.ResponseWriter, r *http.Request) {
	e := entities["item"]
	rows, err := s.loadRows(r.Context(), e)
	if err != nil {
		log.Printf("export items failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to export items")
		return
	}
	rows = filterRows(e, rows, r.URL.Query())

	lines := [][]any{{"ID", "Name", "Category", "Price", "Status", "Created At"}}
	for _, row := range rows {
		status := "Inactive"
		if row.integer("status") == 1 {
			status = "Active"
		}
		lines = append(lines, []any{
			row.integer("id"), row.text("name"), row.text("category"), row.decimal("price"), status, row.text("created_at"),
		})
	}
	body, err := writeWorkbook("Items", lines)
	if err != nil {
		log.Printf("export items failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to export items")
		return
	}
	writeAttachment(w, fmt.Sprintf("items-%s.xlsx", time.Now().UTC().Format("20060102")), body)
}

func (s *server) importTemplate(w http.ResponseWriter, r *http.Request) {
	body, err := writeWorkbook("Items", [][]any{
		{"name", "category", "price"},
		{"Veg Puff", "snacks", 25},
		{"Paneer Wrap", "food_item", 120},
		{"Black Forest", "cake", 550},
	})
	if err != nil {
		log.Printf("import template failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to build template")
		return
	}
	writeAttachment(w, "items-import-template.xlsx", body)
}

func writeAttachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeWorkbook(sheet string, lines [][]any) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, err
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readRowsFromSpreadsheet(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows := workbook.ReadAllCells(100000)
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("no worksheet found")
		}

		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	}
}

func normalizeHeader(header string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseUploadedFileWithField(r *http.Request, fieldName string, maxBytes int64, allowedMimes []string, requiredMessage string) ([]byte, string, string, error) {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if err := r.ParseMultipartForm(maxBytes + (2 << 20)); err != nil {
		return nil, "", "", errors.New("invalid upload form")
	}
	file, header, err := r.FormFile(fieldName)
	if err != nil {
		return nil, "", "", errors.New(requiredMessage)
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return nil, "", "", errors.New("unable to read uploaded file")
	}
	if len(raw) == 0 {
		return nil, "", "", errors.New("uploaded file is empty")
	}
	detected := http.DetectContentType(raw)
	if len(allowedMimes) > 0 && !contains(allowedMimes, detected) {
		return nil, "", "", errors.New("unsupported file type")
	}
	fileName := strings.TrimSpace(header.Filename)
	if fileName == "" {
		fileName = fieldName + ".bin"
	}
	return raw, detected, fileName, nil
}
