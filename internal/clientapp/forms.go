package clientapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
)

type formView struct {
	Title     string
	Action    string
	Submit    string
	CancelURL string
	Return    string
	Error     string
	Fields    []fieldView
}

type fieldView struct {
	Name     string
	Label    string
	Type     string
	Value    string
	Required bool
	Step     string
	Options  []optionView
	Errors   []string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

// buildForm lays out fields with values and errors. Select lookups are
// loaded from the API.
func buildForm(ctx context.Context, api *apiclient.Client, fields []formField, values map[string]string, errs map[string][]string) ([]fieldView, error) {
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		fv := fieldView{
			Name:     f.Name,
			Label:    f.Label,
			Type:     f.Type,
			Value:    values[f.Name],
			Required: f.Required,
			Step:     f.Step,
			Errors:   errs[f.Name],
		}
		options := f.Options
		if f.Lookup != "" {
			loaded, err := lookupOptions(ctx, api, f.Lookup)
			if err != nil {
				return nil, err
			}
			options = loaded
		}
		for _, opt := range options {
			fv.Options = append(fv.Options, optionView{Value: opt.Value, Label: opt.Label, Selected: opt.Value == fv.Value})
		}
		out = append(out, fv)
	}
	return out, nil
}

func lookupOptions(ctx context.Context, api *apiclient.Client, lookup string) ([]datatable.Option, error) {
	var out []datatable.Option
	switch lookup {
	case "branches":
		branches, err := api.BranchesMinimal(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			out = append(out, datatable.Option{Value: strconv.FormatInt(b.ID, 10), Label: b.Code + " - " + b.Name})
		}
	case "designations":
		designations, err := api.ActiveDesignations(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range designations {
			out = append(out, datatable.Option{Value: strconv.FormatInt(d.ID, 10), Label: d.Designation})
		}
	default:
		return nil, fmt.Errorf("unknown lookup %q", lookup)
	}
	return out, nil
}

// formValues reads the submitted fields, trimmed.
func formValues(r *http.Request, fields []formField) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = strings.TrimSpace(r.FormValue(f.Name))
	}
	return values
}

// validateFields runs the checks the API would run on these fields so the
// obvious mistakes never leave the browser's round trip.
func validateFields(fields []formField, values map[string]string) map[string][]string {
	errs := map[string][]string{}
	for _, f := range fields {
		value := values[f.Name]
		label := strings.ToLower(f.Label)
		if value == "" {
			if f.Required {
				errs[f.Name] = append(errs[f.Name], fmt.Sprintf("The %s field is required.", label))
			}
			continue
		}
		switch {
		case f.Type == "email":
			if _, err := mail.ParseAddress(value); err != nil {
				errs[f.Name] = append(errs[f.Name], fmt.Sprintf("The %s field must be a valid email address.", label))
			}
		case f.numeric():
			n, err := strconv.ParseFloat(value, 64)
			if err != nil || n < 0 {
				errs[f.Name] = append(errs[f.Name], fmt.Sprintf("The %s field must be a number.", label))
			}
		case len(value) > 255:
			errs[f.Name] = append(errs[f.Name], fmt.Sprintf("The %s field must not be greater than 255 characters.", label))
		}
		if len(f.Options) > 0 && !hasOption(f.Options, value) {
			errs[f.Name] = append(errs[f.Name], fmt.Sprintf("The selected %s is invalid.", label))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func hasOption(options []datatable.Option, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func firstError(errs map[string][]string) string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(errs[name]) > 0 {
			return errs[name][0]
		}
	}
	return ""
}

// payloadValue converts a form string to the JSON type the API expects.
func payloadValue(f formField, value string) any {
	if !f.numeric() {
		return value
	}
	if f.Lookup != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

// createPayload carries every non-blank field.
func createPayload(fields []formField, values map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v := values[f.Name]; v != "" {
			out[f.Name] = payloadValue(f, v)
		}
	}
	return out
}

// changedPayload carries only the fields that differ from current. Clearing
// a numeric field is not sent.
func changedPayload(fields []formField, current, values map[string]string) map[string]any {
	out := map[string]any{}
	for _, f := range fields {
		next := values[f.Name]
		if sameValue(f, current[f.Name], next) {
			continue
		}
		if next == "" && f.numeric() {
			continue
		}
		out[f.Name] = payloadValue(f, next)
	}
	return out
}

func sameValue(f formField, a, b string) bool {
	if a == b {
		return true
	}
	if !f.numeric() {
		return false
	}
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && x == y
}

func recordValues(fields []formField, row map[string]any) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = datatable.ValueString(row[f.Name])
	}
	return values
}

func (s *server) renderForm(w http.ResponseWriter, r *http.Request, v *visit, sc *screen, form *formView, values map[string]string, errs map[string][]string, status int) {
	fields, err := buildForm(r.Context(), v.api, sc.Fields, values, errs)
	if err != nil {
		redirectWith(w, r, form.CancelURL, "error", apiclient.MessageOf(err, "Unable to load form options"))
		return
	}
	form.Fields = fields
	data := v.page(r, form.Title, sc.Slug)
	data.Form = form
	s.renderStatus(w, s.formTmpl, data, "form", status)
}

func (s *server) newForm(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		back := localPath(r.URL.Query().Get("return"), sc.path(v.area))
		s.renderForm(w, r, v, sc, &formView{
			Title:     "Add " + sc.Entity.Title(),
			Action:    sc.path(v.area),
			Submit:    "Create",
			CancelURL: back,
			Return:    back,
		}, map[string]string{}, nil, http.StatusOK)
	}
}

func (s *server) create(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		if err := r.ParseForm(); err != nil {
			redirectWith(w, r, sc.path(v.area), "error", "Invalid form submission")
			return
		}
		back := localPath(r.FormValue("return"), sc.path(v.area))
		form := &formView{
			Title:     "Add " + sc.Entity.Title(),
			Action:    sc.path(v.area),
			Submit:    "Create",
			CancelURL: back,
			Return:    back,
		}
		values := formValues(r, sc.Fields)
		if errs := validateFields(sc.Fields, values); errs != nil {
			form.Error = firstError(errs)
			s.renderForm(w, r, v, sc, form, values, errs, http.StatusUnprocessableEntity)
			return
		}
		message, err := v.api.Create(r.Context(), sc.Entity, createPayload(sc.Fields, values))
		if err != nil {
			s.formFailed(w, r, v, sc, form, values, err, "Failed to create "+string(sc.Entity))
			return
		}
		redirectWith(w, r, back, "message", message)
	}
}

func (s *server) editForm(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		id := idFromRequest(r)
		back := localPath(r.URL.Query().Get("return"), sc.path(v.area))
		var current map[string]any
		if err := v.api.Get(r.Context(), sc.Entity, id, &current); err != nil {
			redirectWith(w, r, back, "error", apiclient.MessageOf(err, sc.Entity.Title()+" not found"))
			return
		}
		s.renderForm(w, r, v, sc, editView(sc, v, id, back), recordValues(sc.Fields, current), nil, http.StatusOK)
	}
}

func editView(sc *screen, v *visit, id int64, back string) *formView {
	return &formView{
		Title:     "Edit " + sc.Entity.Title(),
		Action:    fmt.Sprintf("%s/%d", sc.path(v.area), id),
		Submit:    "Save changes",
		CancelURL: back,
		Return:    back,
	}
}

func (s *server) update(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		if err := r.ParseForm(); err != nil {
			redirectWith(w, r, sc.path(v.area), "error", "Invalid form submission")
			return
		}
		id := idFromRequest(r)
		back := localPath(r.FormValue("return"), sc.path(v.area))
		form := editView(sc, v, id, back)
		values := formValues(r, sc.Fields)
		if errs := validateFields(sc.Fields, values); errs != nil {
			form.Error = firstError(errs)
			s.renderForm(w, r, v, sc, form, values, errs, http.StatusUnprocessableEntity)
			return
		}

		var current map[string]any
		if err := v.api.Get(r.Context(), sc.Entity, id, &current); err != nil {
			redirectWith(w, r, back, "error", apiclient.MessageOf(err, sc.Entity.Title()+" not found"))
			return
		}
		changes := changedPayload(sc.Fields, recordValues(sc.Fields, current), values)
		if len(changes) == 0 {
			redirectWith(w, r, back, "message", "No changes to update")
			return
		}
		message, err := v.api.Update(r.Context(), sc.Entity, id, changes)
		if err != nil {
			s.formFailed(w, r, v, sc, form, values, err, "Failed to update "+string(sc.Entity))
			return
		}
		redirectWith(w, r, back, "message", message)
	}
}

// formFailed shows server field errors next to their inputs, or the server
// message at the top of the form.
func (s *server) formFailed(w http.ResponseWriter, r *http.Request, v *visit, sc *screen, form *formView, values map[string]string, err error, fallback string) {
	var apiErr *apiclient.APIError
	var fields map[string][]string
	if errors.As(err, &apiErr) {
		fields = apiErr.Fields
	}
	form.Error = apiclient.MessageOf(err, fallback)
	status := http.StatusBadGateway
	if apiErr != nil && apiErr.Status < http.StatusInternalServerError {
		status = apiErr.Status
	}
	s.renderForm(w, r, v, sc, form, values, fields, status)
}
