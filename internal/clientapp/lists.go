package clientapp

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/safehtml"
	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/listing"
)

type screenView struct {
	Title       string
	Singular    string
	Path        string
	Writable    bool
	NewURL      string
	ExportURL   string
	ImportURL   string
	TemplateURL string
}

// listPage renders one page of an entity. The URL is the whole table state,
// so every sort, filter, column and page link is a plain GET.
func (s *server) listPage(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		base := sc.path(v.area)
		q := datatable.ParseQuery(r.URL)
		q.Path = base

		table, err := datatable.New(sc.Columns, datatable.Callbacks{})
		if err != nil {
			http.Error(w, "invalid table", http.StatusInternalServerError)
			log.Printf("%s columns invalid: %v", sc.Slug, err)
			return
		}
		table.Restore(q.State, q.Hidden, q.Widths)
		if q.Open != "" {
			table.OpenPopover(q.Open)
			if q.Tab != "" {
				table.SelectTab(q.Tab)
			}
		}

		ctrl := listing.New(apiclient.EntitySource{Client: v.api, Entity: sc.Entity}, listing.Options{
			PerPage: q.PerPage,
			Run:     func(f func()) { f() },
		})
		ctrl.Load(r.Context(), q.Page, q.PerPage, q.Search, table.State())
		snap := ctrl.Snapshot()
		q.Page = snap.Page

		input := datatable.Input{
			Data:              snap.Rows,
			Loading:           snap.Loading,
			Pagination:        snap.Pagination,
			CurrentPage:       snap.Page,
			ShowSearch:        true,
			SearchValue:       q.Search,
			SearchPlaceholder: "Search " + sc.Title + "...",
			Query:             q,
			FormAction:        base,
		}
		if sc.Writable {
			input.RowActions = rowActions(sc, base, q.ToURL())
		}
		html, err := s.tables.Render(table.View(input))
		if err != nil {
			http.Error(w, "table render failed", http.StatusInternalServerError)
			log.Printf("%s table render failed: %v", sc.Slug, err)
			return
		}

		data := v.page(r, sc.Title, sc.Slug)
		data.Toasts = append(data.Toasts, snap.Toasts...)
		data.Table = template.HTML(html.String())
		data.Screen = &screenView{
			Title:    sc.Title,
			Singular: sc.Entity.Title(),
			Path:     base,
			Writable: sc.Writable,
		}
		if sc.Writable {
			data.Screen.NewURL = base + "/new?" + url.Values{"return": {q.ToURL()}}.Encode()
			if sc.Entity == apiclient.EntityItem {
				data.Screen.ExportURL = base + "/export?" + q.Encode().Encode()
				data.Screen.ImportURL = base + "/import"
				data.Screen.TemplateURL = base + "/import/template"
			}
		}
		s.render(w, s.listTmpl, data, sc.Slug)
	}
}

func rowActions(sc *screen, base, returnURL string) func(datatable.Row) []datatable.RowAction {
	back := url.Values{"return": {returnURL}}.Encode()
	return func(row datatable.Row) []datatable.RowAction {
		id := datatable.ValueString(row["id"])
		if id == "" {
			return nil
		}
		actions := []datatable.RowAction{{
			Label: "Edit",
			URL:   safehtml.URLSanitized(base + "/" + id + "/edit?" + back),
			Class: "dt-action",
		}}
		if sc.Entity == apiclient.EntityItem {
			actions = append(actions, datatable.RowAction{
				Label: "Image",
				URL:   safehtml.URLSanitized(base + "/" + id + "/image?" + back),
				Class: "dt-action",
			})
		}
		next, label := "1", "Activate"
		if datatable.ValueString(row["status"]) == "1" {
			next, label = "0", "Deactivate"
		}
		params := url.Values{"return": {returnURL}, "to": {next}}
		actions = append(actions, datatable.RowAction{
			Label:   label,
			URL:     safehtml.URLSanitized(base + "/" + id + "/status?" + params.Encode()),
			Post:    true,
			Confirm: fmt.Sprintf("%s this %s?", label, sc.Entity),
			Class:   "dt-action dt-action-status",
		})
		return actions
	}
}

// returnQuery reads the table state a form was posted from.
func returnQuery(r *http.Request, fallback string) *datatable.Query {
	target, err := url.Parse(localPath(r.FormValue("return"), fallback))
	if err != nil {
		target = &url.URL{Path: fallback}
	}
	return datatable.ParseQuery(target)
}

func (s *server) tableSearch(w http.ResponseWriter, r *http.Request, v *visit) {
	_ = r.ParseForm()
	q := returnQuery(r, v.area.Prefix+"/dashboard").WithSearch(r.FormValue("q"))
	http.Redirect(w, r, q.ToURL(), http.StatusFound)
}

func (s *server) tableFilter(w http.ResponseWriter, r *http.Request, v *visit) {
	_ = r.ParseForm()
	q := returnQuery(r, v.area.Prefix+"/dashboard").WithFilter(r.FormValue("accessor"), r.FormValue("value"))
	http.Redirect(w, r, q.ToURL(), http.StatusFound)
}

func (s *server) tablePerPage(w http.ResponseWriter, r *http.Request, v *visit) {
	_ = r.ParseForm()
	size := parsePositiveInt(r.FormValue("per_page"), datatable.DefaultPerPage)
	next := returnQuery(r, v.area.Prefix+"/dashboard").WithPerPage(size)
	http.Redirect(w, r, next.String(), http.StatusFound)
}

func (s *server) toggleStatus(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		back := localPath(r.URL.Query().Get("return"), sc.path(v.area))
		status, err := strconv.Atoi(r.URL.Query().Get("to"))
		if err != nil || (status != 0 && status != 1) {
			redirectWith(w, r, back, "error", "Invalid status")
			return
		}
		message, err := v.api.SetStatus(r.Context(), sc.Entity, idFromRequest(r), status)
		if err != nil {
			redirectWith(w, r, back, "error", apiclient.MessageOf(err, "Failed to update status"))
			return
		}
		if message == "" {
			message = "Status updated successfully"
		}
		redirectWith(w, r, back, "message", message)
	}
}
