package clientapp

import (
	"fmt"
	"log"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportUpload = 10 << 20
	mediaPrefix     = "/media/"
	uploadsPrefix   = "/uploads/"
)

type importView struct {
	Action      string
	TemplateURL string
	BackURL     string
	Done        bool
	Message     string
	Imported    int
	RowErrors   []importRowError
}

type importRowError struct {
	Row     int
	Field   string
	Message string
}

type itemImageView struct {
	Item     apiclient.Item
	Action   string
	BackURL  string
	ImageSrc string
}

func (s *server) exportItems(w http.ResponseWriter, r *http.Request, v *visit) {
	params := datatable.ParseQuery(r.URL).APIValues()
	params.Del("page")
	params.Del("per_page")
	data, disposition, err := v.api.ExportItems(r.Context(), params)
	if err != nil {
		redirectWith(w, r, v.area.Prefix+"/items", "error", apiclient.MessageOf(err, "Failed to export items"))
		return
	}
	writeDownload(w, data, disposition, "items.xlsx")
}

func (s *server) importTemplate(w http.ResponseWriter, r *http.Request, v *visit) {
	data, disposition, err := v.api.ImportTemplate(r.Context())
	if err != nil {
		redirectWith(w, r, v.area.Prefix+"/items/import", "error", apiclient.MessageOf(err, "Failed to download template"))
		return
	}
	writeDownload(w, data, disposition, "items-import-template.xlsx")
}

func writeDownload(w http.ResponseWriter, data []byte, disposition, fallbackName string) {
	if disposition == "" {
		disposition = fmt.Sprintf("attachment; filename=%q", fallbackName)
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (v *visit) importView() *importView {
	base := v.area.Prefix + "/items"
	return &importView{
		Action:      base + "/import",
		TemplateURL: base + "/import/template",
		BackURL:     base,
	}
}

func (s *server) importPage(w http.ResponseWriter, r *http.Request, v *visit) {
	data := v.page(r, "Import items", "items")
	data.Import = v.importView()
	s.render(w, s.importTmpl, data, "import")
}

func (s *server) importItems(w http.ResponseWriter, r *http.Request, v *visit) {
	data := v.page(r, "Import items", "items")
	data.Import = v.importView()

	r.Body = http.MaxBytesReader(w, r.Body, maxImportUpload)
	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		data.Error = "Choose a spreadsheet under 10 MB"
		s.renderStatus(w, s.importTmpl, data, "import", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		data.Error = "Choose a spreadsheet to import"
		s.renderStatus(w, s.importTmpl, data, "import", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := v.api.ImportItems(r.Context(), header.Filename, file)
	if err != nil {
		data.Error = apiclient.MessageOf(err, "Failed to import items")
		s.renderStatus(w, s.importTmpl, data, "import", http.StatusUnprocessableEntity)
		return
	}
	data.Import.Done = true
	data.Import.Message = result.Message
	data.Import.Imported = result.Imported
	data.Import.RowErrors = flattenRowErrors(result.Errors)
	s.render(w, s.importTmpl, data, "import")
}

// flattenRowErrors lists one line per message, ordered by row then field.
func flattenRowErrors(rows []apiclient.RowError) []importRowError {
	var out []importRowError
	for _, row := range rows {
		fields := make([]string, 0, len(row.Errors))
		for field := range row.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			for _, msg := range row.Errors[field] {
				out = append(out, importRowError{Row: row.Row, Field: field, Message: msg})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

func (s *server) itemImagePage(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		id := idFromRequest(r)
		back := localPath(r.URL.Query().Get("return"), sc.path(v.area))
		var item apiclient.Item
		if err := v.api.Get(r.Context(), apiclient.EntityItem, id, &item); err != nil {
			redirectWith(w, r, back, "error", apiclient.MessageOf(err, "Item not found"))
			return
		}
		data := v.page(r, "Item image", sc.Slug)
		data.ItemImage = &itemImageView{
			Item:     item,
			Action:   fmt.Sprintf("%s/%d/image", sc.path(v.area), id),
			BackURL:  back,
			ImageSrc: mediaURL(item.ImageURL),
		}
		s.render(w, s.imageTmpl, data, "item image")
	}
}

func (s *server) uploadItemImage(sc *screen) visitHandler {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		id := idFromRequest(r)
		r.Body = http.MaxBytesReader(w, r.Body, maxImportUpload)
		if err := r.ParseMultipartForm(maxImportUpload); err != nil {
			redirectWith(w, r, fmt.Sprintf("%s/%d/image", sc.path(v.area), id), "error", "Choose an image under 10 MB")
			return
		}
		back := localPath(r.FormValue("return"), sc.path(v.area))
		file, header, err := r.FormFile("image")
		if err != nil {
			redirectWith(w, r, fmt.Sprintf("%s/%d/image", sc.path(v.area), id), "error", "Choose an image to upload")
			return
		}
		defer file.Close()

		if _, err := v.api.UploadItemImage(r.Context(), id, header.Filename, file); err != nil {
			redirectWith(w, r, fmt.Sprintf("%s/%d/image", sc.path(v.area), id), "error", apiclient.MessageOf(err, "Failed to upload image"))
			return
		}
		redirectWith(w, r, back, "message", "Image uploaded successfully")
	}
}

// mediaURL maps a stored /uploads/ path to the client's authenticated proxy.
func mediaURL(imageURL string) string {
	if !strings.HasPrefix(imageURL, uploadsPrefix) {
		return ""
	}
	return mediaPrefix + strings.TrimPrefix(imageURL, uploadsPrefix)
}

func (s *server) mediaProxy(w http.ResponseWriter, r *http.Request, v *visit) {
	rel := path.Clean("/" + mux.Vars(r)["path"])
	if strings.Contains(rel, "..") {
		http.NotFound(w, r)
		return
	}
	data, contentType, err := v.api.ItemImage(r.Context(), uploadsPrefix+strings.TrimPrefix(rel, "/"))
	if err != nil {
		log.Printf("media proxy failed: %v", err)
		http.NotFound(w, r)
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}
