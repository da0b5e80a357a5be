package datatable

import (
	"embed"
	"fmt"

	"github.com/google/safehtml"
	"github.com/google/safehtml/template"
)

//go:embed templates/*
var templateFS embed.FS

// Renderer turns a View into HTML through safehtml/template, so every URL,
// style and attribute in the table is sanitized by type.
type Renderer struct {
	table *template.Template
}

func NewRenderer() (*Renderer, error) {
	trustedFS := template.TrustedFSFromEmbed(templateFS)
	tmpl, err := template.New("table.html").ParseFS(trustedFS, "templates/table.html")
	if err != nil {
		return nil, fmt.Errorf("parse table template: %w", err)
	}
	return &Renderer{table: tmpl}, nil
}

func (r *Renderer) Render(v View) (safehtml.HTML, error) {
	out, err := r.table.ExecuteToHTML(v)
	if err != nil {
		return safehtml.HTML{}, fmt.Errorf("render table: %w", err)
	}
	return out, nil
}
