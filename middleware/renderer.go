package middleware

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	goSecretQ "github.com/MrEthical07/goSecretQ"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the response value produced by [HTMLRenderer]. Handlers in this
// package write it with [Page.Serve].
type Page struct {
	TemplateID string
	Body       []byte
}

// HTMLRenderer renders the challenge and enrollment forms from the embedded
// templates. It implements [goSecretQ.Renderer] and is safe for concurrent use.
type HTMLRenderer struct {
	tmpl             *template.Template
	title            string
	editableQuestion bool
}

type pageData struct {
	goSecretQ.Form
	Title            string
	EditableQuestion bool
}

// NewHTMLRenderer parses the embedded templates. title is shown in the page
// head; editableQuestion renders the enrollment question as an input so
// users can supply their own.
func NewHTMLRenderer(title string, editableQuestion bool) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if title == "" {
		title = "Secret Question"
	}
	return &HTMLRenderer{tmpl: tmpl, title: title, editableQuestion: editableQuestion}, nil
}

// RenderForm executes the template named by form.TemplateID.
func (r *HTMLRenderer) RenderForm(_ context.Context, form goSecretQ.Form) (any, error) {
	if r == nil || r.tmpl == nil {
		return nil, goSecretQ.ErrEngineNotReady
	}
	t := r.tmpl.Lookup(form.TemplateID)
	if t == nil {
		return nil, fmt.Errorf("unknown template %q", form.TemplateID)
	}

	var buf bytes.Buffer
	data := pageData{
		Form:             form,
		Title:            r.title,
		EditableQuestion: r.editableQuestion,
	}
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", form.TemplateID, err)
	}
	return &Page{TemplateID: form.TemplateID, Body: buf.Bytes()}, nil
}

// Serve writes the page with the given status code.
func (p *Page) Serve(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(p.Body)
}
