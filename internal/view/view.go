// Package view renders the HTML pages of the analyzer.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

//go:embed templates/*.html
var files embed.FS

// Page names.
const (
	Home     = "home.html"
	URLs     = "urls.html"
	URL      = "url.html"
	NotFound = "not_found.html"
	Error    = "error.html"
)

// Page is the data handed to every template.
type Page struct {
	Flash *models.Flash
	Data  any
}

// Renderer holds the parsed pages, each combined with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
	"status": func(code *int) string {
		if code == nil {
			return ""
		}
		return strconv.Itoa(*code)
	},
}

func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}

	for _, name := range []string{Home, URLs, URL, NotFound, Error} {
		t, err := template.New(name).Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}

	return r, nil
}

// Render executes the page into a buffer first so that a template error
// never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
