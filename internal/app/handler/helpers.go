// Package handler contains the HTTP handlers of the analyzer. Handlers
// translate requests into service calls and service results into
// redirects carrying a flash message or rendered pages.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/app/service"
	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/models"
	"github.com/atinyakov/go-page-analyzer/internal/view"
)

// maxFormSize limits the size of the request body to 1MB.
const maxFormSize = 1 << 20

// base holds what every handler needs.
type base struct {
	service service.URLServiceIface
	views   *view.Renderer
	flash   flash.Store
	logger  *zap.Logger
}

// render pops the pending flash message and renders page with data.
func (b *base) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	msg, err := b.flash.Pop(w, r)
	if err != nil {
		b.logger.Debug("discarding flash", zap.Error(err))
	}

	if err := b.views.Render(w, status, page, view.Page{Flash: msg, Data: data}); err != nil {
		b.logger.Error("render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// redirect stores the outcome's message and sends the client on with 302.
func (b *base) redirect(w http.ResponseWriter, r *http.Request, out *models.Outcome) {
	if out.Flash != nil {
		if err := b.flash.Put(w, r, *out.Flash); err != nil {
			b.logger.Error("unable to store flash", zap.Error(err))
		}
	}

	http.Redirect(w, r, out.Location, http.StatusFound)
}

func (b *base) notFound(w http.ResponseWriter, r *http.Request) {
	if err := b.views.Render(w, http.StatusNotFound, view.NotFound, view.Page{}); err != nil {
		http.Error(w, "Page not found", http.StatusNotFound)
	}
}

func (b *base) serverError(w http.ResponseWriter, r *http.Request, err error) {
	b.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("url", r.URL.String()),
		zap.Error(err),
	)

	if err := b.views.Render(w, http.StatusInternalServerError, view.Error, view.Page{}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// urlID reads the {id} route parameter. Only positive integers are ids.
func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// submittedName extracts the URL from the add form. The form field is
// url[name]; a bare url field is accepted too.
func submittedName(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)

	if err := r.ParseForm(); err != nil {
		return "", err
	}

	name := r.PostForm.Get("url[name]")
	if name == "" {
		name = r.PostForm.Get("url")
	}

	return strings.TrimSpace(name), nil
}
