package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/app/service"
	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/repository"
	"github.com/atinyakov/go-page-analyzer/internal/view"
)

type PostHandler struct {
	base
}

func NewPost(s service.URLServiceIface, v *view.Renderer, f flash.Store, l *zap.Logger) *PostHandler {
	return &PostHandler{
		base: base{service: s, views: v, flash: f, logger: l},
	}
}

// AddURL registers the submitted URL and redirects with a message.
func (h *PostHandler) AddURL(res http.ResponseWriter, req *http.Request) {
	name, err := submittedName(res, req)
	if err != nil {
		http.Error(res, "Malformed form", http.StatusBadRequest)
		return
	}

	out, err := h.service.AddURL(req.Context(), name)
	if err != nil {
		h.serverError(res, req, err)
		return
	}

	h.logger.Debug("url submitted", zap.String("name", name), zap.String("location", out.Location))

	h.redirect(res, req, out)
}

// RunCheck probes the URL and redirects back to its page. An unknown id
// is answered with 404 and nothing is recorded.
func (h *PostHandler) RunCheck(res http.ResponseWriter, req *http.Request) {
	id, ok := urlID(req)
	if !ok {
		h.notFound(res, req)
		return
	}

	out, err := h.service.RunCheck(req.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.notFound(res, req)
		return
	}
	if err != nil {
		h.serverError(res, req, err)
		return
	}

	h.redirect(res, req, out)
}
