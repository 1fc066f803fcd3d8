package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/app/service"
	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/repository"
	"github.com/atinyakov/go-page-analyzer/internal/view"
)

type GetHandler struct {
	base
}

func NewGet(s service.URLServiceIface, v *view.Renderer, f flash.Store, l *zap.Logger) *GetHandler {
	return &GetHandler{
		base: base{service: s, views: v, flash: f, logger: l},
	}
}

// Home renders the page with the add form.
func (h *GetHandler) Home(res http.ResponseWriter, req *http.Request) {
	h.render(res, req, http.StatusOK, view.Home, nil)
}

// URLs lists every URL with its latest check, newest first.
func (h *GetHandler) URLs(res http.ResponseWriter, req *http.Request) {
	urls, err := h.service.ListURLs(req.Context())
	if err != nil {
		h.serverError(res, req, err)
		return
	}

	h.render(res, req, http.StatusOK, view.URLs, urls)
}

// URL shows one URL and its check history.
func (h *GetHandler) URL(res http.ResponseWriter, req *http.Request) {
	id, ok := urlID(req)
	if !ok {
		h.notFound(res, req)
		return
	}

	details, err := h.service.GetURL(req.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		h.notFound(res, req)
		return
	}
	if err != nil {
		h.serverError(res, req, err)
		return
	}

	h.render(res, req, http.StatusOK, view.URL, details)
}

func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	if err := h.service.PingContext(req.Context()); err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// Stats reports how many URLs and checks are stored.
func (h *GetHandler) Stats(res http.ResponseWriter, req *http.Request) {
	stats, err := h.service.Stats(req.Context())
	if err != nil {
		h.logger.Error("stats failed", zap.Error(err))
		http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response, err := json.Marshal(stats)
	if err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	_, writeErr := res.Write(response)
	if writeErr != nil {
		h.logger.Error("write stats", zap.Error(writeErr))
	}
}
