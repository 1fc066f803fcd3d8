// Package server assembles the HTTP router of the analyzer.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/app/handler"
	"github.com/atinyakov/go-page-analyzer/internal/app/service"
	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/middleware"
	"github.com/atinyakov/go-page-analyzer/internal/view"
)

// Init wires the handlers to their routes.
func Init(s service.URLServiceIface, views *view.Renderer, store flash.Store, logger *zap.Logger, trustedSubnet string) *chi.Mux {
	getHandler := handler.NewGet(s, views, store, logger)
	postHandler := handler.NewPost(s, views, store, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	// gzip wraps the logger so logged sizes are uncompressed
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/", getHandler.Home)
	r.Get("/ping", getHandler.PingDB)

	r.Route("/urls", func(r chi.Router) {
		r.Get("/", getHandler.URLs)
		r.Post("/", postHandler.AddURL)
		r.Get("/{id}", getHandler.URL)
		r.Post("/{id}/checks", postHandler.RunCheck)
	})

	r.With(middleware.WithSubnet(trustedSubnet)).Get("/api/internal/stats", getHandler.Stats)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if err := views.Render(w, http.StatusNotFound, view.NotFound, view.Page{}); err != nil {
			http.Error(w, "Route not found", http.StatusNotFound)
		}
	})

	return r
}
