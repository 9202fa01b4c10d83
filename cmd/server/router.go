package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-scheduler/internal/api"
	apiMiddleware "github.com/phrazzld/scry-scheduler/internal/api/middleware"
)

// setupRouter creates the router with middleware, API routes and the
// health check.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	cardHandler := api.NewCardHandler(app.study, app.logger)
	sessionHandler := api.NewSessionHandler(app.study, app.logger)

	r.Route("/api", func(r chi.Router) {
		api.Routes(r, cardHandler, sessionHandler)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
