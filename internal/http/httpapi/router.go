// Package httpapi assembles the chi router and the middleware chain.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"dreamboard/internal/http/handlers"
	"dreamboard/internal/infra/geoip"
	"dreamboard/internal/middleware"
)

// NewRouter wires the middleware chain and mounts the API routes. Rate
// limiting applies only to submissions; polling the state endpoint every
// couple of seconds must never trip the limiter.
func NewRouter(app *handlers.App, resolver geoip.CountryResolver) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(app.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(app.Cfg.AllowedOrigins))
	r.Use(middleware.I18N("en", resolver))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Route("/generations", func(r chi.Router) {
			r.With(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute)).
				Post("/", app.Submit)
			r.Get("/state", app.State)
			r.Post("/cancel", app.Cancel)
			r.Get("/recent", app.Recent)
		})

		r.Route("/artifacts", func(r chi.Router) {
			r.Get("/download", app.Download)
			r.Get("/archive", app.Archive)
		})
	})

	return r
}
