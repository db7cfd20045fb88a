/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     Request logging through logrus (logging.go)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/documents/*      Upload documents, query license views
  /api/architectures/*  Architecture classification table
  /api/samples/*        Demo documents
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware. Put the service behind an authenticating
  proxy when exposing real entitlement data.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// DefaultAllowedOrigins are the dashboard dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	if cfg.Log == nil {
		cfg.Log = h.Log
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&LogFormatter{Log: cfg.Log}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Document routes
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.UploadDocument)
			r.Get("/{id}", h.GetDocument)
			r.Delete("/{id}", h.DeleteDocument)
			r.Get("/{id}/records", h.GetRecords)
			r.Get("/{id}/expired", h.GetExpired)
			r.Get("/{id}/expiring", h.GetExpiring)
			r.Get("/{id}/shortage", h.GetShortage)
			r.Get("/{id}/usage", h.GetUsage)
			r.Get("/{id}/technology", h.GetTechnology)
		})

		// Architecture routes
		r.Route("/architectures", func(r chi.Router) {
			r.Get("/", h.ListArchitectures)
			r.Put("/", h.PutArchitectures)
			r.Delete("/", h.ClearArchitectures)
			r.Put("/{license}", h.PutArchitecture)
			r.Delete("/{license}", h.DeleteArchitecture)
		})

		// Sample routes
		r.Route("/samples", func(r chi.Router) {
			r.Get("/", h.ListSamples)
			r.Post("/load", h.LoadSample)
		})
	})

	return r
}
