package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/pipeline", func(r chi.Router) {
			r.Post("/run", h.TriggerRun)
			r.Get("/status", h.RunStatus)
			r.Get("/logs", h.RunLogs)
		})

		r.Get("/reports", h.ListReports)
		r.Get("/creatives", h.ListCreatives)

		r.Route("/experiments", func(r chi.Router) {
			r.Get("/", h.ListExperiments)
			r.Get("/{id}", h.GetExperiment)
			r.Get("/{id}/significance", h.ExperimentSignificance)
		})

		r.Route("/ads", func(r chi.Router) {
			r.Get("/top", h.TopAds)
			r.Get("/underperforming", h.UnderperformingAds)
		})
	})

	return r
}
