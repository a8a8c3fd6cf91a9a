package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires all endpoints onto a chi router
func NewRouter(
	allowedOrigins []string,
	users *UserHandler,
	progress *ProgressHandler,
	telemetry *TelemetryHandler,
	admin *AdminHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", users.CreateUser)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", users.GetUser)
			r.Post("/activity", users.Activity)
			r.Post("/stats", users.RecordStats)
			r.Get("/progress", progress.GetProgress)
			r.Post("/progress", progress.SaveProgress)
			r.Post("/progress/reset", progress.ResetProgress)
		})
	})

	r.Post("/api/telemetry/batch", telemetry.IngestBatch)

	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/dashboard/metrics", admin.DashboardMetrics)
		r.Get("/users", admin.ListUsers)
		r.Get("/users/{userID}", admin.UserDetail)
		r.Get("/classifications", admin.ClassificationAnalytics)
	})

	return r
}
