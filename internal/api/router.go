// internal/api/router.go
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pose-sentinel/internal/auth"
)

// SetupDataRouter serves the ingestion surface: batch analysis behind
// API-key auth, plus login for admin tokens.
func SetupDataRouter(h *APIHandler, am *auth.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/login", h.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(am.APIKeyMiddleware)
		r.Post("/analyze", h.HandleAnalyze)
		r.Post("/gait/{id}/frames", h.HandleGaitFrames)
	})

	return r
}

// SetupUIRouter serves the monitoring surface: health, websocket relay, and
// JWT-protected administrative operations.
func SetupUIRouter(h *APIHandler, am *auth.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)
	r.Get("/ws", h.HandleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(am.JWTMiddleware)
		r.Get("/status", h.HandleStatus)
		r.Get("/rules", h.HandleRules)
		r.Get("/results/recent", h.HandleRecentResults)
		r.Delete("/entities/{id}", h.HandleClearEntity)
		r.Get("/gait/status", h.HandleGaitStatus)
		r.Get("/gait/{id}/analysis", h.HandleGaitAnalysis)
	})

	return r
}
