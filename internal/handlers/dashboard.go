package handlers

import (
	"net/http"

	"github.com/campus-events/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// DashboardRouter registers the admin statistics endpoint.
func DashboardRouter(r chi.Router, dashboardService *services.DashboardService, requireAdmin func(http.Handler) http.Handler) {
	r.With(requireAdmin).Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := dashboardService.Stats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})
}

// CategoryRouter registers the category listing.
func CategoryRouter(r chi.Router, eventService *services.EventService) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		categories, err := eventService.Categories(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	})
}
