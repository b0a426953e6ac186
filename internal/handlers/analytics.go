package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// AnalyticsAggregator defines the behaviour required from the analytics
// store backing the dashboard handlers.
type AnalyticsAggregator interface {
	DashboardSummary(ctx context.Context) (*models.DashboardSummary, error)
	ServiceAnalytics(ctx context.Context) ([]models.ServiceAnalytics, error)
}

// AnalyticsHandler serves the read-only admin dashboard aggregates.
type AnalyticsHandler struct {
	Analytics AnalyticsAggregator
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics AnalyticsAggregator) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: analytics}
}

// RegisterRoutes registers the analytics routes.
func (h *AnalyticsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/admin/analytics/summary", h.Summary())
	router.Get("/api/admin/analytics/services", h.Services())
}

// Summary returns total revenue, distinct client count and booking count.
func (h *AnalyticsHandler) Summary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.Analytics.DashboardSummary(r.Context())
		if err != nil {
			log.Printf("AnalyticsSummary: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to compute summary")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// Services returns the per-service revenue breakdown with assigned staff.
func (h *AnalyticsHandler) Services() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := h.Analytics.ServiceAnalytics(r.Context())
		if err != nil {
			log.Printf("AnalyticsServices: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to compute service analytics")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})
	}
}
