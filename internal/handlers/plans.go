package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

// PlanCatalogStore defines the behaviour required from the plan store
// backing the plan handlers.
type PlanCatalogStore interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, p *models.SubscriptionPlan) error
	UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error
	DeactivatePlan(ctx context.Context, id int64) error
}

// PlanHandler serves the subscription plan catalog endpoints.
type PlanHandler struct {
	Plans PlanCatalogStore
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(plans PlanCatalogStore) *PlanHandler {
	return &PlanHandler{Plans: plans}
}

// RegisterRoutes registers the public plan listing.
func (h *PlanHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/subscription-plans", h.List())
}

// RegisterAdminRoutes registers plan mutation routes.
func (h *PlanHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/api/subscription-plans", h.Create())
	router.Put("/api/subscription-plans", h.Update())
	router.Delete("/api/subscription-plans/{id}", h.Deactivate())
}

// List returns active plans ordered by price. `?all=true` includes retired
// plans for the back office.
func (h *PlanHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("all") != "true"

		plans, err := h.Plans.ListPlans(r.Context(), activeOnly)
		if err != nil {
			log.Printf("ListPlans: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list plans")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
	}
}

type planPayload struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name" validate:"required"`
	Type     string   `json:"type" validate:"required,oneof=residential industrial"`
	Price    float64  `json:"price" validate:"gt=0"`
	Features []string `json:"features"`
}

func (p *planPayload) toModel() *models.SubscriptionPlan {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return &models.SubscriptionPlan{
		ID:       p.ID,
		Name:     strings.TrimSpace(p.Name),
		Type:     p.Type,
		Price:    p.Price,
		Features: features,
		IsActive: true,
	}
}

// Create adds a subscription plan.
func (h *PlanHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload planPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "name, type (residential|industrial) and a positive price are required")
			return
		}

		plan := payload.toModel()
		if err := h.Plans.CreatePlan(r.Context(), plan); err != nil {
			log.Printf("CreatePlan: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create plan")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"plan": plan})
	}
}

// Update edits a subscription plan. Existing subscriptions keep their
// captured plan name/type/revenue.
func (h *PlanHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload planPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if payload.ID == 0 {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "name, type (residential|industrial) and a positive price are required")
			return
		}

		plan := payload.toModel()
		if err := h.Plans.UpdatePlan(r.Context(), plan); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Plan not found")
				return
			}
			log.Printf("UpdatePlan: plan %d: %v", plan.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update plan")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
	}
}

// Deactivate retires a plan. Historical subscriptions keep resolving it by
// id.
func (h *PlanHandler) Deactivate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be numeric")
			return
		}

		if err := h.Plans.DeactivatePlan(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Plan not found")
				return
			}
			log.Printf("DeactivatePlan: plan %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to delete plan")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"planId": id})
	}
}
