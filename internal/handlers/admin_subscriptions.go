package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

// AdminSubscriptionStore extends SubscriptionStore with back-office
// operations.
type AdminSubscriptionStore interface {
	SubscriptionStore
	ListSubscriptions(ctx context.Context, limit int) ([]models.Subscription, error)
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	RetireSubscription(ctx context.Context, id int64) error
}

// SubscriptionUserStore resolves customer accounts for manual subscription
// entries.
type SubscriptionUserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AdminSubscriptionHandler serves the back-office subscription endpoints.
type AdminSubscriptionHandler struct {
	Subscriptions AdminSubscriptionStore
	Plans         PlanResolver
	Users         SubscriptionUserStore
}

// NewAdminSubscriptionHandler creates a new AdminSubscriptionHandler.
func NewAdminSubscriptionHandler(subs AdminSubscriptionStore, plans PlanResolver, users SubscriptionUserStore) *AdminSubscriptionHandler {
	return &AdminSubscriptionHandler{Subscriptions: subs, Plans: plans, Users: users}
}

// RegisterRoutes registers the admin subscription routes.
func (h *AdminSubscriptionHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/admin/subscriptions", h.List())
	router.Post("/api/admin/subscriptions", h.CreateManual())
	router.Put("/api/admin/subscriptions", h.Update())
	router.Delete("/api/admin/subscriptions/{id}", h.Retire())
}

// List returns all subscriptions, newest first.
func (h *AdminSubscriptionHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if override := r.URL.Query().Get("limit"); override != "" {
			if parsed, err := strconv.Atoi(override); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		subs, err := h.Subscriptions.ListSubscriptions(r.Context(), limit)
		if err != nil {
			log.Printf("AdminListSubscriptions: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list subscriptions")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
	}
}

type manualSubscriptionPayload struct {
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	PlanID        int64  `json:"planId" validate:"required"`
}

// CreateManual records a subscription without going through checkout, for
// customers billed out of band.
func (h *AdminSubscriptionHandler) CreateManual() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload manualSubscriptionPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "customerEmail and planId are required")
			return
		}

		user, err := h.Users.GetUserByEmail(r.Context(), payload.CustomerEmail)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown customer email")
				return
			}
			log.Printf("AdminCreateSubscription: get user %s: %v", payload.CustomerEmail, err)
			writeError(w, http.StatusInternalServerError, "Failed to resolve customer")
			return
		}

		plan, err := h.Plans.GetPlanByID(r.Context(), payload.PlanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown plan reference")
				return
			}
			log.Printf("AdminCreateSubscription: get plan %d: %v", payload.PlanID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load plan")
			return
		}

		sub := &models.Subscription{
			UserID:    user.ID,
			PlanID:    plan.ID,
			PlanName:  plan.Name,
			PlanType:  plan.Type,
			Revenue:   plan.Price,
			Status:    models.SubscriptionActive,
			StartDate: time.Now().UTC(),
		}

		if err := h.Subscriptions.CreateSubscription(r.Context(), sub); err != nil {
			if errors.Is(err, store.ErrActiveSubscription) {
				writeError(w, http.StatusConflict, "Customer already has an active subscription")
				return
			}
			log.Printf("AdminCreateSubscription: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create subscription")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"subscription": sub})
	}
}

type adminSubscriptionUpdatePayload struct {
	SubscriptionID int64                      `json:"subscriptionId" validate:"required"`
	PlanID         *int64                     `json:"planId"`
	Status         *models.SubscriptionStatus `json:"status"`
}

// Update changes the plan and/or status of a subscription row directly.
func (h *AdminSubscriptionHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adminSubscriptionUpdatePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "subscriptionId is required")
			return
		}
		if payload.PlanID == nil && payload.Status == nil {
			writeError(w, http.StatusBadRequest, "Nothing to update")
			return
		}

		sub, err := h.Subscriptions.GetByID(r.Context(), payload.SubscriptionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Subscription not found")
				return
			}
			log.Printf("AdminUpdateSubscription: get subscription %d: %v", payload.SubscriptionID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load subscription")
			return
		}

		if payload.PlanID != nil {
			plan, err := h.Plans.GetPlanByID(r.Context(), *payload.PlanID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusBadRequest, "Unknown plan reference")
					return
				}
				log.Printf("AdminUpdateSubscription: get plan %d: %v", *payload.PlanID, err)
				writeError(w, http.StatusInternalServerError, "Failed to load plan")
				return
			}
			sub.PlanID = plan.ID
			sub.PlanName = plan.Name
			sub.PlanType = plan.Type
			sub.Revenue = plan.Price
		}

		if payload.Status != nil {
			switch *payload.Status {
			case models.SubscriptionActive, models.SubscriptionPastDue,
				models.SubscriptionCancelling, models.SubscriptionCancelled:
			default:
				writeError(w, http.StatusBadRequest, "Unknown subscription status")
				return
			}
			sub.Status = *payload.Status
			if sub.Status == models.SubscriptionCancelled && sub.CancelledAt == nil {
				now := time.Now().UTC()
				sub.CancelledAt = &now
			}
		}

		if err := h.Subscriptions.UpdateSubscription(r.Context(), sub); err != nil {
			log.Printf("AdminUpdateSubscription: persist subscription %d: %v", sub.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update subscription")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
	}
}

// Retire marks a subscription cancelled. The row stays for history and
// analytics exclusion.
func (h *AdminSubscriptionHandler) Retire() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be numeric")
			return
		}

		if err := h.Subscriptions.RetireSubscription(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Subscription not found")
				return
			}
			log.Printf("AdminRetireSubscription: subscription %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to retire subscription")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"subscriptionId": id})
	}
}
