package handlers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/email"
	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
	stripeClient "github.com/Corewavemedia/Dustout-sub001/internal/stripe"
)

// SubscriptionStore defines the behaviour required from the subscription
// store backing the subscription handlers.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
}

// PlanResolver resolves plan references on subscription requests.
type PlanResolver interface {
	GetPlanByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error)
}

// SubscriptionHandler serves the customer-facing subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Plans         PlanResolver
	Stripe        *stripeClient.Client
	Email         *email.Client

	// FrontendBaseURL is where checkout sessions redirect back to.
	FrontendBaseURL string
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subs SubscriptionStore, plans PlanResolver, stripe *stripeClient.Client, emailClient *email.Client, frontendBaseURL string) *SubscriptionHandler {
	return &SubscriptionHandler{
		Subscriptions:   subs,
		Plans:           plans,
		Stripe:          stripe,
		Email:           emailClient,
		FrontendBaseURL: frontendBaseURL,
	}
}

// RegisterRoutes registers the customer subscription routes.
func (h *SubscriptionHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/subscriptions/create-checkout-session", h.CreateCheckoutSession())
	router.Post("/api/subscriptions/change-plan-checkout", h.ChangePlanCheckout())
	router.Post("/api/subscriptions/change-plan", h.ChangePlan())
	router.Put("/api/subscriptions/cancel", h.Cancel())
	router.Get("/api/subscriptions/update-payment-method", h.PaymentMethodPortal())
	router.Post("/api/subscriptions/update-payment-method", h.SetPaymentMethod())
	router.Get("/api/subscriptions/current", h.Current())
	router.Get("/api/subscriptions/user", h.History())
}

// requiresNewPaymentCollection is the single decision point for plan
// changes: a change needs a fresh checkout exactly when the new plan costs
// more than what the subscription currently bills.
func requiresNewPaymentCollection(current *models.Subscription, newPlan *models.SubscriptionPlan) bool {
	return newPlan.Price > current.Revenue
}

func pence(amount float64) int {
	return int(math.Round(amount * 100))
}

// priceForPlan mirrors a plan into the processor: a product named after the
// plan plus a monthly recurring price.
func (h *SubscriptionHandler) priceForPlan(plan *models.SubscriptionPlan) (string, error) {
	productID, err := h.Stripe.CreateProduct(plan.Name, "Dustout "+plan.Type+" cleaning plan")
	if err != nil {
		return "", err
	}
	return h.Stripe.CreatePrice(productID, pence(plan.Price), "gbp", "month")
}

type checkoutPayload struct {
	PlanID int64 `json:"planId" validate:"required"`
}

// CreateCheckoutSession starts a subscription checkout for a plan. The local
// row is only created when the completed-checkout webhook lands.
func (h *SubscriptionHandler) CreateCheckoutSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload checkoutPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "planId is required")
			return
		}

		if existing, err := h.Subscriptions.GetActiveByUser(r.Context(), user.ID); err == nil && existing.Status == models.SubscriptionActive {
			writeError(w, http.StatusConflict, "You already have an active subscription")
			return
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("CreateCheckoutSession: check active sub for user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to check subscription")
			return
		}

		plan, err := h.Plans.GetPlanByID(r.Context(), payload.PlanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown plan reference")
				return
			}
			log.Printf("CreateCheckoutSession: get plan %d: %v", payload.PlanID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load plan")
			return
		}
		if !plan.IsActive {
			writeError(w, http.StatusBadRequest, "Plan is no longer offered")
			return
		}

		url, err := h.startPlanCheckout(user, plan)
		if err != nil {
			log.Printf("CreateCheckoutSession: Stripe error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

func (h *SubscriptionHandler) startPlanCheckout(user *models.User, plan *models.SubscriptionPlan) (string, error) {
	customerID, err := h.Stripe.EnsureCustomer(user.Email, user.Fullname)
	if err != nil {
		return "", err
	}
	priceID, err := h.priceForPlan(plan)
	if err != nil {
		return "", err
	}

	_, url, err := h.Stripe.CreateSubscriptionCheckout(
		customerID, priceID,
		h.FrontendBaseURL+"/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		h.FrontendBaseURL+"/subscription/cancelled",
		map[string]string{
			"user_id": formatID(user.ID),
			"plan_id": formatID(plan.ID),
		},
	)
	return url, err
}

// ChangePlanCheckout handles the upgrade half of a plan change: when the new
// plan needs more money collected, the customer goes back through checkout.
func (h *SubscriptionHandler) ChangePlanCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		sub, plan, ok := h.loadChangeTargets(w, r, user.ID)
		if !ok {
			return
		}

		if !requiresNewPaymentCollection(sub, plan) {
			// Downgrades swap in place; no new payment to collect.
			h.applyPlanChange(w, r, user, sub, plan)
			return
		}

		url, err := h.startPlanCheckout(user, plan)
		if err != nil {
			log.Printf("ChangePlanCheckout: Stripe error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

// ChangePlan handles the direct half of a plan change: an in-place price
// swap with proration. Upgrades are redirected to the checkout path.
func (h *SubscriptionHandler) ChangePlan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		sub, plan, ok := h.loadChangeTargets(w, r, user.ID)
		if !ok {
			return
		}

		if requiresNewPaymentCollection(sub, plan) {
			writeError(w, http.StatusConflict, "This plan change requires payment; use change-plan-checkout")
			return
		}

		h.applyPlanChange(w, r, user, sub, plan)
	}
}

func (h *SubscriptionHandler) loadChangeTargets(w http.ResponseWriter, r *http.Request, userID int64) (*models.Subscription, *models.SubscriptionPlan, bool) {
	var payload checkoutPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return nil, nil, false
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "planId is required")
		return nil, nil, false
	}

	sub, err := h.Subscriptions.GetActiveByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No active subscription")
			return nil, nil, false
		}
		log.Printf("ChangePlan: get active sub for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load subscription")
		return nil, nil, false
	}

	plan, err := h.Plans.GetPlanByID(r.Context(), payload.PlanID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Unknown plan reference")
			return nil, nil, false
		}
		log.Printf("ChangePlan: get plan %d: %v", payload.PlanID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load plan")
		return nil, nil, false
	}
	if !plan.IsActive {
		writeError(w, http.StatusBadRequest, "Plan is no longer offered")
		return nil, nil, false
	}
	if plan.ID == sub.PlanID {
		writeError(w, http.StatusBadRequest, "Already on this plan")
		return nil, nil, false
	}

	return sub, plan, true
}

// applyPlanChange swaps the processor price in place with proration, then
// persists the new plan fields locally before answering. The plan-change
// email is best effort.
func (h *SubscriptionHandler) applyPlanChange(w http.ResponseWriter, r *http.Request, user *models.User, sub *models.Subscription, plan *models.SubscriptionPlan) {
	if sub.StripeSubscriptionID != "" {
		priceID, err := h.priceForPlan(plan)
		if err != nil {
			log.Printf("ChangePlan: price for plan %d: %v", plan.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to change plan")
			return
		}
		if err := h.Stripe.UpdateSubscriptionPrice(sub.StripeSubscriptionID, priceID); err != nil {
			log.Printf("ChangePlan: update price for subscription %s: %v", sub.StripeSubscriptionID, err)
			writeError(w, http.StatusInternalServerError, "Failed to change plan")
			return
		}
	}

	upgrade := plan.Price > sub.Revenue
	oldPlanName := sub.PlanName

	sub.PlanID = plan.ID
	sub.PlanName = plan.Name
	sub.PlanType = plan.Type
	sub.Revenue = plan.Price
	if err := h.Subscriptions.UpdateSubscription(r.Context(), sub); err != nil {
		log.Printf("ChangePlan: persist subscription %d: %v", sub.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to change plan")
		return
	}

	if err := h.Email.SendPlanChange(user.Email, user.Fullname, oldPlanName, plan.Name, upgrade); err != nil {
		log.Printf("[email] plan change for subscription %d: %v", sub.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

type cancelPayload struct {
	CancelAtPeriodEnd *bool `json:"cancelAtPeriodEnd"`
}

// Cancel cancels the caller's subscription, at period end by default or
// immediately with proration.
func (h *SubscriptionHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload cancelPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		atPeriodEnd := payload.CancelAtPeriodEnd == nil || *payload.CancelAtPeriodEnd

		sub, err := h.Subscriptions.GetActiveByUser(r.Context(), user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "No active subscription")
				return
			}
			log.Printf("CancelSubscription: get active sub for user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load subscription")
			return
		}

		if sub.StripeSubscriptionID != "" {
			if err := h.Stripe.CancelSubscription(sub.StripeSubscriptionID, atPeriodEnd); err != nil {
				log.Printf("CancelSubscription: Stripe cancel %s: %v", sub.StripeSubscriptionID, err)
				writeError(w, http.StatusInternalServerError, "Failed to cancel subscription")
				return
			}

			// Expiry follows the processor's idea of the current period.
			if info, err := h.Stripe.GetSubscription(sub.StripeSubscriptionID); err == nil && info.CurrentPeriodEnd != nil {
				sub.ExpiryDate = info.CurrentPeriodEnd
				sub.CurrentPeriodEnd = info.CurrentPeriodEnd
			}
		}

		if atPeriodEnd {
			sub.Status = models.SubscriptionCancelling
			sub.CancelAtPeriodEnd = true
			sub.CancelledAt = nil
		} else {
			now := time.Now().UTC()
			sub.Status = models.SubscriptionCancelled
			sub.CancelAtPeriodEnd = false
			sub.CancelledAt = &now
		}

		if err := h.Subscriptions.UpdateSubscription(r.Context(), sub); err != nil {
			log.Printf("CancelSubscription: persist subscription %d: %v", sub.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to cancel subscription")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
	}
}

// PaymentMethodPortal returns a processor-hosted page where the customer can
// update their payment details.
func (h *SubscriptionHandler) PaymentMethodPortal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		sub, err := h.Subscriptions.GetActiveByUser(r.Context(), user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "No active subscription")
				return
			}
			log.Printf("PaymentMethodPortal: get active sub for user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load subscription")
			return
		}

		url, err := h.Stripe.CreateBillingPortalSession(sub.StripeCustomerID, h.FrontendBaseURL+"/account")
		if err != nil {
			log.Printf("PaymentMethodPortal: Stripe error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create portal session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

type paymentMethodPayload struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

// SetPaymentMethod attaches a payment method and makes it the customer
// default.
func (h *SubscriptionHandler) SetPaymentMethod() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload paymentMethodPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "paymentMethodId is required")
			return
		}

		sub, err := h.Subscriptions.GetActiveByUser(r.Context(), user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "No active subscription")
				return
			}
			log.Printf("SetPaymentMethod: get active sub for user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load subscription")
			return
		}

		if err := h.Stripe.SetDefaultPaymentMethod(sub.StripeCustomerID, payload.PaymentMethodID); err != nil {
			log.Printf("SetPaymentMethod: Stripe error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update payment method")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// Current returns the caller's live subscription, if any.
func (h *SubscriptionHandler) Current() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		sub, err := h.Subscriptions.GetActiveByUser(r.Context(), user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "No active subscription")
				return
			}
			log.Printf("CurrentSubscription: user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load subscription")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
	}
}

// History returns the caller's full subscription history.
func (h *SubscriptionHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		subs, err := h.Subscriptions.ListByUser(r.Context(), user.ID)
		if err != nil {
			log.Printf("SubscriptionHistory: user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to list subscriptions")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
	}
}
