package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/email"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
	stripeClient "github.com/Corewavemedia/Dustout-sub001/internal/stripe"
)

const maxWebhookBody = 1 << 20

// WebhookSubscriptionStore defines the subscription operations the webhook
// dispatcher needs.
type WebhookSubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status models.SubscriptionStatus, cancelledAt *time.Time) error
}

// WebhookUserStore resolves users for notification emails.
type WebhookUserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// WebhookBookingStore materializes paid bookings.
type WebhookBookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
}

// WebhookHandler receives and dispatches payment processor events. Every
// event handler is an idempotent overwrite of the state carried in the
// event, so at-least-once and reordered delivery are safe.
type WebhookHandler struct {
	Subscriptions WebhookSubscriptionStore
	Plans         PlanResolver
	Users         WebhookUserStore
	Bookings      WebhookBookingStore
	Catalog       CatalogResolver
	Checkout      CheckoutStore
	Stripe        *stripeClient.Client
	Email         *email.Client
	WebhookSecret string
}

// RegisterRoutes registers the webhook endpoint. It must stay outside the
// auth middleware: the processor signs requests instead of carrying tokens.
func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/subscriptions/webhook", h.Handle())
}

// Handle verifies the event signature and dispatches by type. Signature
// failures answer 400 before any state is touched.
func (h *WebhookHandler) Handle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read body")
			return
		}
		if len(body) > maxWebhookBody {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}

		event, err := stripeClient.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
		if err != nil {
			if errors.Is(err, stripeClient.ErrInvalidSignature) {
				log.Printf("[webhook] signature verification failed: %v", err)
				writeError(w, http.StatusBadRequest, "Invalid signature")
				return
			}
			log.Printf("[webhook] failed to parse event: %v", err)
			writeError(w, http.StatusBadRequest, "Invalid webhook payload")
			return
		}

		eventType, _ := event["type"].(string)
		eventID, _ := event["id"].(string)
		log.Printf("[webhook] received event %s (type: %s)", eventID, eventType)

		data, _ := event["data"].(map[string]interface{})
		obj, _ := data["object"].(map[string]interface{})

		switch eventType {
		case "checkout.session.completed":
			h.handleCheckoutCompleted(r.Context(), obj)

		case "customer.subscription.created",
			"customer.subscription.updated":
			h.handleSubscriptionUpdated(r.Context(), obj)

		case "customer.subscription.deleted":
			h.handleSubscriptionDeleted(r.Context(), obj)

		case "invoice.payment_succeeded":
			h.handlePaymentSucceeded(r.Context(), obj)

		case "invoice.payment_failed":
			h.handlePaymentFailed(r.Context(), obj)

		default:
			log.Printf("[webhook] unhandled event type: %s", eventType)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func metadataString(obj map[string]interface{}, key string) string {
	metadata, _ := obj["metadata"].(map[string]interface{})
	value, _ := metadata[key].(string)
	return value
}

func metadataID(obj map[string]interface{}, key string) int64 {
	id, _ := strconv.ParseInt(metadataString(obj, key), 10, 64)
	return id
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, obj map[string]interface{}) {
	mode, _ := obj["mode"].(string)

	switch mode {
	case "subscription":
		h.materializeSubscription(ctx, obj)
	case "payment":
		h.materializeBooking(ctx, obj)
	default:
		log.Printf("[webhook] checkout.session.completed: unknown mode %q", mode)
	}
}

// materializeSubscription creates (or overwrites, on replay) the local
// subscription for a completed subscription checkout.
func (h *WebhookHandler) materializeSubscription(ctx context.Context, obj map[string]interface{}) {
	userID := metadataID(obj, "user_id")
	planID := metadataID(obj, "plan_id")
	subscriptionID, _ := obj["subscription"].(string)
	customerID, _ := obj["customer"].(string)

	if userID == 0 || planID == 0 || subscriptionID == "" {
		log.Printf("[webhook] checkout: missing metadata (user_id=%d plan_id=%d sub=%q)", userID, planID, subscriptionID)
		return
	}

	plan, err := h.Plans.GetPlanByID(ctx, planID)
	if err != nil {
		log.Printf("[webhook] checkout: plan %d not found: %v", planID, err)
		return
	}

	sub := &models.Subscription{
		UserID:               userID,
		PlanID:               plan.ID,
		PlanName:             plan.Name,
		PlanType:             plan.Type,
		Revenue:              plan.Price,
		Status:               models.SubscriptionActive,
		StartDate:            time.Now().UTC(),
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
	}

	if info, err := h.Stripe.GetSubscription(subscriptionID); err == nil {
		sub.CurrentPeriodStart = info.CurrentPeriodStart
		sub.CurrentPeriodEnd = info.CurrentPeriodEnd
	}

	// Replays and plan-change checkouts land here with a row already in
	// place: overwrite it instead of inserting a second one.
	if existing, err := h.Subscriptions.GetByStripeID(ctx, subscriptionID); err == nil {
		sub.ID = existing.ID
		sub.StartDate = existing.StartDate
		if err := h.Subscriptions.UpdateSubscription(ctx, sub); err != nil {
			log.Printf("[webhook] checkout: update subscription %s: %v", subscriptionID, err)
		}
		return
	}
	if existing, err := h.Subscriptions.GetActiveByUser(ctx, userID); err == nil {
		sub.ID = existing.ID
		if err := h.Subscriptions.UpdateSubscription(ctx, sub); err != nil {
			log.Printf("[webhook] checkout: update subscription for user %d: %v", userID, err)
		}
		return
	}

	if err := h.Subscriptions.CreateSubscription(ctx, sub); err != nil {
		log.Printf("[webhook] checkout: create subscription %s: %v", subscriptionID, err)
	}
}

// materializeBooking turns parked temp booking data into a real booking
// after its one-off payment succeeded.
func (h *WebhookHandler) materializeBooking(ctx context.Context, obj map[string]interface{}) {
	reference := metadataString(obj, "booking_reference")
	if reference == "" {
		log.Printf("[webhook] checkout payment: missing booking_reference metadata")
		return
	}

	temp, err := h.Checkout.GetTempBooking(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already materialized on a previous delivery.
			log.Printf("[webhook] checkout payment: reference %s not found, skipping", reference)
			return
		}
		log.Printf("[webhook] checkout payment: load reference %s: %v", reference, err)
		return
	}

	var payload createBookingPayload
	if err := json.Unmarshal(temp.Payload, &payload); err != nil {
		log.Printf("[webhook] checkout payment: decode parked payload %s: %v", reference, err)
		return
	}

	booking, err := buildBooking(ctx, h.Catalog, temp.UserID, &payload)
	if err != nil {
		log.Printf("[webhook] checkout payment: build booking %s: %v", reference, err)
		return
	}

	if err := h.Bookings.CreateBooking(ctx, booking); err != nil {
		log.Printf("[webhook] checkout payment: create booking %s: %v", reference, err)
		return
	}

	if err := h.Checkout.DeleteTempBooking(ctx, reference); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("[webhook] checkout payment: delete reference %s: %v", reference, err)
	}

	if err := h.Email.SendBookingConfirmation(booking.Email, booking.FullName, booking.ID, booking.EstimatedPrice); err != nil {
		log.Printf("[email] booking confirmation for booking %d: %v", booking.ID, err)
	}
}

// localStatus maps the processor's subscription status onto ours.
func localStatus(processorStatus string, cancelAtPeriodEnd bool) models.SubscriptionStatus {
	switch processorStatus {
	case "past_due", "unpaid":
		return models.SubscriptionPastDue
	case "canceled":
		return models.SubscriptionCancelled
	default:
		if cancelAtPeriodEnd {
			return models.SubscriptionCancelling
		}
		return models.SubscriptionActive
	}
}

func (h *WebhookHandler) handleSubscriptionUpdated(ctx context.Context, obj map[string]interface{}) {
	info := stripeClient.SubscriptionInfoFromEvent(obj)
	if info == nil || info.ID == "" {
		log.Printf("[webhook] subscription.updated: no subscription id in event")
		return
	}

	sub, err := h.Subscriptions.GetByStripeID(ctx, info.ID)
	if err != nil {
		log.Printf("[webhook] subscription.updated: no local subscription for %s", info.ID)
		return
	}

	sub.Status = localStatus(info.Status, info.CancelAtPeriodEnd)
	sub.CancelAtPeriodEnd = info.CancelAtPeriodEnd
	if info.CustomerID != "" {
		sub.StripeCustomerID = info.CustomerID
	}
	if info.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = info.CurrentPeriodStart
	}
	if info.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = info.CurrentPeriodEnd
		sub.ExpiryDate = info.CurrentPeriodEnd
	}

	if err := h.Subscriptions.UpdateSubscription(ctx, sub); err != nil {
		log.Printf("[webhook] subscription.updated: persist %s: %v", info.ID, err)
	}
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, obj map[string]interface{}) {
	subscriptionID, _ := obj["id"].(string)
	if subscriptionID == "" {
		return
	}

	now := time.Now().UTC()
	if err := h.Subscriptions.UpdateStatusByStripeID(ctx, subscriptionID, models.SubscriptionCancelled, &now); err != nil {
		log.Printf("[webhook] subscription.deleted: persist %s: %v", subscriptionID, err)
		return
	}

	sub, err := h.Subscriptions.GetByStripeID(ctx, subscriptionID)
	if err != nil {
		return
	}
	user, err := h.Users.GetUserByID(ctx, sub.UserID)
	if err != nil {
		log.Printf("[webhook] subscription.deleted: load user %d: %v", sub.UserID, err)
		return
	}
	if err := h.Email.SendSubscriptionCancelled(user.Email, user.Fullname, sub.PlanName); err != nil {
		log.Printf("[email] cancellation notice for subscription %d: %v", sub.ID, err)
	}
}

func invoiceSubscriptionID(obj map[string]interface{}) string {
	id, _ := obj["subscription"].(string)
	return id
}

func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, obj map[string]interface{}) {
	subscriptionID := invoiceSubscriptionID(obj)
	if subscriptionID == "" {
		return
	}

	sub, err := h.Subscriptions.GetByStripeID(ctx, subscriptionID)
	if err != nil {
		log.Printf("[webhook] payment_succeeded: no local subscription for %s", subscriptionID)
		return
	}

	sub.Status = models.SubscriptionActive
	if info, err := h.Stripe.GetSubscription(subscriptionID); err == nil {
		if info.CurrentPeriodStart != nil {
			sub.CurrentPeriodStart = info.CurrentPeriodStart
		}
		if info.CurrentPeriodEnd != nil {
			sub.CurrentPeriodEnd = info.CurrentPeriodEnd
			sub.ExpiryDate = info.CurrentPeriodEnd
		}
	}

	if err := h.Subscriptions.UpdateSubscription(ctx, sub); err != nil {
		log.Printf("[webhook] payment_succeeded: persist %s: %v", subscriptionID, err)
	}
}

func (h *WebhookHandler) handlePaymentFailed(ctx context.Context, obj map[string]interface{}) {
	subscriptionID := invoiceSubscriptionID(obj)
	if subscriptionID == "" {
		return
	}

	if err := h.Subscriptions.UpdateStatusByStripeID(ctx, subscriptionID, models.SubscriptionPastDue, nil); err != nil {
		log.Printf("[webhook] payment_failed: persist %s: %v", subscriptionID, err)
	}
}
