package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
	stripeClient "github.com/Corewavemedia/Dustout-sub001/internal/stripe"
)

// CheckoutStore parks booking payloads while the one-off payment completes.
type CheckoutStore interface {
	SaveTempBooking(ctx context.Context, t *models.TempBookingData) error
	GetTempBooking(ctx context.Context, referenceID string) (*models.TempBookingData, error)
	DeleteTempBooking(ctx context.Context, referenceID string) error
}

const tempBookingTTL = 24 * time.Hour

// CheckoutHandler serves the one-off booking payment flow: the booking is
// parked under a reference id and only materialized when the payment webhook
// lands.
type CheckoutHandler struct {
	Checkout CheckoutStore
	Catalog  CatalogResolver
	Stripe   *stripeClient.Client

	FrontendBaseURL string
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout CheckoutStore, catalog CatalogResolver, stripe *stripeClient.Client, frontendBaseURL string) *CheckoutHandler {
	return &CheckoutHandler{Checkout: checkout, Catalog: catalog, Stripe: stripe, FrontendBaseURL: frontendBaseURL}
}

// RegisterRoutes registers the one-off checkout route.
func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/stripe/create-checkout-session", h.CreateSession())
}

// CreateSession validates and prices the booking payload, parks it as temp
// booking data, and answers with a payment checkout URL carrying the
// reference in its metadata.
func (h *CheckoutHandler) CreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload createBookingPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "Contact details and at least one service line are required")
			return
		}

		// Price now so the checkout amount matches what materialization will
		// compute later.
		booking, err := buildBooking(r.Context(), h.Catalog, user.ID, &payload)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown service or variable reference")
				return
			}
			log.Printf("CreateBookingCheckout: resolve lines: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("CreateBookingCheckout: marshal payload: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		temp := &models.TempBookingData{
			ReferenceID: uuid.NewString(),
			UserID:      user.ID,
			Payload:     raw,
			ExpiresAt:   time.Now().UTC().Add(tempBookingTTL),
		}
		if err := h.Checkout.SaveTempBooking(r.Context(), temp); err != nil {
			log.Printf("CreateBookingCheckout: save temp booking: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		customerID, err := h.Stripe.EnsureCustomer(user.Email, user.Fullname)
		if err != nil {
			log.Printf("CreateBookingCheckout: ensure customer: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		_, url, err := h.Stripe.CreatePaymentCheckout(
			customerID, "Dustout cleaning booking", pence(booking.EstimatedPrice), "gbp",
			h.FrontendBaseURL+"/booking/success?session_id={CHECKOUT_SESSION_ID}",
			h.FrontendBaseURL+"/booking/cancelled",
			map[string]string{
				"booking_reference": temp.ReferenceID,
				"user_id":           formatID(user.ID),
			},
		)
		if err != nil {
			log.Printf("CreateBookingCheckout: Stripe error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"url":       url,
			"reference": temp.ReferenceID,
		})
	}
}
