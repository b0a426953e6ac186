package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/email"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

// AdminBookingStore extends BookingStore with the operations only the back
// office uses.
type AdminBookingStore interface {
	BookingStore
	AssignStaff(ctx context.Context, id, staffID int64) error
	UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) error
	ListUpcoming(ctx context.Context, fromDate string, limit int) ([]models.Booking, error)
}

// BookingUserStore resolves and creates customer accounts for manual
// bookings.
type BookingUserStore interface {
	EnsureUser(ctx context.Context, email, fullname string) (*models.User, error)
}

// AdminBookingHandler serves the back-office booking endpoints.
type AdminBookingHandler struct {
	Bookings AdminBookingStore
	Catalog  CatalogResolver
	Staff    StaffResolver
	Users    BookingUserStore
	Email    *email.Client
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(bookings AdminBookingStore, catalog CatalogResolver, staff StaffResolver, users BookingUserStore, emailClient *email.Client) *AdminBookingHandler {
	return &AdminBookingHandler{Bookings: bookings, Catalog: catalog, Staff: staff, Users: users, Email: emailClient}
}

// RegisterRoutes registers the admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/admin/bookings", h.List())
	router.Post("/api/admin/bookings", h.CreateManual())
	router.Put("/api/admin/bookings", h.Update())
	router.Get("/api/admin/bookings/upcoming", h.Upcoming())
}

// List returns bookings matching the query filters: status, userId, from, to,
// limit and offset.
func (h *AdminBookingHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.ListFilter{}
		q := r.URL.Query()

		if status := q.Get("status"); status != "" {
			if !models.ValidBookingStatus(models.BookingStatus(status)) {
				writeError(w, http.StatusBadRequest, "Unknown booking status")
				return
			}
			filter.Status = models.BookingStatus(status)
		}
		if userID := q.Get("userId"); userID != "" {
			parsed, err := strconv.ParseInt(userID, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "userId must be numeric")
				return
			}
			filter.UserID = parsed
		}
		filter.FromDate = q.Get("from")
		filter.ToDate = q.Get("to")
		if limit := q.Get("limit"); limit != "" {
			if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
				filter.Limit = parsed
			}
		}
		if offset := q.Get("offset"); offset != "" {
			if parsed, err := strconv.Atoi(offset); err == nil && parsed > 0 {
				filter.Offset = parsed
			}
		}

		bookings, err := h.Bookings.ListBookings(r.Context(), filter)
		if err != nil {
			log.Printf("AdminListBookings: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list bookings")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
	}
}

type manualBookingPayload struct {
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	createBookingPayload
}

// CreateManual records a booking on behalf of a customer identified by
// email, creating the customer account if it does not exist yet.
func (h *AdminBookingHandler) CreateManual() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload manualBookingPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "customerEmail, contact details and at least one service line are required")
			return
		}

		customer, err := h.Users.EnsureUser(r.Context(),
			strings.TrimSpace(payload.CustomerEmail), strings.TrimSpace(payload.FullName))
		if err != nil {
			log.Printf("AdminCreateBooking: ensure customer %s: %v", payload.CustomerEmail, err)
			writeError(w, http.StatusInternalServerError, "Failed to resolve customer")
			return
		}

		booking, err := buildBooking(r.Context(), h.Catalog, customer.ID, &payload.createBookingPayload)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown service or variable reference")
				return
			}
			log.Printf("AdminCreateBooking: resolve lines: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}

		if err := h.Bookings.CreateBooking(r.Context(), booking); err != nil {
			log.Printf("AdminCreateBooking: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}

		if err := h.Email.SendBookingConfirmation(booking.Email, booking.FullName, booking.ID, booking.EstimatedPrice); err != nil {
			log.Printf("[email] booking confirmation for booking %d: %v", booking.ID, err)
		}

		writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
	}
}

type adminUpdateBookingPayload struct {
	BookingID int64                `json:"bookingId" validate:"required"`
	StaffID   *int64               `json:"staffId"`
	Status    models.BookingStatus `json:"status"`
}

// Update assigns staff (moving a pending booking to confirmed) and/or sets
// the booking status.
func (h *AdminBookingHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adminUpdateBookingPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "bookingId is required")
			return
		}
		if payload.StaffID == nil && payload.Status == "" {
			writeError(w, http.StatusBadRequest, "Nothing to update")
			return
		}
		if payload.Status != "" && !models.ValidBookingStatus(payload.Status) {
			writeError(w, http.StatusBadRequest, "Unknown booking status")
			return
		}

		current, err := h.Bookings.GetBooking(r.Context(), payload.BookingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Booking not found")
				return
			}
			log.Printf("AdminUpdateBooking: get booking %d: %v", payload.BookingID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load booking")
			return
		}

		if payload.StaffID != nil {
			assigned, err := h.Staff.GetStaff(r.Context(), *payload.StaffID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusBadRequest, "Unknown staff reference")
					return
				}
				log.Printf("AdminUpdateBooking: get staff %d: %v", *payload.StaffID, err)
				writeError(w, http.StatusInternalServerError, "Failed to load staff")
				return
			}
			if err := h.Bookings.AssignStaff(r.Context(), payload.BookingID, *payload.StaffID); err != nil {
				log.Printf("AdminUpdateBooking: assign staff: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to assign staff")
				return
			}

			date := "to be arranged"
			timeOfDay := "to be arranged"
			if current.ScheduledDate != nil {
				date = *current.ScheduledDate
			}
			if current.ScheduledTime != nil {
				timeOfDay = *current.ScheduledTime
			}
			if err := h.Email.SendSchedulingConfirmation(current.Email, current.FullName,
				assigned.FullName(), date, timeOfDay, current.Address); err != nil {
				log.Printf("[email] staff assignment for booking %d: %v", current.ID, err)
			}
		}

		if payload.Status != "" {
			if err := h.Bookings.UpdateStatus(r.Context(), payload.BookingID, payload.Status); err != nil {
				log.Printf("AdminUpdateBooking: update status: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to update status")
				return
			}
		}

		booking, err := h.Bookings.GetBooking(r.Context(), payload.BookingID)
		if err != nil {
			log.Printf("AdminUpdateBooking: reload booking %d: %v", payload.BookingID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load booking")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
	}
}

// Upcoming returns confirmed and scheduled bookings from today onward.
func (h *AdminBookingHandler) Upcoming() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if override := r.URL.Query().Get("limit"); override != "" {
			if parsed, err := strconv.Atoi(override); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		today := time.Now().UTC().Format("2006-01-02")
		bookings, err := h.Bookings.ListUpcoming(r.Context(), today, limit)
		if err != nil {
			log.Printf("UpcomingBookings: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list upcoming bookings")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
	}
}
