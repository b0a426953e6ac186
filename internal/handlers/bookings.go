package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/email"
	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

// BookingStore defines the behaviour required from the booking store backing
// the booking handlers.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter store.ListFilter) ([]models.Booking, error)
	UpdateContactDetails(ctx context.Context, id int64, fullName, phone, address, city, postcode string, specialInstructions *string) error
	Schedule(ctx context.Context, id int64, date, timeOfDay string, staffID *int64) error
}

// CatalogResolver resolves typed service/variable references on booking
// lines.
type CatalogResolver interface {
	GetService(ctx context.Context, id int64) (*models.Service, error)
	GetVariable(ctx context.Context, serviceID, variableID int64) (*models.ServiceVariable, error)
}

// StaffResolver resolves staff references on scheduling requests.
type StaffResolver interface {
	GetStaff(ctx context.Context, id int64) (*models.Staff, error)
}

// BookingHandler serves the customer-facing booking endpoints.
type BookingHandler struct {
	Bookings BookingStore
	Catalog  CatalogResolver
	Staff    StaffResolver
	Email    *email.Client
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings BookingStore, catalog CatalogResolver, staff StaffResolver, emailClient *email.Client) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Catalog: catalog, Staff: staff, Email: emailClient}
}

// RegisterRoutes registers the customer booking routes.
func (h *BookingHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/bookings", h.Create())
	router.Get("/api/bookings", h.ListOwn())
	router.Put("/api/bookings", h.UpdateDetails())
	router.Put("/api/bookings/schedule", h.Schedule())
}

type bookingLinePayload struct {
	ServiceID  int64 `json:"serviceId" validate:"required"`
	VariableID int64 `json:"variableId" validate:"required"`
	Quantity   int   `json:"quantity" validate:"required,min=1"`
}

type createBookingPayload struct {
	FullName            string               `json:"fullName" validate:"required"`
	Email               string               `json:"email" validate:"required,email"`
	Phone               string               `json:"phone" validate:"required"`
	Address             string               `json:"address" validate:"required"`
	City                string               `json:"city"`
	Postcode            string               `json:"postcode"`
	Frequency           string               `json:"frequency" validate:"required"`
	PreferredDate       *string              `json:"preferredDate"`
	PreferredTime       *string              `json:"preferredTime"`
	SpecialInstructions *string              `json:"specialInstructions"`
	Services            []bookingLinePayload `json:"services" validate:"required,min=1,dive"`
}

// buildBooking resolves the typed line references against the catalog and
// prices the booking. Unknown service or variable ids surface as
// store.ErrNotFound.
func buildBooking(ctx context.Context, catalog CatalogResolver, userID int64, payload *createBookingPayload) (*models.Booking, error) {
	booking := &models.Booking{
		UserID:              userID,
		FullName:            strings.TrimSpace(payload.FullName),
		Email:               strings.TrimSpace(payload.Email),
		Phone:               strings.TrimSpace(payload.Phone),
		Address:             strings.TrimSpace(payload.Address),
		City:                strings.TrimSpace(payload.City),
		Postcode:            strings.TrimSpace(payload.Postcode),
		Frequency:           strings.TrimSpace(payload.Frequency),
		PreferredDate:       payload.PreferredDate,
		PreferredTime:       payload.PreferredTime,
		SpecialInstructions: payload.SpecialInstructions,
		Status:              models.BookingPending,
	}

	for _, line := range payload.Services {
		svc, err := catalog.GetService(ctx, line.ServiceID)
		if err != nil {
			return nil, err
		}
		variable, err := catalog.GetVariable(ctx, line.ServiceID, line.VariableID)
		if err != nil {
			return nil, err
		}

		linePrice := variable.UnitPrice * float64(line.Quantity)
		booking.Services = append(booking.Services, models.BookingService{
			ServiceID:    svc.ID,
			ServiceName:  svc.Name,
			VariableID:   variable.ID,
			VariableName: variable.Name,
			Quantity:     line.Quantity,
			UnitPrice:    variable.UnitPrice,
			Price:        linePrice,
		})
		booking.EstimatedPrice += linePrice
	}

	return booking, nil
}

// Create books one or more services for the authenticated customer. The
// booking and its lines commit in one transaction; the confirmation email is
// best effort.
func (h *BookingHandler) Create() http.HandlerFunc {
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

		booking, err := buildBooking(r.Context(), h.Catalog, user.ID, &payload)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown service or variable reference")
				return
			}
			log.Printf("CreateBooking: resolve lines: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}

		if err := h.Bookings.CreateBooking(r.Context(), booking); err != nil {
			log.Printf("CreateBooking: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}

		if err := h.Email.SendBookingConfirmation(booking.Email, booking.FullName, booking.ID, booking.EstimatedPrice); err != nil {
			log.Printf("[email] booking confirmation for booking %d: %v", booking.ID, err)
		}

		writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
	}
}

// ListOwn returns the caller's bookings with line items, newest first.
func (h *BookingHandler) ListOwn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		bookings, err := h.Bookings.ListBookings(r.Context(), store.ListFilter{UserID: user.ID})
		if err != nil {
			log.Printf("ListBookings: user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to list bookings")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
	}
}

type updateBookingPayload struct {
	BookingID           int64   `json:"bookingId" validate:"required"`
	FullName            string  `json:"fullName" validate:"required"`
	Phone               string  `json:"phone" validate:"required"`
	Address             string  `json:"address" validate:"required"`
	City                string  `json:"city"`
	Postcode            string  `json:"postcode"`
	SpecialInstructions *string `json:"specialInstructions"`
}

// UpdateDetails lets the owner amend contact fields and notes on a booking.
func (h *BookingHandler) UpdateDetails() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload updateBookingPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "bookingId and contact details are required")
			return
		}

		booking, err := h.Bookings.GetBooking(r.Context(), payload.BookingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Booking not found")
				return
			}
			log.Printf("UpdateBooking: get booking %d: %v", payload.BookingID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load booking")
			return
		}
		if booking.UserID != user.ID && !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Not your booking")
			return
		}

		if err := h.Bookings.UpdateContactDetails(r.Context(), booking.ID,
			strings.TrimSpace(payload.FullName), strings.TrimSpace(payload.Phone),
			strings.TrimSpace(payload.Address), strings.TrimSpace(payload.City),
			strings.TrimSpace(payload.Postcode), payload.SpecialInstructions); err != nil {
			log.Printf("UpdateBooking: booking %d: %v", booking.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update booking")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"bookingId": booking.ID})
	}
}

type scheduleBookingPayload struct {
	BookingID     int64  `json:"bookingId" validate:"required"`
	ScheduledDate string `json:"scheduledDate" validate:"required"`
	ScheduledTime string `json:"scheduledTime" validate:"required"`
	StaffID       *int64 `json:"staffId"`
}

// Schedule sets the scheduled date and time on a booking, moving it to the
// scheduled status. The scheduling email is best effort.
func (h *BookingHandler) Schedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload scheduleBookingPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "bookingId, scheduledDate and scheduledTime are required")
			return
		}

		booking, err := h.Bookings.GetBooking(r.Context(), payload.BookingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Booking not found")
				return
			}
			log.Printf("ScheduleBooking: get booking %d: %v", payload.BookingID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load booking")
			return
		}
		if booking.UserID != user.ID && !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Not your booking")
			return
		}

		staffName := ""
		if payload.StaffID != nil {
			staff, err := h.Staff.GetStaff(r.Context(), *payload.StaffID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusBadRequest, "Unknown staff reference")
					return
				}
				log.Printf("ScheduleBooking: get staff %d: %v", *payload.StaffID, err)
				writeError(w, http.StatusInternalServerError, "Failed to load staff")
				return
			}
			staffName = staff.FullName()
		}

		if err := h.Bookings.Schedule(r.Context(), booking.ID,
			payload.ScheduledDate, payload.ScheduledTime, payload.StaffID); err != nil {
			log.Printf("ScheduleBooking: booking %d: %v", booking.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to schedule booking")
			return
		}

		if err := h.Email.SendSchedulingConfirmation(booking.Email, booking.FullName,
			staffName, payload.ScheduledDate, payload.ScheduledTime, booking.Address); err != nil {
			log.Printf("[email] scheduling confirmation for booking %d: %v", booking.ID, err)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"bookingId":     booking.ID,
			"status":        models.BookingScheduled,
			"scheduledDate": payload.ScheduledDate,
			"scheduledTime": payload.ScheduledTime,
		})
	}
}
