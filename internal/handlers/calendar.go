package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

// CalendarDataStore defines the behaviour required from the calendar store
// backing the availability handlers.
type CalendarDataStore interface {
	ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error)
	CreateBlockedDate(ctx context.Context, d *models.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, date string) error
	BookingCountsByDate(ctx context.Context) ([]models.BookingDateCount, error)
}

const dateLayout = "2006-01-02"

// pastWindowDays is how far back the availability calendar paints days as
// unavailable.
const pastWindowDays = 365

// CalendarHandler serves availability and blocked-date endpoints.
type CalendarHandler struct {
	Calendar CalendarDataStore

	// now is swappable in tests.
	now func() time.Time
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(calendar CalendarDataStore) *CalendarHandler {
	return &CalendarHandler{Calendar: calendar, now: time.Now}
}

// RegisterRoutes registers the public availability routes.
func (h *CalendarHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/unavailable-dates", h.UnavailableDates())
}

// RegisterAdminRoutes registers the blocked-date management routes.
func (h *CalendarHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/api/blocked-dates", h.ListBlocked())
	router.Post("/api/blocked-dates", h.Block())
	router.Delete("/api/blocked-dates/{date}", h.Unblock())
	router.Get("/api/booking-dates", h.BookingDates())
}

// UnavailableDates returns every date a customer cannot book: admin-blocked
// dates plus the trailing year of past days, sorted ascending.
func (h *CalendarHandler) UnavailableDates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blocked, err := h.Calendar.ListBlockedDates(r.Context())
		if err != nil {
			log.Printf("UnavailableDates: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load unavailable dates")
			return
		}

		seen := make(map[string]struct{}, len(blocked)+pastWindowDays)
		for _, d := range blocked {
			seen[d.BlockedDate] = struct{}{}
		}

		today := h.now().UTC().Truncate(24 * time.Hour)
		for i := 1; i <= pastWindowDays; i++ {
			seen[today.AddDate(0, 0, -i).Format(dateLayout)] = struct{}{}
		}

		dates := make([]string, 0, len(seen))
		for d := range seen {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		writeJSON(w, http.StatusOK, map[string]any{"unavailableDates": dates})
	}
}

// ListBlocked returns the admin-declared blocked dates.
func (h *CalendarHandler) ListBlocked() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blocked, err := h.Calendar.ListBlockedDates(r.Context())
		if err != nil {
			log.Printf("ListBlockedDates: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list blocked dates")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"blockedDates": blocked})
	}
}

type blockDatePayload struct {
	Date   string `json:"date" validate:"required"`
	Reason string `json:"reason"`
}

// Block marks a date unavailable. An already blocked date gets 409.
func (h *CalendarHandler) Block() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload blockDatePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		if _, err := time.Parse(dateLayout, payload.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		blocked := &models.BlockedDate{
			BlockedDate: payload.Date,
			Reason:      strings.TrimSpace(payload.Reason),
		}
		if err := h.Calendar.CreateBlockedDate(r.Context(), blocked); err != nil {
			if errors.Is(err, store.ErrDateAlreadyBlocked) {
				writeError(w, http.StatusConflict, "Date is already blocked")
				return
			}
			log.Printf("BlockDate: %s: %v", payload.Date, err)
			writeError(w, http.StatusInternalServerError, "Failed to block date")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"blockedDate": blocked})
	}
}

// Unblock removes a blocked date identified by its date string.
func (h *CalendarHandler) Unblock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		if _, err := time.Parse(dateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		if err := h.Calendar.DeleteBlockedDate(r.Context(), date); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Date is not blocked")
				return
			}
			log.Printf("UnblockDate: %s: %v", date, err)
			writeError(w, http.StatusInternalServerError, "Failed to unblock date")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"date": date})
	}
}

// BookingDates returns per-date booking counts for the admin calendar.
func (h *CalendarHandler) BookingDates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := h.Calendar.BookingCountsByDate(r.Context())
		if err != nil {
			log.Printf("BookingDates: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load booking dates")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookingDates": counts})
	}
}
