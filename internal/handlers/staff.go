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

// StaffCatalogStore defines the behaviour required from the staff store
// backing the staff handlers.
type StaffCatalogStore interface {
	ListStaff(ctx context.Context) ([]models.Staff, error)
	GetStaff(ctx context.Context, id int64) (*models.Staff, error)
	CreateStaff(ctx context.Context, st *models.Staff) error
	UpdateStaff(ctx context.Context, st *models.Staff) error
	DeleteStaff(ctx context.Context, id int64) error
}

// StaffHandler serves the back-office staff management endpoints.
type StaffHandler struct {
	Staff StaffCatalogStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(staff StaffCatalogStore) *StaffHandler {
	return &StaffHandler{Staff: staff}
}

// RegisterRoutes registers the staff routes.
func (h *StaffHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/staff", h.List())
	router.Post("/api/staff", h.Create())
	router.Put("/api/staff", h.Update())
	router.Delete("/api/staff/{id}", h.Delete())
}

// List returns all staff members.
func (h *StaffHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, err := h.Staff.ListStaff(r.Context())
		if err != nil {
			log.Printf("ListStaff: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list staff")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"staff": staff})
	}
}

type staffPayload struct {
	ID               int64    `json:"id"`
	FirstName        string   `json:"firstName" validate:"required"`
	LastName         string   `json:"lastName"`
	Role             string   `json:"role"`
	ServicesRendered []string `json:"servicesRendered"`
	Salary           float64  `json:"salary" validate:"gte=0"`
	Email            string   `json:"email" validate:"required,email"`
	Phone            string   `json:"phone"`
	Address          string   `json:"address"`
}

func (p *staffPayload) toModel() *models.Staff {
	services := p.ServicesRendered
	if services == nil {
		services = []string{}
	}
	return &models.Staff{
		ID:               p.ID,
		FirstName:        strings.TrimSpace(p.FirstName),
		LastName:         strings.TrimSpace(p.LastName),
		Role:             strings.TrimSpace(p.Role),
		ServicesRendered: services,
		Salary:           p.Salary,
		Email:            strings.TrimSpace(p.Email),
		Phone:            strings.TrimSpace(p.Phone),
		Address:          strings.TrimSpace(p.Address),
	}
}

// Create adds a staff member. A duplicate email gets 409.
func (h *StaffHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload staffPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "firstName and a valid email are required")
			return
		}

		st := payload.toModel()
		if err := h.Staff.CreateStaff(r.Context(), st); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				writeError(w, http.StatusConflict, "A staff member with this email already exists")
				return
			}
			log.Printf("CreateStaff: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create staff")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"staff": st})
	}
}

// Update edits a staff member. A duplicate email gets 409.
func (h *StaffHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload staffPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if payload.ID == 0 {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "firstName and a valid email are required")
			return
		}

		st := payload.toModel()
		if err := h.Staff.UpdateStaff(r.Context(), st); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				writeError(w, http.StatusConflict, "A staff member with this email already exists")
				return
			}
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Staff not found")
				return
			}
			log.Printf("UpdateStaff: staff %d: %v", st.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update staff")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"staff": st})
	}
}

// Delete removes a staff member. Bookings assigned to them keep their rows
// with the staff reference cleared.
func (h *StaffHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be numeric")
			return
		}

		if err := h.Staff.DeleteStaff(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Staff not found")
				return
			}
			log.Printf("DeleteStaff: staff %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to delete staff")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"staffId": id})
	}
}
