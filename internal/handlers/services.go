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

// ServiceCatalogStore defines the behaviour required from the service store
// backing the catalog handlers.
type ServiceCatalogStore interface {
	ListServices(ctx context.Context, activeOnly bool) ([]models.Service, error)
	CreateService(ctx context.Context, svc *models.Service) error
	UpdateService(ctx context.Context, svc *models.Service) error
	DeactivateService(ctx context.Context, id int64) error
}

// ServiceHandler serves the service catalog endpoints.
type ServiceHandler struct {
	Services ServiceCatalogStore
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(services ServiceCatalogStore) *ServiceHandler {
	return &ServiceHandler{Services: services}
}

// RegisterRoutes registers the public catalog listing.
func (h *ServiceHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/services", h.List())
}

// RegisterAdminRoutes registers catalog mutation routes.
func (h *ServiceHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/api/services", h.Create())
	router.Put("/api/services", h.Update())
	router.Delete("/api/services/{id}", h.Deactivate())
}

// List returns active services with their variables. `?all=true` includes
// deactivated services for the back office.
func (h *ServiceHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("all") != "true"

		services, err := h.Services.ListServices(r.Context(), activeOnly)
		if err != nil {
			log.Printf("ListServices: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list services")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"services": services})
	}
}

type serviceVariablePayload struct {
	Name      string  `json:"name" validate:"required"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

type servicePayload struct {
	ID          int64                    `json:"id"`
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description"`
	Icon        string                   `json:"icon"`
	Variables   []serviceVariablePayload `json:"variables" validate:"required,min=1,dive"`
}

func (p *servicePayload) toModel() *models.Service {
	svc := &models.Service{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Icon:        strings.TrimSpace(p.Icon),
		IsActive:    true,
	}
	for _, v := range p.Variables {
		svc.Variables = append(svc.Variables, models.ServiceVariable{
			Name:      strings.TrimSpace(v.Name),
			UnitPrice: v.UnitPrice,
		})
	}
	return svc
}

// Create adds a service with its priced variables.
func (h *ServiceHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload servicePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "name and at least one variable are required")
			return
		}

		svc := payload.toModel()
		if err := h.Services.CreateService(r.Context(), svc); err != nil {
			log.Printf("CreateService: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create service")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"service": svc})
	}
}

// Update edits a service. Its variables are replaced wholesale inside the
// same transaction.
func (h *ServiceHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload servicePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if payload.ID == 0 {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "name and at least one variable are required")
			return
		}

		svc := payload.toModel()
		if err := h.Services.UpdateService(r.Context(), svc); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Service not found")
				return
			}
			log.Printf("UpdateService: service %d: %v", svc.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update service")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"service": svc})
	}
}

// Deactivate soft-deletes a service. Historical bookings keep resolving it by
// id.
func (h *ServiceHandler) Deactivate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be numeric")
			return
		}

		if err := h.Services.DeactivateService(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Service not found")
				return
			}
			log.Printf("DeactivateService: service %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to delete service")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"serviceId": id})
	}
}
