package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

type mockPlanStore struct {
	plans       []models.SubscriptionPlan
	activeOnly  bool
	created     *models.SubscriptionPlan
	updated     *models.SubscriptionPlan
	deactivated int64
}

func (m *mockPlanStore) ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error) {
	m.activeOnly = activeOnly
	return m.plans, nil
}

func (m *mockPlanStore) CreatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	p.ID = 21
	m.created = p
	return nil
}

func (m *mockPlanStore) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	m.updated = p
	return nil
}

func (m *mockPlanStore) DeactivatePlan(ctx context.Context, id int64) error {
	if id != 21 {
		return store.ErrNotFound
	}
	m.deactivated = id
	return nil
}

func TestPlanRoutesServeSubscriptionPlansPath(t *testing.T) {
	plans := &mockPlanStore{plans: []models.SubscriptionPlan{
		{ID: 21, Name: "Residential Weekly", Type: "residential", Price: 120, IsActive: true},
	}}
	handler := NewPlanHandler(plans)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	handler.RegisterAdminRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/subscription-plans", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Residential Weekly") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if !plans.activeOnly {
		t.Fatal("listing should default to active plans only")
	}

	body := `{"name":"Industrial Monthly","type":"industrial","price":480}`
	req = httptest.NewRequest(http.MethodPost, "/api/subscription-plans", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if plans.created == nil || plans.created.Name != "Industrial Monthly" {
		t.Fatalf("plan not created: %+v", plans.created)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/subscription-plans/21", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if plans.deactivated != 21 {
		t.Fatalf("plan not deactivated: %d", plans.deactivated)
	}
}

func TestUpdatePlanRequiresID(t *testing.T) {
	plans := &mockPlanStore{}
	handler := NewPlanHandler(plans)

	body := `{"name":"Residential Weekly","type":"residential","price":120}`
	req := httptest.NewRequest(http.MethodPut, "/api/subscription-plans", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Update().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if plans.updated != nil {
		t.Fatalf("plan should not be updated: %+v", plans.updated)
	}
}
