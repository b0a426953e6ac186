package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

type mockSubscriptionStore struct {
	active  *models.Subscription
	history []models.Subscription
	updated *models.Subscription
}

func (m *mockSubscriptionStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return nil
}

func (m *mockSubscriptionStore) GetActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	if m.active == nil {
		return nil, store.ErrNotFound
	}
	return m.active, nil
}

func (m *mockSubscriptionStore) ListByUser(ctx context.Context, userID int64) ([]models.Subscription, error) {
	return m.history, nil
}

func (m *mockSubscriptionStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	m.updated = sub
	return nil
}

type mockPlanResolver struct {
	plans map[int64]*models.SubscriptionPlan
}

func (m *mockPlanResolver) GetPlanByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	plan, ok := m.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return plan, nil
}

func TestRequiresNewPaymentCollection(t *testing.T) {
	current := &models.Subscription{Revenue: 50}

	cases := []struct {
		name  string
		price float64
		want  bool
	}{
		{"upgrade", 80, true},
		{"downgrade", 30, false},
		{"same price", 50, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := requiresNewPaymentCollection(current, &models.SubscriptionPlan{Price: tc.price})
			if got != tc.want {
				t.Fatalf("price %.2f: got %v, want %v", tc.price, got, tc.want)
			}
		})
	}
}

func TestCreateCheckoutSessionRejectsSecondActive(t *testing.T) {
	subs := &mockSubscriptionStore{active: &models.Subscription{
		ID:     7,
		Status: models.SubscriptionActive,
	}}
	handler := NewSubscriptionHandler(subs, &mockPlanResolver{}, nil, nil, "http://localhost:3000")

	req := authedRequest(http.MethodPost, "/api/subscriptions/create-checkout-session",
		`{"planId":3}`, &models.User{ID: 4, Email: "user@dustout.co.uk"})
	rr := httptest.NewRecorder()
	handler.CreateCheckoutSession().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "already have an active subscription") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCreateCheckoutSessionUnknownPlan(t *testing.T) {
	handler := NewSubscriptionHandler(&mockSubscriptionStore{}, &mockPlanResolver{}, nil, nil, "http://localhost:3000")

	req := authedRequest(http.MethodPost, "/api/subscriptions/create-checkout-session",
		`{"planId":42}`, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.CreateCheckoutSession().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Unknown plan reference") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestChangePlanRejectsUpgradeOnDirectPath(t *testing.T) {
	subs := &mockSubscriptionStore{active: &models.Subscription{
		ID:      7,
		PlanID:  1,
		Revenue: 50,
		Status:  models.SubscriptionActive,
	}}
	plans := &mockPlanResolver{plans: map[int64]*models.SubscriptionPlan{
		2: {ID: 2, Name: "Industrial Weekly", Type: "industrial", Price: 120, IsActive: true},
	}}
	handler := NewSubscriptionHandler(subs, plans, nil, nil, "http://localhost:3000")

	req := authedRequest(http.MethodPost, "/api/subscriptions/change-plan",
		`{"planId":2}`, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.ChangePlan().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if subs.updated != nil {
		t.Fatalf("subscription should not have been updated")
	}
}

func TestChangePlanRejectsSamePlan(t *testing.T) {
	subs := &mockSubscriptionStore{active: &models.Subscription{
		ID:      7,
		PlanID:  2,
		Revenue: 50,
		Status:  models.SubscriptionActive,
	}}
	plans := &mockPlanResolver{plans: map[int64]*models.SubscriptionPlan{
		2: {ID: 2, Name: "Residential Weekly", Type: "residential", Price: 50, IsActive: true},
	}}
	handler := NewSubscriptionHandler(subs, plans, nil, nil, "http://localhost:3000")

	req := authedRequest(http.MethodPost, "/api/subscriptions/change-plan",
		`{"planId":2}`, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.ChangePlan().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Already on this plan") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestImmediateCancelKeepsPeriodExpiry(t *testing.T) {
	periodEnd := time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)
	subs := &mockSubscriptionStore{active: &models.Subscription{
		ID:         7,
		UserID:     4,
		Status:     models.SubscriptionActive,
		ExpiryDate: &periodEnd,
	}}
	handler := NewSubscriptionHandler(subs, &mockPlanResolver{}, nil, nil, "http://localhost:3000")

	req := authedRequest(http.MethodPost, "/api/subscriptions/cancel",
		`{"cancelAtPeriodEnd":false}`, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.Cancel().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if subs.updated == nil {
		t.Fatal("subscription was not persisted")
	}
	if subs.updated.Status != models.SubscriptionCancelled {
		t.Fatalf("unexpected status: %s", subs.updated.Status)
	}
	if subs.updated.CancelAtPeriodEnd {
		t.Fatal("cancelAtPeriodEnd should be cleared on immediate cancel")
	}
	if subs.updated.CancelledAt == nil {
		t.Fatal("cancelledAt should be set on immediate cancel")
	}
	if subs.updated.ExpiryDate == nil || !subs.updated.ExpiryDate.Equal(periodEnd) {
		t.Fatalf("expiry should keep the period end, got %v", subs.updated.ExpiryDate)
	}
}

func TestCurrentSubscriptionNotFound(t *testing.T) {
	handler := NewSubscriptionHandler(&mockSubscriptionStore{}, &mockPlanResolver{}, nil, nil, "http://localhost:3000")

	req := authedRequest(http.MethodGet, "/api/subscriptions/current", "", &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.Current().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}
