package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
	stripeClient "github.com/Corewavemedia/Dustout-sub001/internal/stripe"
)

const testWebhookSecret = "whsec_test"

type mockWebhookSubStore struct {
	byStripeID   map[string]*models.Subscription
	activeByUser map[int64]*models.Subscription
	created      *models.Subscription
	updated      *models.Subscription
	statusID     string
	status       models.SubscriptionStatus
}

func (m *mockWebhookSubStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	sub.ID = 31
	m.created = sub
	return nil
}

func (m *mockWebhookSubStore) GetActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, ok := m.activeByUser[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (m *mockWebhookSubStore) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	sub, ok := m.byStripeID[stripeSubscriptionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (m *mockWebhookSubStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	m.updated = sub
	return nil
}

func (m *mockWebhookSubStore) UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status models.SubscriptionStatus, cancelledAt *time.Time) error {
	m.statusID = stripeSubscriptionID
	m.status = status
	return nil
}

type mockWebhookUserStore struct{}

func (m *mockWebhookUserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Email: "user@dustout.co.uk", Fullname: "Test User"}, nil
}

type mockCheckoutStore struct {
	temp    map[string]*models.TempBookingData
	deleted string
}

func (m *mockCheckoutStore) SaveTempBooking(ctx context.Context, t *models.TempBookingData) error {
	return nil
}

func (m *mockCheckoutStore) GetTempBooking(ctx context.Context, referenceID string) (*models.TempBookingData, error) {
	temp, ok := m.temp[referenceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return temp, nil
}

func (m *mockCheckoutStore) DeleteTempBooking(ctx context.Context, referenceID string) error {
	m.deleted = referenceID
	return nil
}

// stubStripeServer answers subscription fetches with fixed period bounds.
func stubStripeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                   "sub_123",
			"status":               "active",
			"current_period_start": 1756425600,
			"current_period_end":   1759017600,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newWebhookHandler(t *testing.T, subs *mockWebhookSubStore, checkout *mockCheckoutStore, plans *mockPlanResolver, bookings *mockBookingStore) *WebhookHandler {
	t.Helper()
	server := stubStripeServer(t)
	return &WebhookHandler{
		Subscriptions: subs,
		Plans:         plans,
		Users:         &mockWebhookUserStore{},
		Bookings:      bookings,
		Catalog:       testCatalog(),
		Checkout:      checkout,
		Stripe:        stripeClient.NewClient("sk_test", stripeClient.WithBaseURL(server.URL)),
		Email:         testEmailClient(),
		WebhookSecret: testWebhookSecret,
	}
}

func postWebhook(t *testing.T, handler *WebhookHandler, payload string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions/webhook", strings.NewReader(payload))
	if sign {
		req.Header.Set("Stripe-Signature", stripeClient.SignPayload([]byte(payload), testWebhookSecret, time.Now()))
	}
	rr := httptest.NewRecorder()
	handler.Handle().ServeHTTP(rr, req)
	return rr
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	subs := &mockWebhookSubStore{}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, &mockPlanResolver{}, &mockBookingStore{})

	payload := strings.Repeat("a", maxWebhookBody+1)
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if subs.created != nil || subs.updated != nil || subs.statusID != "" {
		t.Fatal("oversized payload should not touch the store")
	}
}

func TestWebhookRejectsUnsignedEvent(t *testing.T) {
	subs := &mockWebhookSubStore{}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, &mockPlanResolver{}, &mockBookingStore{})

	payload := `{"type":"invoice.payment_failed","data":{"object":{"subscription":"sub_123"}}}`
	rr := postWebhook(t, handler, payload, false)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if subs.statusID != "" {
		t.Fatal("store should not have been touched")
	}
}

func TestWebhookCheckoutCompletedCreatesSubscription(t *testing.T) {
	subs := &mockWebhookSubStore{}
	plans := &mockPlanResolver{plans: map[int64]*models.SubscriptionPlan{
		2: {ID: 2, Name: "Residential Weekly", Type: "residential", Price: 50, IsActive: true},
	}}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, plans, &mockBookingStore{})

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"mode": "subscription",
			"subscription": "sub_123",
			"customer": "cus_9",
			"metadata": {"user_id": "4", "plan_id": "2"}
		}}
	}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if subs.created == nil {
		t.Fatal("subscription was not created")
	}
	if subs.created.UserID != 4 || subs.created.PlanID != 2 {
		t.Fatalf("unexpected subscription: %+v", subs.created)
	}
	if subs.created.Status != models.SubscriptionActive {
		t.Fatalf("unexpected status: %s", subs.created.Status)
	}
	if subs.created.StripeSubscriptionID != "sub_123" || subs.created.StripeCustomerID != "cus_9" {
		t.Fatalf("processor ids not mirrored: %+v", subs.created)
	}
	if subs.created.CurrentPeriodEnd == nil {
		t.Fatal("period not refreshed from processor")
	}
}

func TestWebhookCheckoutReplayOverwritesExisting(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	subs := &mockWebhookSubStore{byStripeID: map[string]*models.Subscription{
		"sub_123": {ID: 7, UserID: 4, StartDate: start, StripeSubscriptionID: "sub_123"},
	}}
	plans := &mockPlanResolver{plans: map[int64]*models.SubscriptionPlan{
		2: {ID: 2, Name: "Residential Weekly", Type: "residential", Price: 50, IsActive: true},
	}}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, plans, &mockBookingStore{})

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"mode": "subscription",
			"subscription": "sub_123",
			"customer": "cus_9",
			"metadata": {"user_id": "4", "plan_id": "2"}
		}}
	}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if subs.created != nil {
		t.Fatal("replay must not create a second subscription")
	}
	if subs.updated == nil {
		t.Fatal("existing subscription was not overwritten")
	}
	if subs.updated.ID != 7 {
		t.Fatalf("unexpected row updated: %d", subs.updated.ID)
	}
	if !subs.updated.StartDate.Equal(start) {
		t.Fatalf("start date must survive replay, got %v", subs.updated.StartDate)
	}
}

func TestWebhookCheckoutPaymentMaterializesBooking(t *testing.T) {
	payloadBytes, err := json.Marshal(map[string]any{
		"fullName": "Jane Porter", "email": "jane@example.com", "phone": "07700900000",
		"address": "1 High Street", "frequency": "weekly",
		"services": []map[string]any{{"serviceId": 2, "variableId": 5, "quantity": 2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	checkout := &mockCheckoutStore{temp: map[string]*models.TempBookingData{
		"ref-1": {ReferenceID: "ref-1", UserID: 4, Payload: payloadBytes, ExpiresAt: time.Now().Add(time.Hour)},
	}}
	bookings := &mockBookingStore{}
	handler := newWebhookHandler(t, &mockWebhookSubStore{}, checkout, &mockPlanResolver{}, bookings)

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"mode": "payment",
			"metadata": {"booking_reference": "ref-1", "user_id": "4"}
		}}
	}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if bookings.created == nil {
		t.Fatal("booking was not materialized")
	}
	if bookings.created.EstimatedPrice != 90 {
		t.Fatalf("unexpected estimated price: %.2f", bookings.created.EstimatedPrice)
	}
	if checkout.deleted != "ref-1" {
		t.Fatal("parked payload was not consumed")
	}
}

func TestWebhookCheckoutPaymentReplayIsNoop(t *testing.T) {
	bookings := &mockBookingStore{}
	handler := newWebhookHandler(t, &mockWebhookSubStore{}, &mockCheckoutStore{}, &mockPlanResolver{}, bookings)

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"mode": "payment",
			"metadata": {"booking_reference": "ref-gone"}
		}}
	}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if bookings.created != nil {
		t.Fatal("replay must not create a second booking")
	}
}

func TestWebhookPaymentFailedMarksPastDue(t *testing.T) {
	subs := &mockWebhookSubStore{}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, &mockPlanResolver{}, &mockBookingStore{})

	payload := `{"type":"invoice.payment_failed","data":{"object":{"subscription":"sub_123"}}}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if subs.statusID != "sub_123" || subs.status != models.SubscriptionPastDue {
		t.Fatalf("unexpected status update: id=%q status=%q", subs.statusID, subs.status)
	}
}

func TestWebhookSubscriptionDeletedCancels(t *testing.T) {
	subs := &mockWebhookSubStore{byStripeID: map[string]*models.Subscription{
		"sub_123": {ID: 7, UserID: 4, PlanName: "Residential Weekly", StripeSubscriptionID: "sub_123"},
	}}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, &mockPlanResolver{}, &mockBookingStore{})

	payload := `{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_123"}}}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if subs.statusID != "sub_123" || subs.status != models.SubscriptionCancelled {
		t.Fatalf("unexpected status update: id=%q status=%q", subs.statusID, subs.status)
	}
}

func TestWebhookSubscriptionUpdatedMirrorsCancelFlag(t *testing.T) {
	subs := &mockWebhookSubStore{byStripeID: map[string]*models.Subscription{
		"sub_123": {ID: 7, UserID: 4, Status: models.SubscriptionActive, StripeSubscriptionID: "sub_123"},
	}}
	handler := newWebhookHandler(t, subs, &mockCheckoutStore{}, &mockPlanResolver{}, &mockBookingStore{})

	payload := `{
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_123",
			"status": "active",
			"cancel_at_period_end": true,
			"current_period_end": 1759017600
		}}
	}`
	rr := postWebhook(t, handler, payload, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if subs.updated == nil {
		t.Fatal("subscription was not updated")
	}
	if subs.updated.Status != models.SubscriptionCancelling {
		t.Fatalf("unexpected status: %s", subs.updated.Status)
	}
	if !subs.updated.CancelAtPeriodEnd {
		t.Fatal("cancel flag not mirrored")
	}
}

func TestLocalStatusMapping(t *testing.T) {
	cases := []struct {
		processor   string
		cancelAtEnd bool
		want        models.SubscriptionStatus
	}{
		{"active", false, models.SubscriptionActive},
		{"active", true, models.SubscriptionCancelling},
		{"past_due", false, models.SubscriptionPastDue},
		{"unpaid", false, models.SubscriptionPastDue},
		{"canceled", false, models.SubscriptionCancelled},
	}
	for _, tc := range cases {
		if got := localStatus(tc.processor, tc.cancelAtEnd); got != tc.want {
			t.Fatalf("localStatus(%q, %v) = %q, want %q", tc.processor, tc.cancelAtEnd, got, tc.want)
		}
	}
}
