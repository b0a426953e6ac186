package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Corewavemedia/Dustout-sub001/internal/authn"
	"github.com/Corewavemedia/Dustout-sub001/internal/config"
	"github.com/Corewavemedia/Dustout-sub001/internal/handlers"
	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

type stubVerifier struct {
	identity *authn.Identity
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (*authn.Identity, error) {
	if v.identity == nil {
		return nil, errors.New("invalid token")
	}
	return v.identity, nil
}

type stubUserStore struct {
	user *models.User
}

func (s *stubUserStore) EnsureUser(ctx context.Context, email, name string) (*models.User, error) {
	return s.user, nil
}

func testServer(verifier *stubVerifier, user *models.User) *Server {
	cfg := config.Config{
		ServerAddress:      ":0",
		CORSAllowedOrigins: []string{"*"},
	}
	auth := middleware.NewAuthenticator(verifier, &stubUserStore{user: user})
	return New(cfg, auth, Handlers{
		Auth:          &handlers.AuthHandler{},
		Bookings:      &handlers.BookingHandler{},
		AdminBookings: &handlers.AdminBookingHandler{},
		Services:      &handlers.ServiceHandler{},
		Staff:         &handlers.StaffHandler{},
		Plans:         &handlers.PlanHandler{},
		Subscriptions: &handlers.SubscriptionHandler{},
		AdminSubs:     &handlers.AdminSubscriptionHandler{},
		Checkout:      &handlers.CheckoutHandler{},
		Webhook:       &handlers.WebhookHandler{},
		Calendar:      handlers.NewCalendarHandler(nil),
		Analytics:     &handlers.AnalyticsHandler{},
	})
}

func TestHealthEndpointIsPublic(t *testing.T) {
	server := testServer(&stubVerifier{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	server := testServer(&stubVerifier{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestCustomerRoutesRequireToken(t *testing.T) {
	server := testServer(&stubVerifier{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestPlanMutationsRequireToken(t *testing.T) {
	server := testServer(&stubVerifier{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/subscription-plans", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	verifier := &stubVerifier{identity: &authn.Identity{UID: "uid1", Email: "user@dustout.co.uk"}}
	server := testServer(verifier, &models.User{ID: 4, Email: "user@dustout.co.uk", Role: models.RoleUser})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}
