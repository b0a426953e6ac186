package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Corewavemedia/Dustout-sub001/internal/email"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

type mockBookingStore struct {
	created  *models.Booking
	bookings map[int64]*models.Booking
}

func (m *mockBookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.ID = 11
	m.created = booking
	return nil
}

func (m *mockBookingStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, ok := m.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return booking, nil
}

func (m *mockBookingStore) ListBookings(ctx context.Context, filter store.ListFilter) ([]models.Booking, error) {
	return nil, nil
}

func (m *mockBookingStore) UpdateContactDetails(ctx context.Context, id int64, fullName, phone, address, city, postcode string, specialInstructions *string) error {
	return nil
}

func (m *mockBookingStore) Schedule(ctx context.Context, id int64, date, timeOfDay string, staffID *int64) error {
	return nil
}

type mockCatalog struct {
	services  map[int64]*models.Service
	variables map[int64]*models.ServiceVariable
}

func (m *mockCatalog) GetService(ctx context.Context, id int64) (*models.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return svc, nil
}

func (m *mockCatalog) GetVariable(ctx context.Context, serviceID, variableID int64) (*models.ServiceVariable, error) {
	variable, ok := m.variables[variableID]
	if !ok || variable.ServiceID != serviceID {
		return nil, store.ErrNotFound
	}
	return variable, nil
}

type mockStaffResolver struct {
	staff map[int64]*models.Staff
}

func (m *mockStaffResolver) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	s, ok := m.staff[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func testCatalog() *mockCatalog {
	return &mockCatalog{
		services: map[int64]*models.Service{
			2: {ID: 2, Name: "Deep Clean", IsActive: true},
		},
		variables: map[int64]*models.ServiceVariable{
			5: {ID: 5, ServiceID: 2, Name: "3 rooms", UnitPrice: 45},
			6: {ID: 6, ServiceID: 2, Name: "Oven add-on", UnitPrice: 20},
		},
	}
}

func testEmailClient() *email.Client {
	return email.NewClient("", "Dustout <test@dustout.co.uk>")
}

const createBookingBody = `{
	"fullName": "Jane Porter",
	"email": "jane@example.com",
	"phone": "07700900000",
	"address": "1 High Street",
	"city": "London",
	"postcode": "SW1A 1AA",
	"frequency": "weekly",
	"services": [
		{"serviceId": 2, "variableId": 5, "quantity": 2},
		{"serviceId": 2, "variableId": 6, "quantity": 1}
	]
}`

func TestCreateBookingPricesLines(t *testing.T) {
	bookings := &mockBookingStore{}
	handler := NewBookingHandler(bookings, testCatalog(), &mockStaffResolver{}, testEmailClient())

	req := authedRequest(http.MethodPost, "/api/bookings", createBookingBody,
		&models.User{ID: 4, Email: "jane@example.com"})
	rr := httptest.NewRecorder()
	handler.Create().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}
	if bookings.created == nil {
		t.Fatal("booking was not persisted")
	}
	if got := bookings.created.EstimatedPrice; got != 110 {
		t.Fatalf("estimated price: got %.2f, want 110.00", got)
	}
	if len(bookings.created.Services) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(bookings.created.Services))
	}
	if line := bookings.created.Services[0]; line.Price != 90 || line.ServiceName != "Deep Clean" {
		t.Fatalf("unexpected first line: %+v", line)
	}
	if bookings.created.Status != models.BookingPending {
		t.Fatalf("unexpected status: %s", bookings.created.Status)
	}
}

func TestCreateBookingUnknownVariable(t *testing.T) {
	bookings := &mockBookingStore{}
	handler := NewBookingHandler(bookings, testCatalog(), &mockStaffResolver{}, testEmailClient())

	body := `{
		"fullName": "Jane Porter", "email": "jane@example.com", "phone": "07700900000",
		"address": "1 High Street", "frequency": "weekly",
		"services": [{"serviceId": 2, "variableId": 999, "quantity": 1}]
	}`
	req := authedRequest(http.MethodPost, "/api/bookings", body, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.Create().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Unknown service or variable reference") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if bookings.created != nil {
		t.Fatal("booking should not have been persisted")
	}
}

func TestCreateBookingRequiresServiceLines(t *testing.T) {
	handler := NewBookingHandler(&mockBookingStore{}, testCatalog(), &mockStaffResolver{}, testEmailClient())

	body := `{
		"fullName": "Jane Porter", "email": "jane@example.com", "phone": "07700900000",
		"address": "1 High Street", "frequency": "weekly", "services": []
	}`
	req := authedRequest(http.MethodPost, "/api/bookings", body, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.Create().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestUpdateDetailsRejectsForeignBooking(t *testing.T) {
	bookings := &mockBookingStore{bookings: map[int64]*models.Booking{
		11: {ID: 11, UserID: 9},
	}}
	handler := NewBookingHandler(bookings, testCatalog(), &mockStaffResolver{}, testEmailClient())

	body := `{"bookingId":11,"fullName":"Eve","phone":"07700900001","address":"2 Low Street"}`
	req := authedRequest(http.MethodPut, "/api/bookings", body,
		&models.User{ID: 4, Role: models.RoleUser})
	rr := httptest.NewRecorder()
	handler.UpdateDetails().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestScheduleUnknownStaff(t *testing.T) {
	bookings := &mockBookingStore{bookings: map[int64]*models.Booking{
		11: {ID: 11, UserID: 4, Email: "jane@example.com"},
	}}
	handler := NewBookingHandler(bookings, testCatalog(), &mockStaffResolver{}, testEmailClient())

	body := `{"bookingId":11,"scheduledDate":"2026-09-01","scheduledTime":"morning","staffId":77}`
	req := authedRequest(http.MethodPut, "/api/bookings/schedule", body, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.Schedule().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Unknown staff reference") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestScheduleMovesBookingToScheduled(t *testing.T) {
	bookings := &mockBookingStore{bookings: map[int64]*models.Booking{
		11: {ID: 11, UserID: 4, Email: "jane@example.com", FullName: "Jane Porter"},
	}}
	staff := &mockStaffResolver{staff: map[int64]*models.Staff{
		3: {ID: 3, FirstName: "Sam", LastName: "Mason"},
	}}
	handler := NewBookingHandler(bookings, testCatalog(), staff, testEmailClient())

	body := `{"bookingId":11,"scheduledDate":"2026-09-01","scheduledTime":"morning","staffId":3}`
	req := authedRequest(http.MethodPut, "/api/bookings/schedule", body, &models.User{ID: 4})
	rr := httptest.NewRecorder()
	handler.Schedule().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != string(models.BookingScheduled) {
		t.Fatalf("unexpected status in response: %v", resp["status"])
	}
}
