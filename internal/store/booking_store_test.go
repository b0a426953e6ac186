package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

func testBooking() *models.Booking {
	return &models.Booking{
		UserID:         1,
		FullName:       "Ada Price",
		Email:          "ada@example.com",
		Phone:          "07700900000",
		Address:        "1 High Street",
		City:           "London",
		Postcode:       "SW1A 1AA",
		Frequency:      "weekly",
		Status:         models.BookingPending,
		EstimatedPrice: 90,
		Services: []models.BookingService{
			{ServiceID: 2, ServiceName: "Deep Clean", VariableID: 5, VariableName: "3 rooms", Quantity: 2, UnitPrice: 45},
		},
	}
}

func TestCreateBookingCommitsBookingAndLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectQuery("INSERT INTO booking_services").
		WithArgs(int64(11), int64(2), "Deep Clean", int64(5), "3 rooms", 2, 45.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectCommit()

	s, _ := NewBookingStore(db)
	booking := testBooking()
	if err := s.CreateBooking(context.Background(), booking); err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	if booking.ID != 11 {
		t.Fatalf("expected booking id 11, got %d", booking.ID)
	}
	if booking.Services[0].ID != 21 || booking.Services[0].BookingID != 11 {
		t.Fatalf("unexpected line: %+v", booking.Services[0])
	}
	if booking.Services[0].Price != 90 {
		t.Fatalf("expected line price 90, got %v", booking.Services[0].Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingRollsBackOnLineFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectQuery("INSERT INTO booking_services").
		WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	s, _ := NewBookingStore(db)
	if err := s.CreateBooking(context.Background(), testBooking()); err == nil {
		t.Fatal("expected error when line insert fails")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingRejectsEmptyLines(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s, _ := NewBookingStore(db)
	booking := testBooking()
	booking.Services = nil
	if err := s.CreateBooking(context.Background(), booking); err == nil {
		t.Fatal("expected error for booking without lines")
	}
}

func TestGetBookingNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s, _ := NewBookingStore(db)
	_, err = s.GetBooking(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingCompleted, int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, _ := NewBookingStore(db)
	err = s.UpdateStatus(context.Background(), 404, models.BookingCompleted)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
