package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDashboardSummaryExcludesCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SUM\(estimated_price\) FROM bookings WHERE status <> 'cancelled'`).
		WillReturnRows(sqlmock.NewRows([]string{"revenue", "clients", "bookings"}).
			AddRow(240.0, 3, 5))

	s, _ := NewAnalyticsStore(db)
	summary, err := s.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if summary.Revenue != 240 || summary.ClientCount != 3 || summary.BookingCount != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestServiceAnalyticsExcludesCancelledBookings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// The line aggregation must only see lines of non-cancelled bookings,
	// matching the dashboard's accounting rule.
	mock.ExpectQuery(`JOIN bookings b ON b.id = bs.booking_id AND b.status <> 'cancelled'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "revenue", "bookings"}).
			AddRow(int64(2), "Deep Clean", 90.0, 1).
			AddRow(int64(3), "Window Clean", 0.0, 0))

	mock.ExpectQuery(`FROM staff`).
		WithArgs("Deep Clean").
		WillReturnRows(sqlmock.NewRows([]string{"first_name", "last_name"}).
			AddRow("Sam", "Mason"))
	mock.ExpectQuery(`FROM staff`).
		WithArgs("Window Clean").
		WillReturnRows(sqlmock.NewRows([]string{"first_name", "last_name"}))

	s, _ := NewAnalyticsStore(db)
	results, err := s.ServiceAnalytics(context.Background())
	if err != nil {
		t.Fatalf("ServiceAnalytics: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 services, got %d", len(results))
	}
	if results[0].Revenue != 90 || results[0].BookingCount != 1 {
		t.Fatalf("unexpected first service: %+v", results[0])
	}
	if results[1].Revenue != 0 || results[1].BookingCount != 0 {
		t.Fatalf("unexpected second service: %+v", results[1])
	}
	if len(results[0].Staff) != 1 || results[0].Staff[0] != "Sam Mason" {
		t.Fatalf("unexpected staff list: %v", results[0].Staff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
