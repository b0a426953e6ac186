package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// AnalyticsStore aggregates revenue and usage figures for the admin
// dashboard.
type AnalyticsStore struct {
	db *sql.DB
}

// NewAnalyticsStore creates an AnalyticsStore using the provided connection.
func NewAnalyticsStore(db *sql.DB) (*AnalyticsStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &AnalyticsStore{db: db}, nil
}

// DashboardSummary computes the headline figures: total revenue (booking
// estimates plus subscription revenue), the number of distinct clients
// across both, and the total booking count. Cancelled bookings and
// subscriptions are excluded.
func (s *AnalyticsStore) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	var summary models.DashboardSummary

	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE((SELECT SUM(estimated_price) FROM bookings WHERE status <> 'cancelled'), 0)
			+ COALESCE((SELECT SUM(revenue) FROM subscriptions WHERE status <> 'cancelled'), 0),
			(SELECT COUNT(*) FROM (
				SELECT user_id FROM bookings WHERE status <> 'cancelled'
				UNION
				SELECT user_id FROM subscriptions WHERE status <> 'cancelled'
			) clients),
			(SELECT COUNT(*) FROM bookings WHERE status <> 'cancelled')`,
	).Scan(&summary.Revenue, &summary.ClientCount, &summary.BookingCount)
	if err != nil {
		return nil, fmt.Errorf("store: dashboard summary: %w", err)
	}
	return &summary, nil
}

// ServiceAnalytics returns the per-service revenue breakdown: line revenue
// and booking counts from the lines of non-cancelled bookings, plus the
// staff members whose rendered services include the service by exact name.
// Cancelled bookings are excluded under the same rule as DashboardSummary.
func (s *AnalyticsStore) ServiceAnalytics(ctx context.Context) ([]models.ServiceAnalytics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sv.id, sv.name,
			COALESCE(SUM(bs.quantity * bs.unit_price), 0),
			COUNT(DISTINCT bs.booking_id)
		 FROM services sv
		 LEFT JOIN (booking_services bs
			JOIN bookings b ON b.id = bs.booking_id AND b.status <> 'cancelled')
			ON bs.service_id = sv.id
		 GROUP BY sv.id, sv.name
		 ORDER BY sv.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: service analytics: %w", err)
	}
	defer rows.Close()

	var results []models.ServiceAnalytics
	for rows.Next() {
		var sa models.ServiceAnalytics
		if err := rows.Scan(&sa.ServiceID, &sa.ServiceName, &sa.Revenue, &sa.BookingCount); err != nil {
			return nil, fmt.Errorf("store: scan service analytics: %w", err)
		}
		results = append(results, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate service analytics: %w", err)
	}

	for i := range results {
		staff, err := s.staffForService(ctx, results[i].ServiceName)
		if err != nil {
			return nil, err
		}
		results[i].Staff = staff
	}
	return results, nil
}

func (s *AnalyticsStore) staffForService(ctx context.Context, serviceName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT first_name, last_name FROM staff
		 WHERE $1 = ANY(services_rendered)
		 ORDER BY first_name, last_name`,
		serviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("store: staff for service: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var first, last string
		if err := rows.Scan(&first, &last); err != nil {
			return nil, fmt.Errorf("store: scan staff name: %w", err)
		}
		names = append(names, first+" "+last)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate staff names: %w", err)
	}
	return names, nil
}
