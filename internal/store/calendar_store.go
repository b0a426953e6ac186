package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// CalendarStore provides database operations for blocked dates and
// per-date booking counts.
type CalendarStore struct {
	db *sql.DB
}

// NewCalendarStore creates a CalendarStore using the provided connection.
func NewCalendarStore(db *sql.DB) (*CalendarStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &CalendarStore{db: db}, nil
}

// ListBlockedDates returns all blocked dates ordered by date.
func (s *CalendarStore) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, blocked_date, reason, created_at
		 FROM blocked_dates ORDER BY blocked_date`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list blocked dates: %w", err)
	}
	defer rows.Close()

	var dates []models.BlockedDate
	for rows.Next() {
		var d models.BlockedDate
		if err := rows.Scan(&d.ID, &d.BlockedDate, &d.Reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan blocked date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate blocked dates: %w", err)
	}
	return dates, nil
}

// CreateBlockedDate blocks a date. Blocking an already blocked date returns
// ErrDateAlreadyBlocked.
func (s *CalendarStore) CreateBlockedDate(ctx context.Context, d *models.BlockedDate) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO blocked_dates (blocked_date, reason)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		d.BlockedDate, d.Reason,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDateAlreadyBlocked
		}
		return fmt.Errorf("store: create blocked date: %w", err)
	}
	return nil
}

// DeleteBlockedDate unblocks a date identified by its date string.
func (s *CalendarStore) DeleteBlockedDate(ctx context.Context, date string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM blocked_dates WHERE blocked_date = $1`, date,
	)
	if err != nil {
		return fmt.Errorf("store: delete blocked date: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// BookingCountsByDate returns how many bookings sit on each scheduled date,
// for the admin calendar heat map.
func (s *CalendarStore) BookingCountsByDate(ctx context.Context) ([]models.BookingDateCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scheduled_date, COUNT(*)
		 FROM bookings
		 WHERE scheduled_date IS NOT NULL AND status <> 'cancelled'
		 GROUP BY scheduled_date
		 ORDER BY scheduled_date`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: booking counts by date: %w", err)
	}
	defer rows.Close()

	var counts []models.BookingDateCount
	for rows.Next() {
		var c models.BookingDateCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("store: scan booking count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate booking counts: %w", err)
	}
	return counts, nil
}
