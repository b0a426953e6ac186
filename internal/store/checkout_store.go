package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// CheckoutStore persists booking payloads that are parked while a one-off
// payment happens at the processor.
type CheckoutStore struct {
	db *sql.DB
}

// NewCheckoutStore creates a CheckoutStore using the provided connection.
func NewCheckoutStore(db *sql.DB) (*CheckoutStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &CheckoutStore{db: db}, nil
}

// SaveTempBooking stores a parked booking payload under its reference id.
// Expired rows are pruned opportunistically before the insert; pruning
// failures are logged but do not block the save.
func (s *CheckoutStore) SaveTempBooking(ctx context.Context, t *models.TempBookingData) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM temp_booking_data WHERE expires_at < now()`,
	); err != nil {
		log.Printf("[checkout] prune expired temp bookings: %v", err)
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO temp_booking_data (reference_id, user_id, payload, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		t.ReferenceID, t.UserID, t.Payload, t.ExpiresAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save temp booking: %w", err)
	}
	return nil
}

// GetTempBooking retrieves a parked payload that has not expired.
func (s *CheckoutStore) GetTempBooking(ctx context.Context, referenceID string) (*models.TempBookingData, error) {
	var t models.TempBookingData
	err := s.db.QueryRowContext(ctx,
		`SELECT reference_id, user_id, payload, expires_at, created_at
		 FROM temp_booking_data
		 WHERE reference_id = $1 AND expires_at >= now()`,
		referenceID,
	).Scan(&t.ReferenceID, &t.UserID, &t.Payload, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get temp booking: %w", err)
	}
	return &t, nil
}

// DeleteTempBooking removes a parked payload once it has been materialized
// into a real booking.
func (s *CheckoutStore) DeleteTempBooking(ctx context.Context, referenceID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM temp_booking_data WHERE reference_id = $1`, referenceID,
	)
	if err != nil {
		return fmt.Errorf("store: delete temp booking: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
