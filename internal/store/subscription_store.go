package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// SubscriptionStore provides database operations for customer subscriptions
// mirrored against the payment processor.
type SubscriptionStore struct {
	db *sql.DB
}

// NewSubscriptionStore creates a SubscriptionStore using the provided
// connection.
func NewSubscriptionStore(db *sql.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &SubscriptionStore{db: db}, nil
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, plan_type, revenue, status,
	start_date, expiry_date, stripe_customer_id, stripe_subscription_id,
	current_period_start, current_period_end, cancel_at_period_end, cancelled_at,
	created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.PlanName, &sub.PlanType,
		&sub.Revenue, &sub.Status, &sub.StartDate, &sub.ExpiryDate,
		&sub.StripeCustomerID, &sub.StripeSubscriptionID,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd, &sub.CancelledAt, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription inserts a subscription, enforcing the one-active-per-
// user invariant inside a single transaction.
func (s *SubscriptionStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin create subscription tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND status = $2`,
		sub.UserID, models.SubscriptionActive,
	).Scan(&existing); err != nil {
		return fmt.Errorf("store: check active subscription: %w", err)
	}
	if existing > 0 && sub.Status == models.SubscriptionActive {
		return ErrActiveSubscription
	}

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO subscriptions (
			user_id, plan_id, plan_name, plan_type, revenue, status, start_date,
			expiry_date, stripe_customer_id, stripe_subscription_id,
			current_period_start, current_period_end, cancel_at_period_end, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		sub.UserID, sub.PlanID, sub.PlanName, sub.PlanType, sub.Revenue,
		sub.Status, sub.StartDate, sub.ExpiryDate, sub.StripeCustomerID,
		sub.StripeSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd, sub.CancelledAt,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if uniqueViolation(err) {
			return ErrActiveSubscription
		}
		return fmt.Errorf("store: insert subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit create subscription tx: %w", err)
	}
	return nil
}

// GetActiveByUser returns the user's current subscription (active, past_due
// or cancelling), or ErrNotFound.
func (s *SubscriptionStore) GetActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE user_id = $1 AND status IN ($2, $3, $4)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, models.SubscriptionActive, models.SubscriptionPastDue, models.SubscriptionCancelling,
	)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get active subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns the user's full subscription history, newest first.
func (s *SubscriptionStore) ListByUser(ctx context.Context, userID int64) ([]models.Subscription, error) {
	return s.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListSubscriptions returns all subscriptions, newest first, for the admin
// back office.
func (s *SubscriptionStore) ListSubscriptions(ctx context.Context, limit int) ([]models.Subscription, error) {
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}
	return s.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

func (s *SubscriptionStore) querySubscriptions(ctx context.Context, query string, args ...any) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate subscriptions: %w", err)
	}
	return subs, nil
}

// GetByStripeID retrieves a subscription by its processor subscription id.
func (s *SubscriptionStore) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE stripe_subscription_id = $1 LIMIT 1`,
		stripeSubscriptionID,
	)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get subscription by stripe id: %w", err)
	}
	return sub, nil
}

// GetByID retrieves a subscription by primary key.
func (s *SubscriptionStore) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id,
	)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get subscription by id: %w", err)
	}
	return sub, nil
}

// UpdateSubscription overwrites the mutable mirror fields of a subscription.
// Webhook handlers call this with state derived purely from the event
// payload, which keeps replays idempotent.
func (s *SubscriptionStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET plan_id = $1, plan_name = $2, plan_type = $3, revenue = $4,
		     status = $5, expiry_date = $6, stripe_customer_id = $7,
		     stripe_subscription_id = $8, current_period_start = $9,
		     current_period_end = $10, cancel_at_period_end = $11,
		     cancelled_at = $12, updated_at = now()
		 WHERE id = $13`,
		sub.PlanID, sub.PlanName, sub.PlanType, sub.Revenue, sub.Status,
		sub.ExpiryDate, sub.StripeCustomerID, sub.StripeSubscriptionID,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
		sub.CancelledAt, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update subscription: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatusByStripeID sets the status (and optionally the cancelled-at
// timestamp) on the subscription matching a processor id.
func (s *SubscriptionStore) UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status models.SubscriptionStatus, cancelledAt *time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET status = $1, cancelled_at = COALESCE($2, cancelled_at), updated_at = now()
		 WHERE stripe_subscription_id = $3`,
		status, cancelledAt, stripeSubscriptionID,
	)
	if err != nil {
		return fmt.Errorf("store: update subscription status: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RetireSubscription is the admin "delete": a status-only mutation to
// cancelled that preserves the row for history.
func (s *SubscriptionStore) RetireSubscription(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET status = $1, cancelled_at = $2, updated_at = now()
		 WHERE id = $3`,
		models.SubscriptionCancelled, now, id,
	)
	if err != nil {
		return fmt.Errorf("store: retire subscription: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
