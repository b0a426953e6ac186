package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// PlanStore provides database operations for subscription plans.
type PlanStore struct {
	db *sql.DB
}

// NewPlanStore creates a new PlanStore instance
func NewPlanStore(db *sql.DB) (*PlanStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &PlanStore{db: db}, nil
}

const planColumns = `id, name, type, price, features, is_active, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := row.Scan(
		&p.ID, &p.Name, &p.Type, &p.Price, pq.Array(&p.Features),
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans returns plans ordered by price ascending. When activeOnly is
// true, soft-deleted plans are omitted.
func (s *PlanStore) ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate plans: %w", err)
	}
	return plans, nil
}

// GetPlanByID returns a plan by its ID, active or not; historical
// subscriptions must stay resolvable.
func (s *PlanStore) GetPlanByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id,
	)

	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get plan by id: %w", err)
	}
	return p, nil
}

// CreatePlan inserts a new subscription plan.
func (s *PlanStore) CreatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO subscription_plans (name, type, price, features, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, is_active, created_at, updated_at`,
		p.Name, p.Type, p.Price, pq.Array(p.Features),
	).Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create plan: %w", err)
	}
	return nil
}

// UpdatePlan updates a subscription plan.
func (s *PlanStore) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE subscription_plans
		 SET name = $1, type = $2, price = $3, features = $4, is_active = $5, updated_at = now()
		 WHERE id = $6`,
		p.Name, p.Type, p.Price, pq.Array(p.Features), p.IsActive, p.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update plan: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivatePlan soft-deletes a plan by flipping its active flag.
func (s *PlanStore) DeactivatePlan(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE subscription_plans SET is_active = FALSE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("store: deactivate plan: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
