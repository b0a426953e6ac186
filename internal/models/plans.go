package models

import "time"

// Plan types offered to customers.
const (
	PlanTypeResidential = "residential"
	PlanTypeIndustrial  = "industrial"
)

// SubscriptionPlan is a purchasable recurring plan template. Soft-deleted via
// the IsActive flag; inactive plans stay resolvable by id for historical
// subscriptions.
type SubscriptionPlan struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Price     float64   `json:"price"`
	Features  []string  `json:"features"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
