package models

import "time"

// SubscriptionStatus mirrors the payment processor's subscription lifecycle.
// "cancelling" is local-only and means the subscription will cancel at period
// end.
type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCancelling SubscriptionStatus = "cancelling"
	SubscriptionCancelled  SubscriptionStatus = "cancelled"
)

// Subscription is a customer's instance of a plan, mirrored against the
// payment processor's subscription object. A user holds at most one active
// subscription at a time.
type Subscription struct {
	ID                   int64              `json:"id"`
	UserID               int64              `json:"user_id"`
	PlanID               int64              `json:"plan_id"`
	PlanName             string             `json:"plan_name"`
	PlanType             string             `json:"plan_type"`
	Revenue              float64            `json:"revenue"`
	Status               SubscriptionStatus `json:"status"`
	StartDate            time.Time          `json:"start_date"`
	ExpiryDate           *time.Time         `json:"expiry_date,omitempty"`
	StripeCustomerID     string             `json:"stripe_customer_id"`
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CancelledAt          *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}
