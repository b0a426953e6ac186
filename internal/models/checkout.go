package models

import (
	"encoding/json"
	"time"
)

// TempBookingData holds a booking payload between checkout-session creation
// and the payment-success webhook. Rows expire 24 hours after creation and
// expired rows are pruned opportunistically on insert.
type TempBookingData struct {
	ReferenceID string          `json:"reference_id"`
	UserID      int64           `json:"user_id"`
	Payload     json.RawMessage `json:"payload"`
	ExpiresAt   time.Time       `json:"expires_at"`
	CreatedAt   time.Time       `json:"created_at"`
}
