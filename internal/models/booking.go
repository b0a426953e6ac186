package models

import "time"

// BookingStatus is the lifecycle state of a booking. Transitions are
// one-directional: pending -> confirmed -> scheduled -> completed, with
// cancelled reachable from any non-terminal state.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingScheduled, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Booking is a single customer order for one or more services. Line items are
// created atomically with their parent inside one transaction.
type Booking struct {
	ID                  int64            `json:"id"`
	UserID              int64            `json:"user_id"`
	FullName            string           `json:"full_name"`
	Email               string           `json:"email"`
	Phone               string           `json:"phone"`
	Address             string           `json:"address"`
	City                string           `json:"city"`
	Postcode            string           `json:"postcode"`
	Frequency           string           `json:"frequency"`
	PreferredDate       *string          `json:"preferred_date,omitempty"`
	PreferredTime       *string          `json:"preferred_time,omitempty"`
	ScheduledDate       *string          `json:"scheduled_date,omitempty"`
	ScheduledTime       *string          `json:"scheduled_time,omitempty"`
	StaffID             *int64           `json:"staff_id,omitempty"`
	Status              BookingStatus    `json:"status"`
	EstimatedPrice      float64          `json:"estimated_price"`
	SpecialInstructions *string          `json:"special_instructions,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	Services            []BookingService `json:"services"`
}

// BookingService is one priced line item within a booking. Service and
// variable names are denormalized so historical bookings survive catalog
// edits.
type BookingService struct {
	ID           int64   `json:"id"`
	BookingID    int64   `json:"booking_id"`
	ServiceID    int64   `json:"service_id"`
	ServiceName  string  `json:"service_name"`
	VariableID   int64   `json:"variable_id"`
	VariableName string  `json:"variable_name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Price        float64 `json:"price"`
}
