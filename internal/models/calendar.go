package models

import "time"

// BlockedDate is an admin-declared unavailable calendar day. The date itself
// is stored as a plain YYYY-MM-DD string and is unique per day.
type BlockedDate struct {
	ID          int64     `json:"id"`
	BlockedDate string    `json:"blocked_date"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookingDateCount overlays the admin calendar with the number of bookings
// scheduled on a given day.
type BookingDateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
