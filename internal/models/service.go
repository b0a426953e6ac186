package models

import "time"

// Service is a bookable offering. Deletion is a soft flag flip; inactive
// services stay resolvable by id for historical bookings.
type Service struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Variables   []ServiceVariable `json:"variables"`
}

// ServiceVariable is a priced option under a service (e.g. "3 rooms"). The
// set is replaced wholesale whenever the owning service is updated.
type ServiceVariable struct {
	ID        int64   `json:"id"`
	ServiceID int64   `json:"service_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
}
