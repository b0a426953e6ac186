package models

import "time"

// Staff is a cleaning-service employee assignable to bookings.
// ServicesRendered holds the names of the services the employee covers and is
// stored as a Postgres text[] column.
type Staff struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             string    `json:"role"`
	ServicesRendered []string  `json:"services_rendered"`
	Salary           float64   `json:"salary"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullName returns the display name used in notification emails.
func (s *Staff) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
