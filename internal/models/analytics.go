package models

// DashboardSummary is the admin dashboard headline aggregation. Revenue sums
// booking estimated prices and subscription revenue in a single fixed
// currency unit.
type DashboardSummary struct {
	Revenue      float64 `json:"revenue"`
	ClientCount  int     `json:"client_count"`
	BookingCount int     `json:"booking_count"`
}

// ServiceAnalytics is the per-service revenue breakdown. Staff lists the
// employees whose rendered services include this service by exact name.
type ServiceAnalytics struct {
	ServiceID    int64    `json:"service_id"`
	ServiceName  string   `json:"service_name"`
	Revenue      float64  `json:"revenue"`
	BookingCount int      `json:"booking_count"`
	Staff        []string `json:"staff"`
}
