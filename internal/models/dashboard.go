package models

type ProviderStats struct {
	PendingBookings   int       `json:"pending_bookings"`
	ConfirmedBookings int       `json:"confirmed_bookings"`
	CompletedBookings int       `json:"completed_bookings"`
	TotalEarnings     float64   `json:"total_earnings"`
	ActiveServices    int       `json:"active_services"`
	RecentBookings    []Booking `json:"recent_bookings"`
}
