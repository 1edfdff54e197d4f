package models

import (
	"time"

	"marketBack/internal/geo"
)

type Booking struct {
	ID                int64     `json:"id"`
	ServiceID         int64     `json:"service_id"`
	CustomerID        int64     `json:"customer_id"`
	ProviderID        int64     `json:"provider_id"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	DurationHours     int       `json:"duration_hours"`
	TotalPrice        float64   `json:"total_price"`
	CustomerNotes     string    `json:"customer_notes"`
	ProviderNotes     string    `json:"provider_notes"`
	Status            string    `json:"status"`
	PaymentStatus     string    `json:"payment_status"`
	PaymentOrderID    string    `json:"payment_order_id,omitempty"`
	PaymentID         string    `json:"payment_id,omitempty"`
	CustomerLatitude  *float64  `json:"customer_latitude"`
	CustomerLongitude *float64  `json:"customer_longitude"`
	DistanceKm        *float64  `json:"distance_km"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	ServiceTitle     string   `json:"service_title,omitempty"`
	ServiceLatitude  *float64 `json:"service_latitude,omitempty"`
	ServiceLongitude *float64 `json:"service_longitude,omitempty"`
	CustomerName     string   `json:"customer_name,omitempty"`
	ProviderName     string   `json:"provider_name,omitempty"`
}

func (b Booking) CustomerPoint() geo.Location {
	return geo.FromPtr(b.CustomerLatitude, b.CustomerLongitude)
}

func (b Booking) ServicePoint() geo.Location {
	return geo.FromPtr(b.ServiceLatitude, b.ServiceLongitude)
}

// CreateBookingInput is what a customer submits. Date and time are local to
// the marketplace time zone.
type CreateBookingInput struct {
	ServiceID     int64    `json:"service_id" validate:"required,gt=0"`
	BookingDate   string   `json:"booking_date" validate:"required,datetime=2006-01-02"`
	BookingTime   string   `json:"booking_time" validate:"required,datetime=15:04"`
	DurationHours int      `json:"duration_hours" validate:"required"`
	Notes         string   `json:"notes" validate:"max=2000"`
	Location      *geo.Fix `json:"location,omitempty"`
}

// Tracking is the provider's view of where the customer is.
type Tracking struct {
	BookingID     int64    `json:"booking_id"`
	LocationKnown bool     `json:"location_known"`
	DistanceKm    *float64 `json:"distance_km"`
	Distance      string   `json:"distance"`
	TravelTime    string   `json:"travel_time"`
	LocationName  string   `json:"location_name"`
	DirectionsURL string   `json:"directions_url,omitempty"`
}

type PaymentOrder struct {
	BookingID int64  `json:"booking_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt,omitempty"`
	KeyID     string `json:"key_id"`
}

type VerifyPaymentInput struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}
