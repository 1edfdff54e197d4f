package models

import (
	"time"
)

type Review struct {
	ID           int64     `json:"id"`
	BookingID    int64     `json:"booking_id"`
	ServiceID    int64     `json:"service_id"`
	CustomerID   int64     `json:"customer_id"`
	ProviderID   int64     `json:"provider_id"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment"`
	CustomerName string    `json:"customer_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateReviewInput struct {
	BookingID int64  `json:"booking_id" validate:"required,gt=0"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// RatingSummary is the derived aggregate stored on a service.
type RatingSummary struct {
	Average float64 `json:"average_rating"`
	Count   int     `json:"total_reviews"`
}
