package models

import (
	"time"

	"marketBack/internal/geo"
)

type Service struct {
	ID                int64     `json:"id"`
	ProviderID        int64     `json:"provider_id"`
	ProviderName      string    `json:"provider_name"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	PricePerHour      float64   `json:"price_per_hour"`
	Location          string    `json:"location"`
	City              string    `json:"city"`
	Latitude          *float64  `json:"latitude"`
	Longitude         *float64  `json:"longitude"`
	AvailabilityDays  []string  `json:"availability_days"`
	AvailabilityHours string    `json:"availability_hours"`
	Images            []string  `json:"images"`
	IsActive          bool      `json:"is_active"`
	AverageRating     float64   `json:"average_rating"`
	TotalReviews      int       `json:"total_reviews"`
	DistanceKm        *float64  `json:"distance_km,omitempty"`
	DistanceText      string    `json:"distance_text,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Point is the listing's coordinate, Unknown when not set.
func (s Service) Point() geo.Location {
	return geo.FromPtr(s.Latitude, s.Longitude)
}

type ServiceInput struct {
	Title             string   `json:"title" validate:"required,max=200"`
	Description       string   `json:"description" validate:"required"`
	Category          string   `json:"category" validate:"required"`
	PricePerHour      float64  `json:"price_per_hour" validate:"gt=0"`
	Location          string   `json:"location" validate:"required"`
	City              string   `json:"city"`
	Latitude          *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude         *float64 `json:"longitude" validate:"omitempty,longitude"`
	AvailabilityDays  []string `json:"availability_days" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	AvailabilityHours string   `json:"availability_hours"`
	Images            []string `json:"images" validate:"dive,url"`
}
