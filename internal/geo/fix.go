package geo

import "time"

// Geolocation error codes reported by the client.
const (
	FixDenied      = "denied"
	FixTimeout     = "timeout"
	FixUnavailable = "unavailable"
)

// MaxFixAge is how old a cached client position may be and still count.
const MaxFixAge = 5 * time.Minute

// Fix is a one-shot position report from the customer's device.
type Fix struct {
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	CapturedAt time.Time `json:"captured_at"`
	Error      string    `json:"error,omitempty"`
}

// Resolve turns a fix into a Location. Errors, stale fixes and bad
// coordinates all resolve to Unknown.
func (f Fix) Resolve(now time.Time) Location {
	if f.Error != "" {
		return Unknown
	}
	if !f.CapturedAt.IsZero() && now.Sub(f.CapturedAt) > MaxFixAge {
		return Unknown
	}
	return FromPtr(f.Latitude, f.Longitude)
}
