// Package notify delivers booking updates to customers over websocket, push
// and email. Delivery is best-effort and never blocks the caller.
package notify

import (
	"errors"
	"time"
)

// ErrSkipped is returned by a channel that has nothing to deliver to, e.g.
// the user has no open socket or no device token.
var ErrSkipped = errors.New("notify: channel skipped")

// Event is a booking status change addressed to one user.
type Event struct {
	Type      string    `json:"type"`
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const TypeBookingStatus = "booking_status"

// Recipient is the contact data a channel may need.
type Recipient struct {
	UserID      int64
	Name        string
	Email       string
	DeviceToken string
}
