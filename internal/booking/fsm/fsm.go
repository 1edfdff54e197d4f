package fsm

import (
	"context"
	"database/sql"
	"errors"

	"marketBack/internal/metrics"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// ErrInvalidTransition is returned by Apply for a move the table does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[string]map[string]struct{}{
	StatusPending: {
		StatusConfirmed: {},
		StatusCancelled: {},
	},
	StatusConfirmed: {
		StatusCompleted: {},
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

var paymentTransitions = map[string]map[string]struct{}{
	PaymentPending: {PaymentPaid: {}},
	PaymentPaid:    {},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	return allowed(transitions, from, to)
}

// CanTransitionPayment reports whether a payment status may move from one value to another.
func CanTransitionPayment(from, to string) bool {
	return allowed(paymentTransitions, from, to)
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status string) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// Valid reports whether status is a known booking status.
func Valid(status string) bool {
	_, ok := transitions[status]
	return ok
}

func allowed(table map[string]map[string]struct{}, from, to string) bool {
	next, ok := table[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply moves a booking status with a compare-and-swap on the current value.
// sql.ErrNoRows means another writer changed the status first.
func Apply(ctx context.Context, db Execer, bookingID int64, fromStatus, toStatus string) error {
	if !CanTransition(fromStatus, toStatus) {
		return ErrInvalidTransition
	}
	res, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		toStatus, bookingID, fromStatus)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	metrics.BookingTransition(fromStatus, toStatus)
	return nil
}

// ApplyPayment moves the payment status and stamps the gateway payment id,
// with the same compare-and-swap contract as Apply.
func ApplyPayment(ctx context.Context, db Execer, bookingID int64, fromStatus, toStatus, paymentID string) error {
	if !CanTransitionPayment(fromStatus, toStatus) {
		return ErrInvalidTransition
	}
	res, err := db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = $1, payment_id = $2, updated_at = NOW()
		 WHERE id = $3 AND payment_status = $4`,
		toStatus, paymentID, bookingID, fromStatus)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
