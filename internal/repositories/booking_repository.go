package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/models"
)

type BookingRepository struct {
	DB *sql.DB
}

const bookingSelect = `
	SELECT b.id, b.service_id, b.customer_id, b.provider_id, b.scheduled_at, b.duration_hours, b.total_price,
	       b.customer_notes, b.provider_notes, b.status, b.payment_status, b.payment_order_id, b.payment_id,
	       b.customer_latitude, b.customer_longitude, b.distance_km, b.created_at, b.updated_at,
	       s.title, s.latitude, s.longitude, COALESCE(c.full_name, ''), COALESCE(p.full_name, '')
	FROM bookings b
	JOIN services s ON s.id = b.service_id
	LEFT JOIN profiles c ON c.id = b.customer_id
	LEFT JOIN profiles p ON p.id = b.provider_id
`

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.ServiceID, &b.CustomerID, &b.ProviderID, &b.ScheduledAt, &b.DurationHours, &b.TotalPrice,
		&b.CustomerNotes, &b.ProviderNotes, &b.Status, &b.PaymentStatus, &b.PaymentOrderID, &b.PaymentID,
		&b.CustomerLatitude, &b.CustomerLongitude, &b.DistanceKm, &b.CreatedAt, &b.UpdatedAt,
		&b.ServiceTitle, &b.ServiceLatitude, &b.ServiceLongitude, &b.CustomerName, &b.ProviderName)
	return b, err
}

// CreateBooking inserts a new booking. A dangling service or profile
// reference is reported as a validation error.
func (r *BookingRepository) CreateBooking(ctx context.Context, b models.Booking) (models.Booking, error) {
	query := `
		INSERT INTO bookings (service_id, customer_id, provider_id, scheduled_at, duration_hours, total_price,
		                      customer_notes, status, payment_status, customer_latitude, customer_longitude, distance_km)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRowContext(ctx, query,
		b.ServiceID, b.CustomerID, b.ProviderID, b.ScheduledAt, b.DurationHours, b.TotalPrice,
		b.CustomerNotes, b.Status, b.PaymentStatus, b.CustomerLatitude, b.CustomerLongitude, b.DistanceKm,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Booking{}, models.Invalid("service or account no longer exists")
		}
		return models.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) GetBookingByID(ctx context.Context, id int64) (models.Booking, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, models.ErrBookingNotFound
	}
	return b, err
}

func (r *BookingRepository) GetBookingByPaymentOrder(ctx context.Context, orderID string) (models.Booking, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx, bookingSelect+` WHERE b.payment_order_id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, models.ErrPaymentNotFound
	}
	return b, err
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID int64) ([]models.Booking, error) {
	return r.list(ctx, bookingSelect+` WHERE b.customer_id = $1 ORDER BY b.created_at DESC`, customerID)
}

// ListByProvider returns the provider's bookings, optionally narrowed to one status.
func (r *BookingRepository) ListByProvider(ctx context.Context, providerID int64, status string, limit int) ([]models.Booking, error) {
	query := bookingSelect + ` WHERE b.provider_id = $1 AND ($2 = '' OR b.status = $2) ORDER BY b.created_at DESC`
	args := []any{providerID, status}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListStalePending returns pending bookings scheduled before the cutoff.
func (r *BookingRepository) ListStalePending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return r.list(ctx, bookingSelect+` WHERE b.status = $1 AND b.scheduled_at < $2 ORDER BY b.id`, fsm.StatusPending, before)
}

// Transition moves the status with a compare-and-swap and, when notes is
// non-empty, replaces the provider notes in the same transaction.
func (r *BookingRepository) Transition(ctx context.Context, id int64, from, to, notes string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fsm.Apply(ctx, tx, id, from, to); err != nil {
		return err
	}
	if notes != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE bookings SET provider_notes = $1 WHERE id = $2`, notes, id); err != nil {
			return fmt.Errorf("update provider notes: %w", err)
		}
	}
	return tx.Commit()
}

// UpdateCustomerLocation stores (or clears, with nil values) the customer's
// captured position and the derived distance.
func (r *BookingRepository) UpdateCustomerLocation(ctx context.Context, id int64, lat, lng, distanceKm *float64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET customer_latitude = $1, customer_longitude = $2, distance_km = $3, updated_at = NOW() WHERE id = $4`,
		lat, lng, distanceKm, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrBookingNotFound)
}

func (r *BookingRepository) UpdateDistance(ctx context.Context, id int64, distanceKm *float64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE bookings SET distance_km = $1 WHERE id = $2`, distanceKm, id)
	return err
}

// SetPaymentOrder attaches a gateway order to an unpaid booking that has none
// yet. ErrAlreadyPaid means the booking is paid or already carries an order.
func (r *BookingRepository) SetPaymentOrder(ctx context.Context, id int64, orderID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET payment_order_id = $1, updated_at = NOW()
		 WHERE id = $2 AND payment_status = $3 AND payment_order_id = ''`,
		orderID, id, fsm.PaymentPending)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrAlreadyPaid)
}

// MarkPaid records a verified payment and, if the booking is still pending,
// confirms it. Both happen in one transaction. confirmed reports whether the
// status moved.
func (r *BookingRepository) MarkPaid(ctx context.Context, id int64, paymentID string) (confirmed bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	err = fsm.ApplyPayment(ctx, tx, id, fsm.PaymentPending, fsm.PaymentPaid, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, models.ErrAlreadyPaid
	}
	if err != nil {
		return false, err
	}

	err = fsm.Apply(ctx, tx, id, fsm.StatusPending, fsm.StatusConfirmed)
	switch {
	case err == nil:
		confirmed = true
	case errors.Is(err, sql.ErrNoRows):
		// already confirmed, or moved on by the provider
	default:
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func (r *BookingRepository) ProviderStats(ctx context.Context, providerID int64) (models.ProviderStats, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COALESCE(SUM(total_price) FILTER (WHERE status = 'completed'), 0)
		FROM bookings
		WHERE provider_id = $1
	`
	var st models.ProviderStats
	err := r.DB.QueryRowContext(ctx, query, providerID).
		Scan(&st.PendingBookings, &st.ConfirmedBookings, &st.CompletedBookings, &st.TotalEarnings)
	return st, err
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
