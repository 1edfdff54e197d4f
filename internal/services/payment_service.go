package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/metrics"
	"marketBack/internal/models"
	"marketBack/internal/notify"
	"marketBack/internal/pay"
)

// Gateway is the checkout provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req pay.CreateOrderRequest) (pay.Order, error)
	KeyID() string
	Secret() string
}

// PaymentStore is the booking persistence payments touch.
type PaymentStore interface {
	GetBookingByID(ctx context.Context, id int64) (models.Booking, error)
	GetBookingByPaymentOrder(ctx context.Context, orderID string) (models.Booking, error)
	SetPaymentOrder(ctx context.Context, id int64, orderID string) error
	MarkPaid(ctx context.Context, id int64, paymentID string) (bool, error)
}

type PaymentService struct {
	Bookings PaymentStore
	Gateway  Gateway
	Currency string
	Notifier Notifier
	Log      *zap.SugaredLogger
	Now      func() time.Time
}

// CreateOrder opens a gateway order for an unpaid booking of the session's user.
func (s *PaymentService) CreateOrder(ctx context.Context, session models.Session, bookingID int64) (models.PaymentOrder, error) {
	if !session.Authenticated() {
		return models.PaymentOrder{}, models.ErrUnauthorized
	}
	b, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return models.PaymentOrder{}, err
	}
	if b.CustomerID != session.UserID {
		return models.PaymentOrder{}, models.ErrForbidden
	}
	if b.PaymentStatus != fsm.PaymentPending {
		return models.PaymentOrder{}, models.ErrAlreadyPaid
	}
	if b.Status == fsm.StatusCancelled {
		return models.PaymentOrder{}, fmt.Errorf("%w: booking is cancelled", models.ErrInvalidTransition)
	}

	// The total never changes, so an open order stays payable. Handing out a
	// second one would orphan a payment made against the first.
	if b.PaymentOrderID != "" {
		return s.existingOrder(b), nil
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	req := pay.CreateOrderRequest{
		Amount:   amountMinor(b),
		Currency: s.currency(),
		Receipt:  fmt.Sprintf("booking_%d_%d", b.ID, now.UnixMilli()),
		Notes:    map[string]string{"booking_id": strconv.FormatInt(b.ID, 10)},
	}
	order, err := s.Gateway.CreateOrder(ctx, req)
	if err != nil {
		return models.PaymentOrder{}, fmt.Errorf("create payment order: %w", err)
	}
	err = s.Bookings.SetPaymentOrder(ctx, b.ID, order.ID)
	if errors.Is(err, models.ErrAlreadyPaid) {
		// lost the race to a concurrent checkout, or the booking was just paid
		if b, err = s.Bookings.GetBookingByID(ctx, b.ID); err != nil {
			return models.PaymentOrder{}, err
		}
		if b.PaymentStatus != fsm.PaymentPending || b.PaymentOrderID == "" {
			return models.PaymentOrder{}, models.ErrAlreadyPaid
		}
		s.Log.Infof("booking %d: discarding gateway order %s, reusing %s", b.ID, order.ID, b.PaymentOrderID)
		return s.existingOrder(b), nil
	}
	if err != nil {
		return models.PaymentOrder{}, err
	}

	return models.PaymentOrder{
		BookingID: b.ID,
		OrderID:   order.ID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		KeyID:     s.Gateway.KeyID(),
	}, nil
}

func (s *PaymentService) existingOrder(b models.Booking) models.PaymentOrder {
	return models.PaymentOrder{
		BookingID: b.ID,
		OrderID:   b.PaymentOrderID,
		Amount:    amountMinor(b),
		Currency:  s.currency(),
		KeyID:     s.Gateway.KeyID(),
	}
}

func (s *PaymentService) currency() string {
	if s.Currency == "" {
		return "INR"
	}
	return s.Currency
}

// amountMinor is the booking total in the currency's minor unit.
func amountMinor(b models.Booking) int64 {
	return int64(math.Round(b.TotalPrice * 100))
}

// Verify checks the gateway signature and records the payment. A pending
// booking is confirmed in the same transaction. Replaying the same payment
// is a no-op.
func (s *PaymentService) Verify(ctx context.Context, in models.VerifyPaymentInput) (models.Booking, error) {
	if !pay.VerifyPaymentSignature(in.OrderID, in.PaymentID, in.Signature, s.Gateway.Secret()) {
		metrics.PaymentVerification("invalid_signature")
		s.Log.Warnf("payment verification failed for order %s", in.OrderID)
		return models.Booking{}, models.ErrInvalidSignature
	}

	b, err := s.Bookings.GetBookingByPaymentOrder(ctx, in.OrderID)
	if err != nil {
		return models.Booking{}, err
	}
	if b.PaymentStatus == fsm.PaymentPaid {
		return s.replayed(b, in.PaymentID)
	}

	confirmed, err := s.Bookings.MarkPaid(ctx, b.ID, in.PaymentID)
	if errors.Is(err, models.ErrAlreadyPaid) {
		// a concurrent verify got there first
		if b, err = s.Bookings.GetBookingByID(ctx, b.ID); err != nil {
			return models.Booking{}, err
		}
		return s.replayed(b, in.PaymentID)
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("record payment: %w", err)
	}
	metrics.PaymentVerification("paid")

	b.PaymentStatus = fsm.PaymentPaid
	b.PaymentID = in.PaymentID
	switch {
	case confirmed:
		b.Status = fsm.StatusConfirmed
		if s.Notifier != nil {
			s.Notifier.Notify(ctx, notify.Event{
				Type:      notify.TypeBookingStatus,
				BookingID: b.ID,
				UserID:    b.CustomerID,
				Status:    b.Status,
				Title:     "Payment received",
				Message:   "Your payment was received and the booking is confirmed.",
			})
		}
	case b.Status == fsm.StatusCancelled:
		s.Log.Warnf("booking %d was paid after cancellation (payment %s)", b.ID, in.PaymentID)
	}
	return b, nil
}

func (s *PaymentService) replayed(b models.Booking, paymentID string) (models.Booking, error) {
	if b.PaymentID != paymentID {
		metrics.PaymentVerification("already_paid")
		return models.Booking{}, models.ErrAlreadyPaid
	}
	metrics.PaymentVerification("replayed")
	return b, nil
}
