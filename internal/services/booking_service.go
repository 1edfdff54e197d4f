package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/geo"
	"marketBack/internal/models"
	"marketBack/internal/notify"
)

const (
	defaultMinHours   = 1
	defaultMaxHours   = 8
	defaultStaleAfter = 24 * time.Hour
	bookingLayout     = "2006-01-02 15:04"
)

// BookingStore is the persistence behind the booking lifecycle.
type BookingStore interface {
	CreateBooking(ctx context.Context, b models.Booking) (models.Booking, error)
	GetBookingByID(ctx context.Context, id int64) (models.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Booking, error)
	ListByProvider(ctx context.Context, providerID int64, status string, limit int) ([]models.Booking, error)
	ListStalePending(ctx context.Context, before time.Time) ([]models.Booking, error)
	Transition(ctx context.Context, id int64, from, to, notes string) error
	UpdateCustomerLocation(ctx context.Context, id int64, lat, lng, distanceKm *float64) error
	UpdateDistance(ctx context.Context, id int64, distanceKm *float64) error
}

// ServiceLookup resolves the listing a booking is made against.
type ServiceLookup interface {
	GetServiceByID(ctx context.Context, id int64) (models.Service, error)
}

// TravelEstimator answers provider-facing location questions. It never fails.
type TravelEstimator interface {
	TravelTime(ctx context.Context, from, to geo.Location) string
	LocationName(ctx context.Context, at geo.Location) string
}

// Notifier delivers booking updates best-effort.
type Notifier interface {
	Notify(ctx context.Context, e notify.Event)
}

type BookingService struct {
	Bookings   BookingStore
	Services   ServiceLookup
	Estimator  TravelEstimator
	Notifier   Notifier
	Log        *zap.SugaredLogger
	Location   *time.Location
	MinHours   int
	MaxHours   int
	StaleAfter time.Duration
	Now        func() time.Time
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *BookingService) zone() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *BookingService) durationBounds() (int, int) {
	lo, hi := s.MinHours, s.MaxHours
	if lo <= 0 {
		lo = defaultMinHours
	}
	if hi < lo {
		hi = defaultMaxHours
	}
	return lo, hi
}

// Create books a service for the session's user. The booking starts pending
// with an unpaid payment status.
func (s *BookingService) Create(ctx context.Context, session models.Session, in models.CreateBookingInput) (models.Booking, error) {
	if !session.Authenticated() {
		return models.Booking{}, models.ErrUnauthorized
	}
	if in.ServiceID <= 0 || in.BookingDate == "" || in.BookingTime == "" {
		return models.Booking{}, models.Invalid("service, date and time are required")
	}
	lo, hi := s.durationBounds()
	if in.DurationHours < lo || in.DurationHours > hi {
		return models.Booking{}, models.Invalid("duration must be between %d and %d hours", lo, hi)
	}

	now := s.now().In(s.zone())
	scheduled, err := s.scheduledAt(in.BookingDate, in.BookingTime, now)
	if err != nil {
		return models.Booking{}, err
	}

	svc, err := s.Services.GetServiceByID(ctx, in.ServiceID)
	if err != nil {
		return models.Booking{}, err
	}
	if !svc.IsActive {
		return models.Booking{}, models.ErrServiceInactive
	}
	if svc.ProviderID == session.UserID {
		return models.Booking{}, models.Invalid("cannot book your own service")
	}

	b := models.Booking{
		ServiceID:     svc.ID,
		CustomerID:    session.UserID,
		ProviderID:    svc.ProviderID,
		ScheduledAt:   scheduled,
		DurationHours: in.DurationHours,
		TotalPrice:    math.Round(svc.PricePerHour*float64(in.DurationHours)*100) / 100,
		CustomerNotes: strings.TrimSpace(in.Notes),
		Status:        fsm.StatusPending,
		PaymentStatus: fsm.PaymentPending,
	}
	if in.Location != nil {
		at := in.Location.Resolve(now)
		b.CustomerLatitude, b.CustomerLongitude = at.Ptr()
		b.DistanceKm = geo.DistancePtr(svc.Point(), at)
	}

	created, err := s.Bookings.CreateBooking(ctx, b)
	if err != nil {
		return models.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	created.ServiceTitle = svc.Title
	created.ServiceLatitude, created.ServiceLongitude = svc.Latitude, svc.Longitude
	created.ProviderName = svc.ProviderName

	s.Log.Infof("booking %d created for service %d by customer %d", created.ID, svc.ID, session.UserID)
	return created, nil
}

// scheduledAt parses the local date and time and rejects moments in the past.
func (s *BookingService) scheduledAt(date, clock string, now time.Time) (time.Time, error) {
	at, err := time.ParseInLocation(bookingLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), s.zone())
	if err != nil {
		return time.Time{}, models.Invalid("invalid booking date or time")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	switch {
	case day.Before(today):
		return time.Time{}, models.Invalid("booking date is in the past")
	case day.Equal(today) && !at.After(now):
		return time.Time{}, models.Invalid("booking time has already passed")
	}
	return at, nil
}

func (s *BookingService) Get(ctx context.Context, session models.Session, id int64) (models.Booking, error) {
	if !session.Authenticated() {
		return models.Booking{}, models.ErrUnauthorized
	}
	b, err := s.Bookings.GetBookingByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.CustomerID != session.UserID && b.ProviderID != session.UserID && session.Role != models.RoleAdmin {
		return models.Booking{}, models.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) ListForCustomer(ctx context.Context, session models.Session) ([]models.Booking, error) {
	if !session.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	return s.Bookings.ListByCustomer(ctx, session.UserID)
}

func (s *BookingService) ListForProvider(ctx context.Context, session models.Session, status string) ([]models.Booking, error) {
	if !session.Is(models.RoleProvider) {
		return nil, models.ErrForbidden
	}
	if status != "" && !fsm.Valid(status) {
		return nil, models.Invalid("unknown status %q", status)
	}
	return s.Bookings.ListByProvider(ctx, session.UserID, status, 0)
}

// Accept confirms a pending booking.
func (s *BookingService) Accept(ctx context.Context, session models.Session, id int64) (models.Booking, error) {
	return s.respond(ctx, session, id, fsm.StatusConfirmed)
}

// Decline cancels a pending booking.
func (s *BookingService) Decline(ctx context.Context, session models.Session, id int64) (models.Booking, error) {
	return s.respond(ctx, session, id, fsm.StatusCancelled)
}

func (s *BookingService) respond(ctx context.Context, session models.Session, id int64, to string) (models.Booking, error) {
	b, err := s.providerBooking(ctx, session, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.Status != fsm.StatusPending || !fsm.CanTransition(b.Status, to) {
		return models.Booking{}, fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, b.Status, to)
	}

	var notes, title string
	switch to {
	case fsm.StatusConfirmed:
		notes = fmt.Sprintf("Booking confirmed. Customer is %s away.", geo.FormatDistance(b.DistanceKm))
		title = "Booking confirmed"
	default:
		notes = "Booking cancelled by provider"
		title = "Booking declined"
	}

	if err := s.Bookings.Transition(ctx, b.ID, fsm.StatusPending, to, notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, models.ErrStatusConflict
		}
		return models.Booking{}, fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	b.Status = to
	b.ProviderNotes = notes

	s.notify(ctx, b, title, notes)
	return b, nil
}

// CaptureLocation stores the customer's current position for a live booking.
// A fix that cannot be trusted clears any stored position.
func (s *BookingService) CaptureLocation(ctx context.Context, session models.Session, id int64, fix geo.Fix) (models.Booking, error) {
	if !session.Authenticated() {
		return models.Booking{}, models.ErrUnauthorized
	}
	b, err := s.Bookings.GetBookingByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.CustomerID != session.UserID {
		return models.Booking{}, models.ErrForbidden
	}
	if b.Status != fsm.StatusPending && b.Status != fsm.StatusConfirmed {
		return models.Booking{}, fmt.Errorf("%w: location updates are closed for %s bookings", models.ErrInvalidTransition, b.Status)
	}

	at := fix.Resolve(s.now())
	lat, lng := at.Ptr()
	distance := geo.DistancePtr(b.ServicePoint(), at)
	if err := s.Bookings.UpdateCustomerLocation(ctx, b.ID, lat, lng, distance); err != nil {
		return models.Booking{}, err
	}
	if !at.Known && fix.Error != "" {
		s.Log.Infof("booking %d: location unavailable (%s)", b.ID, fix.Error)
	}

	b.CustomerLatitude, b.CustomerLongitude, b.DistanceKm = lat, lng, distance
	return b, nil
}

// Tracking is the provider's view of the customer's position. The distance
// is recomputed and stored when the location is known.
func (s *BookingService) Tracking(ctx context.Context, session models.Session, id int64) (models.Tracking, error) {
	b, err := s.providerBooking(ctx, session, id)
	if err != nil {
		return models.Tracking{}, err
	}

	customer, origin := b.CustomerPoint(), b.ServicePoint()
	distance := geo.DistancePtr(origin, customer)
	if distance != nil {
		if err := s.Bookings.UpdateDistance(ctx, b.ID, distance); err != nil {
			s.Log.Warnf("booking %d: store distance: %v", b.ID, err)
		}
	}

	t := models.Tracking{
		BookingID:     b.ID,
		LocationKnown: customer.Known,
		DistanceKm:    distance,
		Distance:      geo.FormatDistance(distance),
		TravelTime:    geo.UnknownText,
		LocationName:  geo.UnknownText,
		DirectionsURL: geo.DirectionsURL(origin, customer),
	}
	if s.Estimator != nil {
		t.TravelTime = s.Estimator.TravelTime(ctx, origin, customer)
		t.LocationName = s.Estimator.LocationName(ctx, customer)
	} else if distance != nil {
		t.TravelTime = geo.EstimateTravelTime(*distance)
	}
	return t, nil
}

// ExpireStale cancels bookings that stayed pending long past their
// scheduled time. It returns how many were cancelled.
func (s *BookingService) ExpireStale(ctx context.Context) (int, error) {
	after := s.StaleAfter
	if after <= 0 {
		after = defaultStaleAfter
	}
	stale, err := s.Bookings.ListStalePending(ctx, s.now().Add(-after))
	if err != nil {
		return 0, err
	}

	const notes = "Booking expired"
	var n int
	for _, b := range stale {
		err := s.Bookings.Transition(ctx, b.ID, fsm.StatusPending, fsm.StatusCancelled, notes)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("expire booking %d: %w", b.ID, err)
		}
		n++
		b.Status = fsm.StatusCancelled
		s.notify(ctx, b, "Booking expired", "Your booking request expired before the provider responded.")
	}
	return n, nil
}

func (s *BookingService) providerBooking(ctx context.Context, session models.Session, id int64) (models.Booking, error) {
	if !session.Authenticated() {
		return models.Booking{}, models.ErrUnauthorized
	}
	b, err := s.Bookings.GetBookingByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.ProviderID != session.UserID && session.Role != models.RoleAdmin {
		return models.Booking{}, models.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) notify(ctx context.Context, b models.Booking, title, message string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, notify.Event{
		Type:      notify.TypeBookingStatus,
		BookingID: b.ID,
		UserID:    b.CustomerID,
		Status:    b.Status,
		Title:     title,
		Message:   message,
	})
}
