package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/geo"
	"marketBack/internal/models"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

func testNow() time.Time {
	return time.Date(2026, 3, 10, 10, 0, 0, 0, kolkata)
}

func newBookingService(bookings *fakeBookings, services *fakeServices) (*BookingService, *fakeNotifier) {
	n := &fakeNotifier{}
	return &BookingService{
		Bookings:  bookings,
		Services:  services,
		Estimator: fakeEstimator{},
		Notifier:  n,
		Log:       testLog(),
		Location:  kolkata,
		MinHours:  1,
		MaxHours:  8,
		Now:       testNow,
	}, n
}

func plumbing() models.Service {
	return models.Service{
		ID:           1,
		ProviderID:   7,
		ProviderName: "Ravi",
		Title:        "Leak repair",
		PricePerHour: 499.5,
		Latitude:     ptr(12.9716),
		Longitude:    ptr(77.5946),
		IsActive:     true,
	}
}

var customer = models.Session{UserID: 3, Role: models.RoleCustomer}
var provider = models.Session{UserID: 7, Role: models.RoleProvider}

func TestBookingCreate(t *testing.T) {
	svc, _ := newBookingService(newFakeBookings(), newFakeServices(plumbing()))

	b, err := svc.Create(context.Background(), customer, models.CreateBookingInput{
		ServiceID:     1,
		BookingDate:   "2026-03-11",
		BookingTime:   "09:00",
		DurationHours: 3,
		Notes:         "  kitchen sink  ",
		Location: &geo.Fix{
			Latitude:   ptr(12.9352),
			Longitude:  ptr(77.6245),
			CapturedAt: testNow().Add(-time.Minute),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, fsm.StatusPending, b.Status)
	assert.Equal(t, fsm.PaymentPending, b.PaymentStatus)
	assert.Equal(t, 1498.5, b.TotalPrice)
	assert.Equal(t, "kitchen sink", b.CustomerNotes)
	assert.Equal(t, int64(7), b.ProviderID)
	assert.True(t, b.ScheduledAt.Equal(time.Date(2026, 3, 11, 9, 0, 0, 0, kolkata)))
	require.NotNil(t, b.DistanceKm)
	assert.InDelta(t, 5.1, *b.DistanceKm, 0.5)
	assert.Equal(t, "Leak repair", b.ServiceTitle)
}

func TestBookingCreateRejects(t *testing.T) {
	inactive := plumbing()
	inactive.ID = 2
	inactive.IsActive = false
	own := plumbing()
	own.ID = 3
	own.ProviderID = customer.UserID

	svc, _ := newBookingService(newFakeBookings(), newFakeServices(plumbing(), inactive, own))

	tests := []struct {
		name string
		in   models.CreateBookingInput
		want error
		msg  string
	}{
		{"past date", models.CreateBookingInput{ServiceID: 1, BookingDate: "2026-03-09", BookingTime: "18:00", DurationHours: 1}, models.ErrValidation, "booking date is in the past"},
		{"time passed today", models.CreateBookingInput{ServiceID: 1, BookingDate: "2026-03-10", BookingTime: "09:30", DurationHours: 1}, models.ErrValidation, "booking time has already passed"},
		{"duration too short", models.CreateBookingInput{ServiceID: 1, BookingDate: "2026-03-11", BookingTime: "09:00", DurationHours: 0}, models.ErrValidation, "duration"},
		{"duration too long", models.CreateBookingInput{ServiceID: 1, BookingDate: "2026-03-11", BookingTime: "09:00", DurationHours: 9}, models.ErrValidation, "duration"},
		{"bad time", models.CreateBookingInput{ServiceID: 1, BookingDate: "2026-03-11", BookingTime: "9am", DurationHours: 2}, models.ErrValidation, "invalid"},
		{"missing date", models.CreateBookingInput{ServiceID: 1, BookingTime: "09:00", DurationHours: 2}, models.ErrValidation, "required"},
		{"inactive", models.CreateBookingInput{ServiceID: 2, BookingDate: "2026-03-11", BookingTime: "09:00", DurationHours: 2}, models.ErrServiceInactive, ""},
		{"missing service", models.CreateBookingInput{ServiceID: 99, BookingDate: "2026-03-11", BookingTime: "09:00", DurationHours: 2}, models.ErrServiceNotFound, ""},
		{"own service", models.CreateBookingInput{ServiceID: 3, BookingDate: "2026-03-11", BookingTime: "09:00", DurationHours: 2}, models.ErrValidation, "own service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), customer, tt.in)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := svc.Create(context.Background(), models.Session{}, models.CreateBookingInput{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestBookingCreateLaterToday(t *testing.T) {
	svc, _ := newBookingService(newFakeBookings(), newFakeServices(plumbing()))
	b, err := svc.Create(context.Background(), customer, models.CreateBookingInput{
		ServiceID: 1, BookingDate: "2026-03-10", BookingTime: "10:30", DurationHours: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, b.DistanceKm)
	assert.Nil(t, b.CustomerLatitude)
}

func TestBookingCreateIgnoresUntrustedFix(t *testing.T) {
	svc, _ := newBookingService(newFakeBookings(), newFakeServices(plumbing()))
	fixes := []geo.Fix{
		{Latitude: ptr(12.93), Longitude: ptr(77.62), CapturedAt: testNow().Add(-10 * time.Minute)},
		{Latitude: ptr(12.93), Longitude: ptr(77.62), Error: geo.FixDenied},
		{Latitude: ptr(12.93)},
	}
	for _, fix := range fixes {
		fix := fix
		b, err := svc.Create(context.Background(), customer, models.CreateBookingInput{
			ServiceID: 1, BookingDate: "2026-03-11", BookingTime: "09:00", DurationHours: 1, Location: &fix,
		})
		require.NoError(t, err)
		assert.Nil(t, b.CustomerLatitude)
		assert.Nil(t, b.DistanceKm)
	}
}

func pendingBooking(id int64) models.Booking {
	return models.Booking{
		ID:               id,
		ServiceID:        1,
		CustomerID:       customer.UserID,
		ProviderID:       provider.UserID,
		Status:           fsm.StatusPending,
		PaymentStatus:    fsm.PaymentPending,
		TotalPrice:       999,
		ServiceLatitude:  ptr(12.9716),
		ServiceLongitude: ptr(77.5946),
	}
}

func TestBookingAccept(t *testing.T) {
	b := pendingBooking(1)
	b.DistanceKm = ptr(2.5)
	bookings := newFakeBookings(b)
	svc, n := newBookingService(bookings, newFakeServices())

	got, err := svc.Accept(context.Background(), provider, 1)
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusConfirmed, got.Status)
	assert.Equal(t, "Booking confirmed. Customer is 2.5km away.", got.ProviderNotes)

	stored, _ := bookings.GetBookingByID(context.Background(), 1)
	assert.Equal(t, fsm.StatusConfirmed, stored.Status)

	require.Len(t, n.events, 1)
	assert.Equal(t, customer.UserID, n.events[0].UserID)
	assert.Equal(t, fsm.StatusConfirmed, n.events[0].Status)

	_, err = svc.Accept(context.Background(), provider, 1)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestBookingAcceptUnknownDistance(t *testing.T) {
	svc, _ := newBookingService(newFakeBookings(pendingBooking(1)), newFakeServices())
	got, err := svc.Accept(context.Background(), provider, 1)
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmed. Customer is Unknown away.", got.ProviderNotes)
}

func TestBookingAcceptLosesRace(t *testing.T) {
	bookings := newFakeBookings(pendingBooking(1))
	bookings.raced = fsm.StatusConfirmed
	svc, n := newBookingService(bookings, newFakeServices())

	_, err := svc.Accept(context.Background(), provider, 1)
	assert.ErrorIs(t, err, models.ErrStatusConflict)
	assert.Empty(t, n.events)
}

func TestBookingDecline(t *testing.T) {
	completed := pendingBooking(2)
	completed.Status = fsm.StatusCompleted
	svc, _ := newBookingService(newFakeBookings(pendingBooking(1), completed), newFakeServices())

	got, err := svc.Decline(context.Background(), provider, 1)
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusCancelled, got.Status)
	assert.Equal(t, "Booking cancelled by provider", got.ProviderNotes)

	_, err = svc.Decline(context.Background(), provider, 2)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = svc.Decline(context.Background(), models.Session{UserID: 99, Role: models.RoleProvider}, 1)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Decline(context.Background(), provider, 404)
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
}

func TestBookingGetVisibility(t *testing.T) {
	svc, _ := newBookingService(newFakeBookings(pendingBooking(1)), newFakeServices())

	_, err := svc.Get(context.Background(), customer, 1)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), provider, 1)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), models.Session{UserID: 50, Role: models.RoleCustomer}, 1)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.Get(context.Background(), models.Session{UserID: 1, Role: models.RoleAdmin}, 1)
	assert.NoError(t, err)
}

func TestBookingCaptureLocation(t *testing.T) {
	bookings := newFakeBookings(pendingBooking(1))
	svc, _ := newBookingService(bookings, newFakeServices())

	got, err := svc.CaptureLocation(context.Background(), customer, 1, geo.Fix{
		Latitude: ptr(12.9352), Longitude: ptr(77.6245), CapturedAt: testNow(),
	})
	require.NoError(t, err)
	require.NotNil(t, got.DistanceKm)

	got, err = svc.CaptureLocation(context.Background(), customer, 1, geo.Fix{Error: geo.FixTimeout})
	require.NoError(t, err)
	assert.Nil(t, got.DistanceKm)
	stored, _ := bookings.GetBookingByID(context.Background(), 1)
	assert.Nil(t, stored.CustomerLatitude)

	_, err = svc.CaptureLocation(context.Background(), provider, 1, geo.Fix{})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestBookingTracking(t *testing.T) {
	known := pendingBooking(1)
	known.CustomerLatitude, known.CustomerLongitude = ptr(12.9352), ptr(77.6245)
	bookings := newFakeBookings(known, pendingBooking(2))
	svc, _ := newBookingService(bookings, newFakeServices())

	tr, err := svc.Tracking(context.Background(), provider, 1)
	require.NoError(t, err)
	assert.True(t, tr.LocationKnown)
	require.NotNil(t, tr.DistanceKm)
	assert.Equal(t, geo.FormatDistance(tr.DistanceKm), tr.Distance)
	assert.Equal(t, "12 mins", tr.TravelTime)
	assert.Equal(t, "Indiranagar, Bengaluru", tr.LocationName)
	assert.NotEmpty(t, tr.DirectionsURL)
	stored, _ := bookings.GetBookingByID(context.Background(), 1)
	require.NotNil(t, stored.DistanceKm)

	tr, err = svc.Tracking(context.Background(), provider, 2)
	require.NoError(t, err)
	assert.False(t, tr.LocationKnown)
	assert.Nil(t, tr.DistanceKm)
	assert.Equal(t, "Unknown", tr.Distance)
	assert.Equal(t, "Unknown", tr.TravelTime)
	assert.Empty(t, tr.DirectionsURL)

	_, err = svc.Tracking(context.Background(), customer, 1)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestBookingExpireStale(t *testing.T) {
	old := pendingBooking(1)
	old.ScheduledAt = testNow().Add(-48 * time.Hour)
	fresh := pendingBooking(2)
	fresh.ScheduledAt = testNow().Add(-time.Hour)
	bookings := newFakeBookings(old, fresh)
	svc, n := newBookingService(bookings, newFakeServices())

	count, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, _ := bookings.GetBookingByID(context.Background(), 1)
	assert.Equal(t, fsm.StatusCancelled, stored.Status)
	assert.Equal(t, "Booking expired", stored.ProviderNotes)
	stored, _ = bookings.GetBookingByID(context.Background(), 2)
	assert.Equal(t, fsm.StatusPending, stored.Status)
	require.Len(t, n.events, 1)
}

func TestBookingListForProvider(t *testing.T) {
	confirmed := pendingBooking(2)
	confirmed.Status = fsm.StatusConfirmed
	svc, _ := newBookingService(newFakeBookings(pendingBooking(1), confirmed), newFakeServices())

	list, err := svc.ListForProvider(context.Background(), provider, fsm.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)

	_, err = svc.ListForProvider(context.Background(), provider, "archived")
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.ListForProvider(context.Background(), customer, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
}
