package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/geo"
	"marketBack/internal/models"
	"marketBack/internal/notify"
	"marketBack/internal/pay"
)

func testLog() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func ptr(v float64) *float64 { return &v }

// fakeBookings keeps bookings in memory and mimics the compare-and-swap
// behaviour of the SQL repository.
type fakeBookings struct {
	mu        sync.Mutex
	bookings  map[int64]models.Booking
	nextID    int64
	createErr error
	// raced is applied to the stored row right before a transition, to
	// simulate another writer winning.
	raced string
}

func newFakeBookings(list ...models.Booking) *fakeBookings {
	f := &fakeBookings{bookings: map[int64]models.Booking{}, nextID: 100}
	for _, b := range list {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookings) CreateBooking(ctx context.Context, b models.Booking) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.Booking{}, f.createErr
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now()
	f.bookings[b.ID] = b
	return b, nil
}

func (f *fakeBookings) GetBookingByID(ctx context.Context, id int64) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, models.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookings) GetBookingByPaymentOrder(ctx context.Context, orderID string) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.PaymentOrderID == orderID {
			return b, nil
		}
	}
	return models.Booking{}, models.ErrPaymentNotFound
}

func (f *fakeBookings) ListByCustomer(ctx context.Context, customerID int64) ([]models.Booking, error) {
	return f.filter(func(b models.Booking) bool { return b.CustomerID == customerID }), nil
}

func (f *fakeBookings) ListByProvider(ctx context.Context, providerID int64, status string, limit int) ([]models.Booking, error) {
	out := f.filter(func(b models.Booking) bool {
		return b.ProviderID == providerID && (status == "" || b.Status == status)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBookings) ListStalePending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return f.filter(func(b models.Booking) bool {
		return b.Status == fsm.StatusPending && b.ScheduledAt.Before(before)
	}), nil
}

func (f *fakeBookings) filter(keep func(models.Booking) bool) []models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeBookings) Transition(ctx context.Context, id int64, from, to, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	if f.raced != "" {
		b.Status = f.raced
		f.raced = ""
	}
	if !fsm.CanTransition(from, to) {
		return fsm.ErrInvalidTransition
	}
	if b.Status != from {
		f.bookings[id] = b
		return sql.ErrNoRows
	}
	b.Status = to
	if notes != "" {
		b.ProviderNotes = notes
	}
	f.bookings[id] = b
	return nil
}

func (f *fakeBookings) UpdateCustomerLocation(ctx context.Context, id int64, lat, lng, distanceKm *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.CustomerLatitude, b.CustomerLongitude, b.DistanceKm = lat, lng, distanceKm
	f.bookings[id] = b
	return nil
}

func (f *fakeBookings) UpdateDistance(ctx context.Context, id int64, distanceKm *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.DistanceKm = distanceKm
	f.bookings[id] = b
	return nil
}

func (f *fakeBookings) SetPaymentOrder(ctx context.Context, id int64, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	if b.PaymentStatus != fsm.PaymentPending || b.PaymentOrderID != "" {
		return models.ErrAlreadyPaid
	}
	b.PaymentOrderID = orderID
	f.bookings[id] = b
	return nil
}

func (f *fakeBookings) MarkPaid(ctx context.Context, id int64, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	if b.PaymentStatus != fsm.PaymentPending {
		return false, models.ErrAlreadyPaid
	}
	b.PaymentStatus = fsm.PaymentPaid
	b.PaymentID = paymentID
	confirmed := b.Status == fsm.StatusPending
	if confirmed {
		b.Status = fsm.StatusConfirmed
	}
	f.bookings[id] = b
	return confirmed, nil
}

func (f *fakeBookings) ProviderStats(ctx context.Context, providerID int64) (models.ProviderStats, error) {
	var st models.ProviderStats
	for _, b := range f.filter(func(b models.Booking) bool { return b.ProviderID == providerID }) {
		switch b.Status {
		case fsm.StatusPending:
			st.PendingBookings++
		case fsm.StatusConfirmed:
			st.ConfirmedBookings++
		case fsm.StatusCompleted:
			st.CompletedBookings++
			st.TotalEarnings += b.TotalPrice
		}
	}
	return st, nil
}

type fakeServices struct {
	services map[int64]models.Service
	nextID   int64
}

func newFakeServices(list ...models.Service) *fakeServices {
	f := &fakeServices{services: map[int64]models.Service{}, nextID: 10}
	for _, s := range list {
		f.services[s.ID] = s
	}
	return f
}

func (f *fakeServices) CreateService(ctx context.Context, s models.Service) (models.Service, error) {
	f.nextID++
	s.ID = f.nextID
	s.IsActive = true
	f.services[s.ID] = s
	return s, nil
}

func (f *fakeServices) UpdateService(ctx context.Context, s models.Service) error {
	cur, ok := f.services[s.ID]
	if !ok || cur.ProviderID != s.ProviderID {
		return models.ErrServiceNotFound
	}
	s.IsActive = cur.IsActive
	f.services[s.ID] = s
	return nil
}

func (f *fakeServices) SetActive(ctx context.Context, id, providerID int64, active bool) error {
	cur, ok := f.services[id]
	if !ok || cur.ProviderID != providerID {
		return models.ErrServiceNotFound
	}
	cur.IsActive = active
	f.services[id] = cur
	return nil
}

func (f *fakeServices) AppendImage(ctx context.Context, id, providerID int64, url string) error {
	cur, ok := f.services[id]
	if !ok || cur.ProviderID != providerID {
		return models.ErrServiceNotFound
	}
	cur.Images = append(cur.Images, url)
	f.services[id] = cur
	return nil
}

func (f *fakeServices) GetServiceByID(ctx context.Context, id int64) (models.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return models.Service{}, models.ErrServiceNotFound
	}
	return s, nil
}

func (f *fakeServices) ListActive(ctx context.Context) ([]models.Service, error) {
	return f.filter(func(s models.Service) bool { return s.IsActive }), nil
}

func (f *fakeServices) ListByProvider(ctx context.Context, providerID int64) ([]models.Service, error) {
	return f.filter(func(s models.Service) bool { return s.ProviderID == providerID }), nil
}

func (f *fakeServices) filter(keep func(models.Service) bool) []models.Service {
	out := []models.Service{}
	for _, s := range f.services {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeServices) CountActiveByProvider(ctx context.Context, providerID int64) (int, error) {
	var n int
	for _, s := range f.services {
		if s.ProviderID == providerID && s.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeNotifier struct {
	events []notify.Event
}

func (f *fakeNotifier) Notify(ctx context.Context, e notify.Event) {
	f.events = append(f.events, e)
}

type fakeEstimator struct{}

func (fakeEstimator) TravelTime(ctx context.Context, from, to geo.Location) string {
	if !from.Known || !to.Known {
		return "Unknown"
	}
	return "12 mins"
}

func (fakeEstimator) LocationName(ctx context.Context, at geo.Location) string {
	if !at.Known {
		return "Unknown"
	}
	return "Indiranagar, Bengaluru"
}

// fakeGateway hands out sequential order ids: order_1, order_2, ...
type fakeGateway struct {
	secret string
	last   pay.CreateOrderRequest
	calls  int
	err    error
	// beforeReturn runs after the order is minted, to interleave a competing checkout.
	beforeReturn func()
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req pay.CreateOrderRequest) (pay.Order, error) {
	g.last = req
	if g.err != nil {
		return pay.Order{}, g.err
	}
	g.calls++
	if g.beforeReturn != nil {
		hook := g.beforeReturn
		g.beforeReturn = nil
		hook()
	}
	return pay.Order{ID: fmt.Sprintf("order_%d", g.calls), Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *fakeGateway) KeyID() string  { return "rzp_test_key" }
func (g *fakeGateway) Secret() string { return g.secret }
