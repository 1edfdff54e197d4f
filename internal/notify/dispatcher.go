package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketBack/internal/metrics"
	"marketBack/internal/models"
)

// Channel is one delivery route.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to Recipient, e Event) error
}

// UserLookup resolves contact details for a user id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// Dispatcher fans an event out to every configured channel.
type Dispatcher struct {
	channels []Channel
	users    UserLookup
	log      *zap.SugaredLogger
}

func NewDispatcher(users UserLookup, log *zap.SugaredLogger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, users: users, log: log}
}

// Deliver sends e to every channel. It fails only when at least one channel
// was attempted and none succeeded, so a retry cannot duplicate a delivered
// message on a channel that already worked.
func (d *Dispatcher) Deliver(ctx context.Context, e Event) error {
	to := Recipient{UserID: e.UserID}
	if d.users != nil {
		u, err := d.users.GetUserByID(ctx, e.UserID)
		if err != nil {
			d.log.Warnf("notify: lookup user %d: %v", e.UserID, err)
		} else {
			to.Name = u.FullName
			to.Email = u.Email
			to.DeviceToken = u.FCMToken
		}
	}

	var (
		attempted, delivered int
		errs                 []error
	)
	for _, ch := range d.channels {
		err := ch.Deliver(ctx, to, e)
		if errors.Is(err, ErrSkipped) {
			continue
		}
		attempted++
		metrics.NotificationDelivery(ch.Name(), err == nil)
		if err != nil {
			d.log.Warnf("notify: %s delivery for booking %d failed: %v", ch.Name(), e.BookingID, err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		delivered++
	}

	if attempted > 0 && delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}
