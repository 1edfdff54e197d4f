package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskBookingNotify is the asynq task type for customer notifications.
const TaskBookingNotify = "booking:notify"

const (
	deliverTimeout = 15 * time.Second
	taskMaxRetry   = 3
)

// Enqueuer is the part of asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier hands events off for delivery without blocking the caller. With a
// queue configured, events go through asynq; otherwise a goroutine delivers
// them directly.
type Notifier struct {
	dispatcher *Dispatcher
	queue      Enqueuer
	log        *zap.SugaredLogger
}

func NewNotifier(dispatcher *Dispatcher, queue Enqueuer, log *zap.SugaredLogger) *Notifier {
	return &Notifier{dispatcher: dispatcher, queue: queue, log: log}
}

func NewBookingTask(e Event) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingNotify, payload, asynq.MaxRetry(taskMaxRetry), asynq.Timeout(deliverTimeout)), nil
}

// Notify is fire-and-forget. Failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Type == "" {
		e.Type = TypeBookingStatus
	}

	if n.queue != nil {
		task, err := NewBookingTask(e)
		if err == nil {
			_, err = n.queue.EnqueueContext(context.WithoutCancel(ctx), task)
		}
		if err == nil {
			return
		}
		n.log.Warnf("notify: enqueue booking %d failed, delivering inline: %v", e.BookingID, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		if err := n.dispatcher.Deliver(ctx, e); err != nil {
			n.log.Errorf("notify: booking %d: %v", e.BookingID, err)
		}
	}()
}

// HandleTask is the asynq handler for TaskBookingNotify.
func (d *Dispatcher) HandleTask(ctx context.Context, t *asynq.Task) error {
	var e Event
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("decode %s payload: %w: %w", TaskBookingNotify, err, asynq.SkipRetry)
	}
	return d.Deliver(ctx, e)
}

// NewServeMux routes notification tasks to the dispatcher.
func NewServeMux(d *Dispatcher) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskBookingNotify, d.HandleTask)
	return mux
}
