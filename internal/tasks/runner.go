package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, task kafka.TaskMessage) error

// Runner executes due tasks read from the tasks topic.
type Runner struct {
	claims   Claimer
	producer Producer
	topic    string
	poll     time.Duration
	handlers map[string]Handler
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner builds a runner. A task due later than poll is put back on the topic after
// waiting poll, so one deferred task does not hold the partition for long.
func NewRunner(claims Claimer, producer Producer, topic string, poll time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		claims:   claims,
		producer: producer,
		topic:    topic,
		poll:     poll,
		handlers: make(map[string]Handler),
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Runner) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// HandleMessage is the consumer callback. Malformed messages and failing handlers are
// logged and skipped; only a cancelled context stops the consumer.
func (r *Runner) HandleMessage(ctx context.Context, msg kafkaGo.Message) error {
	task, err := kafka.DecodeTask(msg.Value)
	if err != nil {
		r.logger.Error("skip malformed task", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}
	if err := r.Run(ctx, task); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Error("task failed", zap.String("key", task.Key), zap.String("handler", task.Handler), zap.Error(err))
	}
	return nil
}

// Run waits for the task to be due, releases its key and dispatches it.
func (r *Runner) Run(ctx context.Context, task kafka.TaskMessage) error {
	handler, ok := r.handlers[task.Handler]
	if !ok {
		return fmt.Errorf("unknown task handler %q", task.Handler)
	}

	if wait := task.RunAt.Sub(r.now()); wait > 0 {
		if r.poll > 0 && wait > r.poll {
			if err := sleep(ctx, r.poll); err != nil {
				return err
			}
			return r.producer.Publish(ctx, r.topic, task.Key, task)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	if err := r.claims.ReleaseTask(ctx, task.Key); err != nil {
		r.logger.Warn("release task claim", zap.String("key", task.Key), zap.Error(err))
	}
	r.logger.Info("running task", zap.String("key", task.Key), zap.String("handler", task.Handler))
	err := handler(ctx, task)
	if errors.Is(err, domain.ErrLocked) {
		return r.postpone(ctx, task)
	}
	return err
}

// postpone puts a task back on the topic under a fresh claim. When the key was claimed
// again while the handler ran, the newer task covers this one and nothing is published.
func (r *Runner) postpone(ctx context.Context, task kafka.TaskMessage) error {
	task.RunAt = r.now().Add(r.poll)
	claimed, err := r.claims.ClaimTask(ctx, task.Key, r.poll+claimMargin)
	if err != nil {
		return fmt.Errorf("claim task %s: %w", task.Key, err)
	}
	if !claimed {
		r.logger.Info("task postponed into pending one", zap.String("key", task.Key))
		return nil
	}

	r.logger.Info("task postponed, resource locked", zap.String("key", task.Key), zap.Time("run_at", task.RunAt))
	if err := r.producer.Publish(ctx, r.topic, task.Key, task); err != nil {
		if rerr := r.claims.ReleaseTask(context.WithoutCancel(ctx), task.Key); rerr != nil {
			r.logger.Warn("release task claim", zap.String("key", task.Key), zap.Error(rerr))
		}
		return fmt.Errorf("publish task %s: %w", task.Key, err)
	}
	return nil
}

// Rechecker is the booking side of the rental unit recheck task.
type Rechecker interface {
	RecheckRentalUnits(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

// AssignUnits retries the rental unit assignment of a booking.
func AssignUnits(bookings Rechecker) Handler {
	return func(ctx context.Context, task kafka.TaskMessage) error {
		_, err := bookings.RecheckRentalUnits(ctx, task.BookingID)
		return err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
