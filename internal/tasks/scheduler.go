// Package tasks defers jobs through the tasks topic. A job is identified by its key: while
// a job with a key is pending, scheduling the same key again is a no-op.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/discope/internal/kafka"
	"go.uber.org/zap"
)

// claimMargin keeps a claim alive a little past the due date so a slow worker does not
// let a duplicate through.
const claimMargin = time.Minute

type Claimer interface {
	ClaimTask(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseTask(ctx context.Context, key string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type Scheduler struct {
	claims   Claimer
	producer Producer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(claims Claimer, producer Producer, topic string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{claims: claims, producer: producer, topic: topic, logger: logger, now: time.Now}
}

// Schedule publishes the task unless one with the same key is already pending. The
// boolean reports whether a new task was published.
func (s *Scheduler) Schedule(ctx context.Context, task kafka.TaskMessage) (bool, error) {
	ttl := task.RunAt.Sub(s.now()) + claimMargin
	if ttl < claimMargin {
		ttl = claimMargin
	}
	claimed, err := s.claims.ClaimTask(ctx, task.Key, ttl)
	if err != nil {
		return false, fmt.Errorf("claim task %s: %w", task.Key, err)
	}
	if !claimed {
		s.logger.Debug("task already pending", zap.String("key", task.Key))
		return false, nil
	}

	if err := s.producer.Publish(ctx, s.topic, task.Key, task); err != nil {
		if rerr := s.claims.ReleaseTask(context.WithoutCancel(ctx), task.Key); rerr != nil {
			s.logger.Warn("release task claim", zap.String("key", task.Key), zap.Error(rerr))
		}
		return false, fmt.Errorf("publish task %s: %w", task.Key, err)
	}
	return true, nil
}
