package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shriniketh555/medcare/internal/metrics"
)

// RateLimited drops events once the outbound budget is exhausted. Dropping is
// not an error: reminders are best-effort and a flood must not queue up.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewRateLimited(next Notifier, perMinute, burst int, logger *zap.Logger) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		logger:  logger,
	}
}

func (r *RateLimited) Send(ctx context.Context, event Event) error {
	if !r.limiter.Allow() {
		metrics.NotificationsDropped.Inc()
		r.logger.Warn("Notification dropped by rate limiter",
			zap.String("kind", string(event.Kind)))
		return nil
	}
	return r.next.Send(ctx, event)
}

// Breaker short-circuits a sink that keeps failing so a dead channel cannot
// slow down every tick with doomed sends.
type Breaker struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreaker(name string, next Notifier, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Notification sink breaker state change",
				zap.String("sink", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *Breaker) Send(ctx context.Context, event Event) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Send(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("sink %s: %w", b.cb.Name(), err)
	}
	return nil
}
