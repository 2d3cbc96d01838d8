package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

// Display is the sink RedisNotifier writes to. Implemented by the redis store.
type Display interface {
	ShowNotification(ctx context.Context, n domain.Notification) (int64, error)
}

// BreakerSettings tunes the circuit breaker in front of the display.
type BreakerSettings struct {
	MaxFailures  uint32        // consecutive failures before opening
	OpenTimeout  time.Duration // how long the breaker stays open
	WriteTimeout time.Duration // per-notification deadline
}

func (b BreakerSettings) withDefaults() BreakerSettings {
	if b.MaxFailures == 0 {
		b.MaxFailures = 3
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = 30 * time.Second
	}
	if b.WriteTimeout <= 0 {
		b.WriteTimeout = time.Second
	}
	return b
}

// RedisNotifier publishes notifications to remote renderers. When redis keeps
// failing the breaker opens and notifications are dropped quickly instead of
// stalling every action on a dead connection.
type RedisNotifier struct {
	display Display
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  logger.Logger
}

func NewRedisNotifier(display Display, settings BreakerSettings, log logger.Logger) *RedisNotifier {
	settings = settings.withDefaults()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-notifier",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("notification breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})

	return &RedisNotifier{
		display: display,
		breaker: cb,
		timeout: settings.WriteTimeout,
		logger:  log,
	}
}

func (r *RedisNotifier) Notify(ctx context.Context, n domain.Notification) error {
	receivers, err := r.breaker.Execute(func() (interface{}, error) {
		wctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.display.ShowNotification(wctx, n)
	})
	if err != nil {
		return fmt.Errorf("redis notifier: %w", err)
	}

	r.logger.Debug("notification published",
		logger.String("id", n.ID),
		logger.Int("receivers", int(receivers.(int64))))
	return nil
}

// State exposes the breaker state for the infra report.
func (r *RedisNotifier) State() string {
	return r.breaker.State().String()
}
