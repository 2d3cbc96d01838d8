package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

// Prober is the part of the controller the poller needs.
type Prober interface {
	Probe(ctx context.Context) probe.StatusInfo
	Announce(ctx context.Context, info probe.StatusInfo)
}

// StatusPoller probes the unit periodically and announces state changes
// that did not come from a remote action, such as a crash.
type StatusPoller struct {
	prober   Prober
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	last *probe.StatusInfo
}

// NewStatusPoller creates a new status poller
func NewStatusPoller(prober Prober, log logger.Logger, interval time.Duration) *StatusPoller {
	return &StatusPoller{
		prober:   prober,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start records the current state and begins polling. It does nothing when
// the interval is 0.
func (sp *StatusPoller) Start(ctx context.Context) error {
	if sp.interval <= 0 {
		sp.logger.Info("status polling disabled")
		return nil
	}

	sp.Poll(ctx)

	ticker := time.NewTicker(sp.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sp.Poll(ctx)
			case <-sp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the poller
func (sp *StatusPoller) Stop() {
	sp.stopOnce.Do(func() { close(sp.stopCh) })
}

// Poll runs one probe. It announces the result when the state differs from
// the previous poll, and reports whether it did.
func (sp *StatusPoller) Poll(ctx context.Context) bool {
	info := sp.prober.Probe(ctx)

	sp.mu.Lock()
	prev := sp.last
	sp.last = &info
	sp.mu.Unlock()

	if prev == nil {
		sp.logger.Debug("initial service state", logger.String("state", info.State.String()))
		return false
	}
	if prev.State == info.State {
		return false
	}

	sp.logger.Info("service state changed",
		logger.String("from", prev.State.String()),
		logger.String("to", info.State.String()))
	sp.prober.Announce(ctx, info)
	return true
}
