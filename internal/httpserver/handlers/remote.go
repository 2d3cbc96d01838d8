package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

// repeatGuard drops presses of the same button that arrive within delay of
// the previous accepted one. Remotes resend a held key several times a second.
type repeatGuard struct {
	delay    time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRepeatGuard(delay time.Duration) *repeatGuard {
	return &repeatGuard{delay: delay, limiters: make(map[string]*rate.Limiter)}
}

func (g *repeatGuard) allow(button string, now time.Time) bool {
	if g.delay <= 0 {
		return true
	}

	g.mu.Lock()
	l, ok := g.limiters[button]
	if !ok {
		l = rate.NewLimiter(rate.Every(g.delay), 1)
		g.limiters[button] = l
	}
	g.mu.Unlock()

	return l.AllowN(now, 1)
}

// Remote resolves the {button} URL parameter through the keymap and runs the
// bound action.
func Remote(d deps.Deps) http.HandlerFunc {
	guard := newRepeatGuard(d.KeyRepeatDelay)
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}

	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "button")
		binding, ok := d.Keymap.Lookup(key)
		if !ok {
			d.Logger.Debug("unmapped remote button", logger.String("button", key))
			writeError(w, http.StatusNotFound, "button not mapped: "+key)
			return
		}

		if !guard.allow(binding.Button, now()) {
			d.Logger.Debug("key repeat dropped", logger.String("button", binding.Button))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.KeyRepeatDelay)))
			writeError(w, http.StatusTooManyRequests, "key repeat")
			return
		}

		d.Logger.Info("remote button pressed",
			logger.String("button", binding.Button),
			logger.String("action", binding.Action.String()))
		runAction(w, r, d, binding.Action, binding.Button)
	}
}

func retryAfterSeconds(d time.Duration) int {
	sec := int((d + time.Second - 1) / time.Second)
	if sec < 1 {
		sec = 1
	}
	return sec
}
