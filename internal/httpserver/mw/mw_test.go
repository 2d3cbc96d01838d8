package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		trustProxy bool
		remoteAddr string
		xff        string
		want       int
	}{
		{name: "empty list passthrough", remoteAddr: "203.0.113.9:1234", want: http.StatusOK},
		{name: "cidr match", allowed: []string{"192.168.1.0/24"}, remoteAddr: "192.168.1.20:5555", want: http.StatusOK},
		{name: "exact ip", allowed: []string{"10.0.0.5"}, remoteAddr: "10.0.0.5:80", want: http.StatusOK},
		{name: "rejected", allowed: []string{"192.168.1.0/24"}, remoteAddr: "10.0.0.5:80", want: http.StatusForbidden},
		{name: "xff ignored without trust", allowed: []string{"192.168.1.0/24"}, remoteAddr: "10.0.0.5:80", xff: "192.168.1.2", want: http.StatusForbidden},
		{name: "xff used with trust", allowed: []string{"192.168.1.0/24"}, trustProxy: true, remoteAddr: "127.0.0.1:80", xff: "192.168.1.2, 127.0.0.1", want: http.StatusOK},
		{name: "ipv4-mapped ipv6", allowed: []string{"192.168.1.0/24"}, remoteAddr: "[::ffff:192.168.1.7]:80", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, logger.Nop())(okHandler)

			req := httptest.NewRequest(http.MethodPost, "/actions/status", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{name: "empty passthrough", host: "evil.example", want: http.StatusOK},
		{name: "exact with port", allowed: []string{"kodi.lan"}, host: "kodi.lan:8088", want: http.StatusOK},
		{name: "case insensitive", allowed: []string{"Kodi.LAN"}, host: "KODI.lan", want: http.StatusOK},
		{name: "wildcard", allowed: []string{"*.lan"}, host: "box.lan", want: http.StatusOK},
		{name: "wildcard does not match apex", allowed: []string{"*.lan"}, host: "lan", want: http.StatusForbidden},
		{name: "rejected", allowed: []string{"kodi.lan"}, host: "attacker.example", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := EnforceHost(tt.allowed, logger.Nop())(okHandler)

			req := httptest.NewRequest(http.MethodPost, "/actions/status", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLimiterAllow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60})
	now := time.Unix(1_700_000_000, 0)

	if ok, _, _ := l.allow("a", now); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _, _ := l.allow("a", now); !ok {
		t.Fatal("second request should pass within burst")
	}
	ok, _, retry := l.allow("a", now)
	if ok {
		t.Fatal("third request should be limited")
	}
	if retry != 1 {
		t.Errorf("retry = %d, want 1", retry)
	}

	if ok, _, _ := l.allow("b", now); !ok {
		t.Error("other IP should have its own bucket")
	}
	if ok, _, _ := l.allow("a", now.Add(time.Second)); !ok {
		t.Error("request after refill should pass")
	}
}

func TestLimiterSweep(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1, IdleTTL: time.Minute})
	now := time.Now()

	l.allow("a", now)
	l.allow("b", now.Add(2*time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.visitors["a"]; ok {
		t.Error("idle visitor was not swept")
	}
	if _, ok := l.visitors["b"]; !ok {
		t.Error("active visitor was swept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1})(okHandler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/remote/red", nil)
		req.RemoteAddr = "192.168.1.5:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}
