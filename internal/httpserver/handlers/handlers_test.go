package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/keymap"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	actions []domain.Action
	err     error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, action domain.Action) (probe.StatusInfo, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)

	if f.err != nil {
		return probe.StatusInfo{}, false, f.err
	}
	if action == domain.ActionInfo {
		return probe.StatusInfo{}, false, nil
	}
	pid := 4242
	return probe.StatusInfo{State: probe.Running, PID: &pid, Raw: "active (running)"}, true, nil
}

func (f *fakeDispatcher) Actions() []domain.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Action(nil), f.actions...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testDeps(disp deps.Dispatcher) deps.Deps {
	return deps.Deps{
		Logger:         logger.Nop(),
		StartTime:      time.Now(),
		Controller:     disp,
		Keymap:         keymap.NewRegistry(),
		ServiceManager: "systemctl",
		ServiceUnit:    "openvpn.service",
		LookPath:       func(name string) (string, error) { return "/usr/bin/" + name, nil },
	}
}

func newRouter(d deps.Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", Healthz(d))
	r.Get("/readyz", Readyz(d))
	r.Get("/infra", Infra(d))
	r.Post("/actions/{action}", Actions(d))
	r.Post("/remote/{button}", Remote(d))
	r.Post("/reload", Reload(d))
	return r
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestActions(t *testing.T) {
	disp := &fakeDispatcher{}
	h := newRouter(testDeps(disp))

	rec := do(t, h, http.MethodPost, "/actions/Start")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "start", resp.Action)
	require.NotNil(t, resp.Status)
	assert.Equal(t, probe.Running, resp.Status.State)
	require.NotNil(t, resp.Status.PID)
	assert.Equal(t, 4242, *resp.Status.PID)

	rec = do(t, h, http.MethodPost, "/actions/info")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"status"`)

	rec = do(t, h, http.MethodPost, "/actions/restart")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []domain.Action{domain.ActionStart, domain.ActionInfo}, disp.Actions())
}

func TestActions_DispatchError(t *testing.T) {
	h := newRouter(testDeps(&fakeDispatcher{err: errors.New("boom")}))

	rec := do(t, h, http.MethodPost, "/actions/status")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestRemote(t *testing.T) {
	disp := &fakeDispatcher{}
	h := newRouter(testDeps(disp))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/remote/red").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/remote/0xF045").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/remote/blue").Code)

	assert.Equal(t, []domain.Action{domain.ActionStatus, domain.ActionStop}, disp.Actions())
}

func TestRemote_KeyRepeat(t *testing.T) {
	disp := &fakeDispatcher{}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	d := testDeps(disp)
	d.KeyRepeatDelay = 750 * time.Millisecond
	d.TimeNow = clock.Now
	h := newRouter(d)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/remote/green").Code)

	// held key: same button by code, inside the delay
	clock.Advance(100 * time.Millisecond)
	rec := do(t, h, http.MethodPost, "/remote/0xF044")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// another button is not throttled
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/remote/yellow").Code)

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/remote/green").Code)

	assert.Equal(t, []domain.Action{domain.ActionStart, domain.ActionStop, domain.ActionStart}, disp.Actions())
}

func TestReload(t *testing.T) {
	d := testDeps(&fakeDispatcher{})
	d.ReloadTrigger = make(chan struct{}, 1)
	h := newRouter(d)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/reload").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/reload").Code)

	<-d.ReloadTrigger
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/reload").Code)
}

func TestReload_Disabled(t *testing.T) {
	h := newRouter(testDeps(&fakeDispatcher{}))
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/reload").Code)
}

func TestHealthz(t *testing.T) {
	d := testDeps(&fakeDispatcher{})
	d.Version = "v1.2.3"
	d.StartTime = time.Unix(1_700_000_000, 0)
	d.TimeNow = func() time.Time { return d.StartTime.Add(90 * time.Second) }

	rec := do(t, newRouter(d), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.InDelta(t, 90, resp.UptimeSeconds, 0.001)
}

func TestReadyz(t *testing.T) {
	d := testDeps(&fakeDispatcher{})
	assert.Equal(t, http.StatusOK, do(t, newRouter(d), http.MethodGet, "/readyz").Code)

	d.LookPath = func(string) (string, error) { return "", errors.New("not found") }
	rec := do(t, newRouter(d), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "service manager not found")
}

func TestInfra(t *testing.T) {
	d := testDeps(&fakeDispatcher{})

	rec := do(t, newRouter(d), http.MethodGet, "/infra")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp infraResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "optimal", resp.Mode)
	assert.Equal(t, "/usr/bin/systemctl", resp.Components["service_manager"].Path)
	require.NotNil(t, resp.Components["keymap"].Buttons)
	assert.Equal(t, 3, *resp.Components["keymap"].Buttons)
	assert.Equal(t, "disabled", resp.Components["redis"].Mode)

	d.LookPath = func(string) (string, error) { return "", errors.New("not found") }
	rec = do(t, newRouter(d), http.MethodGet, "/infra")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "critical", resp.Mode)
}

func TestDetermineMode(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]componentStatus
		want       string
	}{
		{
			name: "all ok",
			components: map[string]componentStatus{
				"service_manager": {OK: true}, "keymap": {OK: true}, "redis": {OK: true},
			},
			want: "optimal",
		},
		{
			name: "redis disabled is not degraded",
			components: map[string]componentStatus{
				"service_manager": {OK: true}, "keymap": {OK: true}, "redis": {Mode: "disabled"},
			},
			want: "optimal",
		},
		{
			name: "redis down",
			components: map[string]componentStatus{
				"service_manager": {OK: true}, "keymap": {OK: true}, "redis": {Mode: "degraded"},
			},
			want: "degraded",
		},
		{
			name: "no service manager",
			components: map[string]componentStatus{
				"service_manager": {OK: false}, "keymap": {OK: true},
			},
			want: "critical",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineMode(tt.components))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(750*time.Millisecond))
	assert.Equal(t, 2, retryAfterSeconds(1500*time.Millisecond))
}

type fakeDisplay struct {
	current *domain.Notification
	last    map[domain.Action]*domain.Notification
	err     error
	cleared bool
}

func (f *fakeDisplay) CurrentNotification(context.Context) (*domain.Notification, error) {
	return f.current, f.err
}

func (f *fakeDisplay) LastActionNotification(_ context.Context, action domain.Action) (*domain.Notification, error) {
	return f.last[action], f.err
}

func (f *fakeDisplay) ClearNotification(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = true
	f.current = nil
	return nil
}

func TestNotificationEndpoints(t *testing.T) {
	display := &fakeDisplay{
		current: &domain.Notification{ID: "n1", Message: "OpenVPN: Running"},
		last: map[domain.Action]*domain.Notification{
			domain.ActionStart: {ID: "n0", Message: "Starting OpenVPN..."},
		},
	}
	d := testDeps(&fakeDispatcher{})
	d.Display = display

	r := chi.NewRouter()
	r.Get("/notification", CurrentNotification(d))
	r.Delete("/notification", DismissNotification(d))

	rec := do(t, r, http.MethodGet, "/notification")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OpenVPN: Running")

	rec = do(t, r, http.MethodGet, "/notification?action=start")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starting OpenVPN...")

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/notification?action=reboot").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodGet, "/notification?action=stop").Code)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/notification").Code)
	assert.True(t, display.cleared)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodGet, "/notification").Code)

	display.err = errors.New("connection refused")
	assert.Equal(t, http.StatusBadGateway, do(t, r, http.MethodGet, "/notification").Code)
}

func TestNotificationEndpoints_Disabled(t *testing.T) {
	d := testDeps(&fakeDispatcher{})
	assert.Equal(t, http.StatusNotFound, do(t, CurrentNotification(d), http.MethodGet, "/notification").Code)
	assert.Equal(t, http.StatusNotFound, do(t, DismissNotification(d), http.MethodDelete, "/notification").Code)
}
