package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/madvpn/internal/controller"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/keymap"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/notify"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

// unitRunner answers like systemctl for a unit that follows start/stop.
type unitRunner struct {
	mu      sync.Mutex
	running bool
}

func (u *unitRunner) Run(_ context.Context, cmd probe.Command) probe.Result {
	u.mu.Lock()
	defer u.mu.Unlock()

	cmds := probe.DefaultCommandSet()
	switch cmd.String() {
	case cmds.Start.String():
		u.running = true
	case cmds.Stop.String():
		u.running = false
	case cmds.Status.String():
		if u.running {
			return probe.Output("● openvpn.service\n     Loaded: loaded (/lib/systemd/system/openvpn.service; enabled)\n" +
				"     Active: active (running) since today\n   Main PID: 777 (openvpn)")
		}
		return probe.Output("● openvpn.service\n     Loaded: loaded (/lib/systemd/system/openvpn.service; disabled)\n" +
			"     Active: inactive (dead)")
	}
	return probe.Output("")
}

func newTestServer(t *testing.T, allowedCIDRS []string) (*httptest.Server, *notify.Recorder) {
	t.Helper()

	rec := &notify.Recorder{}
	registry := keymap.NewRegistry()
	ctrl := controller.New(controller.Options{
		SettleDelay: time.Millisecond,
		HelpText:    func() string { return keymap.HelpText("MAD VPN", registry.All()) },
	}, &unitRunner{}, rec, logger.Nop())

	d := deps.Deps{
		Logger:         logger.Nop(),
		StartTime:      time.Now(),
		AllowedCIDRS:   allowedCIDRS,
		RateBurst:      100,
		RatePerMin:     600,
		Controller:     ctrl,
		Keymap:         registry,
		ServiceManager: "systemctl",
		ServiceUnit:    "openvpn.service",
		ReloadTrigger:  make(chan struct{}, 1),
		LookPath:       func(name string) (string, error) { return "/bin/" + name, nil },
	}

	srv := httptest.NewServer(NewRouter(5*time.Second, logger.Nop(), d))
	t.Cleanup(srv.Close)
	return srv, rec
}

func post(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+path, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	return resp, body
}

func TestRemoteScenario(t *testing.T) {
	srv, rec := newTestServer(t, nil)

	steps := []struct {
		path      string
		wantCode  int
		wantState string
	}{
		{path: "/remote/red", wantCode: http.StatusOK, wantState: "stopped"},
		{path: "/remote/green", wantCode: http.StatusOK, wantState: "running"},
		{path: "/actions/status", wantCode: http.StatusOK, wantState: "running"},
		{path: "/remote/yellow", wantCode: http.StatusOK, wantState: "stopped"},
		{path: "/actions/info", wantCode: http.StatusAccepted},
	}

	for _, step := range steps {
		resp, body := post(t, srv, step.path)
		require.Equal(t, step.wantCode, resp.StatusCode, step.path)
		if step.wantState == "" {
			continue
		}
		status, ok := body["status"].(map[string]any)
		require.True(t, ok, "%s: missing status in %v", step.path, body)
		assert.Equal(t, step.wantState, status["state"], step.path)
	}

	assert.Equal(t, []string{
		"OpenVPN: Stopped",
		"Starting OpenVPN...",
		"OpenVPN: Running (PID: 777)",
		"OpenVPN: Running (PID: 777)",
		"Stopping OpenVPN...",
		"OpenVPN: Stopped",
		"MAD VPN Controller is running as a service.\n\nUse your remote control:\n" +
			"RED button - Check VPN status\nGREEN button - Start VPN\nYELLOW button - Stop VPN",
	}, rec.Messages())
}

func TestRoutesRespectAllowList(t *testing.T) {
	srv, rec := newTestServer(t, []string{"10.99.0.0/16"})

	resp, _ := post(t, srv, "/actions/start")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, rec.Sent())

	// liveness stays public
	hresp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	hresp.Body.Close()
	assert.Equal(t, http.StatusOK, hresp.StatusCode)
}

func TestUnknownRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, _ := post(t, srv, "/actions/reboot")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	gresp, err := srv.Client().Get(srv.URL + "/actions/status")
	require.NoError(t, err)
	gresp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, gresp.StatusCode)
}
