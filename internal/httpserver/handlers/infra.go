package handlers

import (
	"context"
	"net/http"
	"os/exec"
	"time"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Path       string `json:"path,omitempty"`
	Unit       string `json:"unit,omitempty"`
	Buttons    *int   `json:"buttons,omitempty"`
	Source     string `json:"source,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Breaker    string `json:"breaker,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"service_manager": checkServiceManager(d, lookPath),
			"keymap":          checkKeymap(d),
			"redis":           checkRedis(r.Context(), d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// without the service manager no action can do anything useful
	if sm, exists := components["service_manager"]; exists && !sm.OK {
		return "critical"
	}
	if km, exists := components["keymap"]; exists && !km.OK {
		return "degraded"
	}
	// redis is optional: disabled is fine, configured but down is degraded
	if rd, exists := components["redis"]; exists && !rd.OK && rd.Mode != "disabled" {
		return "degraded"
	}
	return "optimal"
}

func checkServiceManager(d deps.Deps, lookPath func(string) (string, error)) componentStatus {
	path, err := lookPath(d.ServiceManager)
	if err != nil {
		return componentStatus{
			OK:     false,
			Unit:   d.ServiceUnit,
			Impact: "actions-unavailable",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Path: path, Unit: d.ServiceUnit}
}

func checkKeymap(d deps.Deps) componentStatus {
	if d.Keymap == nil {
		return componentStatus{OK: false, Error: "registry not initialized"}
	}

	count := d.Keymap.Count()
	lastReload := "never"
	if t := d.Keymap.LastReload(); !t.IsZero() {
		lastReload = t.Format("2006-01-02 15:04:05")
	}
	return componentStatus{
		OK:         count > 0,
		Buttons:    &count,
		Source:     d.Keymap.Source(),
		LastReload: lastReload,
	}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "on-screen-notifications-disabled",
		}
	}

	breaker := ""
	if d.NotifierState != nil {
		breaker = d.NotifierState()
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:      false,
			Mode:    "degraded",
			Breaker: breaker,
			Impact:  "on-screen-notifications-disabled",
			Error:   err.Error(),
		}
	}

	return componentStatus{
		OK:      true,
		Mode:    "optimal",
		Breaker: breaker,
		Impact:  "on-screen-notifications-enabled",
	}
}
