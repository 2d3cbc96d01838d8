package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

type reloadResponse struct {
	Queued   bool   `json:"queued"`
	Source   string `json:"source,omitempty"`
	Bindings int    `json:"bindings"`
}

// Reload queues a keymap reload. Only one reload can be pending at a time.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger == nil {
			writeError(w, http.StatusNotFound, "keymap reload disabled")
			return
		}

		resp := reloadResponse{}
		if d.Keymap != nil {
			resp.Source = d.Keymap.Source()
			resp.Bindings = d.Keymap.Count()
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("keymap reload requested",
				logger.String("remote_ip", r.RemoteAddr))
			resp.Queued = true
			writeJSON(w, http.StatusAccepted, resp)
		default:
			d.Logger.Warn("keymap reload already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, resp)
		}
	}
}
