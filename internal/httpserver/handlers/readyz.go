package handlers

import (
	"net/http"
	"os/exec"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz reports ready once the service manager is on PATH and a keymap is loaded.
func Readyz(d deps.Deps) http.HandlerFunc {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := lookPath(d.ServiceManager); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "service manager not found"})
			return
		}
		if d.Keymap == nil || d.Keymap.Count() == 0 {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "no keymap loaded"})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
