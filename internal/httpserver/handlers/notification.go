package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

// CurrentNotification returns the notification still on screen, or the last
// one produced by ?action=<name>. 204 when nothing is displayed.
func CurrentNotification(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Display == nil {
			writeError(w, http.StatusNotFound, "notification display disabled")
			return
		}

		var (
			n   *domain.Notification
			err error
		)
		if name := r.URL.Query().Get("action"); name != "" {
			action, perr := domain.ParseAction(name)
			if perr != nil {
				writeError(w, http.StatusBadRequest, perr.Error())
				return
			}
			n, err = d.Display.LastActionNotification(r.Context(), action)
		} else {
			n, err = d.Display.CurrentNotification(r.Context())
		}
		if err != nil {
			d.Logger.Warn("failed to read notification", logger.Error(err))
			writeError(w, http.StatusBadGateway, "notification store unavailable")
			return
		}
		if n == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

// DismissNotification clears the on-screen notification.
func DismissNotification(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Display == nil {
			writeError(w, http.StatusNotFound, "notification display disabled")
			return
		}
		if err := d.Display.ClearNotification(r.Context()); err != nil {
			d.Logger.Warn("failed to clear notification", logger.Error(err))
			writeError(w, http.StatusBadGateway, "notification store unavailable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
