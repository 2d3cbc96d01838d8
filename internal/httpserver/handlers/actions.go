package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

type actionResponse struct {
	Action string            `json:"action"`
	Button string            `json:"button,omitempty"`
	Status *probe.StatusInfo `json:"status,omitempty"`
}

// Actions runs the entry point named by the {action} URL parameter.
func Actions(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, err := domain.ParseAction(chi.URLParam(r, "action"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		runAction(w, r, d, action, "")
	}
}

func runAction(w http.ResponseWriter, r *http.Request, d deps.Deps, action domain.Action, button string) {
	// a start or stop runs to completion even if the caller hangs up
	ctx := context.WithoutCancel(r.Context())

	info, probed, err := d.Controller.Dispatch(ctx, action)
	if err != nil {
		d.Logger.Error("action failed",
			logger.String("action", action.String()),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := actionResponse{Action: action.String(), Button: button}
	if !probed {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	resp.Status = &info
	writeJSON(w, http.StatusOK, resp)
}
