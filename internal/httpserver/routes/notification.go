package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/mw"
)

func init() { Register(registerNotification) }

func registerNotification(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Get("/notification", handlers.CurrentNotification(d))
	guarded(r, d).Delete("/notification", handlers.DismissNotification(d))
}
