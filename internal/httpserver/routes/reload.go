package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/handlers"
)

func init() { Register(registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	guarded(r, d).Post("/reload", handlers.Reload(d))
}
