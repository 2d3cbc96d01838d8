package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/handlers"
)

func init() { Register(registerActions) }

func registerActions(r chi.Router, d deps.Deps) {
	g := guarded(r, d)
	g.Post("/actions/{action}", handlers.Actions(d))
	g.Post("/remote/{button}", handlers.Remote(d))
}
