package handler

import (
	authhandler "github.com/Itproger-it/url-short/internal/auth/handler"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *LinkHandler, m *authhandler.AuthMiddleware) {
	app.Post("/url", h.Create)
	app.Post("/decode", h.Decode)

	app.Post("/auth/url", m.RequireAuth, h.CreateOwned)
	app.Post("/auth/custom-url", m.RequireAuth, h.CreateCustom)

	app.Get("/u/urls", m.RequireAuth, h.ListOwned)
	app.Get("/metric/:key", m.RequireAuth, h.Metrics)
	app.Get("/admin/:secretKey", m.RequireAuth, h.AdminInfo)
	app.Delete("/del-url/:secretKey", m.RequireAuth, h.Delete)

	// Catch-all redirect, registered last.
	app.Get("/:key", h.Redirect)
}
