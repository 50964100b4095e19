package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, m *AuthMiddleware) {
	auth := app.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/logout", m.RequireAuth, h.Logout)
	auth.Post("/update-tokens", h.UpdateTokens)

	app.Get("/me", m.RequireAuth, h.Me)
}
