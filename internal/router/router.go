package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/schoolchat-api/internal/config"
	"github.com/noah-isme/schoolchat-api/internal/handler"
	"github.com/noah-isme/schoolchat-api/internal/middleware"
	"github.com/noah-isme/schoolchat-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChatHandler      *handler.ChatHandler
	AssistantHandler *handler.AssistantHandler
	AuditHandler     *handler.AuditHandler
	SeedHandler      *handler.SeedHandler
	JWTMiddleware    fiber.Handler
	RateLimiter      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", rateLimiter)
		deps.ChatHandler.Register(chat)
	}

	if deps.AssistantHandler != nil {
		assistant := api.Group("/assistant", rateLimiter)
		deps.AssistantHandler.Register(assistant)
	}

	// Audit surfaces are for moderators only.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	if deps.AuditHandler != nil {
		audit := api.Group("/audit", jwtMiddleware, middleware.RequireRole("moderator"))
		deps.AuditHandler.Register(audit)
	}

	if deps.SeedHandler != nil {
		seed := api.Group("/seed")
		deps.SeedHandler.Register(seed)
	}
}
