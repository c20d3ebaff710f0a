package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/aula-go-api/internal/config"
	"github.com/noah-isme/aula-go-api/internal/handler"
	"github.com/noah-isme/aula-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	InstanceHandler     *handler.InstanceHandler
	MeetingHandler      *handler.MeetingHandler
	CompletionHandler   *handler.CompletionHandler
	LogHandler          *handler.LogHandler
	CallbackHandler     *handler.CallbackHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Machine-to-machine and browser-upgrade routes register first so the
	// bearer-token guard on the instances prefix never sees them.
	open := api.Group("/instances")
	if deps.CallbackHandler != nil {
		deps.CallbackHandler.Register(open)
	}
	if deps.LogHandler != nil {
		deps.LogHandler.RegisterIngest(open)
	}
	if deps.MeetingHandler != nil {
		deps.MeetingHandler.RegisterWait(open)
	}

	instances := api.Group("/instances", jwtMiddleware)
	if deps.InstanceHandler != nil {
		deps.InstanceHandler.Register(instances)
	}
	if deps.MeetingHandler != nil {
		deps.MeetingHandler.Register(instances)
	}
	if deps.CompletionHandler != nil {
		deps.CompletionHandler.Register(instances)
	}
	if deps.LogHandler != nil {
		deps.LogHandler.Register(instances)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
