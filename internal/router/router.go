package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/promptpal/promptpal-api/internal/config"
	"github.com/promptpal/promptpal-api/internal/handler"
	"github.com/promptpal/promptpal-api/internal/middleware"
	"github.com/promptpal/promptpal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler       *handler.TaskHandler
	SubmissionHandler *handler.SubmissionHandler
	StreakHandler     *handler.StreakHandler
	ResultHandler     *handler.ResultHandler
	StatsHandler      *handler.StatsHandler
	CriteriaHandler   *handler.CriteriaHandler
	UserHandler       *handler.UserHandler
	AdminHandler      *handler.AdminHandler
	JWTMiddleware     fiber.Handler
	SubmitRateLimit   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.TaskHandler != nil {
		deps.TaskHandler.Register(api.Group("/tasks"))
	}

	if deps.CriteriaHandler != nil {
		deps.CriteriaHandler.Register(api.Group("/criteria"))
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"))
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		if deps.SubmitRateLimit != nil {
			submissions.Use(deps.SubmitRateLimit)
		}
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.StreakHandler != nil {
		deps.StreakHandler.Register(api.Group("/streaks", jwtMiddleware))
	}

	if deps.ResultHandler != nil {
		deps.ResultHandler.Register(api.Group("/results", jwtMiddleware))
	}

	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(api.Group("/stats", jwtMiddleware))
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AdminHandler.Register(admin)
	}
}
