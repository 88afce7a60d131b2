// Package main provides the aiflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/aiflow/pkg/cmd"
	"github.com/dukex/aiflow/pkg/services"
	"github.com/dukex/aiflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	engine   *cmd.Engine
	baseURL  string
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, engine *cmd.Engine, baseURL string) *API {
	return &API{
		logger:   logger,
		engine:   engine,
		baseURL:  baseURL,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.logger, a.engine.Persistence, a.engine.Executor, a.engine.Scheduler).
		WithEventPublisher(a.engine.EventBus)
	executionService := services.NewExecution(a.logger, a.engine.Persistence, a.engine.Executor)
	webhookService := services.NewWebhook(a.logger, a.engine.Persistence, a.engine.Scheduler, a.baseURL)

	handlers := web.NewAPIHandlers(workflowService, executionService, webhookService, a.validate, a.engine.Registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("aiflow API")
	})

	handlers.RegisterRoutes(app)

	return app
}

// Start serves until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shutdown API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
