// Package main provides the registrar API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/opencatalog/registrar/pkg/auth"
	"github.com/opencatalog/registrar/pkg/eventbus"
	"github.com/opencatalog/registrar/pkg/persistence"
	"github.com/opencatalog/registrar/pkg/web"
	"github.com/opencatalog/registrar/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	engine := workflow.NewEngine(a.persistence, auth.NewService(a.persistence), a.eventBus, a.logger)
	handlers := web.NewAPIHandlers(engine, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Registrar API")
	})

	providers := app.Group("/providers")
	providers.Post("/", handlers.RegisterProvider)
	providers.Get("/", handlers.ListProviders)
	providers.Get("/:id", handlers.GetProvider)
	providers.Post("/:id/transition", handlers.TransitionProvider)
	providers.Post("/:id/active", handlers.SetProviderActive)
	providers.Get("/:id/service-template-eligibility", handlers.ServiceTemplateEligibility)

	services := app.Group("/services")
	services.Post("/", handlers.CreateService)
	services.Get("/:id", handlers.GetService)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
