package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/opencatalog/registrar/pkg/cmd"
	"github.com/opencatalog/registrar/pkg/log"
	"github.com/opencatalog/registrar/pkg/mailer"
	"github.com/opencatalog/registrar/pkg/notification"
	trc "github.com/opencatalog/registrar/pkg/tracer"
)

func main() {
	command := &cli.Command{
		Name:                  "registrar-api",
		Usage:                 "Start the registrar HTTP API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Port for the HTTP API",
				Value:   9090,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "project-name",
				Usage:   "Project name used in mail subjects",
				Value:   "OpenCatalog",
				Sources: cli.EnvVars("PROJECT_NAME"),
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "Public catalog URL referenced in mail bodies",
				Sources: cli.EnvVars("ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "registration-email",
				Usage:   "Operations mailbox receiving registration mail (in-memory bus only)",
				Sources: cli.EnvVars("REGISTRATION_EMAIL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Log mail instead of sending it",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := trc.InitTracer(ctx, "registrar-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger := log.WithModule("registrar-api")

			logger.Info("Initializing Registrar API")

			persistence, err := cmd.NewPersistence(ctx, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to create persistence: %w", err)
			}
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			busType := command.String("event-bus")

			eventBus, err := cmd.NewEventBus(busType, "registrar-api", logger)
			if err != nil {
				return fmt.Errorf("failed to create event bus: %w", err)
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			// The in-memory bus never leaves this process, so the
			// notification worker has to run here; kafka deployments run
			// registrar-notifier separately.
			if cmd.InProcess(busType) {
				registrationEmail := command.String("registration-email")
				if registrationEmail == "" {
					return errors.New("registration-email is required with the in-memory event bus")
				}

				renderer, err := mailer.NewTextRenderer(notification.DefaultTemplates())
				if err != nil {
					return fmt.Errorf("failed to parse mail templates: %w", err)
				}

				dispatcher := notification.NewDispatcher(persistence, renderer, mailer.NewLogSender(logger), notification.DispatcherConfig{
					ProjectName:       command.String("project-name"),
					Endpoint:          command.String("endpoint"),
					RegistrationEmail: registrationEmail,
					Debug:             command.Bool("debug"),
				}, logger)

				worker := notification.NewWorker(eventBus, persistence, dispatcher, logger)
				if err := worker.Start(ctx); err != nil {
					return fmt.Errorf("failed to start notification worker: %w", err)
				}

				logger.Info("In-process notification worker started")
			}

			api := NewAPI(logger, persistence, eventBus)

			return api.Start(int(command.Int("port")))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
