// Package main provides the notification worker: it consumes lifecycle
// events and mails both audiences for each committed change.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/opencatalog/registrar/pkg/cmd"
	"github.com/opencatalog/registrar/pkg/log"
	"github.com/opencatalog/registrar/pkg/mailer"
	"github.com/opencatalog/registrar/pkg/notification"
	trc "github.com/opencatalog/registrar/pkg/tracer"
)

func main() {
	command := &cli.Command{
		Name:                  "registrar-notifier",
		Usage:                 "Start the registrar notification worker",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
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
				Name:     "registration-email",
				Usage:    "Operations mailbox receiving registration mail",
				Required: true,
				Sources:  cli.EnvVars("REGISTRATION_EMAIL"),
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
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	tracerProvider, err := trc.InitTracer(ctx, "registrar-notifier")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	logger := log.WithModule("registrar-notifier")

	logger.Info("Initializing Registrar Notifier")

	persistence, err := cmd.NewPersistence(ctx, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to create persistence: %w", err)
	}
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "registrar-notifier", logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	renderer, err := mailer.NewTextRenderer(notification.DefaultTemplates())
	if err != nil {
		return fmt.Errorf("failed to parse mail templates: %w", err)
	}

	dispatcher := notification.NewDispatcher(persistence, renderer, mailer.NewLogSender(logger), notification.DispatcherConfig{
		ProjectName:       command.String("project-name"),
		Endpoint:          command.String("endpoint"),
		RegistrationEmail: command.String("registration-email"),
		Debug:             command.Bool("debug"),
	}, logger)

	worker := notification.NewWorker(eventBus, persistence, dispatcher, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notification worker: %w", err)
	}

	logger.Info("Registrar Notifier started")

	<-ctx.Done()

	logger.Info("Registrar Notifier shutting down")

	return nil
}
