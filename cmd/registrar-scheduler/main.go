// Package main provides the digest scheduler: the cron-fired reminder,
// pending-approval and daily-change mail jobs.
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
	"github.com/opencatalog/registrar/pkg/config"
	"github.com/opencatalog/registrar/pkg/digest"
	"github.com/opencatalog/registrar/pkg/log"
	"github.com/opencatalog/registrar/pkg/mailer"
	"github.com/opencatalog/registrar/pkg/notification"
	trc "github.com/opencatalog/registrar/pkg/tracer"
)

func main() {
	command := &cli.Command{
		Name:                  "registrar-scheduler",
		Usage:                 "Start the registrar digest scheduler",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
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
			&cli.StringFlag{
				Name:    "admins",
				Usage:   "Comma-separated list of admin addresses for digests",
				Sources: cli.EnvVars("PROJECT_ADMINS"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Log mail instead of sending it",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "reminder-cron",
				Usage:   "Cron expression for the onboarding reminder job",
				Value:   config.DefaultReminderCron,
				Sources: cli.EnvVars("REMINDER_CRON"),
			},
			&cli.StringFlag{
				Name:    "pending-cron",
				Usage:   "Cron expression for the pending-approval digest",
				Value:   config.DefaultPendingCron,
				Sources: cli.EnvVars("PENDING_CRON"),
			},
			&cli.StringFlag{
				Name:    "daily-cron",
				Usage:   "Cron expression for the daily change digest",
				Value:   config.DefaultDailyCron,
				Sources: cli.EnvVars("DAILY_CRON"),
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

	tracerProvider, err := trc.InitTracer(ctx, "registrar-scheduler")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	logger := log.WithModule("registrar-scheduler")

	logger.Info("Initializing Registrar Scheduler")

	persistence, err := cmd.NewPersistence(ctx, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to create persistence: %w", err)
	}
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	renderer, err := mailer.NewTextRenderer(notification.DefaultTemplates())
	if err != nil {
		return fmt.Errorf("failed to parse mail templates: %w", err)
	}

	cfg := config.New(
		command.String("project-name"),
		command.String("endpoint"),
		command.String("registration-email"),
		command.String("admins"),
		command.Bool("debug"),
	)
	cfg.Crons = config.Crons{
		Reminder:      command.String("reminder-cron"),
		PendingDigest: command.String("pending-cron"),
		DailyDigest:   command.String("daily-cron"),
	}

	dispatcher := notification.NewDispatcher(persistence, renderer, mailer.NewLogSender(logger), notification.DispatcherConfig{
		ProjectName:       cfg.ProjectName,
		Endpoint:          cfg.Endpoint,
		RegistrationEmail: cfg.RegistrationEmail,
		Debug:             cfg.Debug,
	}, logger)

	scheduler := digest.NewScheduler(persistence, dispatcher, digest.Config{
		ProjectName:       cfg.ProjectName,
		Endpoint:          cfg.Endpoint,
		RegistrationEmail: cfg.RegistrationEmail,
		Admins:            cfg.Admins,
		System:            cfg.System,
		ReminderCron:      cfg.Crons.Reminder,
		PendingCron:       cfg.Crons.PendingDigest,
		DailyCron:         cfg.Crons.DailyDigest,
	}, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start digest scheduler: %w", err)
	}

	logger.Info("Registrar Scheduler started")

	<-ctx.Done()

	logger.Info("Registrar Scheduler shutting down")
	scheduler.Stop()

	return nil
}
