// Package digest runs the scheduled mail jobs: onboarding reminders, the
// pending-approval digest and the daily change digest.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opencatalog/registrar/pkg/auth"
	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/notification"
	"github.com/opencatalog/registrar/pkg/persistence"
)

// Config carries the digest recipients, the identity the jobs act under and
// the three cron expressions.
type Config struct {
	ProjectName       string
	Endpoint          string
	RegistrationEmail string
	Admins            []string

	// System is the principal the scheduled jobs run as. It is built once at
	// process start and stamped into every digest the jobs produce.
	System auth.Principal

	ReminderCron string
	PendingCron  string
	DailyCron    string
}

// Scheduler owns the cron timers and the three digest jobs. Each job is also
// callable directly, which is how the tests and the admin tooling exercise
// them.
type Scheduler struct {
	cron        *cron.Cron
	dispatcher  *notification.Dispatcher
	persistence persistence.Persistence
	config      Config
	logger      *slog.Logger
	now         func() time.Time
}

func NewScheduler(p persistence.Persistence, dispatcher *notification.Dispatcher, config Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		dispatcher:  dispatcher,
		persistence: p,
		config:      config,
		logger:      logger.With("module", "digest"),
		now:         time.Now,
	}
}

// Start registers the three jobs and starts the timers.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		run  func(context.Context)
	}{
		{s.config.ReminderCron, s.SendOnboardingReminders},
		{s.config.PendingCron, s.SendPendingApprovalDigest},
		{s.config.DailyCron, s.SendDailyChangeDigest},
	}

	for _, job := range jobs {
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return fmt.Errorf("registering digest job %q: %w", job.spec, err)
		}
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "digest scheduler started",
		"acting_as", s.config.System.Email,
		"reminder", s.config.ReminderCron,
		"pending", s.config.PendingCron,
		"daily", s.config.DailyCron)

	return nil
}

// Stop halts the timers and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// SendOnboardingReminders mails every user of every provider that is still
// waiting to submit its first service.
func (s *Scheduler) SendOnboardingReminders(ctx context.Context) {
	providers, err := s.persistence.ProviderRepository().List(ctx, persistence.ProviderFilter{
		State: models.StateTemplateSubmission,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list providers for reminders", "error", err)

		return
	}

	for _, bundle := range providers {
		if len(bundle.Payload.Users) == 0 {
			continue
		}

		subject := fmt.Sprintf("[%s] Friendly reminder for your Provider [%s]",
			s.config.ProjectName, bundle.Payload.Name)

		for _, user := range bundle.Payload.Users {
			if user.Email == "" {
				continue
			}

			s.dispatcher.SendDigest(ctx, notification.OnboardingTemplate, map[string]any{
				"project":  s.config.ProjectName,
				"endpoint": s.config.Endpoint,
				"provider": bundle,
				"user":     user,
				"system":   s.config.System,
			}, subject, []string{user.Email})
		}
	}
}

// SendPendingApprovalDigest mails the admins the names of providers waiting
// on either approval gate. Nothing pending, nothing sent.
func (s *Scheduler) SendPendingApprovalDigest(ctx context.Context) {
	providers, err := s.persistence.ProviderRepository().List(ctx, persistence.ProviderFilter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list providers for pending digest", "error", err)

		return
	}

	var initialApproval, templateApproval []string

	for _, bundle := range providers {
		switch bundle.State {
		case models.StatePendingInitialApproval:
			initialApproval = append(initialApproval, bundle.Payload.Name)
		case models.StatePendingTemplateApproval:
			templateApproval = append(templateApproval, bundle.Payload.Name)
		}
	}

	if len(initialApproval) == 0 && len(templateApproval) == 0 {
		return
	}

	subject := fmt.Sprintf("[%s] Some new Providers are pending for your approval", s.config.ProjectName)

	s.dispatcher.SendDigest(ctx, notification.PendingDigestTemplate, map[string]any{
		"project":     s.config.ProjectName,
		"endpoint":    s.config.Endpoint,
		"iaProviders": initialApproval,
		"stProviders": templateApproval,
		"system":      s.config.System,
	}, subject, s.recipients())
}

// SendDailyChangeDigest mails the admins everything registered or modified
// during the previous local calendar day. It sends even when the day was
// quiet, with the changes flag cleared.
func (s *Scheduler) SendDailyChangeDigest(ctx context.Context) {
	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	var newProviders, newServices, updatedProviders, updatedServices []string

	classify := func(id string, meta models.Metadata) {
		// Window is [yesterdayStart, todayStart).
		inWindow := func(t time.Time) bool {
			return !t.Before(yesterdayStart) && t.Before(todayStart)
		}

		if inWindow(meta.ModifiedTime()) {
			if strings.Contains(id, ".") {
				updatedServices = append(updatedServices, id)
			} else {
				updatedProviders = append(updatedProviders, id)
			}
		}

		if inWindow(meta.RegisteredTime()) {
			if strings.Contains(id, ".") {
				newServices = append(newServices, id)
			} else {
				newProviders = append(newProviders, id)
			}
		}
	}

	providers, err := s.persistence.ProviderRepository().List(ctx, persistence.ProviderFilter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list providers for daily digest", "error", err)

		return
	}

	for _, bundle := range providers {
		classify(bundle.GetID(), bundle.Metadata)
	}

	services, err := s.persistence.ServiceRepository().List(ctx, persistence.ServiceFilter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list services for daily digest", "error", err)

		return
	}

	for _, bundle := range services {
		classify(bundle.GetID(), bundle.Metadata)
	}

	changes := len(newProviders) > 0 || len(updatedProviders) > 0 ||
		len(newServices) > 0 || len(updatedServices) > 0

	subject := fmt.Sprintf("[%s] Daily Notification - Changes to Resources", s.config.ProjectName)

	s.dispatcher.SendDigest(ctx, notification.DailyDigestTemplate, map[string]any{
		"project":          s.config.ProjectName,
		"changes":          changes,
		"newProviders":     newProviders,
		"updatedProviders": updatedProviders,
		"newServices":      newServices,
		"updatedServices":  updatedServices,
		"system":           s.config.System,
	}, subject, s.recipients())
}

// recipients is the admin list plus the registration mailbox.
func (s *Scheduler) recipients() []string {
	out := make([]string, 0, len(s.config.Admins)+1)
	out = append(out, s.config.Admins...)
	out = append(out, s.config.RegistrationEmail)

	return out
}
