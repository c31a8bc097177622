// Package notification turns committed workflow changes into rendered mail
// for the two audiences: the provider's own users and the operations team.
package notification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/opencatalog/registrar/pkg/mailer"
	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
)

// Template ids handed to the renderer.
const (
	ProviderTemplate      = "provider_transition"
	OperationsTemplate    = "registration_team"
	OnboardingTemplate    = "provider_onboarding"
	PendingDigestTemplate = "admin_onboarding_digest"
	DailyDigestTemplate   = "admin_daily_digest"
)

// sendTimeout bounds a single delivery attempt so a stalled relay cannot
// hold up the worker.
const sendTimeout = 10 * time.Second

// Dispatcher renders and delivers per-transition mail. Delivery failures are
// logged with their template and recipient context, never raised: by the
// time a notification runs the workflow change has already been committed.
type Dispatcher struct {
	persistence       persistence.Persistence
	renderer          mailer.Renderer
	sender            mailer.Sender
	projectName       string
	endpoint          string
	registrationEmail string
	debug             bool
	logger            *slog.Logger
}

type DispatcherConfig struct {
	ProjectName       string
	Endpoint          string
	RegistrationEmail string
	Debug             bool
}

func NewDispatcher(p persistence.Persistence, renderer mailer.Renderer, sender mailer.Sender, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence:       p,
		renderer:          renderer,
		sender:            sender,
		projectName:       cfg.ProjectName,
		endpoint:          cfg.Endpoint,
		registrationEmail: cfg.RegistrationEmail,
		debug:             cfg.Debug,
		logger:            logger.With("module", "notification"),
	}
}

// NotifyTransition sends both audiences their mail for the bundle's current
// state: the operations mailbox first, then one message per registered user
// with a non-empty email. Templates receive the whole bundle, metadata and
// status included, not just the provider payload.
func (d *Dispatcher) NotifyTransition(ctx context.Context, bundle *models.ProviderBundle) {
	serviceTemplate := d.representativeService(ctx, bundle.GetID())

	vars := map[string]any{
		"provider":           bundle,
		"state":              string(bundle.State),
		"active":             bundle.Active,
		"service":            serviceTemplate,
		"endpoint":           d.endpoint,
		"project":            d.projectName,
		"registration_email": d.registrationEmail,
	}

	if len(bundle.Payload.Users) > 0 {
		vars["user"] = bundle.Payload.Users[0]
	}

	opsSubject := registrationTeamSubject(d.projectName, bundle, serviceTemplate)
	d.renderAndSend(ctx, OperationsTemplate, vars, opsSubject, []string{d.registrationEmail})

	userSubject := providerSubject(d.projectName, bundle, serviceTemplate)

	for _, user := range bundle.Payload.Users {
		if user.Email == "" {
			continue
		}

		vars["user"] = user
		d.renderAndSend(ctx, ProviderTemplate, vars, userSubject, []string{user.Email})
	}
}

// SendDigest renders a digest template once and delivers it to all
// recipients. An empty recipient list is a configuration problem, not a
// reason to call the relay; it is logged and the digest is dropped.
func (d *Dispatcher) SendDigest(ctx context.Context, templateID string, vars map[string]any, subject string, recipients []string) {
	if len(recipients) == 0 {
		d.logger.ErrorContext(ctx, "digest has no recipients", "template", templateID, "subject", subject)

		return
	}

	d.renderAndSend(ctx, templateID, vars, subject, recipients)
}

// representativeService returns the provider's first registered service, or
// a placeholder with an empty name when none exists yet.
func (d *Dispatcher) representativeService(ctx context.Context, providerID string) *models.Service {
	services, err := d.persistence.ServiceRepository().List(ctx, persistence.ServiceFilter{MainProvider: providerID})
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to list services for notification", "provider_id", providerID, "error", err)
	}

	if len(services) == 0 {
		return &models.Service{Name: ""}
	}

	return services[0].Payload
}

func (d *Dispatcher) renderAndSend(ctx context.Context, templateID string, vars map[string]any, subject string, recipients []string) {
	body, err := d.renderer.Render(templateID, vars)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to render mail",
			"template", templateID, "subject", subject, "error", err)

		return
	}

	// Rendered output is always logged so operators can resend by hand.
	d.logger.InfoContext(ctx, "mail rendered",
		"recipients", strings.Join(recipients, ", "),
		"subject", subject,
		"body", body)

	if d.debug {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, recipients, subject, body); err != nil {
		d.logger.ErrorContext(ctx, "failed to send mail",
			"template", templateID,
			"recipients", strings.Join(recipients, ", "),
			"subject", subject,
			"error", err)
	}
}
