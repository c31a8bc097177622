package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/registrar/pkg/auth"
	"github.com/opencatalog/registrar/pkg/mailer"
	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/notification"
	"github.com/opencatalog/registrar/pkg/persistence/file"
)

type sentMail struct {
	recipients []string
	subject    string
	body       string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingSender) Send(_ context.Context, recipients []string, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, sentMail{recipients: recipients, subject: subject, body: body})

	return nil
}

func (r *recordingSender) all() []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]sentMail(nil), r.sent...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *file.Persistence, *recordingSender) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	sender := &recordingSender{}

	renderer, err := mailer.NewTextRenderer(map[string]string{
		notification.OnboardingTemplate:    "Reminder for {{.provider.Payload.Name}}, {{.user.Name}}. Sent by {{.system.Email}}.",
		notification.PendingDigestTemplate: "Initial: {{.iaProviders}} Template: {{.stProviders}}",
		notification.DailyDigestTemplate:   "changes={{.changes}} new_providers={{.newProviders}} updated_providers={{.updatedProviders}} new_services={{.newServices}} updated_services={{.updatedServices}}",
	})
	require.NoError(t, err)

	dispatcher := notification.NewDispatcher(store, renderer, sender, notification.DispatcherConfig{
		ProjectName:       "OpenCatalog",
		Endpoint:          "https://catalog.example.org",
		RegistrationEmail: "registration@example.org",
	}, slog.Default())

	scheduler := NewScheduler(store, dispatcher, Config{
		ProjectName:       "OpenCatalog",
		Endpoint:          "https://catalog.example.org",
		RegistrationEmail: "registration@example.org",
		Admins:            []string{"admin@example.org"},
		System:            auth.SystemPrincipal("OpenCatalog"),
		ReminderCron:      "0 12 * * MON",
		PendingCron:       "0 12 */2 * *",
		DailyCron:         "0 12 * * *",
	}, slog.Default())

	return scheduler, store, sender
}

func saveProvider(t *testing.T, store *file.Persistence, id string, state models.WorkflowState, meta models.Metadata, users ...models.User) {
	t.Helper()

	bundle := &models.ProviderBundle{
		Bundle: models.Bundle[*models.Provider]{
			Payload:  &models.Provider{ID: id, Name: id, Users: users},
			Metadata: meta,
		},
		State: state,
	}
	require.NoError(t, store.ProviderRepository().Save(t.Context(), bundle))
}

func saveService(t *testing.T, store *file.Persistence, id, mainProvider string, meta models.Metadata) {
	t.Helper()

	bundle := &models.ServiceBundle{
		Bundle: models.Bundle[*models.Service]{
			Payload:  &models.Service{ID: id, Name: id, MainProvider: mainProvider},
			Metadata: meta,
		},
	}
	require.NoError(t, store.ServiceRepository().Save(t.Context(), bundle))
}

func TestSendOnboardingReminders(t *testing.T) {
	scheduler, store, sender := newTestScheduler(t)

	saveProvider(t, store, "waiting_one", models.StateTemplateSubmission, models.Metadata{},
		models.User{Name: "Ada", Email: "ada@example.org"},
		models.User{Name: "No Mail"},
	)
	saveProvider(t, store, "already_pending", models.StatePendingInitialApproval, models.Metadata{},
		models.User{Name: "Grace", Email: "grace@example.org"},
	)
	saveProvider(t, store, "no_users", models.StateTemplateSubmission, models.Metadata{})

	scheduler.SendOnboardingReminders(t.Context())

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ada@example.org"}, sent[0].recipients)
	assert.Equal(t, "[OpenCatalog] Friendly reminder for your Provider [waiting_one]", sent[0].subject)
	assert.Contains(t, sent[0].body, "Reminder for waiting_one, Ada.")

	// The jobs run under the injected system principal, visible in the mail.
	assert.Contains(t, sent[0].body, "Sent by no-reply@OpenCatalog.org.")
}

func TestSendPendingApprovalDigest(t *testing.T) {
	scheduler, store, sender := newTestScheduler(t)

	saveProvider(t, store, "fresh_one", models.StatePendingInitialApproval, models.Metadata{})
	saveProvider(t, store, "template_one", models.StatePendingTemplateApproval, models.Metadata{})
	saveProvider(t, store, "done_one", models.StateApproved, models.Metadata{})

	scheduler.SendPendingApprovalDigest(t.Context())

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"admin@example.org", "registration@example.org"}, sent[0].recipients)
	assert.Equal(t, "[OpenCatalog] Some new Providers are pending for your approval", sent[0].subject)
	assert.Contains(t, sent[0].body, "fresh_one")
	assert.Contains(t, sent[0].body, "template_one")
}

func TestSendPendingApprovalDigest_NothingPendingNothingSent(t *testing.T) {
	scheduler, store, sender := newTestScheduler(t)

	saveProvider(t, store, "done_one", models.StateApproved, models.Metadata{})

	scheduler.SendPendingApprovalDigest(t.Context())

	assert.Empty(t, sender.all())
}

func TestSendDailyChangeDigest(t *testing.T) {
	scheduler, store, sender := newTestScheduler(t)

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.Local)
	scheduler.now = func() time.Time { return now }

	yesterdayNoon := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.Local)
	lastWeek := now.AddDate(0, 0, -7)

	// Updated yesterday, registered long ago.
	saveProvider(t, store, "acme_labs", models.StateApproved, models.Metadata{
		RegisteredAt: models.EpochString(lastWeek),
		ModifiedAt:   models.EpochString(yesterdayNoon),
	})

	// Two services registered yesterday.
	for _, id := range []string{"acme_labs.tool_a", "acme_labs.tool_b"} {
		saveService(t, store, id, "acme_labs", models.Metadata{
			RegisteredAt: models.EpochString(yesterdayNoon),
			ModifiedAt:   models.EpochString(yesterdayNoon),
		})
	}

	// Malformed timestamps read as the epoch, far outside the window.
	saveProvider(t, store, "legacy_records", models.StateApproved, models.Metadata{
		RegisteredAt: "N/A",
		ModifiedAt:   "N/A",
	})

	// Registered today, outside yesterday's window.
	saveProvider(t, store, "too_fresh", models.StatePendingInitialApproval, models.Metadata{
		RegisteredAt: models.EpochString(now),
		ModifiedAt:   models.EpochString(now),
	})

	scheduler.SendDailyChangeDigest(t.Context())

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "[OpenCatalog] Daily Notification - Changes to Resources", sent[0].subject)
	assert.Contains(t, sent[0].body, "changes=true")
	assert.Contains(t, sent[0].body, "updated_providers=[acme_labs]")
	assert.Contains(t, sent[0].body, "new_services=[acme_labs.tool_a acme_labs.tool_b]")
	assert.NotContains(t, sent[0].body, "legacy_records")
	assert.NotContains(t, sent[0].body, "too_fresh")

	// Updated services list also covers the freshly registered pair.
	assert.Contains(t, sent[0].body, fmt.Sprintf("updated_services=%v", []string{"acme_labs.tool_a", "acme_labs.tool_b"}))
}

func TestSendDailyChangeDigest_QuietDayStillSends(t *testing.T) {
	scheduler, store, sender := newTestScheduler(t)

	saveProvider(t, store, "legacy_records", models.StateApproved, models.Metadata{
		RegisteredAt: "N/A",
		ModifiedAt:   "N/A",
	})

	scheduler.SendDailyChangeDigest(t.Context())

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].body, "changes=false")
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t)

	require.NoError(t, scheduler.Start(t.Context()))
	scheduler.Stop()
}

func TestSchedulerStart_BadCronSpec(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t)
	scheduler.config.ReminderCron = "not a cron spec"

	assert.Error(t, scheduler.Start(t.Context()))
}
