package workflow

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/registrar/pkg/auth"
	"github.com/opencatalog/registrar/pkg/eventbus"
	"github.com/opencatalog/registrar/pkg/events"
	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
	"github.com/opencatalog/registrar/pkg/persistence/file"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (c *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)

	return nil
}

func (c *capturePublisher) captured() []eventbus.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]eventbus.Event(nil), c.events...)
}

var (
	adminPrincipal = auth.Principal{ID: "admin", Email: "admin@example.org", Roles: []string{auth.RoleAdmin}}
	ownerPrincipal = auth.Principal{ID: "u-1", Email: "owner@example.org"}
	strangerUser   = auth.Principal{ID: "u-99", Email: "stranger@example.org"}
)

func newTestEngine(t *testing.T) (*Engine, *file.Persistence, *capturePublisher) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	publisher := &capturePublisher{}
	engine := NewEngine(store, auth.NewService(store), publisher, slog.Default())

	return engine, store, publisher
}

func registerProvider(t *testing.T, engine *Engine, name string) *models.ProviderBundle {
	t.Helper()

	bundle, err := engine.Register(t.Context(), ownerPrincipal, &models.Provider{
		Name:  name,
		Users: []models.User{{ID: "u-1", Email: "owner@example.org"}},
	})
	require.NoError(t, err)

	return bundle
}

func TestRegister(t *testing.T) {
	engine, store, publisher := newTestEngine(t)

	bundle := registerProvider(t, engine, "Acme Labs")

	assert.Equal(t, "acme_labs", bundle.GetID())
	assert.Equal(t, models.StatePendingInitialApproval, bundle.State)
	assert.False(t, bundle.Active)
	assert.Equal(t, "owner@example.org", bundle.Metadata.RegisteredBy)

	stored, err := store.ProviderRepository().GetByID(t.Context(), "acme_labs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Revision)

	captured := publisher.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, events.ProviderRegisteredEvent, captured[0].GetType())
}

func TestRegister_ValidationFailure(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Register(t.Context(), ownerPrincipal, &models.Provider{Name: "X"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransition_FullApprovalSequence(t *testing.T) {
	engine, _, publisher := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	bundle, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateTemplateSubmission)
	require.NoError(t, err)
	assert.Equal(t, models.StateTemplateSubmission, bundle.State)

	// The provider's own admin submits the template service; the provider
	// advances to template approval as a side effect.
	_, err = engine.AddServiceTemplate(t.Context(), ownerPrincipal, &models.Service{
		Name:         "Tool A",
		MainProvider: "acme_labs",
	})
	require.NoError(t, err)

	bundle, err = engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, bundle.State)
	assert.True(t, bundle.Active)

	var types []events.EventType
	for _, ev := range publisher.captured() {
		types = append(types, ev.GetType())
	}

	assert.Equal(t, []events.EventType{
		events.ProviderRegisteredEvent,
		events.ProviderStateChangedEvent,
		events.ProviderStateChangedEvent,
		events.ProviderStateChangedEvent,
	}, types)
}

func TestTransition_IllegalEdge(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateApproved)
	assert.True(t, IsIllegalTransition(err))
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateRejected)
	require.NoError(t, err)

	for _, target := range models.WorkflowStates() {
		_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", target)
		assert.True(t, IsIllegalTransition(err), "expected rejection for target %q", target)
	}
}

func TestTransition_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Transition(t.Context(), adminPrincipal, "ghost", models.StateTemplateSubmission)
	assert.True(t, persistence.IsNotFound(err))
}

func TestTransition_ModerationRequiresAdmin(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.Transition(t.Context(), ownerPrincipal, "acme_labs", models.StateTemplateSubmission)
	assert.True(t, IsForbidden(err))
}

func TestTransition_ProviderAdminMaySubmitTemplate(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateTemplateSubmission)
	require.NoError(t, err)

	bundle, err := engine.Transition(t.Context(), ownerPrincipal, "acme_labs", models.StatePendingTemplateApproval)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingTemplateApproval, bundle.State)

	// A stranger may not, even on the submission edge.
	engine2, _, _ := newTestEngine(t)
	registerProvider(t, engine2, "Acme Labs")
	_, err = engine2.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateTemplateSubmission)
	require.NoError(t, err)

	_, err = engine2.Transition(t.Context(), strangerUser, "acme_labs", models.StatePendingTemplateApproval)
	assert.True(t, IsForbidden(err))
}

func TestTransition_ConcurrentModeration_OneWinner(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	targets := []models.WorkflowState{models.StateTemplateSubmission, models.StateRejected}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := range 8 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", targets[n%2])
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)

	bundle, err := store.ProviderRepository().GetByID(t.Context(), "acme_labs")
	require.NoError(t, err)
	assert.Contains(t, targets, bundle.State)
}

func TestSetActive(t *testing.T) {
	engine, _, publisher := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.SetActive(t.Context(), ownerPrincipal, "acme_labs", true)
	assert.True(t, IsForbidden(err))

	bundle, err := engine.SetActive(t.Context(), adminPrincipal, "acme_labs", true)
	require.NoError(t, err)
	assert.True(t, bundle.Active)

	// The workflow state is untouched by availability flips.
	assert.Equal(t, models.StatePendingInitialApproval, bundle.State)

	captured := publisher.captured()
	last := captured[len(captured)-1]
	require.Equal(t, events.ProviderActiveChangedEvent, last.GetType())
	assert.True(t, last.(events.ProviderActiveChanged).Active)
}

func TestCanAddServiceTemplate(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	// Not eligible while pending initial approval.
	ok, err := engine.CanAddServiceTemplate(t.Context(), ownerPrincipal, "acme_labs")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateTemplateSubmission)
	require.NoError(t, err)

	ok, err = engine.CanAddServiceTemplate(t.Context(), ownerPrincipal, "acme_labs")
	require.NoError(t, err)
	assert.True(t, ok)

	// Strangers are turned away regardless of state.
	_, err = engine.CanAddServiceTemplate(t.Context(), strangerUser, "acme_labs")
	assert.True(t, IsForbidden(err))
}

func TestAddServiceTemplate_SecondTemplateConflicts(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateTemplateSubmission)
	require.NoError(t, err)

	first, err := engine.AddServiceTemplate(t.Context(), ownerPrincipal, &models.Service{
		Name:         "Tool A",
		MainProvider: "acme_labs",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme_labs.tool_a", first.GetID())
	assert.True(t, first.Template)

	provider, err := store.ProviderRepository().GetByID(t.Context(), "acme_labs")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingTemplateApproval, provider.State)

	// The provider is no longer awaiting its template, so a second service
	// from the owner is rejected until approval.
	_, err = engine.AddServiceTemplate(t.Context(), ownerPrincipal, &models.Service{
		Name:         "Tool B",
		MainProvider: "acme_labs",
	})
	assert.Error(t, err)
}

func TestAddServiceTemplate_ApprovedProviderAddsFreely(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	registerProvider(t, engine, "Acme Labs")

	_, err := engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateTemplateSubmission)
	require.NoError(t, err)

	_, err = engine.AddServiceTemplate(t.Context(), ownerPrincipal, &models.Service{
		Name:         "Tool A",
		MainProvider: "acme_labs",
	})
	require.NoError(t, err)

	_, err = engine.Transition(t.Context(), adminPrincipal, "acme_labs", models.StateApproved)
	require.NoError(t, err)

	second, err := engine.AddServiceTemplate(t.Context(), ownerPrincipal, &models.Service{
		Name:         "Tool B",
		MainProvider: "acme_labs",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme_labs.tool_b", second.GetID())
	assert.False(t, second.Template)
}
