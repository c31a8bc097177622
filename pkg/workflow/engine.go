// Package workflow drives provider bundles through the approval sequence and
// publishes lifecycle events after each committed change.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opencatalog/registrar/pkg/auth"
	"github.com/opencatalog/registrar/pkg/eventbus"
	"github.com/opencatalog/registrar/pkg/events"
	"github.com/opencatalog/registrar/pkg/identifier"
	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
	"github.com/opencatalog/registrar/pkg/tracer"
)

// saveRetries bounds the optimistic-save loop. Contention on a single
// provider record is rare; three attempts is plenty.
const saveRetries = 3

// ErrValidation indicates a payload failed structural validation.
var ErrValidation = errors.New("validation failed")

// Authorizer answers whether a principal administers a provider.
type Authorizer interface {
	IsProviderAdmin(ctx context.Context, principal auth.Principal, providerID string) (bool, error)
}

// Engine performs workflow transitions. All writes go through the optimistic
// Save of the underlying repositories; events are published only after a
// commit and never fail the operation.
type Engine struct {
	persistence persistence.Persistence
	authorizer  Authorizer
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewEngine(p persistence.Persistence, authz Authorizer, pub eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		authorizer:  authz,
		publisher:   pub,
		validate:    validator.New(),
		logger:      logger.With("module", "workflow"),
		tracer:      otel.Tracer("registrar.workflow"),
	}
}

// Register validates a new provider, assigns its catalog id and places it at
// the start of the approval sequence.
func (e *Engine) Register(ctx context.Context, principal auth.Principal, provider *models.Provider) (*models.ProviderBundle, error) {
	provider.ID = identifier.ForProvider(provider.Name, provider.Acronym)

	if err := e.validate.Struct(provider); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	now := models.EpochString(time.Now())
	bundle := &models.ProviderBundle{
		Bundle: models.Bundle[*models.Provider]{
			Payload: provider,
			Metadata: models.Metadata{
				RegisteredAt: now,
				ModifiedAt:   now,
				RegisteredBy: principal.Email,
				ModifiedBy:   principal.Email,
			},
			Status: models.StatusPublished,
		},
		State:  models.StatePendingInitialApproval,
		Active: false,
	}

	if err := e.persistence.ProviderRepository().Save(ctx, bundle); err != nil {
		return nil, err
	}

	e.publish(ctx, provider.ID, events.ProviderRegistered{
		BaseEvent: events.NewBaseEvent(events.ProviderRegisteredEvent, provider.ID),
	})

	return bundle, nil
}

// Transition moves a provider along one edge of the approval graph.
// Moderation edges require the admin role; the template submission edge may
// also be taken by the provider's own administrators. Approval activates the
// provider.
func (e *Engine) Transition(ctx context.Context, principal auth.Principal, providerID string, target models.WorkflowState) (*models.ProviderBundle, error) {
	ctx, span := tracer.StartSpan(ctx, e.tracer, "workflow.transition",
		attribute.String(tracer.ProviderIDKey, providerID),
		attribute.String(tracer.WorkflowStateKey, string(target)))
	defer span.End()

	bundle, err := e.transition(ctx, principal, providerID, target)
	if err != nil {
		tracer.SetError(span, err, attribute.String(tracer.ProviderIDKey, providerID))
	}

	return bundle, err
}

func (e *Engine) transition(ctx context.Context, principal auth.Principal, providerID string, target models.WorkflowState) (*models.ProviderBundle, error) {
	var bundle *models.ProviderBundle

	for attempt := 0; attempt < saveRetries; attempt++ {
		var err error

		bundle, err = e.persistence.ProviderRepository().GetByID(ctx, providerID)
		if err != nil {
			return nil, err
		}

		from := bundle.State

		if !from.CanTransitionTo(target) {
			return nil, newTransitionError(providerID, from, target, ErrIllegalTransition)
		}

		if err := e.authorizeTransition(ctx, principal, providerID, from, target); err != nil {
			return nil, newTransitionError(providerID, from, target, err)
		}

		bundle.State = target
		if target == models.StateApproved {
			bundle.Active = true
		}

		bundle.Metadata.ModifiedAt = models.EpochString(time.Now())
		bundle.Metadata.ModifiedBy = principal.Email

		err = e.persistence.ProviderRepository().Save(ctx, bundle)
		if err == nil {
			e.publish(ctx, providerID, events.ProviderStateChanged{
				BaseEvent: events.NewBaseEvent(events.ProviderStateChangedEvent, providerID),
				FromState: from,
				ToState:   target,
			})

			return bundle, nil
		}

		if !persistence.IsRevisionConflict(err) {
			return nil, err
		}

		e.logger.WarnContext(ctx, "transition lost optimistic save, retrying",
			"provider_id", providerID, "target", target, "attempt", attempt+1)
	}

	return nil, newTransitionError(providerID, bundle.State, target, ErrConflict)
}

// SetActive flips the availability flag without touching the workflow state.
// Admin only.
func (e *Engine) SetActive(ctx context.Context, principal auth.Principal, providerID string, active bool) (*models.ProviderBundle, error) {
	if !principal.IsAdmin() {
		return nil, fmt.Errorf("set active for provider %s: %w", providerID, ErrForbidden)
	}

	for attempt := 0; attempt < saveRetries; attempt++ {
		bundle, err := e.persistence.ProviderRepository().GetByID(ctx, providerID)
		if err != nil {
			return nil, err
		}

		bundle.Active = active
		bundle.Metadata.ModifiedAt = models.EpochString(time.Now())
		bundle.Metadata.ModifiedBy = principal.Email

		err = e.persistence.ProviderRepository().Save(ctx, bundle)
		if err == nil {
			e.publish(ctx, providerID, events.ProviderActiveChanged{
				BaseEvent: events.NewBaseEvent(events.ProviderActiveChangedEvent, providerID),
				Active:    active,
			})

			return bundle, nil
		}

		if !persistence.IsRevisionConflict(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("set active for provider %s: %w", providerID, ErrConflict)
}

// CanAddServiceTemplate reports whether the principal may register a service
// for the provider right now. Approved and active providers may always add
// services; a provider awaiting its template may add exactly one.
func (e *Engine) CanAddServiceTemplate(ctx context.Context, principal auth.Principal, providerID string) (bool, error) {
	bundle, err := e.persistence.ProviderRepository().GetByID(ctx, providerID)
	if err != nil {
		return false, err
	}

	// The duplicate-template conflict surfaces no matter who asks.
	if bundle.State == models.StateTemplateSubmission {
		existing, err := e.persistence.ServiceRepository().List(ctx, persistence.ServiceFilter{MainProvider: providerID})
		if err != nil {
			return false, err
		}

		if len(existing) > 0 {
			return false, fmt.Errorf("provider %s: %w", providerID, ErrTemplateExists)
		}
	}

	if !principal.IsAdmin() {
		ok, err := e.authorizer.IsProviderAdmin(ctx, principal, providerID)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, fmt.Errorf("add service for provider %s: %w", providerID, ErrForbidden)
		}
	}

	switch {
	case bundle.State == models.StateApproved && bundle.Active:
		return true, nil
	case bundle.State == models.StateTemplateSubmission:
		return true, nil
	default:
		return false, nil
	}
}

// AddServiceTemplate registers a service on behalf of its main provider.
// When the provider is still awaiting its template, the new service becomes
// the template and the provider advances to template approval.
func (e *Engine) AddServiceTemplate(ctx context.Context, principal auth.Principal, service *models.Service) (*models.ServiceBundle, error) {
	if service.MainProvider == "" {
		return nil, fmt.Errorf("%w: service has no main provider", ErrValidation)
	}

	ok, err := e.CanAddServiceTemplate(ctx, principal, service.MainProvider)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("add service for provider %s: %w", service.MainProvider, ErrIllegalTransition)
	}

	provider, err := e.persistence.ProviderRepository().GetByID(ctx, service.MainProvider)
	if err != nil {
		return nil, err
	}

	service.ID = identifier.ForService(service.MainProvider, service.Name)

	if err := e.validate.Struct(service); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	now := models.EpochString(time.Now())
	bundle := &models.ServiceBundle{
		Bundle: models.Bundle[*models.Service]{
			Payload: service,
			Metadata: models.Metadata{
				RegisteredAt: now,
				ModifiedAt:   now,
				RegisteredBy: principal.Email,
				ModifiedBy:   principal.Email,
			},
			Status: models.StatusPublished,
		},
		Template: provider.State == models.StateTemplateSubmission,
	}

	if err := e.persistence.ServiceRepository().Save(ctx, bundle); err != nil {
		if persistence.IsDuplicateTemplate(err) {
			return nil, fmt.Errorf("provider %s: %w", service.MainProvider, ErrTemplateExists)
		}

		return nil, err
	}

	if provider.State == models.StateTemplateSubmission {
		if _, err := e.Transition(ctx, principal, service.MainProvider, models.StatePendingTemplateApproval); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}

// authorizeTransition enforces who may take which edge. The admin role
// covers every edge; provider administrators may only submit their own
// template for review.
func (e *Engine) authorizeTransition(ctx context.Context, principal auth.Principal, providerID string, from, to models.WorkflowState) error {
	if principal.IsAdmin() {
		return nil
	}

	if from == models.StateTemplateSubmission && to == models.StatePendingTemplateApproval {
		ok, err := e.authorizer.IsProviderAdmin(ctx, principal, providerID)
		if err != nil {
			return err
		}

		if ok {
			return nil
		}
	}

	return ErrForbidden
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish lifecycle event",
			"provider_id", key, "event_type", event.GetType(), "error", err)
	}
}
