package notification

import (
	"context"
	"log/slog"

	"github.com/opencatalog/registrar/pkg/eventbus"
	"github.com/opencatalog/registrar/pkg/events"
	"github.com/opencatalog/registrar/pkg/persistence"
)

// Worker consumes lifecycle events and drives the dispatcher. Handlers
// always ack: a notification that cannot be produced is logged and dropped,
// never redelivered against an already-changed bundle.
type Worker struct {
	bus         eventbus.EventBus
	persistence persistence.Persistence
	dispatcher  *Dispatcher
	logger      *slog.Logger
}

func NewWorker(bus eventbus.EventBus, p persistence.Persistence, dispatcher *Dispatcher, logger *slog.Logger) *Worker {
	return &Worker{
		bus:         bus,
		persistence: p,
		dispatcher:  dispatcher,
		logger:      logger.With("module", "notification_worker"),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	for _, eventType := range []events.EventType{
		events.ProviderRegisteredEvent,
		events.ProviderStateChangedEvent,
		events.ProviderActiveChangedEvent,
	} {
		if err := w.bus.Handle(eventType, w.handle); err != nil {
			return err
		}
	}

	return w.bus.Subscribe(ctx)
}

func (w *Worker) handle(ctx context.Context, event any) error {
	providerID := providerIDOf(event)
	if providerID == "" {
		w.logger.WarnContext(ctx, "event without provider id", "event", event)

		return nil
	}

	bundle, err := w.persistence.ProviderRepository().GetByID(ctx, providerID)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to load provider for notification",
			"provider_id", providerID, "error", err)

		return nil
	}

	w.dispatcher.NotifyTransition(ctx, bundle)

	return nil
}

func providerIDOf(event any) string {
	switch e := event.(type) {
	case *events.ProviderRegistered:
		return e.ProviderID
	case *events.ProviderStateChanged:
		return e.ProviderID
	case *events.ProviderActiveChanged:
		return e.ProviderID
	default:
		return ""
	}
}
