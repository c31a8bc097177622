// Package events defines the provider lifecycle events carried from the
// workflow engine to the notification worker.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/opencatalog/registrar/pkg/models"
)

type EventType string

// Topic is the single event stream; messages are keyed by provider id so
// per-provider ordering survives partitioned transports.
const Topic = "registrar.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ProviderRegisteredEvent    EventType = "provider.registered"
	ProviderStateChangedEvent  EventType = "provider.state.changed"
	ProviderActiveChangedEvent EventType = "provider.active.changed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	ProviderID string         `json:"provider_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ProviderRegistered fires when a new provider enters the approval queue.
type ProviderRegistered struct {
	BaseEvent
}

func (p ProviderRegistered) GetType() EventType {
	return ProviderRegisteredEvent
}

// ProviderStateChanged fires after a workflow transition has been committed.
type ProviderStateChanged struct {
	BaseEvent

	FromState models.WorkflowState `json:"from_state"`
	ToState   models.WorkflowState `json:"to_state"`
}

func (p ProviderStateChanged) GetType() EventType {
	return ProviderStateChangedEvent
}

// ProviderActiveChanged fires when the active flag flips, independent of the
// workflow state.
type ProviderActiveChanged struct {
	BaseEvent

	Active bool `json:"active"`
}

func (p ProviderActiveChanged) GetType() EventType {
	return ProviderActiveChangedEvent
}

func NewBaseEvent(eventType EventType, providerID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		ProviderID: providerID,
		Metadata:   make(map[string]any),
	}
}
