package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/opencatalog/registrar/pkg/channels/gochannel"
	"github.com/opencatalog/registrar/pkg/channels/kafka"
	"github.com/opencatalog/registrar/pkg/eventbus"
)

// InProcess reports whether the provider names the in-memory channel. That
// channel never crosses a process boundary, so whoever publishes on it must
// also host the consumers.
func InProcess(provider string) bool {
	switch provider {
	case "gochannel", "memory", "":
		return true
	default:
		return false
	}
}

// NewEventBus creates the lifecycle event bus. Kafka for multi-process
// deployments, the in-memory channel for single-process ones.
func NewEventBus(provider, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel", "memory", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}
