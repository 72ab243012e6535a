// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/channels/gochannel"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/channels/kafka"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill"
)

const serviceName = "crmflow"

// NewEventBus builds the bus action events are published to. provider is
// "gochannel", "kafka" (brokers from KAFKA_BROKERS) or "none".
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "none":
		return eventbus.Nop{}, nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.ParseBrokers(os.Getenv("KAFKA_BROKERS")), serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
