package cmd

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/weftwork/weft/pkg/channels/kafka"
	"github.com/weftwork/weft/pkg/eventbus"
)

// NewEventBus selects the event transport. Kafka connects the distributed
// deployment; the in-process channel serves single-binary runs and local
// development.
func NewEventBus(provider, brokers, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, brokers, serviceName)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		channel := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)

		return eventbus.NewWatermillEventBus(channel, channel), nil
	}
}
