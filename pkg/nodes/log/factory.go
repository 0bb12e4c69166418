package log

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// LogNodeFactory creates LogNode instances.
type LogNodeFactory struct{}

func NewLogNodeFactory() protocol.NodeFactory {
	return &LogNodeFactory{}
}

func (f *LogNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewLogNode(id, config)
}

func (f *LogNodeFactory) ID() string {
	return "log"
}

func (f *LogNodeFactory) Name() string {
	return "Log"
}

func (f *LogNodeFactory) Description() string {
	return "Logs messages at different levels (debug, info, warn, error) with template support for dynamic content"
}

func (f *LogNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

func configSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Log",
		Properties: map[string]*models.Property{
			"message": {
				Type:        "string",
				Description: "Message to log. Supports templating with execution context data.",
			},
			"level": {
				Type:        "string",
				Description: "Log level for the message",
				Enum:        []any{"debug", "info", "warn", "error"},
				Default:     "info",
			},
		},
		Required: []string{"message"},
	}
}
