package retry

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// RetryNodeFactory creates RetryNode instances.
type RetryNodeFactory struct{}

func NewRetryNodeFactory() protocol.NodeFactory {
	return &RetryNodeFactory{}
}

func (f *RetryNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewRetryNode(id, config)
}

func (f *RetryNodeFactory) ID() string {
	return "retry"
}

func (f *RetryNodeFactory) Name() string {
	return "Retry"
}

func (f *RetryNodeFactory) Description() string {
	return "Wired onto an error branch, waits a configurable backoff and routes the flow back for another attempt until the retry budget is exhausted"
}

func (f *RetryNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

func configSchema() *models.JSONSchema {
	minimum := func(v float64) *float64 { return &v }

	return &models.JSONSchema{
		Type:  "object",
		Title: "Retry",
		Properties: map[string]*models.Property{
			"maxRetries": {
				Type:        "integer",
				Description: "Attempts allowed before giving up",
				Default:     3,
				Minimum:     minimum(1),
			},
			"initialDelayMs": {
				Type:        "integer",
				Description: "Base delay before the first retry, in milliseconds",
				Default:     1000,
				Minimum:     minimum(0),
			},
			"backoffStrategy": {
				Type:        "string",
				Description: "How the delay grows between attempts",
				Enum:        []any{"fixed", "linear", "exponential", "jitter"},
				Default:     "exponential",
			},
			"multiplier": {
				Type:        "number",
				Description: "Growth factor for the exponential strategies",
				Default:     2.0,
			},
			"maxDelayMs": {
				Type:        "integer",
				Description: "Upper bound on a single computed delay, in milliseconds",
				Default:     30000,
			},
		},
	}
}
