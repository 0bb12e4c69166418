package ratelimit

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/ratelimit"
)

// RateLimitNodeFactory creates RateLimitNode instances sharing one limiter,
// so windows with the same key are shared across executions within a worker.
type RateLimitNodeFactory struct {
	limiter *ratelimit.Limiter
}

func NewRateLimitNodeFactory(limiter *ratelimit.Limiter) protocol.NodeFactory {
	if limiter == nil {
		limiter = ratelimit.NewLimiter()
	}

	return &RateLimitNodeFactory{limiter: limiter}
}

func (f *RateLimitNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewRateLimitNode(id, config, f.limiter)
}

func (f *RateLimitNodeFactory) ID() string {
	return "ratelimit"
}

func (f *RateLimitNodeFactory) Name() string {
	return "Rate Limit"
}

func (f *RateLimitNodeFactory) Description() string {
	return "Sliding-window admission control: delays, drops, or rejects calls past the configured rate"
}

func (f *RateLimitNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

func configSchema() *models.JSONSchema {
	minimum := func(v float64) *float64 { return &v }

	return &models.JSONSchema{
		Type:  "object",
		Title: "Rate Limit",
		Properties: map[string]*models.Property{
			"maxRequests": {
				Type:        "integer",
				Description: "Admissions allowed inside one window",
				Default:     10,
				Minimum:     minimum(1),
			},
			"windowMs": {
				Type:        "integer",
				Description: "Window length in milliseconds",
				Default:     60000,
				Minimum:     minimum(1),
			},
			"mode": {
				Type:        "string",
				Description: "What to do when the window is full",
				Enum:        []any{"delay", "drop", "error"},
				Default:     "delay",
			},
			"key": {
				Type:        "string",
				Description: "Window key, templated. Defaults to one window per execution and node.",
			},
		},
	}
}
