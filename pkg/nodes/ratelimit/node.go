// Package ratelimit provides the rate limiter node: sliding-window admission
// control over the flow path it sits on.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/ratelimit"
	"github.com/weftwork/weft/pkg/template"
)

type RateLimitNode struct {
	id          string
	limiter     *ratelimit.Limiter
	maxRequests int
	window      time.Duration
	mode        ratelimit.Mode
	keyTemplate string
}

func NewRateLimitNode(id string, config map[string]any, limiter *ratelimit.Limiter) (*RateLimitNode, error) {
	if limiter == nil {
		return nil, fmt.Errorf("rate limit node '%s' requires a limiter", id)
	}

	node := &RateLimitNode{
		id:          id,
		limiter:     limiter,
		maxRequests: intConfig(config, "maxRequests", 10),
		window:      time.Duration(intConfig(config, "windowMs", 60000)) * time.Millisecond,
	}

	mode, _ := config["mode"].(string)
	node.mode = ratelimit.ParseMode(mode)

	if key, ok := config["key"].(string); ok {
		node.keyTemplate = key
	}

	return node, nil
}

func (n *RateLimitNode) Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	key, err := n.resolveKey(ectx)
	if err != nil {
		return models.Failuref("resolve rate limit key: %v", err)
	}

	decision, err := n.limiter.Acquire(ctx, key, n.maxRequests, n.window, n.mode)
	if err != nil {
		return models.Failure(err.Error())
	}

	output := make(map[string]any, len(ectx.Input)+3)
	for k, v := range ectx.Input {
		output[k] = v
	}

	output["dropped"] = decision.Dropped
	output["current_rate"] = decision.CurrentRate
	output["max_rate"] = decision.MaxRate

	if decision.Waited > 0 {
		output["waited_ms"] = decision.Waited.Milliseconds()
	}

	return models.Success(output)
}

// resolveKey renders the configured key template, defaulting to one window
// per (execution, node) pair.
func (n *RateLimitNode) resolveKey(ectx models.ExecutionContext) (string, error) {
	if n.keyTemplate == "" {
		return ectx.ExecutionID + ":" + n.id, nil
	}

	if !template.NeedsTemplating(n.keyTemplate) {
		return n.keyTemplate, nil
	}

	rendered, err := template.RenderWithContext(n.keyTemplate, &ectx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%v", rendered), nil
}

func (n *RateLimitNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *RateLimitNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *RateLimitNode) IsTrigger() bool { return false }

func (n *RateLimitNode) SupportsAsync() bool { return false }

func intConfig(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
