// Package retry provides the retry node: wired onto another node's error
// branch, it counts attempts, sleeps the configured backoff, and routes the
// flow back for another try until the budget is exhausted.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/weftwork/weft/pkg/backoff"
	"github.com/weftwork/weft/pkg/models"
)

// maxSleep bounds a single retry delay regardless of the computed backoff so
// a worker is never blocked longer than this.
const maxSleep = 30 * time.Second

type RetryNode struct {
	id         string
	maxRetries int
	initial    time.Duration
	strategy   backoff.Strategy
	multiplier float64
	maxDelay   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryNode(id string, config map[string]any) (*RetryNode, error) {
	node := &RetryNode{
		id:         id,
		maxRetries: intConfig(config, "maxRetries", 3),
		initial:    time.Duration(intConfig(config, "initialDelayMs", 1000)) * time.Millisecond,
		multiplier: floatConfig(config, "multiplier", 2.0),
		maxDelay:   time.Duration(intConfig(config, "maxDelayMs", 30000)) * time.Millisecond,
		sleep:      sleepCtx,
	}

	strategy, _ := config["backoffStrategy"].(string)
	node.strategy = backoff.ParseStrategy(strategy)

	return node, nil
}

// attemptKey is the global-context slot tracking attempts for one retry node.
func (n *RetryNode) attemptKey() string {
	return "_retryAttempt:" + n.id
}

func (n *RetryNode) Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	attempt := 1
	if ectx.Global != nil {
		attempt = ectx.Global.Int(n.attemptKey(), 0) + 1
	}

	lastError := n.lastError(ectx)

	if attempt > n.maxRetries {
		if ectx.Global != nil {
			ectx.Global.Delete(n.attemptKey())
		}

		return models.Failuref("retry budget exhausted after %d attempts: %s", n.maxRetries, lastError)
	}

	if ectx.Global != nil {
		ectx.Global.Set(n.attemptKey(), attempt)
	}

	delay := backoff.Delay(attempt, n.initial, n.strategy, n.multiplier, n.maxDelay)
	if delay > maxSleep {
		delay = maxSleep
	}

	if err := n.sleep(ctx, delay); err != nil {
		return models.Failuref("retry wait interrupted: %v", err)
	}

	output := map[string]any{
		"_retryAttempt": attempt,
		"delay_ms":      delay.Milliseconds(),
	}

	if lastError != "" {
		output["last_error"] = lastError
	}

	return models.Success(output)
}

func (n *RetryNode) lastError(ectx models.ExecutionContext) string {
	if info, ok := ectx.Input[models.LastErrorKey].(map[string]any); ok {
		if message, ok := info["message"].(string); ok {
			return message
		}
	}

	if ectx.Global != nil {
		if v, ok := ectx.Global.Get(models.LastErrorKey); ok {
			return fmt.Sprintf("%v", v)
		}
	}

	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *RetryNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *RetryNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *RetryNode) IsTrigger() bool { return false }

func (n *RetryNode) SupportsAsync() bool { return false }

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

func floatConfig(config map[string]any, key string, fallback float64) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
