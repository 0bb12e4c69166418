// Package subflow provides the sub-workflow node: it starts a nested
// execution of another flow, either fire-and-forget or waiting for the child
// to finish. Nesting depth is bounded to keep recursive flows from running
// away.
package subflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/template"
)

// MaxDepth is the hard cap on sub-workflow nesting. The guard bounds depth
// only; it does not detect A->B->A cycles by identity.
const MaxDepth = 10

// ErrRecursionLimit is returned when starting a child would exceed MaxDepth.
var ErrRecursionLimit = errors.New("recursion limit exceeded")

const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

type SubflowNode struct {
	id           string
	executions   protocol.ExecutionService
	flowID       string
	mode         string
	timeout      time.Duration
	inputMapping map[string]any

	pollInterval time.Duration
}

func NewSubflowNode(id string, config map[string]any, executions protocol.ExecutionService) (*SubflowNode, error) {
	if executions == nil {
		return nil, fmt.Errorf("subflow node '%s' requires an execution service", id)
	}

	flowID, ok := config["flowId"].(string)
	if !ok || flowID == "" {
		return nil, errors.New("missing required field 'flowId'")
	}

	node := &SubflowNode{
		id:           id,
		executions:   executions,
		flowID:       flowID,
		mode:         ModeSync,
		timeout:      60 * time.Second,
		pollInterval: time.Second,
	}

	if mode, ok := config["mode"].(string); ok && mode != "" {
		if mode != ModeSync && mode != ModeAsync {
			return nil, fmt.Errorf("invalid mode '%s' (must be sync or async)", mode)
		}

		node.mode = mode
	}

	if seconds := intConfig(config, "timeoutSeconds", 0); seconds > 0 {
		node.timeout = time.Duration(seconds) * time.Second
	}

	if mapping, ok := config["inputMapping"].(map[string]any); ok {
		node.inputMapping = mapping
	}

	return node, nil
}

func (n *SubflowNode) Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	depth := 0
	if ectx.Global != nil {
		depth = ectx.Global.Int(models.SubflowDepthKey, 0)
	}

	if depth >= MaxDepth {
		return models.Failuref("%s: depth %d reached invoking flow '%s'", ErrRecursionLimit, depth, n.flowID)
	}

	input, err := n.childInput(ectx, depth+1)
	if err != nil {
		return models.Failuref("map sub-workflow input: %v", err)
	}

	childID, err := n.executions.StartExecution(ctx, n.flowID, ectx.UserID, input)
	if err != nil {
		return models.Failuref("start sub-workflow '%s': %v", n.flowID, err)
	}

	if n.mode == ModeAsync {
		return models.Success(map[string]any{
			"childExecutionId": childID,
			"status":           "triggered",
		})
	}

	return n.await(ctx, childID)
}

// childInput builds the child's trigger data: a per-field template mapping
// when configured, otherwise the node input passed through unchanged. The
// incremented depth always rides along.
func (n *SubflowNode) childInput(ectx models.ExecutionContext, depth int) (map[string]any, error) {
	input := make(map[string]any)

	if n.inputMapping == nil {
		for k, v := range ectx.Input {
			input[k] = v
		}
	} else {
		for field, expr := range n.inputMapping {
			text, ok := expr.(string)
			if !ok || !template.NeedsTemplating(text) {
				input[field] = expr

				continue
			}

			rendered, err := template.RenderWithContext(text, &ectx)
			if err != nil {
				return nil, fmt.Errorf("field '%s': %w", field, err)
			}

			input[field] = rendered
		}
	}

	input[models.SubflowDepthKey] = depth

	return input, nil
}

// await polls the child's status until it reaches a terminal state or the
// configured timeout passes. A timed-out parent stops waiting and fails;
// the child keeps running.
func (n *SubflowNode) await(ctx context.Context, childID string) models.ExecutionResult {
	started := time.Now()
	deadline := started.Add(n.timeout)

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		status, err := n.executions.ExecutionStatus(ctx, childID)
		if err != nil {
			return models.Failuref("poll sub-workflow execution '%s': %v", childID, err)
		}

		switch status {
		case models.ExecutionStatusCompleted:
			return models.Success(map[string]any{
				"childExecutionId": childID,
				"status":           string(status),
				"duration_ms":      time.Since(started).Milliseconds(),
			})
		case models.ExecutionStatusFailed, models.ExecutionStatusCancelled:
			return models.Failuref("sub-workflow '%s' (execution %s) %s", n.flowID, childID, status)
		}

		if time.Now().After(deadline) {
			return models.Failuref("sub-workflow '%s' (execution %s) timed out after %s", n.flowID, childID, n.timeout)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return models.Failuref("sub-workflow wait interrupted: %v", ctx.Err())
		}
	}
}

func (n *SubflowNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *SubflowNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *SubflowNode) IsTrigger() bool { return false }

func (n *SubflowNode) SupportsAsync() bool { return true }

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
