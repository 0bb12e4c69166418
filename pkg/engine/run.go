package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/weftwork/weft/pkg/events"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// frontierItem is one pending node activation: the node to run and the data
// arriving on its input.
type frontierItem struct {
	nodeID string
	input  map[string]any
}

// Run executes a flow from its entry nodes until it completes, fails,
// suspends, or is cancelled.
func (e *Engine) Run(ctx context.Context, execution *models.Execution, flow *models.Flow) error {
	e.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, flow.ID),
		ExecutionID: execution.ID,
		UserID:      execution.UserID,
		TriggerData: execution.TriggerData,
	})

	return e.run(ctx, execution, flow, "")
}

// run walks the graph starting either at the entry nodes or, on resume, at
// the previously waiting node. The waiting node receives its recorded input
// again plus the resume payload through the global context.
func (e *Engine) run(ctx context.Context, execution *models.Execution, flow *models.Flow, resumeNodeID string) error {
	logger := e.logger.With(
		"execution_id", execution.ID,
		"flow_id", flow.ID,
	)

	var frontier []frontierItem

	if resumeNodeID != "" {
		frontier = []frontierItem{{nodeID: resumeNodeID, input: execution.TriggerData}}
	} else {
		for _, node := range flow.EntryNodes() {
			frontier = append(frontier, frontierItem{nodeID: node.ID, input: execution.TriggerData})
		}
	}

	executed := 0

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			logger.Info("Execution cancelled")
			e.finalize(ctx, execution, models.ExecutionStatusCancelled, "")

			return nil
		}

		item := frontier[0]
		frontier = frontier[1:]

		node := flow.NodeByID(item.nodeID)
		if node == nil {
			message := fmt.Sprintf("node '%s' not found in flow '%s'", item.nodeID, flow.ID)
			e.fail(ctx, execution, flow, item.nodeID, message, executed)

			return fmt.Errorf("%s", message)
		}

		if !node.Enabled {
			logger.Debug("Node disabled, passing through", "node_id", node.ID)

			next := e.successors(flow, node.ID, nil, item.input)
			frontier = append(frontier, next...)

			continue
		}

		executed++
		if executed > maxNodeExecutions {
			message := fmt.Sprintf("flow '%s' exceeded %d node executions", flow.ID, maxNodeExecutions)
			e.fail(ctx, execution, flow, node.ID, message, executed)

			return fmt.Errorf("%w: %s", ErrNodeExecutionBudget, message)
		}

		result, duration := e.executeNode(ctx, execution, flow, node, item.input)

		// A resume payload is consumed by exactly one node invocation.
		isResume := resumeNodeID != "" && node.ID == resumeNodeID && !result.IsSuspended()
		if isResume {
			execution.Global.Delete(models.ResumeDataKey)
		}

		switch {
		case result.IsSuspended():
			execution.Status = models.ExecutionStatusPaused
			execution.WaitingNodeID = node.ID
			execution.PauseReason = result.PauseReason
			execution.ResumeCondition = result.ResumeCondition
			// Keep the node's input so a resume can replay it.
			execution.TriggerData = item.input

			if result.PartialOutput != nil {
				execution.NodeOutputs[node.ID] = result.PartialOutput
			}

			if err := e.executions.SaveExecution(ctx, execution); err != nil {
				return fmt.Errorf("save paused execution: %w", err)
			}

			logger.Info("Execution paused",
				"node_id", node.ID, "reason", result.PauseReason)

			e.publish(ctx, execution.ID, events.ExecutionPaused{
				BaseEvent:       e.baseEvent(events.ExecutionPausedEvent, flow.ID),
				ExecutionID:     execution.ID,
				NodeID:          node.ID,
				PauseReason:     result.PauseReason,
				ResumeCondition: fmt.Sprintf("%v", result.ResumeCondition),
			})

			return nil

		case result.IsFailure():
			errorConns := flow.ConnectionsFrom(node.ID, models.BranchError)

			e.publish(ctx, execution.ID, events.NodeFailed{
				BaseEvent:   e.baseEvent(events.NodeFailedEvent, flow.ID),
				ExecutionID: execution.ID,
				NodeID:      node.ID,
				NodeType:    node.Type,
				Error:       result.Error,
				Recovered:   len(errorConns) > 0,
				DurationMs:  duration.Milliseconds(),
			})

			if len(errorConns) == 0 {
				e.fail(ctx, execution, flow, node.ID, result.Error, executed)

				return fmt.Errorf("node '%s' failed: %s", node.ID, result.Error)
			}

			logger.Warn("Node failed, routing error branch",
				"node_id", node.ID, "error", result.Error)

			errorInput := map[string]any{
				models.LastErrorKey: map[string]any{
					"node_id": node.ID,
					"message": result.Error,
				},
			}
			execution.Global.Set(models.LastErrorKey, result.Error)

			for _, conn := range errorConns {
				frontier = append(frontier, frontierItem{nodeID: conn.TargetNode, input: errorInput})
			}

		default:
			execution.NodeOutputs[node.ID] = result.Output

			e.publish(ctx, execution.ID, events.NodeFinished{
				BaseEvent:   e.baseEvent(events.NodeFinishedEvent, flow.ID),
				ExecutionID: execution.ID,
				NodeID:      node.ID,
				NodeType:    node.Type,
				Branches:    result.Branches,
				OutputData:  result.Output,
				DurationMs:  duration.Milliseconds(),
			})

			next := e.successors(flow, node.ID, result.Branches, result.Output)
			frontier = append(frontier, next...)
		}

		if err := e.executions.SaveExecution(ctx, execution); err != nil {
			return fmt.Errorf("save execution: %w", err)
		}
	}

	e.finalize(ctx, execution, models.ExecutionStatusCompleted, "")
	logger.Info("Execution completed", "nodes_executed", executed)

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:     e.baseEvent(events.ExecutionCompletedEvent, flow.ID),
		ExecutionID:   execution.ID,
		DurationMs:    execution.DurationMs,
		NodesExecuted: executed,
		FinalOutputs:  e.leafOutputs(flow, execution),
	})

	return nil
}

// executeNode runs one node inside a span, converting panics into failure
// results so a misbehaving handler cannot take down the worker.
func (e *Engine) executeNode(
	ctx context.Context,
	execution *models.Execution,
	flow *models.Flow,
	node *models.FlowNode,
	input map[string]any,
) (result models.ExecutionResult, duration time.Duration) {
	spanCtx, span := otelhelper.StartSpan(ctx, e.tracer, "node."+node.Type,
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.FlowIDKey, flow.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	started := time.Now()

	defer func() {
		duration = time.Since(started)

		if r := recover(); r != nil {
			result = models.Failuref("node panicked: %v", r)
			otelhelper.SetError(span, fmt.Errorf("node panicked: %v", r))
		}
	}()

	handler, err := e.registry.CreateNode(spanCtx, node.Type, node.ID, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.Failuref("create node '%s': %v", node.ID, err), time.Since(started)
	}

	ectx := models.ExecutionContext{
		ExecutionID:     execution.ID,
		FlowID:          flow.ID,
		NodeID:          node.ID,
		NodeType:        node.Type,
		UserID:          execution.UserID,
		Input:           input,
		Config:          node.Config,
		Global:          execution.Global,
		PreviousOutputs: execution.NodeOutputs,
	}

	result = handler.Execute(spanCtx, ectx)
	if result.IsFailure() {
		otelhelper.SetError(span, fmt.Errorf("%s", result.Error))
	}

	return result, time.Since(started)
}

// successors expands a node's outcome into new frontier items. Nil branches
// means the default branch.
func (e *Engine) successors(flow *models.Flow, nodeID string, branches []string, output map[string]any) []frontierItem {
	if len(branches) == 0 {
		branches = []string{models.BranchMain}
	}

	var items []frontierItem

	for _, branch := range branches {
		for _, conn := range flow.ConnectionsFrom(nodeID, branch) {
			items = append(items, frontierItem{nodeID: conn.TargetNode, input: output})
		}
	}

	return items
}

func (e *Engine) fail(ctx context.Context, execution *models.Execution, flow *models.Flow, nodeID, message string, executed int) {
	e.finalize(ctx, execution, models.ExecutionStatusFailed, message)

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:     e.baseEvent(events.ExecutionFailedEvent, flow.ID),
		ExecutionID:   execution.ID,
		NodeID:        nodeID,
		Error:         message,
		DurationMs:    execution.DurationMs,
		NodesExecuted: executed,
	})
}

// leafOutputs collects the recorded outputs of nodes with no outgoing
// connections: the results of the run.
func (e *Engine) leafOutputs(flow *models.Flow, execution *models.Execution) map[string]any {
	hasOutgoing := make(map[string]bool, len(flow.Connections))
	for _, conn := range flow.Connections {
		hasOutgoing[conn.SourceNode] = true
	}

	outputs := make(map[string]any)

	for _, node := range flow.Nodes {
		if hasOutgoing[node.ID] {
			continue
		}

		if out, ok := execution.NodeOutputs[node.ID]; ok {
			outputs[node.ID] = out
		}
	}

	return outputs
}
