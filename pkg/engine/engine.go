// Package engine runs flow executions: it walks the node graph, routes
// branch outcomes, persists suspensions, and resumes paused runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weftwork/weft/pkg/eventbus"
	"github.com/weftwork/weft/pkg/events"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/registry"
	"github.com/weftwork/weft/pkg/store"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	ErrExecutionNotPaused  = errors.New("execution is not paused")
	ErrExecutionTerminal   = errors.New("execution already finished")
	ErrFlowNotExecutable   = errors.New("flow has no nodes to execute")
	ErrNodeExecutionBudget = errors.New("node execution budget exceeded")
)

// maxNodeExecutions bounds one run so a cyclic graph cannot spin forever.
const maxNodeExecutions = 1000

type Config struct {
	Registry   *registry.Registry
	Flows      protocol.FlowResolver
	Executions store.ExecutionStore
	Approvals  store.ApprovalStore
	Bus        eventbus.EventPublisher
	Tracer     trace.Tracer
	Logger     *slog.Logger
	WorkerID   string
}

type Engine struct {
	registry   *registry.Registry
	flows      protocol.FlowResolver
	executions store.ExecutionStore
	approvals  store.ApprovalStore
	bus        eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger
	workerID   string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		registry:   cfg.Registry,
		flows:      cfg.Flows,
		executions: cfg.Executions,
		approvals:  cfg.Approvals,
		bus:        cfg.Bus,
		tracer:     tracer,
		logger:     logger.With("module", "engine"),
		workerID:   cfg.WorkerID,
		cancels:    make(map[string]context.CancelFunc),
	}
}

var _ protocol.ExecutionService = (*Engine)(nil)

// StartExecution creates an execution for the flow and runs it on a new
// goroutine. The returned id can be polled through ExecutionStatus.
func (e *Engine) StartExecution(ctx context.Context, flowID, userID string, input map[string]any) (string, error) {
	flow, err := e.flows.FlowByID(ctx, flowID)
	if err != nil {
		return "", fmt.Errorf("resolve flow '%s': %w", flowID, err)
	}

	if len(flow.Nodes) == 0 {
		return "", fmt.Errorf("%w: '%s'", ErrFlowNotExecutable, flowID)
	}

	seed := make(map[string]any, len(flow.Variables))
	for k, v := range flow.Variables {
		seed[k] = v
	}

	// Sub-workflow invokers pass the parent depth through the trigger input;
	// it must survive into the child's global context.
	if depth, ok := input[models.SubflowDepthKey]; ok {
		seed[models.SubflowDepthKey] = depth
	}

	execution := &models.Execution{
		ID:          "exec-" + uuid.New().String(),
		FlowID:      flowID,
		UserID:      userID,
		Status:      models.ExecutionStatusRunning,
		TriggerData: input,
		Global:      models.NewGlobalContext(seed),
		NodeOutputs: make(map[string]map[string]any),
		StartedAt:   time.Now().UTC(),
	}

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return "", fmt.Errorf("save execution: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.cancels[execution.ID] = cancel
	e.mu.Unlock()

	go func() {
		defer e.release(execution.ID)

		if err := e.Run(runCtx, execution, flow); err != nil {
			e.logger.Error("Execution finished with error",
				"execution_id", execution.ID, "error", err)
		}
	}()

	return execution.ID, nil
}

// ExecutionStatus returns the current lifecycle status of an execution.
func (e *Engine) ExecutionStatus(ctx context.Context, executionID string) (models.ExecutionStatus, error) {
	execution, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		return "", err
	}

	return execution.Status, nil
}

// Resume unblocks a paused execution. The resume payload is injected into the
// global context under the reserved resume key, consumed by the waiting node,
// and cleared once that node finishes.
func (e *Engine) Resume(ctx context.Context, executionID string, resumeData map[string]any) error {
	execution, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status != models.ExecutionStatusPaused {
		return fmt.Errorf("%w: '%s' is %s", ErrExecutionNotPaused, executionID, execution.Status)
	}

	flow, err := e.flows.FlowByID(ctx, execution.FlowID)
	if err != nil {
		return fmt.Errorf("resolve flow '%s': %w", execution.FlowID, err)
	}

	waitingNodeID := execution.WaitingNodeID

	execution.Status = models.ExecutionStatusRunning
	execution.WaitingNodeID = ""
	execution.PauseReason = ""
	execution.ResumeCondition = nil

	if execution.Global == nil {
		execution.Global = models.NewGlobalContext(nil)
	}

	if resumeData == nil {
		resumeData = map[string]any{}
	}

	execution.Global.Set(models.ResumeDataKey, resumeData)

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("save execution: %w", err)
	}

	e.publish(ctx, execution.ID, events.ExecutionResumed{
		BaseEvent:   e.baseEvent(events.ExecutionResumedEvent, execution.FlowID),
		ExecutionID: execution.ID,
		NodeID:      waitingNodeID,
		ResumeData:  resumeData,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.cancels[execution.ID] = cancel
	e.mu.Unlock()

	go func() {
		defer e.release(execution.ID)

		if err := e.run(runCtx, execution, flow, waitingNodeID); err != nil {
			e.logger.Error("Resumed execution finished with error",
				"execution_id", execution.ID, "error", err)
		}
	}()

	return nil
}

// Cancel stops an execution. An in-process run is interrupted at the next
// node boundary; a paused one is finalized directly. Pending approval
// requests of the execution are cancelled with it.
func (e *Engine) Cancel(ctx context.Context, executionID, reason, cancelledBy string) error {
	execution, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return fmt.Errorf("%w: '%s' is %s", ErrExecutionTerminal, executionID, execution.Status)
	}

	e.mu.Lock()
	cancel, running := e.cancels[executionID]
	e.mu.Unlock()

	if running {
		cancel()
	}

	e.finalize(ctx, execution, models.ExecutionStatusCancelled, "")

	if e.approvals != nil {
		if err := e.approvals.CancelRequests(ctx, executionID); err != nil {
			e.logger.Warn("Failed to cancel approval requests",
				"execution_id", executionID, "error", err)
		}
	}

	e.publish(ctx, execution.ID, events.ExecutionCancelled{
		BaseEvent:   e.baseEvent(events.ExecutionCancelledEvent, execution.FlowID),
		ExecutionID: execution.ID,
		Reason:      reason,
		CancelledBy: cancelledBy,
		DurationMs:  execution.DurationMs,
	})

	return nil
}

func (e *Engine) release(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cancel, ok := e.cancels[executionID]; ok {
		cancel()
		delete(e.cancels, executionID)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, flowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, flowID)
	base.WorkerID = e.workerID

	return base
}

func (e *Engine) publish(ctx context.Context, key string, event events.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) finalize(ctx context.Context, execution *models.Execution, status models.ExecutionStatus, errMessage string) {
	now := time.Now().UTC()

	execution.Status = status
	execution.CompletedAt = &now
	execution.DurationMs = now.Sub(execution.StartedAt).Milliseconds()
	execution.Error = errMessage
	execution.WaitingNodeID = ""
	execution.PauseReason = ""
	execution.ResumeCondition = nil

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		e.logger.Error("Failed to save finished execution",
			"execution_id", execution.ID, "error", err)
	}
}
