// Package main provides the Weft background worker: it runs schedule-triggered
// flows, expires overdue approvals, and reports execution lifecycle events.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/weftwork/weft/pkg/engine"
	"github.com/weftwork/weft/pkg/eventbus"
	"github.com/weftwork/weft/pkg/events"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/otelhelper"
	"github.com/weftwork/weft/pkg/registry"
	"github.com/weftwork/weft/pkg/store"
	"go.opentelemetry.io/otel/trace"
)

// scheduleMetadataKey is the flow metadata entry holding a cron expression.
const scheduleMetadataKey = "schedule"

type Worker struct {
	id     string
	logger *slog.Logger
	store  store.Store
	engine *engine.Engine
	bus    eventbus.EventBus
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]string
}

func NewWorker(ctx context.Context, workerID string, logger *slog.Logger, st store.Store, bus eventbus.EventBus, tracing bool) (*Worker, error) {
	var tracer trace.Tracer

	if tracing {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "weft-worker")
		if err != nil {
			return nil, err
		}
	}

	reg := registry.NewRegistry(logger)
	eng := engine.NewEngine(engine.Config{
		Registry:   reg,
		Flows:      st,
		Executions: st,
		Approvals:  st,
		Bus:        bus,
		Tracer:     tracer,
		Logger:     logger,
		WorkerID:   workerID,
	})

	err := reg.RegisterDefaults(registry.Dependencies{
		Approvals:  st,
		Forms:      st,
		Executions: eng,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Worker{
		id:      workerID,
		logger:  logger,
		store:   st,
		engine:  eng,
		bus:     bus,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
	}, nil
}

// Start runs until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.registerEventHandlers()

	if err := w.bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe to event bus: %w", err)
	}

	w.syncSchedules(ctx)
	w.expireApprovals(ctx)

	_, err := w.cron.AddFunc("@every 1m", func() {
		w.syncSchedules(ctx)
		w.expireApprovals(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.InfoContext(ctx, "Worker started")

	<-ctx.Done()

	stopped := w.cron.Stop()
	<-stopped.Done()

	return nil
}

func (w *Worker) registerEventHandlers() {
	_ = w.bus.Handle(events.ExecutionCompletedEvent, func(ctx context.Context, event any) error {
		if e, ok := event.(*events.ExecutionCompleted); ok {
			w.logger.InfoContext(ctx, "Execution completed",
				"execution_id", e.ExecutionID, "flow_id", e.FlowID, "duration_ms", e.DurationMs)
		}

		return nil
	})

	_ = w.bus.Handle(events.ExecutionFailedEvent, func(ctx context.Context, event any) error {
		if e, ok := event.(*events.ExecutionFailed); ok {
			w.logger.WarnContext(ctx, "Execution failed",
				"execution_id", e.ExecutionID, "flow_id", e.FlowID, "node_id", e.NodeID, "error", e.Error)
		}

		return nil
	})

	_ = w.bus.Handle(events.ExecutionPausedEvent, func(ctx context.Context, event any) error {
		if e, ok := event.(*events.ExecutionPaused); ok {
			w.logger.InfoContext(ctx, "Execution paused",
				"execution_id", e.ExecutionID, "node_id", e.NodeID, "reason", e.PauseReason)
		}

		return nil
	})
}

// syncSchedules reconciles cron entries with the published flows carrying a
// schedule. Changed expressions are re-registered, removed flows unscheduled.
func (w *Worker) syncSchedules(ctx context.Context) {
	flows, err := w.store.Flows(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list flows for scheduling", "error", err)

		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(flows))

	for _, flow := range flows {
		if flow.Status != models.FlowStatusPublished {
			continue
		}

		spec, ok := flow.Metadata[scheduleMetadataKey].(string)
		if !ok || spec == "" {
			continue
		}

		seen[flow.ID] = true

		if w.specs[flow.ID] == spec {
			continue
		}

		if entryID, exists := w.entries[flow.ID]; exists {
			w.cron.Remove(entryID)
		}

		flowID := flow.ID

		entryID, err := w.cron.AddFunc(spec, func() {
			w.runScheduled(ctx, flowID)
		})
		if err != nil {
			w.logger.WarnContext(ctx, "Invalid schedule expression",
				"flow_id", flow.ID, "schedule", spec, "error", err)

			continue
		}

		w.entries[flow.ID] = entryID
		w.specs[flow.ID] = spec

		w.logger.InfoContext(ctx, "Scheduled flow", "flow_id", flow.ID, "schedule", spec)
	}

	for flowID, entryID := range w.entries {
		if !seen[flowID] {
			w.cron.Remove(entryID)
			delete(w.entries, flowID)
			delete(w.specs, flowID)

			w.logger.InfoContext(ctx, "Unscheduled flow", "flow_id", flowID)
		}
	}
}

func (w *Worker) runScheduled(ctx context.Context, flowID string) {
	executionID, err := w.engine.StartExecution(ctx, flowID, "", map[string]any{"scheduled": true})
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to start scheduled execution", "flow_id", flowID, "error", err)

		return
	}

	w.logger.InfoContext(ctx, "Started scheduled execution", "flow_id", flowID, "execution_id", executionID)
}

// expireApprovals marks overdue approval requests expired and resumes their
// paused executions with the outcome.
func (w *Worker) expireApprovals(ctx context.Context) {
	expired, err := w.store.ExpireOverdue(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to expire approvals", "error", err)

		return
	}

	for _, request := range expired {
		w.logger.InfoContext(ctx, "Approval request expired",
			"request_id", request.ID, "execution_id", request.ExecutionID)

		resumeData := map[string]any{
			"approvalStatus": string(models.ApprovalStatusExpired),
			"approvalId":     request.ID,
		}

		err := w.engine.Resume(ctx, request.ExecutionID, resumeData)
		if err != nil && !errors.Is(err, engine.ErrExecutionNotPaused) {
			w.logger.ErrorContext(ctx, "Failed to resume execution after expiry",
				"execution_id", request.ExecutionID, "error", err)
		}
	}
}
