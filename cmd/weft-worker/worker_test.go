package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/eventbus"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/store/memory"
)

func newTestWorker(t *testing.T) (*Worker, *memory.Store) {
	t.Helper()

	mem := memory.NewStore()
	channel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(slog.Default()))
	bus := eventbus.NewWatermillEventBus(channel, channel)

	worker, err := NewWorker(context.Background(), "worker-test", slog.Default(), mem, bus, false)
	require.NoError(t, err)

	return worker, mem
}

func scheduledFlow(id, spec string, status models.FlowStatus) *models.Flow {
	return &models.Flow{
		ID:     id,
		Name:   "scheduled flow",
		Status: status,
		Nodes: []*models.FlowNode{
			{ID: "announce", Type: "log", Name: "announce", Config: map[string]any{"message": "tick"}, Enabled: true},
		},
		Metadata: map[string]any{scheduleMetadataKey: spec},
	}
}

func TestSyncSchedules(t *testing.T) {
	worker, mem := newTestWorker(t)
	ctx := context.Background()

	flow := scheduledFlow("flow-1", "@every 1h", models.FlowStatusPublished)
	require.NoError(t, mem.SaveFlow(ctx, flow))

	worker.syncSchedules(ctx)
	assert.Contains(t, worker.entries, "flow-1")
	assert.Equal(t, "@every 1h", worker.specs["flow-1"])

	// Changed expression is re-registered.
	flow.Metadata[scheduleMetadataKey] = "@every 2h"
	require.NoError(t, mem.SaveFlow(ctx, flow))

	worker.syncSchedules(ctx)
	assert.Equal(t, "@every 2h", worker.specs["flow-1"])
	assert.Len(t, worker.entries, 1)

	// Deleted flow is unscheduled.
	require.NoError(t, mem.DeleteFlow(ctx, "flow-1"))

	worker.syncSchedules(ctx)
	assert.Empty(t, worker.entries)
}

func TestSyncSchedules_SkipsDraftAndInvalid(t *testing.T) {
	worker, mem := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveFlow(ctx, scheduledFlow("draft", "@every 1h", models.FlowStatusDraft)))
	require.NoError(t, mem.SaveFlow(ctx, scheduledFlow("bad-spec", "not a cron line", models.FlowStatusPublished)))

	worker.syncSchedules(ctx)
	assert.Empty(t, worker.entries)
}

func TestRunScheduled(t *testing.T) {
	worker, mem := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveFlow(ctx, scheduledFlow("flow-1", "@every 1h", models.FlowStatusPublished)))

	worker.runScheduled(ctx, "flow-1")

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		executions, err := mem.ExecutionsByFlow(ctx, "flow-1")
		require.NoError(t, err)

		if len(executions) == 1 && executions[0].Status == models.ExecutionStatusCompleted {
			assert.Equal(t, true, executions[0].TriggerData["scheduled"])

			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("scheduled execution never completed")
}

func TestExpireApprovals_NoOverdueRequests(t *testing.T) {
	worker, _ := newTestWorker(t)

	// No pending requests: the sweep is a no-op.
	worker.expireApprovals(context.Background())
}
