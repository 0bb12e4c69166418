package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalContext(t *testing.T) {
	global := NewGlobalContext(map[string]any{"tenant": "acme"})

	v, ok := global.Get("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	global.Set("attempt", 2)
	assert.Equal(t, 2, global.Int("attempt", 0))
	assert.Equal(t, 7, global.Int("missing", 7))

	global.Delete("attempt")
	_, ok = global.Get("attempt")
	assert.False(t, ok)
}

func TestGlobalContext_SnapshotIsolation(t *testing.T) {
	global := NewGlobalContext(map[string]any{"a": 1})

	snapshot := global.Snapshot()
	snapshot["a"] = 99

	v, _ := global.Get("a")
	assert.Equal(t, 1, v)
}

func TestExecution_JSONRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	execution := &Execution{
		ID:          "exec-1",
		FlowID:      "flow-1",
		Status:      ExecutionStatusPaused,
		TriggerData: map[string]any{"order": "ord-1"},
		Global:      NewGlobalContext(map[string]any{"tenant": "acme"}),
		NodeOutputs: map[string]map[string]any{
			"fetch": {"status": "ok"},
		},
		WaitingNodeID:   "gate",
		PauseReason:     "waiting for approval",
		ResumeCondition: map[string]any{"type": "approval", "approvalId": "req-1"},
		StartedAt:       started,
	}

	encoded, err := json.Marshal(execution)
	require.NoError(t, err)

	var decoded Execution
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, execution.ID, decoded.ID)
	assert.Equal(t, ExecutionStatusPaused, decoded.Status)
	assert.Equal(t, "gate", decoded.WaitingNodeID)
	assert.Equal(t, "ok", decoded.NodeOutputs["fetch"]["status"])

	tenant, ok := decoded.Global.Get("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", tenant)
}

func TestGlobalContext_UnmarshalNull(t *testing.T) {
	var global GlobalContext

	require.NoError(t, json.Unmarshal([]byte("null"), &global))

	global.Set("k", "v")

	v, ok := global.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
