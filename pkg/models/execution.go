// Package models defines the core domain models for node-based workflow automation.
package models

import (
	"encoding/json"
	"sync"
	"time"
)

// ExecutionStatus represents the lifecycle state of a flow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// Reserved global-context keys. Nodes detect a resume (rather than a fresh
// invocation) by the presence of ResumeDataKey; sub-workflow nesting is
// bounded through SubflowDepthKey.
const (
	ResumeDataKey   = "_resumeData"
	SubflowDepthKey = "_subflowDepth"
	LastErrorKey    = "_lastError"
)

// Execution is one in-flight run of a flow. Status transitions are the only
// mutations after creation; archival of terminal executions happens outside
// the engine.
type Execution struct {
	ID          string          `json:"id"`
	FlowID      string          `json:"flow_id"`
	UserID      string          `json:"user_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`

	// Global is the per-execution mutable key/value store visible to every
	// node in the run.
	Global *GlobalContext `json:"global,omitempty"`

	// NodeOutputs holds the recorded output of every completed node, keyed by
	// node ID. Restored on resume so downstream nodes see upstream results.
	NodeOutputs map[string]map[string]any `json:"node_outputs,omitempty"`

	// Pause bookkeeping, set only while Status is paused.
	WaitingNodeID   string         `json:"waiting_node_id,omitempty"`
	PauseReason     string         `json:"pause_reason,omitempty"`
	ResumeCondition map[string]any `json:"resume_condition,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  int64      `json:"duration_ms,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// GlobalContext is the execution-scoped shared store. It is mutated
// concurrently by nodes running on different worker goroutines, so all access
// goes through the lock.
type GlobalContext struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewGlobalContext(seed map[string]any) *GlobalContext {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}

	return &GlobalContext{values: values}
}

func (g *GlobalContext) Get(key string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.values[key]

	return v, ok
}

func (g *GlobalContext) Set(key string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.values[key] = value
}

func (g *GlobalContext) Delete(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.values, key)
}

// Int returns the value under key coerced to int, or fallback when the key is
// absent or not numeric.
func (g *GlobalContext) Int(key string, fallback int) int {
	v, ok := g.Get(key)
	if !ok {
		return fallback
	}

	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// MarshalJSON serializes the current values, so executions round-trip
// through JSON-backed stores.
func (g *GlobalContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Snapshot())
}

func (g *GlobalContext) UnmarshalJSON(data []byte) error {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	if values == nil {
		values = make(map[string]any)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.values = values

	return nil
}

// Snapshot returns a shallow copy of the current values.
func (g *GlobalContext) Snapshot() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]any, len(g.values))
	for k, v := range g.values {
		out[k] = v
	}

	return out
}
