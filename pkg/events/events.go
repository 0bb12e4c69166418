// Package events defines the lifecycle notifications published while flows
// execute.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const ExecutionTopic = "weft.executions" // Execution lifecycle events
const NodeTopic = "weft.nodes"           // Per-node completion events

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Node events.
	NodeFinishedEvent EventType = "node.finished"
	NodeFailedEvent   EventType = "node.failed"

	// Human interaction events.
	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalResolvedEvent  EventType = "approval.resolved"
)

// Event is implemented by every message published on the bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	UserID      string         `json:"user_id,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string         `json:"execution_id"`
	DurationMs    int64          `json:"duration_ms"`
	NodesExecuted int            `json:"nodes_executed"`
	FinalOutputs  map[string]any `json:"final_outputs,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	NodeID        string `json:"node_id,omitempty"`
	Error         string `json:"error"`
	DurationMs    int64  `json:"duration_ms"`
	NodesExecuted int    `json:"nodes_executed"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionPaused struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	NodeID          string `json:"node_id"`
	PauseReason     string `json:"pause_reason"`
	ResumeCondition string `json:"resume_condition,omitempty"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	ResumeData  map[string]any `json:"resume_data,omitempty"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type NodeFinished struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	NodeType    string         `json:"node_type"`
	Branches    []string       `json:"branches,omitempty"`
	OutputData  map[string]any `json:"output_data,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
}

func (e NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}

type NodeFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
	Error       string `json:"error"`
	Recovered   bool   `json:"recovered"` // true when an error branch absorbed the failure
	DurationMs  int64  `json:"duration_ms"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

type ApprovalRequested struct {
	BaseEvent

	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	RequestID   string    `json:"request_id"`
	Approvers   []string  `json:"approvers,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

func (e ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

type ApprovalResolved struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
}

func (e ApprovalResolved) GetType() EventType {
	return ApprovalResolvedEvent
}
