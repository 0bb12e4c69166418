// Package store abstracts persistence of flows, executions, and human
// interaction records.
package store

import (
	"context"
	"errors"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

var (
	ErrFlowNotFound      = errors.New("flow not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrApprovalNotFound  = errors.New("approval request not found")
	ErrApprovalResolved  = errors.New("approval request already resolved")
)

// FlowStore persists flow definitions.
type FlowStore interface {
	protocol.FlowResolver

	Flows(ctx context.Context) ([]*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
}

// ExecutionStore persists execution state across suspensions and worker
// restarts.
type ExecutionStore interface {
	SaveExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByFlow(ctx context.Context, flowID string) ([]*models.Execution, error)
}

// ApprovalStore persists approval requests and resolves votes under the
// request's mode.
type ApprovalStore interface {
	protocol.ApprovalService

	// Decide records one approver's vote. It is idempotent per approver and
	// returns the request after recomputation.
	Decide(ctx context.Context, requestID, approver string, approve bool, comment string) (*models.ApprovalRequest, error)

	// ExpireOverdue marks every pending request past its deadline as expired
	// and returns the affected requests.
	ExpireOverdue(ctx context.Context) ([]*models.ApprovalRequest, error)

	// CancelRequests cancels all pending requests of one execution.
	CancelRequests(ctx context.Context, executionID string) error

	RequestByID(ctx context.Context, requestID string) (*models.ApprovalRequest, error)
	PendingRequests(ctx context.Context) ([]*models.ApprovalRequest, error)
}

// FormStore persists in-flow form submissions.
type FormStore interface {
	protocol.FormService

	Submit(ctx context.Context, submission *models.FormSubmission) error
}

// Store aggregates the full persistence surface offered by one backend.
type Store interface {
	FlowStore
	ExecutionStore
	ApprovalStore
	FormStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
