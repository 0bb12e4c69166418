package protocol

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
)

// ExecutionService starts and observes flow executions. The engine implements
// it; sub-workflow nodes consume it to run nested flows.
type ExecutionService interface {
	// StartExecution triggers a run of the given flow and returns the new
	// execution id without waiting for completion.
	StartExecution(ctx context.Context, flowID, userID string, input map[string]any) (string, error)

	// ExecutionStatus returns the current status of an execution.
	ExecutionStatus(ctx context.Context, executionID string) (models.ExecutionStatus, error)
}

// FlowResolver looks up flow definitions.
type FlowResolver interface {
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
}

// ApprovalService is the external collaborator holding pending approval
// requests. Returning (nil, nil) means no request exists for the pair.
type ApprovalService interface {
	PendingRequest(ctx context.Context, executionID, nodeID string) (*models.ApprovalRequest, error)
	CreateRequest(ctx context.Context, req CreateApprovalRequest) (*models.ApprovalRequest, error)
}

// CreateApprovalRequest carries the parameters for a new approval request.
type CreateApprovalRequest struct {
	ExecutionID       string
	NodeID            string
	Message           string
	RequiredApprovers int
	Mode              models.ApprovalMode
	ExpiresInMinutes  int
	Metadata          map[string]any
}

// FormService is the external collaborator holding in-flow form submissions.
// Returning (nil, nil) means no submission exists for the pair.
type FormService interface {
	Submission(ctx context.Context, executionID, nodeID string) (*models.FormSubmission, error)
}
