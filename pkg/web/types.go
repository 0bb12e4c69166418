// Package web provides the HTTP API for flow management, execution control,
// and human-in-the-loop interactions.
package web

import "github.com/weftwork/weft/pkg/models"

// CreateFlowRequest is the request body for creating a flow. A flow may be
// created with its full graph or empty and filled in later.
type CreateFlowRequest struct {
	Name        string               `json:"name"                  validate:"required,min=3"`
	Description string               `json:"description"`
	Variables   map[string]any       `json:"variables,omitempty"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
	Owner       string               `json:"owner"                 validate:"required"`
	Nodes       []*models.FlowNode   `json:"nodes,omitempty"       validate:"omitempty,dive"`
	Connections []*models.Connection `json:"connections,omitempty" validate:"omitempty,dive"`
}

// UpdateFlowRequest supports partial updates. Nil fields are left unchanged.
type UpdateFlowRequest struct {
	Name        *string              `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string              `json:"description,omitempty"`
	Variables   map[string]any       `json:"variables,omitempty"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
	Nodes       []*models.FlowNode   `json:"nodes,omitempty"       validate:"omitempty,dive"`
	Connections []*models.Connection `json:"connections,omitempty" validate:"omitempty,dive"`
}

// StartExecutionRequest is the request body for triggering a flow run.
type StartExecutionRequest struct {
	Input  map[string]any `json:"input,omitempty"`
	UserID string         `json:"user_id,omitempty"`
}

// ResumeRequest carries the data a paused execution resumes with.
type ResumeRequest struct {
	ResumeData map[string]any `json:"resume_data,omitempty"`
}

// CancelRequest is the request body for cancelling an execution.
type CancelRequest struct {
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

// DecisionRequest records one approver's vote on an approval request.
type DecisionRequest struct {
	Approver string `json:"approver" validate:"required"`
	Approve  *bool  `json:"approve"  validate:"required"`
	Comment  string `json:"comment,omitempty"`
}

// FormSubmitRequest carries the data for a pending in-flow form.
type FormSubmitRequest struct {
	Data        map[string]any `json:"data"  validate:"required"`
	SubmittedBy string         `json:"submitted_by,omitempty"`
}
