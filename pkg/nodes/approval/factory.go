package approval

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// ApprovalNodeFactory creates ApprovalNode instances bound to one approval
// service.
type ApprovalNodeFactory struct {
	approvals protocol.ApprovalService
}

func NewApprovalNodeFactory(approvals protocol.ApprovalService) protocol.NodeFactory {
	return &ApprovalNodeFactory{approvals: approvals}
}

func (f *ApprovalNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewApprovalNode(id, config, f.approvals)
}

func (f *ApprovalNodeFactory) ID() string {
	return "approval"
}

func (f *ApprovalNodeFactory) Name() string {
	return "Approval"
}

func (f *ApprovalNodeFactory) Description() string {
	return "Pauses the execution until a human approves or rejects, then routes down the matching branch"
}

func (f *ApprovalNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

// Interface declares the approved/rejected branch shape for flow editors.
func (f *ApprovalNodeFactory) Interface() models.InterfaceDescriptor {
	node := ApprovalNode{}

	return node.Descriptor()
}

func configSchema() *models.JSONSchema {
	minimum := func(v float64) *float64 { return &v }

	return &models.JSONSchema{
		Type:  "object",
		Title: "Approval",
		Properties: map[string]*models.Property{
			"message": {
				Type:        "string",
				Description: "Prompt shown to approvers. Supports templating.",
				Default:     "Approval required",
			},
			"approvalMode": {
				Type:        "string",
				Description: "How votes resolve the request",
				Enum:        []any{"any", "all", "majority"},
				Default:     "any",
			},
			"requiredApprovers": {
				Type:        "integer",
				Description: "Number of approvers the mode counts against",
				Default:     1,
				Minimum:     minimum(1),
			},
			"expiresInMinutes": {
				Type:        "integer",
				Description: "Deadline after which the request expires. Zero means no deadline.",
				Default:     0,
			},
		},
	}
}
