// Package approval provides the human approval node. It suspends the
// execution until the request resolves, then routes the flow down the
// "approved" or "rejected" branch.
package approval

import (
	"context"
	"fmt"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/template"
)

const (
	BranchApproved = "approved"
	BranchRejected = "rejected"
)

type ApprovalNode struct {
	id                string
	approvals         protocol.ApprovalService
	message           string
	mode              models.ApprovalMode
	requiredApprovers int
	expiresInMinutes  int
}

func NewApprovalNode(id string, config map[string]any, approvals protocol.ApprovalService) (*ApprovalNode, error) {
	if approvals == nil {
		return nil, fmt.Errorf("approval node '%s' requires an approval service", id)
	}

	node := &ApprovalNode{
		id:                id,
		approvals:         approvals,
		message:           "Approval required",
		mode:              models.ApprovalModeAny,
		requiredApprovers: 1,
	}

	if message, ok := config["message"].(string); ok && message != "" {
		node.message = message
	}

	if mode, ok := config["approvalMode"].(string); ok && mode != "" {
		node.mode = models.ApprovalMode(mode)
	}

	if required := intConfig(config, "requiredApprovers", 0); required > 0 {
		node.requiredApprovers = required
	}

	node.expiresInMinutes = intConfig(config, "expiresInMinutes", 0)

	return node, nil
}

// Execute follows the canonical three-way check for suspending nodes:
// a resume payload completes the node; an existing unresolved request
// re-suspends without creating a duplicate; otherwise a new request is
// created and the node suspends.
func (n *ApprovalNode) Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	if data, ok := ectx.ResumeData(); ok {
		return n.completeFromResume(data)
	}

	existing, err := n.approvals.PendingRequest(ctx, ectx.ExecutionID, n.id)
	if err != nil {
		return models.Failuref("look up approval request: %v", err)
	}

	if existing != nil {
		if existing.Resolved() {
			return n.completeFromRequest(existing)
		}

		return n.suspend(existing)
	}

	message := n.message
	if template.NeedsTemplating(message) {
		rendered, err := template.RenderWithContext(message, &ectx)
		if err != nil {
			return models.Failuref("render approval message: %v", err)
		}

		message = fmt.Sprintf("%v", rendered)
	}

	created, err := n.approvals.CreateRequest(ctx, protocol.CreateApprovalRequest{
		ExecutionID:       ectx.ExecutionID,
		NodeID:            n.id,
		Message:           message,
		RequiredApprovers: n.requiredApprovers,
		Mode:              n.mode,
		ExpiresInMinutes:  n.expiresInMinutes,
	})
	if err != nil {
		return models.Failuref("create approval request: %v", err)
	}

	return n.suspend(created)
}

func (n *ApprovalNode) suspend(req *models.ApprovalRequest) models.ExecutionResult {
	return models.Suspend(
		"waiting for approval",
		map[string]any{
			"type":       "approval",
			"approvalId": req.ID,
			"mode":       string(req.Mode),
		},
		map[string]any{
			"approvalId": req.ID,
			"message":    req.Message,
			"status":     string(req.Status),
		},
	)
}

// completeFromResume finishes the node from an injected resume payload. The
// payload's status overrides whatever the stored request says.
func (n *ApprovalNode) completeFromResume(data map[string]any) models.ExecutionResult {
	resume, err := models.ParseApprovalResume(data)
	if err != nil {
		return models.Failure(err.Error())
	}

	return n.route(resume.Status == models.ApprovalStatusApproved, map[string]any{
		"approvalId": resume.ApprovalID,
		"status":     string(resume.Status),
		"comment":    resume.Comment,
		"approvedBy": resume.ApprovedBy,
		"rejectedBy": resume.RejectedBy,
	})
}

// completeFromRequest finishes the node from an already-resolved stored
// request. Expiry and cancellation count as rejection.
func (n *ApprovalNode) completeFromRequest(req *models.ApprovalRequest) models.ExecutionResult {
	return n.route(req.Status == models.ApprovalStatusApproved, map[string]any{
		"approvalId": req.ID,
		"status":     string(req.Status),
		"comment":    req.Comment,
		"approvedBy": req.ApprovedBy,
		"rejectedBy": req.RejectedBy,
	})
}

func (n *ApprovalNode) route(approved bool, output map[string]any) models.ExecutionResult {
	branch := BranchRejected
	if approved {
		branch = BranchApproved
	}

	output["approved"] = approved

	return models.SuccessWithBranches(output, branch)
}

func (n *ApprovalNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *ApprovalNode) Descriptor() models.InterfaceDescriptor {
	return models.InterfaceDescriptor{
		Inputs: []models.PortSpec{{Name: models.BranchMain, Type: "any"}},
		Outputs: []models.PortSpec{
			{Name: BranchApproved, Type: "any", Description: "Taken when the request resolves approved"},
			{Name: BranchRejected, Type: "any", Description: "Taken when the request resolves rejected, expired, or cancelled"},
		},
	}
}

func (n *ApprovalNode) IsTrigger() bool { return false }

func (n *ApprovalNode) SupportsAsync() bool { return true }

func intConfig(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
