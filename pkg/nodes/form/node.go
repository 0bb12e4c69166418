// Package form provides the in-flow form node. It suspends the execution
// until a user submits the requested data.
package form

import (
	"context"
	"fmt"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/template"
)

type FormNode struct {
	id     string
	forms  protocol.FormService
	title  string
	fields []any
}

func NewFormNode(id string, config map[string]any, forms protocol.FormService) (*FormNode, error) {
	if forms == nil {
		return nil, fmt.Errorf("form node '%s' requires a form service", id)
	}

	node := &FormNode{
		id:    id,
		forms: forms,
		title: "Input required",
	}

	if title, ok := config["title"].(string); ok && title != "" {
		node.title = title
	}

	if fields, ok := config["fields"].([]any); ok {
		node.fields = fields
	}

	return node, nil
}

// Execute follows the same three-way check as the approval node: resume
// payload wins, then a stored submission, otherwise suspend.
func (n *FormNode) Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	if data, ok := ectx.ResumeData(); ok {
		resume, err := models.ParseFormResume(data)
		if err != nil {
			return models.Failure(err.Error())
		}

		return models.Success(map[string]any{
			"formData":    resume.Data,
			"submittedAt": resume.SubmittedAt,
		})
	}

	submission, err := n.forms.Submission(ctx, ectx.ExecutionID, n.id)
	if err != nil {
		return models.Failuref("look up form submission: %v", err)
	}

	if submission != nil {
		return models.Success(map[string]any{
			"formData":    submission.Data,
			"submittedBy": submission.SubmittedBy,
			"submittedAt": submission.SubmittedAt,
		})
	}

	title := n.title
	if template.NeedsTemplating(title) {
		rendered, err := template.RenderWithContext(title, &ectx)
		if err != nil {
			return models.Failuref("render form title: %v", err)
		}

		title = fmt.Sprintf("%v", rendered)
	}

	return models.Suspend(
		"waiting for form submission",
		map[string]any{
			"type":   "form",
			"nodeId": n.id,
			"title":  title,
			"fields": n.fields,
		},
		nil,
	)
}

func (n *FormNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *FormNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *FormNode) IsTrigger() bool { return false }

func (n *FormNode) SupportsAsync() bool { return true }
