// Package transform provides a node that reshapes data with a templated
// expression.
package transform

import (
	"context"
	"errors"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/template"
)

type TransformNode struct {
	id         string
	expression string
}

func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{
		id:         id,
		expression: expression,
	}, nil
}

func (n *TransformNode) Execute(_ context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	rendered, err := template.RenderWithContext(n.expression, &ectx)
	if err != nil {
		return models.Failuref("transform expression failed: %v", err)
	}

	// A JSON-object expression becomes the output as-is; scalars are wrapped.
	if out, ok := rendered.(map[string]any); ok {
		return models.Success(out)
	}

	return models.Success(map[string]any{"result": rendered})
}

func (n *TransformNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *TransformNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *TransformNode) IsTrigger() bool { return false }

func (n *TransformNode) SupportsAsync() bool { return false }
