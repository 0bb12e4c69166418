// Package condition provides the conditional branching node: it evaluates a
// templated expression and routes the flow down the "true" or "false" branch.
package condition

import (
	"context"
	"errors"
	"strconv"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/template"
)

const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

type ConditionNode struct {
	id        string
	condition string
}

func NewConditionNode(id string, config map[string]any) (*ConditionNode, error) {
	condition, ok := config["condition"].(string)
	if !ok {
		return nil, errors.New("missing required field 'condition'")
	}

	return &ConditionNode{
		id:        id,
		condition: condition,
	}, nil
}

func (n *ConditionNode) Execute(_ context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	rendered, err := template.RenderWithContext(n.condition, &ectx)
	if err != nil {
		return models.Failuref("condition evaluation failed: %v", err)
	}

	branch := BranchFalse
	if truthy(rendered) {
		branch = BranchTrue
	}

	return models.SuccessWithBranches(map[string]any{
		"condition_result": branch == BranchTrue,
		"evaluated_value":  rendered,
	}, branch)
}

// truthy converts a rendered template value to a boolean.
func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int, int64, int32:
		return v != 0
	case float64:
		return v != 0.0
	case float32:
		return v != 0.0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}

func (n *ConditionNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *ConditionNode) Descriptor() models.InterfaceDescriptor {
	return models.InterfaceDescriptor{
		Inputs: []models.PortSpec{{Name: models.BranchMain, Type: "any"}},
		Outputs: []models.PortSpec{
			{Name: BranchTrue, Type: "any", Description: "Taken when the condition is truthy"},
			{Name: BranchFalse, Type: "any", Description: "Taken when the condition is falsy"},
		},
	}
}

func (n *ConditionNode) IsTrigger() bool { return false }

func (n *ConditionNode) SupportsAsync() bool { return false }
