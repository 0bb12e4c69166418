package condition

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// ConditionNodeFactory creates ConditionNode instances.
type ConditionNodeFactory struct{}

func NewConditionNodeFactory() protocol.NodeFactory {
	return &ConditionNodeFactory{}
}

func (f *ConditionNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewConditionNode(id, config)
}

func (f *ConditionNodeFactory) ID() string {
	return "condition"
}

func (f *ConditionNodeFactory) Name() string {
	return "Condition"
}

func (f *ConditionNodeFactory) Description() string {
	return "Evaluates a templated expression and routes the flow down the true or false branch"
}

func (f *ConditionNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

// Interface declares the two-way branch shape for flow editors.
func (f *ConditionNodeFactory) Interface() models.InterfaceDescriptor {
	node := ConditionNode{}

	return node.Descriptor()
}

func configSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Condition",
		Properties: map[string]*models.Property{
			"condition": {
				Type:        "string",
				Description: "Templated expression evaluated against the execution context. Booleans, non-empty strings, and non-zero numbers are truthy.",
			},
		},
		Required: []string{"condition"},
	}
}
