package transform

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// TransformNodeFactory creates TransformNode instances.
type TransformNodeFactory struct{}

func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}

func (f *TransformNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewTransformNode(id, config)
}

func (f *TransformNodeFactory) ID() string {
	return "transform"
}

func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

func (f *TransformNodeFactory) Description() string {
	return "Reshapes data using a templated expression; JSON-object results become the node output"
}

func (f *TransformNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

func configSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Transform",
		Properties: map[string]*models.Property{
			"expression": {
				Type:        "string",
				Description: "Templated expression producing the node output. Render a JSON object to set multiple fields.",
			},
		},
		Required: []string{"expression"},
	}
}
