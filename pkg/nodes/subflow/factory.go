package subflow

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// SubflowNodeFactory creates SubflowNode instances bound to one execution
// service.
type SubflowNodeFactory struct {
	executions protocol.ExecutionService
}

func NewSubflowNodeFactory(executions protocol.ExecutionService) protocol.NodeFactory {
	return &SubflowNodeFactory{executions: executions}
}

func (f *SubflowNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewSubflowNode(id, config, f.executions)
}

func (f *SubflowNodeFactory) ID() string {
	return "subflow"
}

func (f *SubflowNodeFactory) Name() string {
	return "Sub-workflow"
}

func (f *SubflowNodeFactory) Description() string {
	return "Starts a nested execution of another flow, fire-and-forget or waiting for it to finish"
}

func (f *SubflowNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

func configSchema() *models.JSONSchema {
	minimum := func(v float64) *float64 { return &v }

	return &models.JSONSchema{
		Type:  "object",
		Title: "Sub-workflow",
		Properties: map[string]*models.Property{
			"flowId": {
				Type:        "string",
				Description: "Flow to start as the child execution",
			},
			"mode": {
				Type:        "string",
				Description: "sync waits for the child to finish; async returns immediately",
				Enum:        []any{ModeSync, ModeAsync},
				Default:     ModeSync,
			},
			"timeoutSeconds": {
				Type:        "integer",
				Description: "How long sync mode waits before giving up",
				Default:     60,
				Minimum:     minimum(1),
			},
			"inputMapping": {
				Type:        "object",
				Description: "Per-field templated mapping for the child's input. Omit to pass the node input through unchanged.",
			},
		},
		Required: []string{"flowId"},
	}
}
