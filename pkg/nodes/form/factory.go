package form

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// FormNodeFactory creates FormNode instances bound to one form service.
type FormNodeFactory struct {
	forms protocol.FormService
}

func NewFormNodeFactory(forms protocol.FormService) protocol.NodeFactory {
	return &FormNodeFactory{forms: forms}
}

func (f *FormNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewFormNode(id, config, f.forms)
}

func (f *FormNodeFactory) ID() string {
	return "form"
}

func (f *FormNodeFactory) Name() string {
	return "Form"
}

func (f *FormNodeFactory) Description() string {
	return "Pauses the execution until a user submits the requested form data"
}

func (f *FormNodeFactory) Schema() *models.JSONSchema {
	return configSchema()
}

func configSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Form",
		Properties: map[string]*models.Property{
			"title": {
				Type:        "string",
				Description: "Heading shown above the form. Supports templating.",
				Default:     "Input required",
			},
			"fields": {
				Type:        "array",
				Description: "Field descriptors rendered by the form UI",
				Items:       &models.Property{Type: "object"},
			},
		},
	}
}
