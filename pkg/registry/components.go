package registry

import (
	"github.com/weftwork/weft/pkg/models"
)

// InterfaceProvider is an optional factory upgrade for node kinds whose port
// shape differs from the single-in single-out default.
type InterfaceProvider interface {
	Interface() models.InterfaceDescriptor
}

// Components returns the public metadata view of every registered node type,
// served by the API for flow editors.
func (r *Registry) Components() []*models.RegisteredComponent {
	factories := r.GetAvailableNodes()

	components := make([]*models.RegisteredComponent, 0, len(factories))

	for _, factory := range factories {
		descriptor := models.DefaultInterface()
		if provider, ok := factory.(InterfaceProvider); ok {
			descriptor = provider.Interface()
		}

		components = append(components, &models.RegisteredComponent{
			Type:        factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
			Interface:   descriptor,
		})
	}

	return components
}
