package models

// JSONSchema describes the declarative configuration contract of a node type.
// It is served to UI clients and enforced by the registry through
// gojsonschema before a node instance is created.
type JSONSchema struct {
	Type        string               `json:"type"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// Property is one field of a JSONSchema.
type Property struct {
	Type        string               `json:"type"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Format      string               `json:"format,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Maximum     *float64             `json:"maximum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// PortSpec describes one input or output of a node type.
type PortSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// InterfaceDescriptor declares the inputs a node consumes and the output
// branches it can select among.
type InterfaceDescriptor struct {
	Inputs  []PortSpec `json:"inputs"`
	Outputs []PortSpec `json:"outputs"`
}

// DefaultInterface is the single-input, single-output shape most nodes use.
func DefaultInterface() InterfaceDescriptor {
	return InterfaceDescriptor{
		Inputs:  []PortSpec{{Name: BranchMain, Type: "any"}},
		Outputs: []PortSpec{{Name: BranchMain, Type: "any"}},
	}
}

// RegisteredComponent is the registry's public view of a node type.
type RegisteredComponent struct {
	Type        string              `json:"type"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Schema      *JSONSchema         `json:"schema"`
	Interface   InterfaceDescriptor `json:"interface"`
}
