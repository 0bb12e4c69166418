// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"

	"github.com/weftwork/weft/pkg/models"
)

// NodeHandler is the contract every node implements. The engine calls Execute
// with an execution context and inspects the result's status to decide
// whether to advance, branch, suspend the execution, or fail it.
//
// Execute must never panic across the boundary and must not retain the
// execution context beyond the call. Failures are reported through the
// result, not an error return, so the engine can route them down error
// branches.
type NodeHandler interface {
	Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult

	// ConfigSchema returns the declarative field list used for UI rendering
	// and config validation.
	ConfigSchema() *models.JSONSchema

	// Descriptor declares the node's input ports and output branches.
	Descriptor() models.InterfaceDescriptor

	// IsTrigger reports whether this node type starts flows rather than
	// processing data mid-flow.
	IsTrigger() bool

	// SupportsAsync reports whether the node may suspend and be resumed by an
	// external event.
	SupportsAsync() bool
}

// NodeFactory creates node handler instances and provides metadata about the
// node type.
type NodeFactory interface {
	// Create builds a handler for one node instance with the given
	// author-supplied configuration.
	Create(ctx context.Context, id string, config map[string]any) (NodeHandler, error)

	// ID returns the unique type identifier for this node kind.
	ID() string

	// Name returns the human-readable name for this node kind.
	Name() string

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the configuration schema for this node kind.
	Schema() *models.JSONSchema
}
