package models

import "time"

// FlowStatus represents the lifecycle state of a flow definition.
type FlowStatus string

const (
	FlowStatusDraft     FlowStatus = "draft"     // Editable, not executable
	FlowStatusPublished FlowStatus = "published" // Executable
)

// Flow is a node-based workflow definition: a graph of typed nodes wired by
// named-branch connections.
type Flow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      FlowStatus     `json:"status"      validate:"required"`
	Nodes       []*FlowNode    `json:"nodes"       validate:"required,min=1,dive"`
	Connections []*Connection  `json:"connections" validate:"dive"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FlowNode is one node instance in a flow.
type FlowNode struct {
	ID      string         `json:"id"      validate:"required"`
	Type    string         `json:"type"    validate:"required"`
	Name    string         `json:"name"    validate:"required,min=1"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}

// Branch names used by convention across node handlers. A node may declare
// additional branches (e.g. "approved"/"rejected") in its interface
// descriptor.
const (
	BranchMain  = "main"
	BranchError = "error"
)

// Connection wires a source node's output branch to a target node's input.
type Connection struct {
	ID           string `json:"id"`
	SourceNode   string `json:"source_node"   validate:"required"`
	SourceBranch string `json:"source_branch" validate:"required"`
	TargetNode   string `json:"target_node"   validate:"required"`
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// ConnectionsFrom returns the connections leaving the given node on the given
// branch.
func (f *Flow) ConnectionsFrom(nodeID, branch string) []*Connection {
	var out []*Connection

	for _, c := range f.Connections {
		if c.SourceNode == nodeID && c.SourceBranch == branch {
			out = append(out, c)
		}
	}

	return out
}

// EntryNodes returns the nodes with no incoming connections: the starting
// frontier of a run.
func (f *Flow) EntryNodes() []*FlowNode {
	hasIncoming := make(map[string]bool, len(f.Nodes))
	for _, c := range f.Connections {
		hasIncoming[c.TargetNode] = true
	}

	var entries []*FlowNode

	for _, n := range f.Nodes {
		if !hasIncoming[n.ID] {
			entries = append(entries, n)
		}
	}

	return entries
}

// UpstreamNodes returns the IDs of nodes with a connection into the given
// node, in declaration order.
func (f *Flow) UpstreamNodes(nodeID string) []string {
	var out []string

	for _, c := range f.Connections {
		if c.TargetNode == nodeID {
			out = append(out, c.SourceNode)
		}
	}

	return out
}
