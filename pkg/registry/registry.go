// Package registry holds node factory registration and config validation.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/weftwork/weft/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNodeNotRegistered is returned when a flow references a node type the
// registry does not know.
var ErrNodeNotRegistered = errors.New("node type not registered")

// ErrInvalidConfig is returned when a node's configuration fails its schema.
var ErrInvalidConfig = errors.New("invalid node configuration")

type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	factories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[string]protocol.NodeFactory),
	}
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
}

// CreateNode validates config against the factory's schema and builds a
// handler instance for one node of a flow.
func (r *Registry) CreateNode(
	ctx context.Context,
	nodeType string,
	nodeID string,
	config map[string]any,
) (protocol.NodeHandler, error) {
	r.mu.RLock()
	factory, ok := r.factories[nodeType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNodeNotRegistered, nodeType)
	}

	if err := validateConfig(factory, config); err != nil {
		return nil, err
	}

	return factory.Create(ctx, nodeID, config)
}

// GetAvailableNodes returns every registered factory, sorted by type ID.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeFactory, 0, len(r.factories))
	for _, factory := range r.factories {
		factories = append(factories, factory)
	}

	sort.Slice(factories, func(i, j int) bool {
		return factories[i].ID() < factories[j].ID()
	})

	return factories
}

func (r *Registry) IsNodeRegistered(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[nodeType]

	return exists
}

func validateConfig(factory protocol.NodeFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema for '%s': %w", factory.ID(), err)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("validate config for '%s': %w", factory.ID(), err)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}

		return fmt.Errorf("%w for '%s': %s", ErrInvalidConfig, factory.ID(), strings.Join(reasons, "; "))
	}

	return nil
}
