// Package httprequest provides a multi-operation HTTP node. Operations are
// declared through the dispatch framework: the node carries only the selected
// operation and its raw parameters, validation and routing happen at execute
// time.
package httprequest

import (
	"context"
	"errors"
	"fmt"

	"github.com/weftwork/weft/pkg/dispatch"
	"github.com/weftwork/weft/pkg/models"
)

const resourceRequest = "request"

// HTTPRequestNode performs one HTTP call per invocation. A failed or non-2xx
// request produces a failure result, which the engine routes down an error
// edge when one exists.
type HTTPRequestNode struct {
	id         string
	operation  string
	params     map[string]any
	dispatcher *dispatch.Dispatcher
}

func NewHTTPRequestNode(id string, config map[string]any, dispatcher *dispatch.Dispatcher) (*HTTPRequestNode, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("http request node '%s' requires a dispatcher", id)
	}

	operation, ok := config["operation"].(string)
	if !ok || operation == "" {
		return nil, errors.New("missing required field 'operation'")
	}

	params := make(map[string]any, len(config))

	for k, v := range config {
		if k == "operation" || k == "resource" {
			continue
		}

		params[k] = v
	}

	return &HTTPRequestNode{
		id:         id,
		operation:  operation,
		params:     params,
		dispatcher: dispatcher,
	}, nil
}

func (n *HTTPRequestNode) Execute(ctx context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	return n.dispatcher.Dispatch(ctx, ectx, resourceRequest, n.operation, n.params, nil)
}

func (n *HTTPRequestNode) ConfigSchema() *models.JSONSchema {
	return n.dispatcher.Schema()
}

func (n *HTTPRequestNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *HTTPRequestNode) IsTrigger() bool { return false }

func (n *HTTPRequestNode) SupportsAsync() bool { return false }
