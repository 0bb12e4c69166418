package httprequest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/weftwork/weft/pkg/dispatch"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// HTTPRequestNodeFactory creates HTTPRequestNode instances sharing one
// dispatcher and HTTP client.
type HTTPRequestNodeFactory struct {
	dispatcher *dispatch.Dispatcher
}

func NewHTTPRequestNodeFactory(logger *slog.Logger, client *http.Client) (protocol.NodeFactory, error) {
	dispatcher, err := NewDispatcher(logger, client)
	if err != nil {
		return nil, err
	}

	return &HTTPRequestNodeFactory{dispatcher: dispatcher}, nil
}

func (f *HTTPRequestNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeHandler, error) {
	return NewHTTPRequestNode(id, config, f.dispatcher)
}

func (f *HTTPRequestNodeFactory) ID() string {
	return "httprequest"
}

func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestNodeFactory) Description() string {
	return "Performs HTTP requests (GET, POST, PUT, DELETE) with templated URL, headers, and body"
}

// Schema narrows the dispatcher schema: the resource selector is fixed, only
// the operation must be supplied.
func (f *HTTPRequestNodeFactory) Schema() *models.JSONSchema {
	schema := f.dispatcher.Schema()
	schema.Title = "HTTP Request"
	schema.Required = []string{"operation"}

	return schema
}
