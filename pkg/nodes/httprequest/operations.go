package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weftwork/weft/pkg/dispatch"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/template"
)

const maxResponseBytes = 10 << 20

func timeoutBounds() (*float64, *float64) {
	minSeconds, maxSeconds := 1.0, 300.0

	return &minSeconds, &maxSeconds
}

func commonFields() []dispatch.Field {
	minSeconds, maxSeconds := timeoutBounds()

	return []dispatch.Field{
		{
			Name:        "url",
			DisplayName: "URL",
			Description: "Request URL. Supports templating with execution context data.",
			Kind:        dispatch.KindString,
			Required:    true,
		},
		{
			Name:        "headers",
			DisplayName: "Headers",
			Description: "Request headers as a JSON object. Values support templating.",
			Kind:        dispatch.KindTextarea,
		},
		{
			Name:        "timeoutSeconds",
			DisplayName: "Timeout (seconds)",
			Kind:        dispatch.KindInteger,
			Default:     30,
			Min:         minSeconds,
			Max:         maxSeconds,
		},
	}
}

func bodyFields() []dispatch.Field {
	return append(commonFields(),
		dispatch.Field{
			Name:        "body",
			DisplayName: "Body",
			Description: "Request body. Supports templating with execution context data.",
			Kind:        dispatch.KindTextarea,
		},
		dispatch.Field{
			Name:        "contentType",
			DisplayName: "Content Type",
			Kind:        dispatch.KindEnum,
			Options:     []string{"application/json", "text/plain", "application/x-www-form-urlencoded"},
			Default:     "application/json",
		},
	)
}

// NewDispatcher declares the request resource and its operations against the
// given client. One dispatcher serves every node instance.
func NewDispatcher(logger *slog.Logger, client *http.Client) (*dispatch.Dispatcher, error) {
	if client == nil {
		client = &http.Client{}
	}

	d := dispatch.NewDispatcher(logger)
	d.RegisterResource(dispatch.Resource{
		Name:        resourceRequest,
		DisplayName: "HTTP Request",
		Description: "Performs HTTP requests against external services",
	})

	operations := []struct {
		op     dispatch.Operation
		method string
	}{
		{dispatch.Operation{Name: "get", DisplayName: "GET", Resource: resourceRequest, Fields: commonFields()}, http.MethodGet},
		{dispatch.Operation{Name: "delete", DisplayName: "DELETE", Resource: resourceRequest, Fields: commonFields()}, http.MethodDelete},
		{dispatch.Operation{Name: "post", DisplayName: "POST", Resource: resourceRequest, Fields: bodyFields()}, http.MethodPost},
		{dispatch.Operation{Name: "put", DisplayName: "PUT", Resource: resourceRequest, Fields: bodyFields()}, http.MethodPut},
	}

	for _, entry := range operations {
		if err := d.Register(entry.op, requestExecutor(client, entry.method)); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func requestExecutor(client *http.Client, method string) dispatch.Executor {
	return func(ctx context.Context, ectx models.ExecutionContext, params, _ map[string]any) (map[string]any, error) {
		url, err := renderString(params["url"], &ectx)
		if err != nil {
			return nil, fmt.Errorf("render url: %w", err)
		}

		headers, err := renderHeaders(params["headers"], &ectx)
		if err != nil {
			return nil, fmt.Errorf("render headers: %w", err)
		}

		body, err := renderString(params["body"], &ectx)
		if err != nil {
			return nil, fmt.Errorf("render body: %w", err)
		}

		timeout := 30
		if seconds, ok := params["timeoutSeconds"].(int); ok {
			timeout = seconds
		}

		reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()

		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}

		req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}

		if body != "" && req.Header.Get("Content-Type") == "" {
			contentType, _ := params["contentType"].(string)
			if contentType == "" {
				contentType = "application/json"
			}

			req.Header.Set("Content-Type", contentType)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("perform request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("request to %s returned status %d", url, resp.StatusCode)
		}

		return map[string]any{
			"status_code": resp.StatusCode,
			"headers":     flattenHeaders(resp.Header),
			"body":        parseBody(raw, resp.Header.Get("Content-Type")),
		}, nil
	}
}

func renderString(value any, ectx *models.ExecutionContext) (string, error) {
	text, ok := value.(string)
	if !ok || text == "" {
		return "", nil
	}

	if !template.NeedsTemplating(text) {
		return text, nil
	}

	rendered, err := template.RenderWithContext(text, ectx)
	if err != nil {
		return "", err
	}

	if s, ok := rendered.(string); ok {
		return s, nil
	}

	encoded, err := json.Marshal(rendered)
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

func renderHeaders(value any, ectx *models.ExecutionContext) (map[string]string, error) {
	text, err := renderString(value, ectx)
	if err != nil {
		return nil, err
	}

	if text == "" {
		return nil, nil
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(text), &headers); err != nil {
		return nil, fmt.Errorf("headers must be a JSON object of strings: %w", err)
	}

	return headers, nil
}

func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key := range header {
		out[key] = header.Get(key)
	}

	return out
}

// parseBody decodes JSON responses into structured data so downstream nodes
// can address fields; everything else stays a string.
func parseBody(raw []byte, contentType string) any {
	if len(raw) == 0 {
		return ""
	}

	if strings.Contains(contentType, "json") {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}

	return string(raw)
}
