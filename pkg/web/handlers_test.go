package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/engine"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/registry"
	"github.com/weftwork/weft/pkg/store/memory"
	"github.com/weftwork/weft/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()

	mem := memory.NewStore()
	reg := registry.NewRegistry(slog.Default())
	eng := engine.NewEngine(engine.Config{
		Registry:   reg,
		Flows:      mem,
		Executions: mem,
		Approvals:  mem,
		Logger:     slog.Default(),
		WorkerID:   "test-api",
	})

	err := reg.RegisterDefaults(registry.Dependencies{
		Approvals:  mem,
		Forms:      mem,
		Executions: eng,
	})
	require.NoError(t, err)

	app := fiber.New()
	web.NewAPIHandlers(mem, eng, reg).Register(app)

	return app, mem
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	return resp, raw
}

func TestCreateFlow(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    web.CreateFlowRequest
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateFlowRequest{
				Name:        "Order Processing",
				Description: "handles incoming orders",
				Owner:       "ops",
				Variables:   map[string]any{"env": "test"},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "name too short",
			requestBody:    web.CreateFlowRequest{Name: "ab", Owner: "ops"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing owner",
			requestBody:    web.CreateFlowRequest{Name: "Order Processing"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setupTestApp(t)

			resp, raw := doJSON(t, app, http.MethodPost, "/flows/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var flow models.Flow
			require.NoError(t, json.Unmarshal(raw, &flow))
			assert.NotEmpty(t, flow.ID)
			assert.Equal(t, tt.requestBody.Name, flow.Name)
			assert.Equal(t, models.FlowStatusDraft, flow.Status)
		})
	}
}

func TestGetFlow_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/flows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), "flow not found")
}

func TestUpdateFlow(t *testing.T) {
	app, _ := setupTestApp(t)

	_, raw := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{
		Name: "Order Processing", Owner: "ops",
	})

	var flow models.Flow
	require.NoError(t, json.Unmarshal(raw, &flow))

	newName := "Order Fulfilment"

	resp, raw := doJSON(t, app, http.MethodPatch, "/flows/"+flow.ID, web.UpdateFlowRequest{Name: &newName})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Flow
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, newName, updated.Name)
}

func TestDeleteFlow(t *testing.T) {
	app, _ := setupTestApp(t)

	_, raw := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{
		Name: "Order Processing", Owner: "ops",
	})

	var flow models.Flow
	require.NoError(t, json.Unmarshal(raw, &flow))

	resp, _ := doJSON(t, app, http.MethodDelete, "/flows/"+flow.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/flows/"+flow.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishFlow(t *testing.T) {
	app, _ := setupTestApp(t)

	_, raw := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{
		Name:  "Order Processing",
		Owner: "ops",
		Nodes: []*models.FlowNode{
			{ID: "n1", Type: "log", Name: "announce", Config: map[string]any{"message": "hi"}, Enabled: true},
		},
	})

	var flow models.Flow
	require.NoError(t, json.Unmarshal(raw, &flow))

	resp, raw := doJSON(t, app, http.MethodPost, "/flows/"+flow.ID+"/publish", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var published models.Flow
	require.NoError(t, json.Unmarshal(raw, &published))
	assert.Equal(t, models.FlowStatusPublished, published.Status)
}

func TestPublishFlow_RejectsBadGraph(t *testing.T) {
	app, _ := setupTestApp(t)

	// No nodes at all.
	_, raw := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{
		Name: "Empty Flow", Owner: "ops",
	})

	var empty models.Flow
	require.NoError(t, json.Unmarshal(raw, &empty))

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/"+empty.ID+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown node type.
	_, raw = doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{
		Name:  "Bad Types",
		Owner: "ops",
		Nodes: []*models.FlowNode{
			{ID: "n1", Type: "teleport", Name: "n1", Enabled: true},
		},
	})

	var bad models.Flow
	require.NoError(t, json.Unmarshal(raw, &bad))

	resp, raw = doJSON(t, app, http.MethodPost, "/flows/"+bad.ID+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "teleport")
}

func TestStartExecution_UnknownFlow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/missing/executions", web.StartExecutionRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResume_NotPaused(t *testing.T) {
	app, mem := setupTestApp(t)

	execution := &models.Execution{ID: "exec-1", FlowID: "flow-1", Status: models.ExecutionStatusCompleted}
	require.NoError(t, mem.SaveExecution(t.Context(), execution))

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/exec-1/resume", web.ResumeRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListComponents(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/components", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int `json:"count"`
	}

	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, 9, body.Count)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "healthy")
}
