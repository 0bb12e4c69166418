package web_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/web"
)

func createPublishedFlow(t *testing.T, app *fiber.App, nodes []*models.FlowNode, connections []*models.Connection) string {
	t.Helper()

	_, raw := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{
		Name:        "Integration Flow",
		Owner:       "ops",
		Nodes:       nodes,
		Connections: connections,
	})

	var flow models.Flow
	require.NoError(t, json.Unmarshal(raw, &flow))

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/"+flow.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return flow.ID
}

func startExecution(t *testing.T, app *fiber.App, flowID string, input map[string]any) string {
	t.Helper()

	resp, raw := doJSON(t, app, http.MethodPost, "/flows/"+flowID+"/executions", web.StartExecutionRequest{Input: input})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		ExecutionID string `json:"execution_id"`
	}

	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.ExecutionID)

	return body.ExecutionID
}

func waitForStatus(t *testing.T, app *fiber.App, executionID string, want models.ExecutionStatus) *models.Execution {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, raw := doJSON(t, app, http.MethodGet, "/executions/"+executionID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var execution models.Execution
		require.NoError(t, json.Unmarshal(raw, &execution))

		if execution.Status == want {
			return &execution
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("execution %s never reached status %s", executionID, want)

	return nil
}

func TestIntegration_ExecuteLogFlow(t *testing.T) {
	app, _ := setupTestApp(t)

	flowID := createPublishedFlow(t, app, []*models.FlowNode{
		{ID: "announce", Type: "log", Name: "announce", Config: map[string]any{"message": "order {{.input.order}}"}, Enabled: true},
	}, nil)

	executionID := startExecution(t, app, flowID, map[string]any{"order": "ord-1"})

	execution := waitForStatus(t, app, executionID, models.ExecutionStatusCompleted)
	assert.Equal(t, "order ord-1", execution.NodeOutputs["announce"]["message"])
}

func TestIntegration_ApprovalRoundTrip(t *testing.T) {
	app, _ := setupTestApp(t)

	flowID := createPublishedFlow(t, app, []*models.FlowNode{
		{ID: "gate", Type: "approval", Name: "gate", Config: map[string]any{"message": "release order?"}, Enabled: true},
		{ID: "ship", Type: "log", Name: "ship", Config: map[string]any{"message": "shipped"}, Enabled: true},
	}, []*models.Connection{
		{SourceNode: "gate", SourceBranch: "approved", TargetNode: "ship"},
	})

	executionID := startExecution(t, app, flowID, nil)
	waitForStatus(t, app, executionID, models.ExecutionStatusPaused)

	resp, raw := doJSON(t, app, http.MethodGet, "/approvals/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pending struct {
		Approvals []*models.ApprovalRequest `json:"approvals"`
	}

	require.NoError(t, json.Unmarshal(raw, &pending))
	require.Len(t, pending.Approvals, 1)

	approve := true
	resp, raw = doJSON(t, app, http.MethodPost, "/approvals/"+pending.Approvals[0].ID+"/decide",
		web.DecisionRequest{Approver: "alice", Approve: &approve, Comment: "lgtm"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var request models.ApprovalRequest
	require.NoError(t, json.Unmarshal(raw, &request))
	assert.Equal(t, models.ApprovalStatusApproved, request.Status)

	execution := waitForStatus(t, app, executionID, models.ExecutionStatusCompleted)
	assert.Equal(t, "shipped", execution.NodeOutputs["ship"]["message"])
	assert.Equal(t, true, execution.NodeOutputs["gate"]["approved"])
}

func TestIntegration_ApprovalRejection(t *testing.T) {
	app, _ := setupTestApp(t)

	flowID := createPublishedFlow(t, app, []*models.FlowNode{
		{ID: "gate", Type: "approval", Name: "gate", Config: map[string]any{"message": "release order?"}, Enabled: true},
		{ID: "ship", Type: "log", Name: "ship", Config: map[string]any{"message": "shipped"}, Enabled: true},
	}, []*models.Connection{
		{SourceNode: "gate", SourceBranch: "approved", TargetNode: "ship"},
	})

	executionID := startExecution(t, app, flowID, nil)
	waitForStatus(t, app, executionID, models.ExecutionStatusPaused)

	_, raw := doJSON(t, app, http.MethodGet, "/approvals/pending", nil)

	var pending struct {
		Approvals []*models.ApprovalRequest `json:"approvals"`
	}

	require.NoError(t, json.Unmarshal(raw, &pending))
	require.Len(t, pending.Approvals, 1)

	reject := false
	resp, _ := doJSON(t, app, http.MethodPost, "/approvals/"+pending.Approvals[0].ID+"/decide",
		web.DecisionRequest{Approver: "bob", Approve: &reject})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	execution := waitForStatus(t, app, executionID, models.ExecutionStatusCompleted)
	assert.Equal(t, false, execution.NodeOutputs["gate"]["approved"])
	assert.NotContains(t, execution.NodeOutputs, "ship")
}

func TestIntegration_FormRoundTrip(t *testing.T) {
	app, _ := setupTestApp(t)

	flowID := createPublishedFlow(t, app, []*models.FlowNode{
		{ID: "intake", Type: "form", Name: "intake", Config: map[string]any{
			"title":  "Shipping details",
			"fields": []any{map[string]any{"name": "address", "type": "string"}},
		}, Enabled: true},
	}, nil)

	executionID := startExecution(t, app, flowID, nil)
	waitForStatus(t, app, executionID, models.ExecutionStatusPaused)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/"+executionID+"/forms/intake",
		web.FormSubmitRequest{Data: map[string]any{"address": "1 Main St"}, SubmittedBy: "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	execution := waitForStatus(t, app, executionID, models.ExecutionStatusCompleted)

	formData, ok := execution.NodeOutputs["intake"]["formData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1 Main St", formData["address"])
}

func TestIntegration_CancelPausedExecution(t *testing.T) {
	app, _ := setupTestApp(t)

	flowID := createPublishedFlow(t, app, []*models.FlowNode{
		{ID: "gate", Type: "approval", Name: "gate", Config: map[string]any{"message": "release?"}, Enabled: true},
	}, nil)

	executionID := startExecution(t, app, flowID, nil)
	waitForStatus(t, app, executionID, models.ExecutionStatusPaused)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/"+executionID+"/cancel",
		web.CancelRequest{Reason: "no longer needed", CancelledBy: "ops"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	waitForStatus(t, app, executionID, models.ExecutionStatusCancelled)

	_, raw := doJSON(t, app, http.MethodGet, "/approvals/pending", nil)

	var pending struct {
		Count int `json:"count"`
	}

	require.NoError(t, json.Unmarshal(raw, &pending))
	assert.Zero(t, pending.Count)
}
