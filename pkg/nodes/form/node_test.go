package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/store/memory"
)

func TestExecute_SuspendsWithoutSubmission(t *testing.T) {
	s := memory.NewStore()

	node, err := NewFormNode("form-1", map[string]any{
		"title":  "Shipping details",
		"fields": []any{map[string]any{"name": "address", "type": "string"}},
	}, s)
	require.NoError(t, err)

	result := node.Execute(context.Background(), models.ExecutionContext{ExecutionID: "exec-1"})
	require.True(t, result.IsSuspended())
	assert.Equal(t, "form", result.ResumeCondition["type"])
	assert.Equal(t, "Shipping details", result.ResumeCondition["title"])
}

func TestExecute_CompletesFromStoredSubmission(t *testing.T) {
	s := memory.NewStore()

	require.NoError(t, s.Submit(context.Background(), &models.FormSubmission{
		ExecutionID: "exec-1",
		NodeID:      "form-1",
		Data:        map[string]any{"address": "1 Main St"},
		SubmittedBy: "alice",
	}))

	node, err := NewFormNode("form-1", nil, s)
	require.NoError(t, err)

	result := node.Execute(context.Background(), models.ExecutionContext{ExecutionID: "exec-1"})
	require.True(t, result.IsSuccess())

	data := result.Output["formData"].(map[string]any)
	assert.Equal(t, "1 Main St", data["address"])
	assert.Equal(t, "alice", result.Output["submittedBy"])
}

func TestExecute_CompletesFromResume(t *testing.T) {
	s := memory.NewStore()

	node, err := NewFormNode("form-1", nil, s)
	require.NoError(t, err)

	global := models.NewGlobalContext(nil)
	global.Set(models.ResumeDataKey, map[string]any{
		"formData":    map[string]any{"address": "2 Side St"},
		"submittedAt": "2026-08-29T10:00:00Z",
	})

	result := node.Execute(context.Background(), models.ExecutionContext{
		ExecutionID: "exec-1",
		Global:      global,
	})
	require.True(t, result.IsSuccess())

	data := result.Output["formData"].(map[string]any)
	assert.Equal(t, "2 Side St", data["address"])
}

func TestExecute_ResumeMissingFormData(t *testing.T) {
	s := memory.NewStore()

	node, err := NewFormNode("form-1", nil, s)
	require.NoError(t, err)

	global := models.NewGlobalContext(nil)
	global.Set(models.ResumeDataKey, map[string]any{"something": "else"})

	result := node.Execute(context.Background(), models.ExecutionContext{Global: global})
	require.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "formData")
}

func TestNewFormNode_RequiresService(t *testing.T) {
	_, err := NewFormNode("form-1", nil, nil)
	assert.Error(t, err)
}
