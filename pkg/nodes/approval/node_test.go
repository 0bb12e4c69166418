package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/store/memory"
)

func newNode(t *testing.T, config map[string]any, approvals protocol.ApprovalService) *ApprovalNode {
	t.Helper()

	node, err := NewApprovalNode("approval-1", config, approvals)
	require.NoError(t, err)

	return node
}

func ectxWith(global *models.GlobalContext) models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID: "exec-1",
		NodeID:      "approval-1",
		Global:      global,
	}
}

func TestExecute_CreatesRequestAndSuspends(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, map[string]any{"message": "deploy?"}, s)

	result := node.Execute(context.Background(), ectxWith(nil))
	require.True(t, result.IsSuspended())
	assert.Equal(t, "waiting for approval", result.PauseReason)
	assert.Equal(t, "approval", result.ResumeCondition["type"])
	assert.NotEmpty(t, result.ResumeCondition["approvalId"])

	stored, err := s.PendingRequest(context.Background(), "exec-1", "approval-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "deploy?", stored.Message)
}

func TestExecute_IdempotentSuspension(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, nil, s)

	first := node.Execute(context.Background(), ectxWith(nil))
	require.True(t, first.IsSuspended())

	second := node.Execute(context.Background(), ectxWith(nil))
	require.True(t, second.IsSuspended())

	// Same request id both times, exactly one request created.
	assert.Equal(t, first.ResumeCondition["approvalId"], second.ResumeCondition["approvalId"])

	pending, err := s.PendingRequests(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestExecute_ResumeApproved(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, nil, s)

	global := models.NewGlobalContext(nil)
	global.Set(models.ResumeDataKey, map[string]any{
		"approvalStatus": "approved",
		"approvalId":     "req-1",
		"approvedBy":     "alice",
		"comment":        "ship it",
	})

	result := node.Execute(context.Background(), ectxWith(global))
	require.True(t, result.IsSuccess())
	assert.Equal(t, []string{BranchApproved}, result.Branches)
	assert.Equal(t, true, result.Output["approved"])
	assert.Equal(t, "alice", result.Output["approvedBy"])
}

func TestExecute_ResumeRejected(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, nil, s)

	global := models.NewGlobalContext(nil)
	global.Set(models.ResumeDataKey, map[string]any{"approvalStatus": "rejected"})

	result := node.Execute(context.Background(), ectxWith(global))
	require.True(t, result.IsSuccess())
	assert.Equal(t, []string{BranchRejected}, result.Branches)
}

func TestExecute_ResumeMissingStatus(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, nil, s)

	global := models.NewGlobalContext(nil)
	global.Set(models.ResumeDataKey, map[string]any{"comment": "???"})

	result := node.Execute(context.Background(), ectxWith(global))
	require.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "approvalStatus")
}

func TestExecute_ResolvedRequestRoutes(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, map[string]any{"approvalMode": "all", "requiredApprovers": 2}, s)

	// First invocation creates the request.
	result := node.Execute(context.Background(), ectxWith(nil))
	require.True(t, result.IsSuspended())

	requestID := result.ResumeCondition["approvalId"].(string)

	// One approval is not enough under "all" with two approvers.
	_, err := s.Decide(context.Background(), requestID, "alice", true, "")
	require.NoError(t, err)

	result = node.Execute(context.Background(), ectxWith(nil))
	require.True(t, result.IsSuspended())

	_, err = s.Decide(context.Background(), requestID, "bob", true, "")
	require.NoError(t, err)

	result = node.Execute(context.Background(), ectxWith(nil))
	require.True(t, result.IsSuccess())
	assert.Equal(t, []string{BranchApproved}, result.Branches)
}

func TestExecute_ExpiredRequestRejects(t *testing.T) {
	s := memory.NewStore()
	node := newNode(t, nil, s)

	result := node.Execute(context.Background(), ectxWith(nil))
	require.True(t, result.IsSuspended())

	requestID := result.ResumeCondition["approvalId"].(string)

	stored, err := s.RequestByID(context.Background(), requestID)
	require.NoError(t, err)

	stored.Status = models.ApprovalStatusExpired

	result = node.Execute(context.Background(), ectxWith(nil))
	require.True(t, result.IsSuccess())
	assert.Equal(t, []string{BranchRejected}, result.Branches)
	assert.Equal(t, "expired", result.Output["status"])
}

func TestNewApprovalNode_RequiresService(t *testing.T) {
	_, err := NewApprovalNode("approval-1", nil, nil)
	assert.Error(t, err)
}
