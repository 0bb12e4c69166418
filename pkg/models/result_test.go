package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultConstructors(t *testing.T) {
	success := Success(map[string]any{"n": 1})
	assert.True(t, success.IsSuccess())
	assert.False(t, success.IsFailure())
	assert.False(t, success.IsSuspended())
	assert.Nil(t, success.Branches)

	branched := SuccessWithBranches(nil, "true")
	assert.True(t, branched.IsSuccess())
	assert.Equal(t, []string{"true"}, branched.Branches)

	failure := Failuref("node %s broke", "a")
	assert.True(t, failure.IsFailure())
	assert.Equal(t, "node a broke", failure.Error)

	suspended := Suspend("waiting for approval",
		map[string]any{"type": "approval", "approvalId": "req-1"},
		map[string]any{"requested": true})
	assert.True(t, suspended.IsSuspended())
	assert.Equal(t, "waiting for approval", suspended.PauseReason)
	assert.Equal(t, "req-1", suspended.ResumeCondition["approvalId"])
	assert.Equal(t, true, suspended.PartialOutput["requested"])
}

func TestParseApprovalResume(t *testing.T) {
	resume, err := ParseApprovalResume(map[string]any{
		"approvalStatus": "approved",
		"approvalId":     "req-1",
		"comment":        "lgtm",
		"approvedBy":     "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, ApprovalStatusApproved, resume.Status)
	assert.Equal(t, "req-1", resume.ApprovalID)
	assert.Equal(t, "lgtm", resume.Comment)
	assert.Equal(t, "alice", resume.ApprovedBy)

	_, err = ParseApprovalResume(map[string]any{"approvalId": "req-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approvalStatus")
}

func TestParseFormResume(t *testing.T) {
	resume, err := ParseFormResume(map[string]any{
		"formData":    map[string]any{"address": "1 Main St"},
		"submittedAt": "2026-01-02T15:04:05Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", resume.Data["address"])
	assert.Equal(t, "2026-01-02T15:04:05Z", resume.SubmittedAt)

	_, err = ParseFormResume(map[string]any{"submittedAt": "now"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formData")
}
