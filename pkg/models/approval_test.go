package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func pendingRequest(mode ApprovalMode, required int) *ApprovalRequest {
	return &ApprovalRequest{
		ID:                "req-1",
		ExecutionID:       "exec-1",
		NodeID:            "gate",
		Mode:              mode,
		RequiredApprovers: required,
		Status:            ApprovalStatusPending,
	}
}

func TestRecordDecision_AnyMode(t *testing.T) {
	now := time.Now()

	req := pendingRequest(ApprovalModeAny, 1)
	req.RecordDecision("alice", true, "lgtm", now)

	assert.Equal(t, ApprovalStatusApproved, req.Status)
	assert.Equal(t, []string{"alice"}, req.ApprovedBy)
	assert.Equal(t, "lgtm", req.Comment)
	assert.NotNil(t, req.ResolvedAt)

	rejected := pendingRequest(ApprovalModeAny, 1)
	rejected.RecordDecision("bob", false, "", now)
	assert.Equal(t, ApprovalStatusRejected, rejected.Status)
}

func TestRecordDecision_AllMode(t *testing.T) {
	now := time.Now()

	req := pendingRequest(ApprovalModeAll, 2)
	req.RecordDecision("alice", true, "", now)
	assert.Equal(t, ApprovalStatusPending, req.Status)

	req.RecordDecision("bob", true, "", now)
	assert.Equal(t, ApprovalStatusApproved, req.Status)

	// One rejection sinks the request regardless of approvals.
	vetoed := pendingRequest(ApprovalModeAll, 3)
	vetoed.RecordDecision("alice", true, "", now)
	vetoed.RecordDecision("bob", false, "too risky", now)
	assert.Equal(t, ApprovalStatusRejected, vetoed.Status)
}

func TestRecordDecision_MajorityMode(t *testing.T) {
	now := time.Now()

	req := pendingRequest(ApprovalModeMajority, 3)
	req.RecordDecision("alice", true, "", now)
	assert.Equal(t, ApprovalStatusPending, req.Status)

	req.RecordDecision("bob", true, "", now)
	assert.Equal(t, ApprovalStatusApproved, req.Status)
}

func TestRecordDecision_DuplicateAndLateVotes(t *testing.T) {
	now := time.Now()

	req := pendingRequest(ApprovalModeAll, 2)
	req.RecordDecision("alice", true, "", now)
	req.RecordDecision("alice", true, "", now)
	assert.Equal(t, []string{"alice"}, req.ApprovedBy)
	assert.Equal(t, ApprovalStatusPending, req.Status)

	req.RecordDecision("bob", true, "", now)
	assert.Equal(t, ApprovalStatusApproved, req.Status)

	// Votes after resolution are dropped.
	req.RecordDecision("carol", false, "", now)
	assert.Equal(t, ApprovalStatusApproved, req.Status)
	assert.Empty(t, req.RejectedBy)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	req := pendingRequest(ApprovalModeAny, 1)
	assert.False(t, req.Expired(now))

	deadline := now.Add(-time.Minute)
	req.ExpiresAt = &deadline
	assert.True(t, req.Expired(now))
}
