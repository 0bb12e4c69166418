// Package memory implements the store interfaces in process memory. It backs
// tests and single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/store"
)

type Store struct {
	mu          sync.RWMutex
	flows       map[string]*models.Flow
	executions  map[string]*models.Execution
	approvals   map[string]*models.ApprovalRequest
	submissions map[string]*models.FormSubmission // keyed by executionID/nodeID

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		flows:       make(map[string]*models.Flow),
		executions:  make(map[string]*models.Execution),
		approvals:   make(map[string]*models.ApprovalRequest),
		submissions: make(map[string]*models.FormSubmission),
		now:         time.Now,
	}
}

var _ store.Store = (*Store)(nil)

// Flows

func (s *Store) Flows(_ context.Context) ([]*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flows := make([]*models.Flow, 0, len(s.flows))
	for _, flow := range s.flows {
		flows = append(flows, flow)
	}

	return flows, nil
}

func (s *Store) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", store.ErrFlowNotFound, id)
	}

	return flow, nil
}

func (s *Store) SaveFlow(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows[flow.ID] = flow

	return nil
}

func (s *Store) DeleteFlow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[id]; !ok {
		return fmt.Errorf("%w: '%s'", store.ErrFlowNotFound, id)
	}

	delete(s.flows, id)

	return nil
}

// Executions

func (s *Store) SaveExecution(_ context.Context, execution *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executions[execution.ID] = execution

	return nil
}

func (s *Store) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execution, ok := s.executions[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", store.ErrExecutionNotFound, id)
	}

	return execution, nil
}

func (s *Store) ExecutionsByFlow(_ context.Context, flowID string) ([]*models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	executions := make([]*models.Execution, 0)

	for _, execution := range s.executions {
		if execution.FlowID == flowID {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

// Approvals

func (s *Store) PendingRequest(_ context.Context, executionID, nodeID string) (*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.approvals {
		if req.ExecutionID == executionID && req.NodeID == nodeID {
			return req, nil
		}
	}

	return nil, nil
}

func (s *Store) CreateRequest(_ context.Context, create protocol.CreateApprovalRequest) (*models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &models.ApprovalRequest{
		ID:                uuid.New().String(),
		ExecutionID:       create.ExecutionID,
		NodeID:            create.NodeID,
		Message:           create.Message,
		RequiredApprovers: create.RequiredApprovers,
		Mode:              create.Mode,
		Status:            models.ApprovalStatusPending,
		Metadata:          create.Metadata,
		CreatedAt:         s.now(),
	}

	if create.ExpiresInMinutes > 0 {
		expiresAt := req.CreatedAt.Add(time.Duration(create.ExpiresInMinutes) * time.Minute)
		req.ExpiresAt = &expiresAt
	}

	s.approvals[req.ID] = req

	return req, nil
}

func (s *Store) Decide(_ context.Context, requestID, approver string, approve bool, comment string) (*models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.approvals[requestID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", store.ErrApprovalNotFound, requestID)
	}

	if req.Resolved() {
		return nil, fmt.Errorf("%w: '%s' is %s", store.ErrApprovalResolved, requestID, req.Status)
	}

	now := s.now()
	if req.Expired(now) {
		req.Status = models.ApprovalStatusExpired
		req.ResolvedAt = &now

		return nil, fmt.Errorf("%w: '%s' is %s", store.ErrApprovalResolved, requestID, req.Status)
	}

	req.RecordDecision(approver, approve, comment, now)

	return req, nil
}

func (s *Store) ExpireOverdue(_ context.Context) ([]*models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var expired []*models.ApprovalRequest

	for _, req := range s.approvals {
		if !req.Resolved() && req.Expired(now) {
			req.Status = models.ApprovalStatusExpired
			req.ResolvedAt = &now
			expired = append(expired, req)
		}
	}

	return expired, nil
}

func (s *Store) CancelRequests(_ context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for _, req := range s.approvals {
		if req.ExecutionID == executionID && !req.Resolved() {
			req.Status = models.ApprovalStatusCancelled
			req.ResolvedAt = &now
		}
	}

	return nil
}

func (s *Store) RequestByID(_ context.Context, requestID string) (*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.approvals[requestID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", store.ErrApprovalNotFound, requestID)
	}

	return req, nil
}

func (s *Store) PendingRequests(_ context.Context) ([]*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.ApprovalRequest

	for _, req := range s.approvals {
		if !req.Resolved() {
			pending = append(pending, req)
		}
	}

	return pending, nil
}

// Forms

func (s *Store) Submission(_ context.Context, executionID, nodeID string) (*models.FormSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submission, ok := s.submissions[executionID+"/"+nodeID]
	if !ok {
		return nil, nil
	}

	return submission, nil
}

func (s *Store) Submit(_ context.Context, submission *models.FormSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if submission.ID == "" {
		submission.ID = uuid.New().String()
	}

	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = s.now()
	}

	s.submissions[submission.ExecutionID+"/"+submission.NodeID] = submission

	return nil
}

func (s *Store) HealthCheck(_ context.Context) error { return nil }

func (s *Store) Close(_ context.Context) error { return nil }
