// Package redis implements the store interfaces on Redis. Records are stored
// as JSON values with secondary index sets for lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/store"
)

const (
	flowKeyPrefix      = "weft:flows:"
	flowIndexKey       = "weft:flows"
	executionKeyPrefix = "weft:executions:"
	flowExecIndexKey   = "weft:executions:flow:"
	approvalKeyPrefix  = "weft:approvals:"
	approvalPairPrefix = "weft:approvals:pair:"
	approvalPendingKey = "weft:approvals:pending"
	formKeyPrefix      = "weft:forms:"
)

type Store struct {
	client *goredis.Client

	now func() time.Time
}

func NewStore(url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Store{client: goredis.NewClient(opts), now: time.Now}, nil
}

var _ store.Store = (*Store)(nil)

func setJSON(ctx context.Context, client *goredis.Client, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, 0).Err()
}

func getJSON[T any](ctx context.Context, client *goredis.Client, key string, notFound error) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, notFound
	}

	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}

	return &value, nil
}

// Flows

func (s *Store) Flows(ctx context.Context) ([]*models.Flow, error) {
	ids, err := s.client.SMembers(ctx, flowIndexKey).Result()
	if err != nil {
		return nil, err
	}

	flows := make([]*models.Flow, 0, len(ids))

	for _, id := range ids {
		flow, err := s.FlowByID(ctx, id)
		if errors.Is(err, store.ErrFlowNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (s *Store) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := getJSON[models.Flow](ctx, s.client, flowKeyPrefix+id, store.ErrFlowNotFound)
	if errors.Is(err, store.ErrFlowNotFound) {
		return nil, fmt.Errorf("%w: '%s'", store.ErrFlowNotFound, id)
	}

	return flow, err
}

func (s *Store) SaveFlow(ctx context.Context, flow *models.Flow) error {
	if err := setJSON(ctx, s.client, flowKeyPrefix+flow.ID, flow); err != nil {
		return err
	}

	return s.client.SAdd(ctx, flowIndexKey, flow.ID).Err()
}

func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, flowKeyPrefix+id).Result()
	if err != nil {
		return err
	}

	if deleted == 0 {
		return fmt.Errorf("%w: '%s'", store.ErrFlowNotFound, id)
	}

	return s.client.SRem(ctx, flowIndexKey, id).Err()
}

// Executions

func (s *Store) SaveExecution(ctx context.Context, execution *models.Execution) error {
	if err := setJSON(ctx, s.client, executionKeyPrefix+execution.ID, execution); err != nil {
		return err
	}

	return s.client.SAdd(ctx, flowExecIndexKey+execution.FlowID, execution.ID).Err()
}

func (s *Store) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := getJSON[models.Execution](ctx, s.client, executionKeyPrefix+id, store.ErrExecutionNotFound)
	if errors.Is(err, store.ErrExecutionNotFound) {
		return nil, fmt.Errorf("%w: '%s'", store.ErrExecutionNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	if execution.Global == nil {
		execution.Global = models.NewGlobalContext(nil)
	}

	return execution, nil
}

func (s *Store) ExecutionsByFlow(ctx context.Context, flowID string) ([]*models.Execution, error) {
	ids, err := s.client.SMembers(ctx, flowExecIndexKey+flowID).Result()
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := s.ExecutionByID(ctx, id)
		if errors.Is(err, store.ErrExecutionNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}

// Approvals

func (s *Store) saveApproval(ctx context.Context, req *models.ApprovalRequest) error {
	if err := setJSON(ctx, s.client, approvalKeyPrefix+req.ID, req); err != nil {
		return err
	}

	pairKey := approvalPairPrefix + req.ExecutionID + "/" + req.NodeID
	if err := s.client.Set(ctx, pairKey, req.ID, 0).Err(); err != nil {
		return err
	}

	if req.Resolved() {
		return s.client.SRem(ctx, approvalPendingKey, req.ID).Err()
	}

	return s.client.SAdd(ctx, approvalPendingKey, req.ID).Err()
}

func (s *Store) PendingRequest(ctx context.Context, executionID, nodeID string) (*models.ApprovalRequest, error) {
	requestID, err := s.client.Get(ctx, approvalPairPrefix+executionID+"/"+nodeID).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return s.RequestByID(ctx, requestID)
}

func (s *Store) CreateRequest(ctx context.Context, create protocol.CreateApprovalRequest) (*models.ApprovalRequest, error) {
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

	if err := s.saveApproval(ctx, req); err != nil {
		return nil, err
	}

	return req, nil
}

func (s *Store) Decide(ctx context.Context, requestID, approver string, approve bool, comment string) (*models.ApprovalRequest, error) {
	req, err := s.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Resolved() {
		return nil, fmt.Errorf("%w: '%s' is %s", store.ErrApprovalResolved, requestID, req.Status)
	}

	now := s.now()
	if req.Expired(now) {
		req.Status = models.ApprovalStatusExpired
		req.ResolvedAt = &now

		if err := s.saveApproval(ctx, req); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: '%s' is %s", store.ErrApprovalResolved, requestID, req.Status)
	}

	req.RecordDecision(approver, approve, comment, now)

	if err := s.saveApproval(ctx, req); err != nil {
		return nil, err
	}

	return req, nil
}

func (s *Store) ExpireOverdue(ctx context.Context) ([]*models.ApprovalRequest, error) {
	pending, err := s.PendingRequests(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var expired []*models.ApprovalRequest

	for _, req := range pending {
		if !req.Expired(now) {
			continue
		}

		req.Status = models.ApprovalStatusExpired
		req.ResolvedAt = &now

		if err := s.saveApproval(ctx, req); err != nil {
			return nil, err
		}

		expired = append(expired, req)
	}

	return expired, nil
}

func (s *Store) CancelRequests(ctx context.Context, executionID string) error {
	pending, err := s.PendingRequests(ctx)
	if err != nil {
		return err
	}

	now := s.now()

	for _, req := range pending {
		if req.ExecutionID != executionID {
			continue
		}

		req.Status = models.ApprovalStatusCancelled
		req.ResolvedAt = &now

		if err := s.saveApproval(ctx, req); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) RequestByID(ctx context.Context, requestID string) (*models.ApprovalRequest, error) {
	req, err := getJSON[models.ApprovalRequest](ctx, s.client, approvalKeyPrefix+requestID, store.ErrApprovalNotFound)
	if errors.Is(err, store.ErrApprovalNotFound) {
		return nil, fmt.Errorf("%w: '%s'", store.ErrApprovalNotFound, requestID)
	}

	return req, err
}

func (s *Store) PendingRequests(ctx context.Context) ([]*models.ApprovalRequest, error) {
	ids, err := s.client.SMembers(ctx, approvalPendingKey).Result()
	if err != nil {
		return nil, err
	}

	pending := make([]*models.ApprovalRequest, 0, len(ids))

	for _, id := range ids {
		req, err := s.RequestByID(ctx, id)
		if errors.Is(err, store.ErrApprovalNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		pending = append(pending, req)
	}

	return pending, nil
}

// Forms

func (s *Store) Submission(ctx context.Context, executionID, nodeID string) (*models.FormSubmission, error) {
	submission, err := getJSON[models.FormSubmission](ctx, s.client, formKeyPrefix+executionID+"/"+nodeID, goredis.Nil)
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	return submission, err
}

func (s *Store) Submit(ctx context.Context, submission *models.FormSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.New().String()
	}

	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = s.now()
	}

	return setJSON(ctx, s.client, formKeyPrefix+submission.ExecutionID+"/"+submission.NodeID, submission)
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
