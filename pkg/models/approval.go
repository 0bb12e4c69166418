package models

import "time"

// ApprovalMode decides when an approval request resolves.
type ApprovalMode string

const (
	ApprovalModeAny      ApprovalMode = "any"      // first decision wins
	ApprovalModeAll      ApprovalMode = "all"      // every required approver must approve
	ApprovalModeMajority ApprovalMode = "majority" // >50% must approve
)

// ApprovalStatus is the resolution state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusExpired   ApprovalStatus = "expired"
	ApprovalStatusCancelled ApprovalStatus = "cancelled"
)

// ApprovalRequest is a pending-or-resolved human decision bound to one
// (execution, node) pair. The resolution policy lives with the store, not the
// engine; the engine only reads Status.
type ApprovalRequest struct {
	ID                string         `json:"id"`
	ExecutionID       string         `json:"execution_id"`
	NodeID            string         `json:"node_id"`
	Message           string         `json:"message"`
	RequiredApprovers int            `json:"required_approvers"`
	Mode              ApprovalMode   `json:"mode"`
	Status            ApprovalStatus `json:"status"`
	ApprovedBy        []string       `json:"approved_by,omitempty"`
	RejectedBy        []string       `json:"rejected_by,omitempty"`
	Comment           string         `json:"comment,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
}

// Resolved reports whether the request has reached a terminal status.
func (r *ApprovalRequest) Resolved() bool {
	return r.Status != ApprovalStatusPending
}

// Expired reports whether the request's deadline has passed.
func (r *ApprovalRequest) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// RecordDecision registers one approver's vote and recomputes the status
// under the request's mode. Votes after resolution are ignored. Duplicate
// votes by the same approver are ignored.
func (r *ApprovalRequest) RecordDecision(approver string, approve bool, comment string, now time.Time) {
	if r.Resolved() {
		return
	}

	for _, who := range append(r.ApprovedBy, r.RejectedBy...) {
		if who == approver {
			return
		}
	}

	if approve {
		r.ApprovedBy = append(r.ApprovedBy, approver)
	} else {
		r.RejectedBy = append(r.RejectedBy, approver)
	}

	if comment != "" {
		r.Comment = comment
	}

	status := resolveApproval(r.Mode, r.RequiredApprovers, len(r.ApprovedBy), len(r.RejectedBy))
	if status != ApprovalStatusPending {
		r.Status = status
		r.ResolvedAt = &now
	}
}

func resolveApproval(mode ApprovalMode, required, approved, rejected int) ApprovalStatus {
	if required < 1 {
		required = 1
	}

	switch mode {
	case ApprovalModeAll:
		if rejected > 0 {
			return ApprovalStatusRejected
		}

		if approved >= required {
			return ApprovalStatusApproved
		}
	case ApprovalModeMajority:
		majority := required/2 + 1
		if approved >= majority {
			return ApprovalStatusApproved
		}

		if rejected >= majority {
			return ApprovalStatusRejected
		}
	default: // any
		if approved > 0 {
			return ApprovalStatusApproved
		}

		if rejected > 0 {
			return ApprovalStatusRejected
		}
	}

	return ApprovalStatusPending
}

// FormSubmission is user-supplied form data bound to one (execution, node)
// pair.
type FormSubmission struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	Data        map[string]any `json:"data"`
	SubmittedBy string         `json:"submitted_by,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}
