package models

import "fmt"

// ApprovalResume is the typed view of an approval resume payload.
type ApprovalResume struct {
	Status     ApprovalStatus
	ApprovalID string
	Comment    string
	ApprovedBy string
	RejectedBy string
}

// FormResume is the typed view of a form resume payload.
type FormResume struct {
	Data        map[string]any
	SubmittedAt any
}

// ParseApprovalResume decodes a resume payload for an approval node. A
// payload missing the fields the node needs fails loudly instead of silently
// defaulting.
func ParseApprovalResume(data map[string]any) (ApprovalResume, error) {
	status, ok := data["approvalStatus"].(string)
	if !ok || status == "" {
		return ApprovalResume{}, fmt.Errorf("resume payload missing field 'approvalStatus'")
	}

	resume := ApprovalResume{Status: ApprovalStatus(status)}

	if id, ok := data["approvalId"].(string); ok {
		resume.ApprovalID = id
	}

	if comment, ok := data["comment"].(string); ok {
		resume.Comment = comment
	}

	if by, ok := data["approvedBy"].(string); ok {
		resume.ApprovedBy = by
	}

	if by, ok := data["rejectedBy"].(string); ok {
		resume.RejectedBy = by
	}

	return resume, nil
}

// ParseFormResume decodes a resume payload for a form node.
func ParseFormResume(data map[string]any) (FormResume, error) {
	formData, ok := data["formData"].(map[string]any)
	if !ok {
		return FormResume{}, fmt.Errorf("resume payload missing field 'formData'")
	}

	return FormResume{Data: formData, SubmittedAt: data["submittedAt"]}, nil
}
