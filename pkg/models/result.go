package models

import "fmt"

// ResultStatus tags the outcome of one node invocation.
type ResultStatus string

const (
	ResultSuccess   ResultStatus = "success"
	ResultFailure   ResultStatus = "failure"
	ResultSuspended ResultStatus = "suspended"
)

// ExecutionResult is the tagged outcome of one node invocation. Exactly one
// variant is active: the Status field selects it and the constructors below
// are the only intended way to build one.
type ExecutionResult struct {
	Status ResultStatus `json:"status"`

	// Success fields.
	Output map[string]any `json:"output,omitempty"`
	// Branches names the output branches the engine should follow. Nil means
	// the default branch.
	Branches []string       `json:"branches,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Failure field.
	Error string `json:"error,omitempty"`

	// Suspended fields. ResumeCondition must carry enough to re-identify the
	// paused node later.
	PauseReason     string         `json:"pause_reason,omitempty"`
	ResumeCondition map[string]any `json:"resume_condition,omitempty"`
	PartialOutput   map[string]any `json:"partial_output,omitempty"`
}

// Success builds a success result carrying output for the default branch.
func Success(output map[string]any) ExecutionResult {
	return ExecutionResult{Status: ResultSuccess, Output: output}
}

// SuccessWithBranches builds a success result that routes only along the
// named output branches.
func SuccessWithBranches(output map[string]any, branches ...string) ExecutionResult {
	return ExecutionResult{Status: ResultSuccess, Output: output, Branches: branches}
}

// SuccessWithMetadata builds a success result with engine-facing metadata,
// e.g. a sub-execution id.
func SuccessWithMetadata(output, metadata map[string]any) ExecutionResult {
	return ExecutionResult{Status: ResultSuccess, Output: output, Metadata: metadata}
}

// Failure builds a terminal failure result.
func Failure(message string) ExecutionResult {
	return ExecutionResult{Status: ResultFailure, Error: message}
}

// Failuref builds a failure result from a format string.
func Failuref(format string, args ...any) ExecutionResult {
	return Failure(fmt.Sprintf(format, args...))
}

// Suspend builds a suspended result. The resume condition describes the
// external event that will unblock the node; partial output is visible to
// observers while the execution waits.
func Suspend(reason string, resumeCondition, partialOutput map[string]any) ExecutionResult {
	return ExecutionResult{
		Status:          ResultSuspended,
		PauseReason:     reason,
		ResumeCondition: resumeCondition,
		PartialOutput:   partialOutput,
	}
}

func (r ExecutionResult) IsSuccess() bool   { return r.Status == ResultSuccess }
func (r ExecutionResult) IsFailure() bool   { return r.Status == ResultFailure }
func (r ExecutionResult) IsSuspended() bool { return r.Status == ResultSuspended }
