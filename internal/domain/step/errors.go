package step

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for step and graph operations.
const (
	ErrCodeStepDuplicate     = "STEP_DUPLICATE"
	ErrCodeDependencyMissing = "DEPENDENCY_MISSING"
	ErrCodeCyclicDependency  = "CYCLIC_DEPENDENCY"
	ErrCodeNotInitialized    = "STEP_NOT_INITIALIZED"
	ErrCodeStepSkipped       = "STEP_SKIPPED"
	ErrCodeInitializeFailed  = "INITIALIZE_FAILED"
	ErrCodeApplyFailed       = "APPLY_FAILED"
	ErrCodeIllegalTransition = "ILLEGAL_TRANSITION"
	ErrCodeInvalidEvaluation = "INVALID_EVALUATION"
)

// Sentinel errors matched by code through errors.Is.
var (
	ErrDuplicateStep     = &StepError{Code: ErrCodeStepDuplicate}
	ErrMissingDependency = &StepError{Code: ErrCodeDependencyMissing}
	ErrCyclicDependency  = &StepError{Code: ErrCodeCyclicDependency}
	ErrNotInitialized    = &StepError{Code: ErrCodeNotInitialized}
	ErrSkipped           = &StepError{Code: ErrCodeStepSkipped}
	ErrInitializeFailed  = &StepError{Code: ErrCodeInitializeFailed}
	ErrApplyFailed       = &StepError{Code: ErrCodeApplyFailed}
	ErrIllegalTransition = &StepError{Code: ErrCodeIllegalTransition}
	ErrInvalidEvaluation = &StepError{Code: ErrCodeInvalidEvaluation}
)

// StepError represents a user-friendly step error with actionable suggestions.
type StepError struct {
	Code       string // Error code for categorization
	Message    string // User-friendly error message
	StepID     string // Step ID if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(e.Code, "_", " "))
	}
	if e.StepID != "" {
		msg = fmt.Sprintf("step %q: %s", e.StepID, msg)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *StepError) Is(target error) bool {
	var t *StepError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *StepError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.StepID != "" {
		fmt.Fprintf(&b, "\n  Step: %s", e.StepID)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}

	return b.String()
}

// NewStepDuplicateError creates an error for duplicate step ID.
func NewStepDuplicateError(stepID string) *StepError {
	return &StepError{
		Code:       ErrCodeStepDuplicate,
		Message:    "step with this ID already exists",
		StepID:     stepID,
		Suggestion: "Each step must have a unique ID, including sub-steps.",
	}
}

// NewDependencyMissingError creates an error for an edge to an unknown step.
func NewDependencyMissingError(stepID, other string) *StepError {
	return &StepError{
		Code:       ErrCodeDependencyMissing,
		Message:    fmt.Sprintf("step is ordered against '%s' which does not exist at the same level", other),
		StepID:     stepID,
		Suggestion: "DependsOn and DependencyOf may only name sibling steps.",
	}
}

// NewCyclicDependencyError creates an error for cyclic dependencies.
func NewCyclicDependencyError(cycle []string) *StepError {
	return &StepError{
		Code:       ErrCodeCyclicDependency,
		Message:    fmt.Sprintf("cyclic dependency detected: %s", strings.Join(cycle, " → ")),
		Suggestion: "Review DependsOn and DependencyOf declarations to break the circular chain.",
	}
}

// NewNotInitializedError creates an error for applying a step before Initialize.
func NewNotInitializedError(stepID string) *StepError {
	return &StepError{
		Code:       ErrCodeNotInitialized,
		Message:    "step must be initialized before it can be applied",
		StepID:     stepID,
		Suggestion: "Call Initialize first.",
	}
}

// NewSkippedError creates an error for applying a skipped step.
func NewSkippedError(stepID string) *StepError {
	return &StepError{
		Code:    ErrCodeStepSkipped,
		Message: "step was skipped and cannot be applied",
		StepID:  stepID,
	}
}

// NewInitializeFailedError creates an error for a failed initialization.
func NewInitializeFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeInitializeFailed,
		Message:    "step could not determine its status",
		StepID:     stepID,
		Suggestion: "This may be a transient error; re-run once the cause is fixed.",
		Underlying: err,
	}
}

// NewApplyFailedError creates an error for step apply failure.
func NewApplyFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeApplyFailed,
		Message:    "step failed to apply",
		StepID:     stepID,
		Suggestion: "Fix the cause and apply the step again; failed steps are not retried automatically.",
		Underlying: err,
	}
}

// NewIllegalTransitionError creates an error for a rejected lifecycle transition.
func NewIllegalTransitionError(stepID string, from, to Status) *StepError {
	return &StepError{
		Code:    ErrCodeIllegalTransition,
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
		StepID:  stepID,
	}
}

// NewInvalidEvaluationError creates an error for a behavior reporting an unusable status.
func NewInvalidEvaluationError(stepID string, status Status) *StepError {
	return &StepError{
		Code:    ErrCodeInvalidEvaluation,
		Message: fmt.Sprintf("behavior reported unusable status %q", status),
		StepID:  stepID,
	}
}
