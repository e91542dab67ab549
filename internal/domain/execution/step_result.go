// Package execution orders upgrade steps, drives them one at a time, and
// records what happened to each.
package execution

import (
	"time"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
)

// Action names what the orchestrator last did with a step.
type Action string

// Actions recorded in a StepResult.
const (
	ActionNone        Action = ""
	ActionInitialized Action = "initialized"
	ActionApplied     Action = "applied"
	ActionSkipped     Action = "skipped"
	ActionAutoApplied Action = "auto-applied"
)

// StepResult captures the state of a single step after orchestration.
type StepResult struct {
	stepID   step.ID
	title    string
	status   step.Status
	details  string
	risk     step.Risk
	action   Action
	err      error
	duration time.Duration
	blocked  bool
}

// NewStepResult creates a StepResult from the step's current state.
func NewStepResult(s *step.Step, action Action, err error) StepResult {
	return StepResult{
		stepID:  s.ID(),
		title:   s.Title(),
		status:  s.Status(),
		details: s.Details(),
		risk:    s.Risk(),
		action:  action,
		err:     err,
	}
}

// StepID returns the ID of the step.
func (r StepResult) StepID() step.ID {
	return r.stepID
}

// Title returns the step title.
func (r StepResult) Title() string {
	return r.title
}

// Status returns the status of the step when the result was taken.
func (r StepResult) Status() step.Status {
	return r.status
}

// Details returns the step's status details.
func (r StepResult) Details() string {
	return r.details
}

// Risk returns the step's self-reported risk.
func (r StepResult) Risk() step.Risk {
	return r.risk
}

// Action returns what the orchestrator last did with the step.
func (r StepResult) Action() Action {
	return r.action
}

// Error returns any error from the last action.
func (r StepResult) Error() error {
	return r.err
}

// Duration returns how long the last action took.
func (r StepResult) Duration() time.Duration {
	return r.duration
}

// Blocked returns true if the step cannot run because a dependency failed.
func (r StepResult) Blocked() bool {
	return r.blocked
}

// Success returns true if the step completed.
func (r StepResult) Success() bool {
	return r.status == step.StatusComplete
}

// Skipped returns true if the step was skipped.
func (r StepResult) Skipped() bool {
	return r.status == step.StatusSkipped
}

// Failed returns true if the step failed.
func (r StepResult) Failed() bool {
	return r.status == step.StatusFailed
}

// WithDuration returns a new StepResult with duration set.
func (r StepResult) WithDuration(d time.Duration) StepResult {
	r.duration = d
	return r
}

// WithBlocked returns a new StepResult with the blocked flag set.
func (r StepResult) WithBlocked(blocked bool) StepResult {
	r.blocked = blocked
	return r
}
