// Package step defines the unit of the migration workflow: an identified,
// dependency-ordered step with an Initialize/Apply/Skip lifecycle, optional
// owned sub-steps, and a self-reported risk.
package step

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is returned from Apply and Skip. A completed sub-step asks its
// parent to be re-evaluated instead of reaching up and applying it.
type Outcome struct {
	Status                 Status
	ParentShouldReevaluate bool
}

// Step is a node in the orchestration graph.
type Step struct {
	id           ID
	title        string
	description  string
	dependsOn    []ID
	dependencyOf []ID
	parent       *Step
	subSteps     []*Step
	behavior     Behavior

	requiresSuccess bool

	status  Status
	details string
	risk    Risk
	life    *lifecycle
}

// Option configures a Step.
type Option func(*Step)

// WithDescription sets the step description.
func WithDescription(description string) Option {
	return func(s *Step) {
		s.description = description
	}
}

// WithDependsOn declares steps that must reach a terminal status first.
func WithDependsOn(ids ...ID) Option {
	return func(s *Step) {
		s.dependsOn = append(s.dependsOn, ids...)
	}
}

// WithDependencyOf declares steps that this step must run before.
func WithDependencyOf(ids ...ID) Option {
	return func(s *Step) {
		s.dependencyOf = append(s.dependencyOf, ids...)
	}
}

// WithSubSteps attaches owned sub-steps in order.
func WithSubSteps(subSteps ...*Step) Option {
	return func(s *Step) {
		s.subSteps = append(s.subSteps, subSteps...)
	}
}

// WithRequiresSuccess makes the step refuse to run after a failed predecessor.
func WithRequiresSuccess() Option {
	return func(s *Step) {
		s.requiresSuccess = true
	}
}

// New creates a step. A nil behavior is allowed for pure grouping steps
// whose status is derived from their sub-steps.
func New(id ID, title string, behavior Behavior, opts ...Option) *Step {
	s := &Step{
		id:       id,
		title:    title,
		behavior: behavior,
		status:   StatusUnknown,
		risk:     RiskUnknown,
		life:     newLifecycle(id.String()),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sub := range s.subSteps {
		sub.parent = s
	}
	return s
}

// ID returns the step identifier.
func (s *Step) ID() ID {
	return s.id
}

// Title returns the human-readable title.
func (s *Step) Title() string {
	return s.title
}

// Description returns the longer description.
func (s *Step) Description() string {
	return s.description
}

// DependsOn returns the IDs this step waits for.
func (s *Step) DependsOn() []ID {
	ids := make([]ID, len(s.dependsOn))
	copy(ids, s.dependsOn)
	return ids
}

// DependencyOf returns the IDs this step inserts itself ahead of.
func (s *Step) DependencyOf() []ID {
	ids := make([]ID, len(s.dependencyOf))
	copy(ids, s.dependencyOf)
	return ids
}

// Parent returns the owning step, or nil for top-level steps.
func (s *Step) Parent() *Step {
	return s.parent
}

// SubSteps returns the owned sub-steps in declaration order.
func (s *Step) SubSteps() []*Step {
	subs := make([]*Step, len(s.subSteps))
	copy(subs, s.subSteps)
	return subs
}

// HasSubSteps returns true if the step owns sub-steps.
func (s *Step) HasSubSteps() bool {
	return len(s.subSteps) > 0
}

// RequiresSuccess reports whether failed predecessors block this step.
func (s *Step) RequiresSuccess() bool {
	return s.requiresSuccess
}

// Status returns the current status.
func (s *Step) Status() Status {
	return s.status
}

// StatusCode returns the machine-stable status string.
func (s *Step) StatusCode() string {
	return s.status.String()
}

// Details returns the human-readable status details.
func (s *Step) Details() string {
	return s.details
}

// Risk returns the self-reported build break risk.
func (s *Step) Risk() Risk {
	return s.risk
}

// AllSubStepsDone returns true when every sub-step is complete or skipped.
func (s *Step) AllSubStepsDone() bool {
	for _, sub := range s.subSteps {
		if !sub.status.IsDone() {
			return false
		}
	}
	return true
}

// Walk visits the step and its sub-steps depth-first in declaration order.
func (s *Step) Walk(fn func(*Step) bool) bool {
	if !fn(s) {
		return false
	}
	for _, sub := range s.subSteps {
		if !sub.Walk(fn) {
			return false
		}
	}
	return true
}

// Initialize recomputes the status of the step and its sub-steps from
// external state. It never mutates external state and may be called
// repeatedly.
func (s *Step) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error
	for _, sub := range s.subSteps {
		if err := sub.Initialize(ctx); err != nil {
			if IsCancellation(err) {
				return err
			}
			errs = append(errs, err)
		}
	}

	if err := s.Reevaluate(ctx); err != nil {
		if IsCancellation(err) {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reevaluate recomputes this step's own status without re-initializing its
// sub-steps. Used when a sub-step reports ParentShouldReevaluate.
func (s *Step) Reevaluate(ctx context.Context) error {
	eval, err := s.evaluate(ctx)
	if err != nil {
		if IsCancellation(err) {
			return err
		}
		if settleErr := s.settle(EventInitFailed, Evaluation{Status: StatusFailed, Details: err.Error(), Risk: RiskUnknown}); settleErr != nil {
			return settleErr
		}
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return err
		}
		return NewInitializeFailedError(s.id.String(), err)
	}
	return s.settle(initEvent(eval.Status), eval)
}

func (s *Step) evaluate(ctx context.Context) (Evaluation, error) {
	if s.behavior != nil {
		applicable, err := s.behavior.IsApplicable(ctx)
		if err != nil {
			return Evaluation{}, err
		}
		if !applicable {
			return Evaluation{Status: StatusSkipped, Details: "not applicable", Risk: RiskNone}, nil
		}
	}

	agg := s.aggregate()
	if s.behavior == nil {
		return agg, nil
	}

	own, err := s.behavior.Initialize(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	if !own.Status.IsValid() || own.Status == StatusUnknown {
		return Evaluation{}, NewInvalidEvaluationError(s.id.String(), own.Status)
	}

	// The parent defers to its children until all of them are done.
	if len(s.subSteps) > 0 && own.Status != StatusSkipped && agg.Status != StatusComplete {
		own.Status = agg.Status
		if own.Details == "" {
			own.Details = agg.Details
		}
	}
	if len(s.subSteps) > 0 {
		own.Risk = MaxRisk(own.Risk, agg.Risk)
	}
	return own, nil
}

// aggregate derives a status from sub-steps. A step without sub-steps and
// without behavior is incomplete until applied.
func (s *Step) aggregate() Evaluation {
	if len(s.subSteps) == 0 {
		return Evaluation{Status: StatusIncomplete, Risk: RiskNone}
	}

	var pending, failed int
	risks := make([]Risk, 0, len(s.subSteps))
	for _, sub := range s.subSteps {
		switch sub.status {
		case StatusUnknown, StatusIncomplete:
			pending++
			risks = append(risks, sub.risk)
		case StatusFailed:
			failed++
			risks = append(risks, sub.risk)
		case StatusComplete, StatusSkipped:
		}
	}

	switch {
	case pending > 0:
		return Evaluation{
			Status:  StatusIncomplete,
			Details: fmt.Sprintf("%d of %d sub-steps remaining", pending, len(s.subSteps)),
			Risk:    MaxRisk(risks...),
		}
	case failed > 0:
		return Evaluation{
			Status:  StatusFailed,
			Details: fmt.Sprintf("%d of %d sub-steps failed", failed, len(s.subSteps)),
			Risk:    MaxRisk(risks...),
		}
	default:
		return Evaluation{Status: StatusComplete, Details: "all sub-steps done", Risk: RiskNone}
	}
}

// Apply performs the step's mutation. Applying a complete step is a no-op.
// A cancelled context leaves the status unchanged so the step can be retried.
func (s *Step) Apply(ctx context.Context) (Outcome, error) {
	switch s.status {
	case StatusUnknown:
		return Outcome{Status: s.status}, NewNotInitializedError(s.id.String())
	case StatusComplete:
		return Outcome{Status: s.status}, nil
	case StatusSkipped:
		return Outcome{Status: s.status}, NewSkippedError(s.id.String())
	case StatusIncomplete, StatusFailed:
	}

	if err := ctx.Err(); err != nil {
		return Outcome{Status: s.status}, err
	}

	eval, err := s.run(ctx)
	if err != nil {
		if IsCancellation(err) {
			return Outcome{Status: s.status}, err
		}
		failed := Evaluation{Status: StatusFailed, Details: err.Error(), Risk: s.risk}
		if settleErr := s.settle(EventApplyFailed, failed); settleErr != nil {
			return Outcome{Status: s.status}, settleErr
		}
		return Outcome{Status: s.status}, NewApplyFailedError(s.id.String(), err)
	}

	if err := s.settle(applyEvent(eval.Status), eval); err != nil {
		return Outcome{Status: s.status}, err
	}
	return s.outcome(), nil
}

func (s *Step) run(ctx context.Context) (Evaluation, error) {
	if len(s.subSteps) > 0 {
		if agg := s.aggregate(); agg.Status != StatusComplete {
			return agg, nil
		}
	}
	if s.behavior == nil {
		return Complete(s.details), nil
	}

	eval, err := s.behavior.Apply(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	switch eval.Status {
	case StatusComplete, StatusIncomplete, StatusFailed:
	default:
		return Evaluation{}, NewInvalidEvaluationError(s.id.String(), eval.Status)
	}
	if eval.Risk == "" {
		eval.Risk = s.risk
	}
	return eval, nil
}

// Skip forces the step, and any unfinished sub-steps, to Skipped.
func (s *Step) Skip(reason string) (Outcome, error) {
	for _, sub := range s.subSteps {
		if sub.status.IsTerminal() {
			continue
		}
		if _, err := sub.Skip("parent step skipped"); err != nil {
			return Outcome{Status: s.status}, err
		}
	}

	if reason == "" {
		reason = "skipped"
	}
	if err := s.settle(EventSkip, Evaluation{Status: StatusSkipped, Details: reason, Risk: RiskNone}); err != nil {
		return Outcome{Status: s.status}, err
	}
	return s.outcome(), nil
}

func (s *Step) outcome() Outcome {
	return Outcome{
		Status:                 s.status,
		ParentShouldReevaluate: s.parent != nil && s.status.IsDone(),
	}
}

func (s *Step) settle(event string, eval Evaluation) error {
	if !s.life.Fire(event, eval.Status) {
		return NewIllegalTransitionError(s.id.String(), s.status, eval.Status)
	}
	if eval.Risk == "" {
		eval.Risk = RiskNone
	}
	s.status = eval.Status
	s.details = eval.Details
	s.risk = eval.Risk
	return nil
}

// IsCancellation reports whether err stems from a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
