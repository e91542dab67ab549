package step

import "context"

// Evaluation is a behavior's report of a step's state.
type Evaluation struct {
	Status  Status
	Details string
	Risk    Risk
}

// Complete returns a complete evaluation with details.
func Complete(details string) Evaluation {
	return Evaluation{Status: StatusComplete, Details: details, Risk: RiskNone}
}

// Incomplete returns an incomplete evaluation with details and risk.
func Incomplete(details string, risk Risk) Evaluation {
	return Evaluation{Status: StatusIncomplete, Details: details, Risk: risk}
}

// Failed returns a failed evaluation with details.
func Failed(details string) Evaluation {
	return Evaluation{Status: StatusFailed, Details: details, Risk: RiskUnknown}
}

// Behavior is the step-kind specific part of a Step. Initialize must not
// mutate external state; Apply performs the mutation.
type Behavior interface {
	// IsApplicable reports whether the step applies to the current state at all.
	IsApplicable(ctx context.Context) (bool, error)

	// Initialize computes the current status from external state.
	Initialize(ctx context.Context) (Evaluation, error)

	// Apply performs the step's mutation and reports the resulting state.
	Apply(ctx context.Context) (Evaluation, error)
}

// BehaviorFuncs adapts plain functions to Behavior. Nil functions default to
// applicable, incomplete, and complete respectively.
type BehaviorFuncs struct {
	IsApplicableFunc func(ctx context.Context) (bool, error)
	InitializeFunc   func(ctx context.Context) (Evaluation, error)
	ApplyFunc        func(ctx context.Context) (Evaluation, error)
}

// IsApplicable implements Behavior.
func (b BehaviorFuncs) IsApplicable(ctx context.Context) (bool, error) {
	if b.IsApplicableFunc == nil {
		return true, nil
	}
	return b.IsApplicableFunc(ctx)
}

// Initialize implements Behavior.
func (b BehaviorFuncs) Initialize(ctx context.Context) (Evaluation, error) {
	if b.InitializeFunc == nil {
		return Incomplete("", RiskNone), nil
	}
	return b.InitializeFunc(ctx)
}

// Apply implements Behavior.
func (b BehaviorFuncs) Apply(ctx context.Context) (Evaluation, error) {
	if b.ApplyFunc == nil {
		return Complete(""), nil
	}
	return b.ApplyFunc(ctx)
}

var _ Behavior = BehaviorFuncs{}
