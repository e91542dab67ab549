// Package readiness decides whether a project is in a state the upgrade can
// handle before anything is mutated.
package readiness

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
)

// Value is the answer of a readiness check.
type Value string

const (
	// Ready means the check found nothing blocking.
	Ready Value = "ready"
	// NotReady stops the project from being selected.
	NotReady Value = "not-ready"
	// Unsupported means a known-unsupported technology was detected. It
	// blocks like NotReady unless unsupported findings are ignored.
	Unsupported Value = "unsupported"
	// Unknown means the check could not answer. It blocks like NotReady.
	Unknown Value = "unknown"
)

// Result is a single check's answer.
type Result struct {
	Value       Value
	Message     string
	Bypassable  bool
	Remediation string
}

// Check inspects a project without mutating it. Checks must be safe to run
// concurrently.
type Check interface {
	ID() string
	Evaluate(ctx context.Context, p project.Project) (Result, error)
}

// BoolCheck adapts a yes/no predicate to Check.
type BoolCheck struct {
	Name        string
	Message     string
	Bypassable  bool
	Remediation string
	Predicate   func(ctx context.Context, p project.Project) (bool, error)
}

// ID implements Check.
func (c BoolCheck) ID() string {
	return c.Name
}

// Evaluate implements Check. A check without a predicate answers Unknown.
func (c BoolCheck) Evaluate(ctx context.Context, p project.Project) (Result, error) {
	if c.Predicate == nil {
		return Result{Value: Unknown, Message: fmt.Sprintf("check %q has no predicate", c.Name)}, nil
	}
	ok, err := c.Predicate(ctx, p)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return Result{Value: Ready}, nil
	}
	return Result{
		Value:       NotReady,
		Message:     c.Message,
		Bypassable:  c.Bypassable,
		Remediation: c.Remediation,
	}, nil
}
