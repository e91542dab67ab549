package readiness

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"golang.org/x/sync/errgroup"
)

// GateOptions carries the user's opt-ins.
type GateOptions struct {
	// IgnoreUnsupported lets Unsupported findings through.
	IgnoreUnsupported bool
	// Acknowledge flips bypassable findings to Ready. They are still logged
	// and recorded as bypassed.
	Acknowledge bool
}

// Finding is one check's result and how the gate treated it.
type Finding struct {
	CheckID   string
	Result    Result
	Effective Value
	Bypassed  bool
	Err       error
}

// Report aggregates every check so the user sees all problems at once.
type Report struct {
	Project  string
	Findings []Finding
	Guidance []string
}

// Ready reports whether no finding blocks the project.
func (r *Report) Ready() bool {
	for _, f := range r.Findings {
		if f.Effective != Ready {
			return false
		}
	}
	return true
}

// Blocking returns the findings that stop selection.
func (r *Report) Blocking() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Effective != Ready {
			out = append(out, f)
		}
	}
	return out
}

// Summary renders blocking findings as one message.
func (r *Report) Summary() string {
	blocking := r.Blocking()
	if len(blocking) == 0 {
		return fmt.Sprintf("%s is ready", r.Project)
	}
	parts := make([]string, len(blocking))
	for i, f := range blocking {
		parts[i] = fmt.Sprintf("%s (%s): %s", f.CheckID, f.Effective, f.Result.Message)
	}
	return fmt.Sprintf("%s is not ready: %s", r.Project, strings.Join(parts, "; "))
}

// Gate runs readiness checks.
type Gate struct {
	checks []Check
	logger ports.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the gate logger.
func WithLogger(logger ports.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates a gate over checks, reported in registration order.
func NewGate(checks []Check, opts ...GateOption) *Gate {
	g := &Gate{checks: checks, logger: ports.Discard}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs all checks concurrently and aggregates them. A check that
// errors counts as NotReady. Only cancellation is returned as an error.
func (g *Gate) Evaluate(ctx context.Context, p project.Project, opts GateOptions) (*Report, error) {
	findings := make([]Finding, len(g.checks))

	group, gctx := errgroup.WithContext(ctx)
	for i, check := range g.checks {
		group.Go(func() error {
			result, err := check.Evaluate(gctx, p)
			if err != nil && step.IsCancellation(err) {
				return err
			}
			findings[i] = Finding{CheckID: check.ID(), Result: result, Err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Project: p.Name(), Findings: findings}
	for i := range report.Findings {
		g.settle(ctx, report, &report.Findings[i], opts)
	}
	return report, nil
}

func (g *Gate) settle(ctx context.Context, report *Report, f *Finding, opts GateOptions) {
	fields := []ports.Field{ports.F("project", report.Project), ports.F("check", f.CheckID)}

	if f.Err != nil {
		f.Result = Result{Value: NotReady, Message: fmt.Sprintf("could not determine readiness: %v", f.Err)}
		f.Effective = NotReady
		g.logger.Warn(ctx, f.Result.Message, fields...)
		return
	}

	switch f.Result.Value {
	case Ready:
		f.Effective = Ready
		return
	case Unsupported:
		guidance := f.Result.Message
		if f.Result.Remediation != "" {
			guidance = fmt.Sprintf("%s (see %s)", guidance, f.Result.Remediation)
		}
		report.Guidance = append(report.Guidance, guidance)
		f.Effective = Unsupported
		if opts.IgnoreUnsupported {
			f.Effective = Ready
		}
	case NotReady, Unknown:
		f.Effective = NotReady
	default:
		f.Effective = NotReady
		f.Result.Message = fmt.Sprintf("check returned unknown value %q", f.Result.Value)
	}

	if f.Effective != Ready && f.Result.Bypassable && opts.Acknowledge {
		f.Effective = Ready
		f.Bypassed = true
		g.logger.Warn(ctx, "readiness check bypassed: "+f.Result.Message, append(fields, ports.F("remediation", f.Result.Remediation))...)
		return
	}

	if f.Effective == Ready {
		g.logger.Info(ctx, "unsupported technology ignored: "+f.Result.Message, fields...)
		return
	}
	g.logger.Warn(ctx, f.Result.Message, append(fields, ports.F("result", string(f.Effective)))...)
}
