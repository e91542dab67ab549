package upgrade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

type packagesStep struct {
	session *Session
	svc     Services
}

func (p *packagesStep) IsApplicable(context.Context) (bool, error) {
	return p.session.Current != nil, nil
}

func (p *packagesStep) Initialize(ctx context.Context) (step.Evaluation, error) {
	proj := p.session.Current.Project
	state, err := p.svc.Pipeline.Analyze(ctx, proj)
	if err != nil {
		if step.IsCancellation(err) {
			return step.Evaluation{}, err
		}
		return step.Incomplete("Analysis failed: "+err.Error(), step.RiskUnknown), nil
	}
	if !state.HasChanges() {
		return step.Complete("Package references are up to date"), nil
	}

	risks := pendingRisks(state.Packages)
	risks = append(risks, pendingRisks(state.Frameworks)...)
	risks = append(risks, pendingRisks(state.Assemblies)...)
	risk := step.MaxRisk(risks...)
	if state.PossibleBreakingChangeRecommended {
		risk = step.MaxRisk(risk, step.RiskHigh)
	}

	n := state.Packages.Count() + state.Frameworks.Count() + state.Assemblies.Count()
	return step.Incomplete(fmt.Sprintf("%d reference changes pending", n), risk), nil
}

func (p *packagesStep) Apply(ctx context.Context) (step.Evaluation, error) {
	proj := p.session.Current.Project
	result, err := p.svc.Pipeline.Converge(ctx, proj)
	if err != nil {
		if errors.Is(err, deps.ErrMaxIterations) || errors.Is(err, deps.ErrRestoreFailed) {
			return step.Failed(err.Error()), nil
		}
		return step.Evaluation{}, err
	}

	for _, w := range result.Warnings {
		p.svc.logger().Warn(ctx, "dependency warning", ports.F("project", proj.Name()), ports.F("warning", w))
	}
	eval := step.Complete(describeChanges(result))
	eval.Risk = result.Risk()
	return eval, nil
}

func pendingRisks[T deps.Reference](c *deps.Collection[T]) []step.Risk {
	var out []step.Risk
	for _, op := range c.Removals() {
		out = append(out, op.Risk)
	}
	for _, op := range c.Additions() {
		out = append(out, op.Risk)
	}
	return out
}

func describeChanges(r *deps.ConvergeResult) string {
	if len(r.Changes) == 0 {
		return "Package references are up to date"
	}
	lines := make([]string, 0, len(r.Changes)+1)
	lines = append(lines, fmt.Sprintf("Applied %d reference changes in %d iterations", len(r.Changes), r.Iterations))
	for _, c := range r.Changes {
		lines = append(lines, "  "+c.String())
	}
	if r.PossibleBreakingChange {
		lines = append(lines, "Major version updates may contain breaking changes")
	}
	return strings.Join(lines, "\n")
}
