package upgrade

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/uplift/internal/domain/readiness"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// AllUpgraded is the detail reported once nothing is left to upgrade.
const AllUpgraded = "all projects upgraded"

type projectStep struct {
	session *Session
	svc     Services
}

func (p *projectStep) IsApplicable(context.Context) (bool, error) {
	return len(p.session.EntryPoints) > 0, nil
}

func (p *projectStep) Initialize(ctx context.Context) (step.Evaluation, error) {
	if c := p.session.Current; c != nil {
		return step.Complete(fmt.Sprintf("Upgrading %s to %s", c.Project.Name(), c.Target)), nil
	}
	next, err := p.session.Resolver.Next(ctx, p.session.EntryPoints)
	if err != nil {
		return step.Evaluation{}, err
	}
	if next == nil {
		p.session.AllDone = true
		return step.Complete(AllUpgraded), nil
	}
	return step.Incomplete(fmt.Sprintf("Next project: %s (%s)", next.Project.Name(), next.Target), step.RiskNone), nil
}

func (p *projectStep) Apply(ctx context.Context) (step.Evaluation, error) {
	next, err := p.session.Resolver.Next(ctx, p.session.EntryPoints)
	if err != nil {
		return step.Evaluation{}, err
	}
	if next == nil {
		p.session.AllDone = true
		return step.Complete(AllUpgraded), nil
	}

	report, err := p.svc.Gate.Evaluate(ctx, next.Project, readiness.GateOptions{
		IgnoreUnsupported: p.session.Options.IgnoreUnsupported,
		Acknowledge:       p.session.Options.Acknowledge,
	})
	if err != nil {
		return step.Evaluation{}, err
	}
	p.session.Readiness = report
	if !report.Ready() {
		return step.Failed(report.Summary()), nil
	}

	p.session.Current = next
	p.svc.logger().Info(ctx, "project selected",
		ports.F("project", next.Project.Name()),
		ports.F("target", next.Target.String()))
	return step.Complete(fmt.Sprintf("Upgrading %s to %s", next.Project.Name(), next.Target)), nil
}
