package upgrade

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

type targetStep struct {
	session *Session
}

func (t *targetStep) IsApplicable(context.Context) (bool, error) {
	return t.session.Current != nil, nil
}

func (t *targetStep) Initialize(context.Context) (step.Evaluation, error) {
	c := t.session.Current
	if project.IsDone(c.Project, c.Target) {
		return step.Complete(fmt.Sprintf("%s targets %s", c.Project.Name(), tfm.Join(c.Project.TargetFrameworks()))), nil
	}
	return step.Incomplete(fmt.Sprintf("Retarget %s from %s to %s",
		c.Project.Name(), tfm.Join(c.Project.TargetFrameworks()), c.Target), step.RiskMedium), nil
}

func (t *targetStep) Apply(ctx context.Context) (step.Evaluation, error) {
	c := t.session.Current
	next := Retarget(c.Project.TargetFrameworks(), c.Target)
	if err := c.Project.SetTargetFrameworks(next); err != nil {
		return step.Evaluation{}, err
	}
	if err := c.Project.Save(ctx); err != nil {
		return step.Evaluation{}, fmt.Errorf("failed to save %s: %w", c.Project.Name(), err)
	}
	if err := c.Project.Reload(ctx); err != nil {
		return step.Evaluation{}, fmt.Errorf("failed to reload %s: %w", c.Project.Name(), err)
	}
	return step.Complete(fmt.Sprintf("%s now targets %s", c.Project.Name(), tfm.Join(next))), nil
}

// Retarget keeps the frameworks that already satisfy target and replaces
// all others with target. The result has no duplicates.
func Retarget(current []tfm.Framework, target tfm.Framework) []tfm.Framework {
	seen := make(map[string]bool, len(current)+1)
	out := make([]tfm.Framework, 0, len(current)+1)
	add := func(f tfm.Framework) {
		if !seen[f.String()] {
			seen[f.String()] = true
			out = append(out, f)
		}
	}
	for _, f := range current {
		if f.Satisfies(target) {
			add(f)
		} else {
			add(target)
		}
	}
	if len(out) == 0 {
		add(target)
	}
	return out
}
