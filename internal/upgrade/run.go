package upgrade

import (
	"context"

	"github.com/felixgeelhaar/uplift/internal/domain/execution"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// Pass is the outcome of one step tree, which covers at most one project.
type Pass struct {
	Project string
	Results []execution.StepResult
	Summary execution.Summary
}

// Result summarizes a run.
type Result struct {
	Passes   []Pass
	Upgraded []string

	// Completed is true once every reachable project is upgraded.
	Completed bool
}

// Failed returns how many steps ended Failed across all passes.
func (r *Result) Failed() int {
	n := 0
	for _, p := range r.Passes {
		n += p.Summary.Failed
	}
	return n
}

// Run upgrades projects one at a time, building a fresh step tree for each,
// until every reachable project is done or a pass ends without finishing
// its project. Step failures end the run with a nil error; the failing
// step is visible in the last pass.
func Run(ctx context.Context, s *Session, svc Services, driver execution.Driver, opts ...execution.Option) (*Result, error) {
	log := svc.logger()
	opts = append([]execution.Option{
		execution.WithLogger(log),
		execution.WithBlockOnFailedDependency(s.Options.BlockOnFailure),
	}, opts...)

	result := &Result{}
	for {
		steps, err := Steps(s, svc)
		if err != nil {
			return result, err
		}
		orch, err := execution.NewOrchestrator(steps, opts...)
		if err != nil {
			return result, err
		}

		before := len(s.Upgraded)
		runErr := orch.Run(ctx, driver)

		pass := Pass{Results: orch.Results(), Summary: orch.Summary()}
		if len(s.Upgraded) > before {
			pass.Project = s.Upgraded[len(s.Upgraded)-1]
		} else if s.Current != nil {
			pass.Project = s.Current.Project.FilePath()
		}
		result.Passes = append(result.Passes, pass)
		result.Upgraded = append([]string(nil), s.Upgraded...)

		if runErr != nil {
			return result, runErr
		}
		if s.AllDone {
			result.Completed = true
			log.Info(ctx, "upgrade complete", ports.F("projects", len(s.Upgraded)))
			return result, nil
		}
		if len(s.Upgraded) == before {
			log.Warn(ctx, "upgrade stopped before the project was finished", ports.F("project", pass.Project))
			return result, nil
		}
	}
}
