package upgrade

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// sourceScan caches the diagnostics of one project directory.
type sourceScan struct {
	found map[string]ports.Diagnostic
}

// scan diagnoses the current project, reusing the last result until a fix
// invalidates it.
func (s *Session) scan(ctx context.Context, fixers ports.FixProvider) (*sourceScan, error) {
	key := project.Key(s.Current.Project.Directory())
	if cached, ok := s.scans[key]; ok {
		return cached, nil
	}
	diags, err := fixers.Diagnose(ctx, s.Current.Project.Directory())
	if err != nil {
		return nil, err
	}
	scan := &sourceScan{found: make(map[string]ports.Diagnostic, len(diags))}
	for _, d := range diags {
		scan.found[d.ID] = d
	}
	s.scans[key] = scan
	return scan, nil
}

func (s *Session) invalidateScan() {
	if s.Current != nil {
		delete(s.scans, project.Key(s.Current.Project.Directory()))
	}
}

// sourceStep groups one sub-step per known source rule.
type sourceStep struct {
	session *Session
}

func (s *sourceStep) IsApplicable(context.Context) (bool, error) {
	return s.session.Current != nil, nil
}

func (s *sourceStep) Initialize(context.Context) (step.Evaluation, error) {
	return step.Complete("Source is free of known issues"), nil
}

func (s *sourceStep) Apply(context.Context) (step.Evaluation, error) {
	return step.Complete("Source is free of known issues"), nil
}

func newSourceStep(s *Session, svc Services) (*step.Step, error) {
	var subs []*step.Step
	if svc.Fixers != nil {
		for _, rule := range svc.Fixers.Rules() {
			id, err := SourceID.Child(rule.ID)
			if err != nil {
				return nil, fmt.Errorf("source rule %q: %w", rule.ID, err)
			}
			subs = append(subs, step.New(id, rule.Title, &ruleStep{session: s, svc: svc, rule: rule}))
		}
	}
	return step.New(SourceID, "Fix source code", &sourceStep{session: s},
		step.WithDescription("Rewrite source patterns that do not work on the target framework."),
		step.WithDependsOn(PackagesID),
		step.WithSubSteps(subs...)), nil
}

// ruleStep fixes the matches of a single rule.
type ruleStep struct {
	session *Session
	svc     Services
	rule    ports.Diagnostic
}

func (r *ruleStep) IsApplicable(ctx context.Context) (bool, error) {
	if r.session.Current == nil {
		return false, nil
	}
	_, ok, err := r.find(ctx)
	return ok, err
}

func (r *ruleStep) Initialize(ctx context.Context) (step.Evaluation, error) {
	d, ok, err := r.find(ctx)
	if err != nil {
		return step.Evaluation{}, err
	}
	if !ok {
		return step.Complete("No matches"), nil
	}
	details := fmt.Sprintf("%d matches in %d files", d.Count, len(d.Files))
	if !d.Fixable {
		details += "; must be fixed by hand"
	}
	return step.Incomplete(details, step.Risk(d.Risk)), nil
}

func (r *ruleStep) Apply(ctx context.Context) (step.Evaluation, error) {
	d, ok, err := r.find(ctx)
	if err != nil {
		return step.Evaluation{}, err
	}
	if !ok {
		return step.Complete("No matches"), nil
	}

	if d.Fixable {
		res, err := r.svc.Fixers.Fix(ctx, r.session.Current.Project.Directory(), d)
		r.session.invalidateScan()
		if err != nil {
			return step.Evaluation{}, err
		}
		r.svc.logger().Debug(ctx, "source rule applied", ports.F("rule", d.ID), ports.F("files", res.FilesChanged))
	} else {
		// Someone may have fixed it by hand since the last scan.
		r.session.invalidateScan()
	}

	left, ok, err := r.find(ctx)
	if err != nil {
		return step.Evaluation{}, err
	}
	if ok {
		if !left.Fixable {
			return step.Failed(fmt.Sprintf("%d matches in %d files must be fixed by hand", left.Count, len(left.Files))), nil
		}
		return step.Failed(fmt.Sprintf("%d matches remain after the fix", left.Count)), nil
	}
	return step.Complete(fmt.Sprintf("Fixed %d matches in %d files", d.Count, len(d.Files))), nil
}

func (r *ruleStep) find(ctx context.Context) (ports.Diagnostic, bool, error) {
	scan, err := r.session.scan(ctx, r.svc.Fixers)
	if err != nil {
		return ports.Diagnostic{}, false, err
	}
	d, ok := scan.found[r.rule.ID]
	return d, ok, nil
}
