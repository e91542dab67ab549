package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize/english"
	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/readiness"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/tui"
	"github.com/felixgeelhaar/uplift/internal/upgrade"
)

// ProjectAnalysis is what an upgrade of one project would do.
type ProjectAnalysis struct {
	Candidate   project.Candidate
	Readiness   *readiness.Report
	Packages    *deps.AnalysisState
	PackageErr  error
	Diagnostics []ports.Diagnostic

	// Previews holds the unified diff of each fixable diagnostic by ID.
	Previews map[string]string
}

// Analysis covers every reachable project in upgrade order.
type Analysis struct {
	Target   string
	Projects []ProjectAnalysis
}

// AnalyzeOptions controls Analyze.
type AnalyzeOptions struct {
	// Diff adds a preview of every automatic source fix.
	Diff bool
}

type previewer interface {
	Preview(ctx context.Context, dir string, d ports.Diagnostic) (string, error)
}

// Analyze reports readiness, pending reference changes and source
// diagnostics for every project that still needs upgrading. Nothing is
// written.
func (u *Upgrader) Analyze(ctx context.Context, inputPath string, opts config.Options, aopts AnalyzeOptions) (*Analysis, error) {
	session, candidates, err := u.candidates(ctx, inputPath, opts)
	if err != nil {
		return nil, err
	}
	svc, err := u.services(session, nil)
	if err != nil {
		return nil, err
	}

	out := &Analysis{Target: session.Target.String()}
	for _, c := range candidates {
		if c.Done {
			continue
		}
		pa := ProjectAnalysis{Candidate: c}

		pa.Readiness, err = svc.Gate.Evaluate(ctx, c.Project, readiness.GateOptions{
			IgnoreUnsupported: opts.IgnoreUnsupported,
			Acknowledge:       opts.Acknowledge,
		})
		if err != nil {
			return nil, err
		}

		pa.Packages, pa.PackageErr = svc.Pipeline.Analyze(ctx, c.Project)
		if pa.PackageErr != nil && step.IsCancellation(pa.PackageErr) {
			return nil, pa.PackageErr
		}

		pa.Diagnostics, err = svc.Fixers.Diagnose(ctx, c.Project.Directory())
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.Project.Name(), err)
		}
		if aopts.Diff {
			pa.Previews = make(map[string]string)
			p, ok := svc.Fixers.(previewer)
			for _, d := range pa.Diagnostics {
				if !ok || !d.Fixable {
					continue
				}
				patch, err := p.Preview(ctx, c.Project.Directory(), d)
				if err != nil {
					return nil, err
				}
				pa.Previews[d.ID] = patch
			}
		}
		out.Projects = append(out.Projects, pa)
	}
	return out, nil
}

// Projects lists every project reachable from the entry points in upgrade
// order with its target and whether it is already done.
func (u *Upgrader) Projects(ctx context.Context, inputPath string, opts config.Options) ([]project.Candidate, error) {
	_, candidates, err := u.candidates(ctx, inputPath, opts)
	return candidates, err
}

// candidates resolves entry points without prompting: configured ones, or
// every root project of the solution.
func (u *Upgrader) candidates(ctx context.Context, inputPath string, opts config.Options) (*upgrade.Session, []project.Candidate, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	target, err := opts.TargetFramework()
	if err != nil {
		return nil, nil, err
	}
	session := upgrade.NewSession(u.newID(), inputPath, opts, target, u.workspace)

	entryPoints, err := upgrade.ResolveEntryPoints(ctx, u.workspace, inputPath, opts.EntryPoints)
	if err != nil {
		return nil, nil, err
	}
	session.EntryPoints = entryPoints

	candidates, err := session.Resolver.Candidates(ctx, entryPoints)
	if err != nil {
		return nil, nil, err
	}
	return session, candidates, nil
}

// PrintAnalysis writes an analysis report.
func (u *Upgrader) PrintAnalysis(a *Analysis) {
	u.printf("\n%s\n", u.styles.Title.Render("Upgrade Analysis"))
	if len(a.Projects) == 0 {
		u.printf("\n%s\n", u.styles.Success.Render("Every project already targets "+a.Target+"."))
		return
	}
	u.printf("%s to upgrade to %s\n", english.Plural(len(a.Projects), "project", ""), a.Target)

	for _, pa := range a.Projects {
		p := pa.Candidate.Project
		u.printf("\n%s %s\n", u.styles.Subtitle.Render(p.Name()),
			u.styles.Muted.Render(fmt.Sprintf("(%s → %s)", tfm.Join(p.TargetFrameworks()), pa.Candidate.Target)))

		if !p.IsSdkStyle() {
			u.printf("  + convert to SDK style\n")
		}
		if pa.Readiness != nil {
			if pa.Readiness.Ready() {
				u.printf("  %s ready\n", u.styles.Success.Render("✓"))
			} else {
				u.printf("  %s %s\n", u.styles.Error.Render("✗"), pa.Readiness.Summary())
			}
			for _, g := range pa.Readiness.Guidance {
				u.printf("    %s\n", u.styles.Muted.Render(g))
			}
		}

		switch {
		case pa.PackageErr != nil:
			u.printf("  %s %s\n", u.styles.Warning.Render("!"), pa.PackageErr)
		case pa.Packages != nil:
			u.printPackageChanges(pa.Packages)
		}

		for _, d := range pa.Diagnostics {
			how := "fixable"
			if !d.Fixable {
				how = "manual"
			}
			u.printf("  %s %s: %s (%s in %s, %s)\n", riskStyle(u.styles, step.Risk(d.Risk)).Render("•"), d.ID, d.Title,
				english.Plural(d.Count, "match", "matches"), english.Plural(len(d.Files), "file", ""), how)
			if patch, ok := pa.Previews[d.ID]; ok && patch != "" {
				u.printf("%s\n", tui.RenderDiff(patch, u.styles))
			}
		}
	}
}

func (u *Upgrader) printPackageChanges(state *deps.AnalysisState) {
	for _, op := range state.Packages.Removals() {
		u.printf("  %s %s %s\n", u.styles.DiffRemove.Render("-"), op.Item, u.styles.Muted.Render(strings.Join(op.Details, "; ")))
	}
	for _, op := range state.Packages.Additions() {
		u.printf("  %s %s %s\n", u.styles.DiffAdd.Render("+"), op.Item, u.styles.Muted.Render(strings.Join(op.Details, "; ")))
	}
	for _, op := range state.Frameworks.Additions() {
		u.printf("  %s framework %s\n", u.styles.DiffAdd.Render("+"), op.Item)
	}
	for _, op := range state.Assemblies.Removals() {
		u.printf("  %s assembly %s\n", u.styles.DiffRemove.Render("-"), op.Item)
	}
	for _, w := range state.Warnings {
		u.printf("  %s %s\n", u.styles.Warning.Render("!"), w)
	}
	if state.PossibleBreakingChangeRecommended {
		u.printf("  %s\n", u.styles.Warning.Render("major version updates may contain breaking changes"))
	}
}

// PrintProjects writes the upgrade order as a table.
func (u *Upgrader) PrintProjects(candidates []project.Candidate) {
	w := tabwriter.NewWriter(u.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tPROJECT\tCURRENT\tTARGET\tSTATE")
	for i, c := range candidates {
		state := "pending"
		if c.Done {
			state = "done"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, c.Project.Name(), tfm.Join(c.Project.TargetFrameworks()), c.Target, state)
	}
	_ = w.Flush()
}
