package upgrade

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// allProjectsKey is the choice that makes every root project an entry point.
const allProjectsKey = "*"

type entryPointStep struct {
	session *Session
	svc     Services
}

func (e *entryPointStep) IsApplicable(context.Context) (bool, error) {
	return true, nil
}

func (e *entryPointStep) Initialize(context.Context) (step.Evaluation, error) {
	if len(e.session.EntryPoints) > 0 {
		return step.Complete("Entry points: " + names(e.session.EntryPoints)), nil
	}
	return step.Incomplete("Choose the projects to start from", step.RiskNone), nil
}

func (e *entryPointStep) Apply(ctx context.Context) (step.Evaluation, error) {
	models, err := loadAll(ctx, e.svc.Workspace, e.session.InputPath)
	if err != nil {
		return step.Evaluation{}, err
	}
	if len(models) == 0 {
		return step.Failed("no projects found in " + e.session.InputPath), nil
	}

	chosen, err := e.choose(ctx, models)
	if err != nil {
		if errors.Is(err, ports.ErrNoChoice) {
			return step.Failed("no entry point chosen"), nil
		}
		return step.Evaluation{}, err
	}
	e.session.EntryPoints = chosen
	e.svc.logger().Info(ctx, "entry points selected", ports.F("projects", names(chosen)))
	return step.Complete("Entry points: " + names(chosen)), nil
}

// choose resolves configured entry points, or asks when the solution has
// more than one root project.
func (e *entryPointStep) choose(ctx context.Context, models []project.Model) ([]project.Model, error) {
	if configured := e.session.Options.EntryPoints; len(configured) > 0 {
		return matchEntryPoints(models, configured)
	}

	roots := project.Roots(models)
	if len(roots) == 0 {
		// Every project is referenced, so references form a cycle; let
		// traversal report it.
		roots = models
	}
	if len(roots) == 1 {
		return roots, nil
	}

	choices := make([]ports.Choice, 0, len(roots)+1)
	choices = append(choices, ports.Choice{
		Key:         allProjectsKey,
		Label:       "All projects",
		Description: fmt.Sprintf("Upgrade %s and everything they reference", names(roots)),
	})
	for _, r := range roots {
		choices = append(choices, ports.Choice{
			Key:         r.FilePath(),
			Label:       r.Name(),
			Description: fmt.Sprintf("%s project at %s", r.OutputKind(), r.FilePath()),
		})
	}

	choice, err := e.svc.Chooser.Choose(ctx, "Which project should the upgrade start from?", choices)
	if err != nil {
		return nil, err
	}
	if choice.Key == allProjectsKey {
		return roots, nil
	}
	for _, r := range roots {
		if r.FilePath() == choice.Key {
			return []project.Model{r}, nil
		}
	}
	return nil, fmt.Errorf("unknown entry point %q", choice.Key)
}

// ResolveEntryPoints returns the configured entry points of the solution at
// inputPath, or all of its root projects when none are configured.
func ResolveEntryPoints(ctx context.Context, ws project.Workspace, inputPath string, configured []string) ([]project.Model, error) {
	models, err := loadAll(ctx, ws, inputPath)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no projects found in %s", inputPath)
	}
	if len(configured) > 0 {
		return matchEntryPoints(models, configured)
	}
	if roots := project.Roots(models); len(roots) > 0 {
		return roots, nil
	}
	return models, nil
}

func loadAll(ctx context.Context, ws project.Workspace, inputPath string) ([]project.Model, error) {
	paths, err := ws.Projects(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	models := make([]project.Model, 0, len(paths))
	for _, path := range paths {
		m, err := ws.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		models = append(models, m)
	}
	return models, nil
}

// matchEntryPoints finds configured entry points by project name, file name
// or path.
func matchEntryPoints(models []project.Model, configured []string) ([]project.Model, error) {
	var out []project.Model
	for _, want := range configured {
		found := false
		for _, m := range models {
			if strings.EqualFold(m.Name(), want) ||
				strings.EqualFold(filepath.Base(m.FilePath()), want) ||
				project.Key(m.FilePath()) == project.Key(want) {
				out = append(out, m)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("entry point %q is not part of the solution", want)
		}
	}
	return out, nil
}

func names(models []project.Model) string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.Name()
	}
	return strings.Join(out, ", ")
}
