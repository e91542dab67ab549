package project

import (
	"context"

	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// Candidate is a project in upgrade order with its computed target.
type Candidate struct {
	Project Model
	Target  tfm.Framework
	Done    bool
}

// Resolver offers projects for upgrade in dependency order.
type Resolver struct {
	loader   Loader
	selector TargetSelector
	excluded map[string]bool
}

// NewResolver creates a resolver.
func NewResolver(loader Loader, selector TargetSelector) *Resolver {
	return &Resolver{
		loader:   loader,
		selector: selector,
		excluded: make(map[string]bool),
	}
}

// Exclude stops offering the project at path, e.g. after the user skipped it.
func (r *Resolver) Exclude(path string) {
	r.excluded[Key(path)] = true
}

// Candidates returns every project reachable from entryPoints in traversal
// order with its target and done state.
func (r *Resolver) Candidates(ctx context.Context, entryPoints []Model) ([]Candidate, error) {
	ordered, err := Traverse(ctx, entryPoints, r.loader)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(ordered))
	for _, m := range ordered {
		target := r.selector.Select(m)
		out = append(out, Candidate{Project: m, Target: target, Done: IsDone(m, target)})
	}
	return out, nil
}

// Next returns the first project that is neither done nor excluded, or nil
// when every reachable project is done.
func (r *Resolver) Next(ctx context.Context, entryPoints []Model) (*Candidate, error) {
	candidates, err := r.Candidates(ctx, entryPoints)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := candidates[i]
		if c.Done || r.excluded[Key(c.Project.FilePath())] {
			continue
		}
		return &c, nil
	}
	return nil, nil
}
