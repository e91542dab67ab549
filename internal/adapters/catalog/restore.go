package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
)

// Restorer builds the package graph from a catalog without running a
// restore. Dependencies resolve to the lowest version they name, as NuGet
// does; packages missing from the catalog become leaves.
type Restorer struct {
	catalog *Catalog
}

var _ deps.Restorer = (*Restorer)(nil)

// NewRestorer creates an offline Restorer.
func NewRestorer(c *Catalog) *Restorer {
	return &Restorer{catalog: c}
}

// Restore implements deps.Restorer.
func (r *Restorer) Restore(ctx context.Context, subject deps.Subject) (deps.RestoreResult, error) {
	resolved := make(map[string]deps.ResolvedPackage)
	queue := append([]deps.PackageReference(nil), subject.PackageReferences()...)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return deps.RestoreResult{}, err
		}
		ref := queue[0]
		queue = queue[1:]

		// Keep the highest version requested for a name.
		if existing, ok := resolved[ref.Key()]; ok && deps.CompareVersions(existing.Version, ref.Version) >= 0 {
			continue
		}
		children, _ := r.catalog.Dependencies(ref.Name, ref.Version)
		resolved[ref.Key()] = deps.ResolvedPackage{Name: ref.Name, Version: ref.Version, Dependencies: children}
		queue = append(queue, children...)
	}

	out := make([]deps.ResolvedPackage, 0, len(resolved))
	for _, p := range resolved {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return deps.RestoreResult{Packages: out}, nil
}
