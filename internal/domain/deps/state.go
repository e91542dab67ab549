package deps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// Convergence and restore errors are distinct so callers can tell a
// transient restore problem from a pipeline that never settled.
var (
	ErrRestoreFailed = errors.New("package restore failed")
	ErrMaxIterations = errors.New("maximum iterations reached - manual review required")
)

// AnalysisState is the accumulator threaded through the analyzers for one
// pass. It is rebuilt, never reused, when the project changes.
type AnalysisState struct {
	Packages   *Collection[PackageReference]
	Frameworks *Collection[FrameworkReference]
	Assemblies *Collection[AssemblyReference]

	LockFilePath string
	CachePath    string
	Targets      []tfm.Framework

	// Restored maps lowercased package names to the restored graph nodes.
	Restored map[string]ResolvedPackage

	Warnings []string

	Failed                            bool
	PossibleBreakingChangeRecommended bool

	flags int
}

// NewAnalysisState restores subject and builds a fresh state. A restore
// failure yields a Failed state and an error wrapping ErrRestoreFailed.
func NewAnalysisState(ctx context.Context, subject Subject, restorer Restorer) (*AnalysisState, error) {
	state := &AnalysisState{
		Packages:   NewCollection(subject.PackageReferences()),
		Frameworks: NewCollection(subject.FrameworkReferences()),
		Assemblies: NewCollection(subject.AssemblyReferences()),
		Targets:    subject.TargetFrameworks(),
		Restored:   make(map[string]ResolvedPackage),
	}

	if restorer == nil {
		return state, nil
	}

	result, err := restorer.Restore(ctx, subject)
	if err != nil {
		state.Failed = true
		return state, fmt.Errorf("%w: %s: %w", ErrRestoreFailed, subject.Name(), err)
	}
	state.LockFilePath = result.LockFilePath
	state.CachePath = result.CachePath
	for _, pkg := range result.Packages {
		state.Restored[strings.ToLower(pkg.Name)] = pkg
	}
	return state, nil
}

// EffectivePackages returns the package references after all pending changes.
func (s *AnalysisState) EffectivePackages() []PackageReference {
	return s.Packages.Effective()
}

// HasChanges reports whether any collection has pending operations.
func (s *AnalysisState) HasChanges() bool {
	return s.Packages.HasChanges() || s.Frameworks.HasChanges() || s.Assemblies.HasChanges()
}

// Warn records a warning for the pass.
func (s *AnalysisState) Warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// FlagBreakingChange marks that a proposed change may break the build.
func (s *AnalysisState) FlagBreakingChange() {
	if !s.PossibleBreakingChangeRecommended {
		s.PossibleBreakingChangeRecommended = true
		s.flags++
	}
}

// Version increases with every recorded mutation.
func (s *AnalysisState) Version() int {
	return s.Packages.Changes() + s.Frameworks.Changes() + s.Assemblies.Changes() + s.flags
}

// TransitiveVersion returns the highest version at which name is required by
// the restored closure of the effective references other than name itself.
func (s *AnalysisState) TransitiveVersion(name string) (string, bool) {
	key := strings.ToLower(name)
	best := ""
	found := false

	visited := make(map[string]bool)
	var queue []string
	for _, ref := range s.EffectivePackages() {
		if ref.Key() != key {
			queue = append(queue, ref.Key())
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		node, ok := s.Restored[current]
		if !ok {
			continue
		}
		for _, dep := range node.Dependencies {
			if dep.Key() == key {
				if !found || CompareVersions(dep.Version, best) > 0 {
					best = dep.Version
				}
				found = true
				continue
			}
			queue = append(queue, dep.Key())
		}
	}
	return best, found
}

// IsTransitive reports whether name appears as a dependency of any restored package.
func (s *AnalysisState) IsTransitive(name string) bool {
	key := strings.ToLower(name)
	for _, node := range s.Restored {
		for _, dep := range node.Dependencies {
			if dep.Key() == key {
				return true
			}
		}
	}
	return false
}
