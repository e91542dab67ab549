package deps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// Input is what every analyzer receives next to the state.
type Input struct {
	Subject  Subject
	Registry Registry
}

// Analyzer proposes reference changes by mutating the state's collections.
// Analyzers read the effective view so they never reintroduce what an
// earlier analyzer removed.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in Input, state *AnalysisState) error
}

// DuplicateReferenceAnalyzer keeps only the highest version of a package
// that is referenced more than once.
type DuplicateReferenceAnalyzer struct{}

// Name implements Analyzer.
func (DuplicateReferenceAnalyzer) Name() string { return "duplicate" }

// Analyze implements Analyzer.
func (DuplicateReferenceAnalyzer) Analyze(_ context.Context, _ Input, state *AnalysisState) error {
	groups := make(map[string][]PackageReference)
	var order []string
	for _, ref := range state.EffectivePackages() {
		if _, seen := groups[ref.Key()]; !seen {
			order = append(order, ref.Key())
		}
		groups[ref.Key()] = append(groups[ref.Key()], ref)
	}

	for _, key := range order {
		refs := groups[key]
		if len(refs) < 2 {
			continue
		}
		sort.SliceStable(refs, func(i, j int) bool {
			return CompareVersions(refs[i].Version, refs[j].Version) > 0
		})
		keep := refs[0]
		for _, dup := range refs[1:] {
			state.Packages.Remove(dup, OperationDetails{
				Details: []string{fmt.Sprintf("duplicate reference to %s; keeping %s", dup.Name, keep.Version)},
				Risk:    step.RiskNone,
			})
		}
	}
	return nil
}

// TransitiveReferenceAnalyzer removes direct references that another
// effective reference already brings in at an equal or higher version.
type TransitiveReferenceAnalyzer struct{}

// RationaleTransitive is the rationale recorded for transitive removals.
const RationaleTransitive = "transitive"

// Name implements Analyzer.
func (TransitiveReferenceAnalyzer) Name() string { return "transitive" }

// Analyze implements Analyzer.
func (TransitiveReferenceAnalyzer) Analyze(_ context.Context, _ Input, state *AnalysisState) error {
	for _, ref := range state.EffectivePackages() {
		transitive, ok := state.TransitiveVersion(ref.Name)
		if !ok {
			continue
		}
		if CompareVersions(transitive, ref.Version) < 0 {
			continue
		}
		state.Packages.Remove(ref, OperationDetails{
			Details: []string{RationaleTransitive},
			Risk:    step.RiskLow,
		})
	}
	return nil
}

// TargetCompatibilityAnalyzer upgrades references that have no assets for
// the target frameworks to the earliest compatible newer version.
type TargetCompatibilityAnalyzer struct{}

// Name implements Analyzer.
func (TargetCompatibilityAnalyzer) Name() string { return "target-compatibility" }

// Analyze implements Analyzer.
func (TargetCompatibilityAnalyzer) Analyze(ctx context.Context, in Input, state *AnalysisState) error {
	if in.Registry == nil || len(state.Targets) == 0 {
		return nil
	}

	for _, ref := range state.EffectivePackages() {
		if err := ctx.Err(); err != nil {
			return err
		}

		supported, err := in.Registry.DoesPackageSupportTargets(ctx, ref, state.Targets)
		if err != nil {
			state.Warn("could not determine whether %s supports %s: %v", ref, tfm.Join(state.Targets), err)
			continue
		}
		if supported {
			continue
		}

		newer, err := in.Registry.GetNewerVersions(ctx, ref.Name, ref.Version)
		if err != nil {
			state.Warn("could not list newer versions of %s: %v", ref.Name, err)
			continue
		}

		current, err := ParseVersion(ref.Version)
		if err != nil {
			state.Warn("cannot upgrade %s: %v", ref, err)
			continue
		}

		var found *PackageReference
		var foundVersion Version
		for _, candidate := range orderCandidates(current, newer) {
			next := PackageReference{Name: ref.Name, Version: candidate.String()}
			ok, err := in.Registry.DoesPackageSupportTargets(ctx, next, state.Targets)
			if err != nil {
				state.Warn("could not determine whether %s supports %s: %v", next, tfm.Join(state.Targets), err)
				continue
			}
			if ok {
				found = &next
				foundVersion = candidate
				break
			}
		}

		if found == nil {
			state.Warn("no version of %s supports %s; leaving %s in place", ref.Name, tfm.Join(state.Targets), ref.Version)
			continue
		}

		risk := step.RiskLow
		switch {
		case foundVersion.IsPrerelease():
			risk = step.RiskHigh
			state.FlagBreakingChange()
		case foundVersion.Major() > current.Major():
			risk = step.RiskMedium
			state.FlagBreakingChange()
		}

		state.Packages.Add(*found, OperationDetails{
			Details: []string{fmt.Sprintf("%s does not support %s; upgrading to %s", ref, tfm.Join(state.Targets), found.Version)},
			Risk:    risk,
		})
	}
	return nil
}

// orderCandidates returns newer versions in search order: stable versions of
// the same major, then stable higher majors, then prereleases, each ascending.
func orderCandidates(current Version, versions []string) []Version {
	var sameMajor, higherMajor, prerelease []Version
	for _, raw := range versions {
		v, err := ParseVersion(raw)
		if err != nil || v.Compare(current) <= 0 {
			continue
		}
		switch {
		case v.IsPrerelease():
			prerelease = append(prerelease, v)
		case v.Major() == current.Major():
			sameMajor = append(sameMajor, v)
		default:
			higherMajor = append(higherMajor, v)
		}
	}

	out := make([]Version, 0, len(sameMajor)+len(higherMajor)+len(prerelease))
	for _, group := range [][]Version{sameMajor, higherMajor, prerelease} {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Compare(group[j]) < 0 })
		out = append(out, group...)
	}
	return out
}

// WindowsCompatibilityAnalyzer ensures the Windows compatibility pack is
// referenced when a target uses the windows platform.
type WindowsCompatibilityAnalyzer struct {
	PackageName string
	MinVersion  string
}

// Defaults for the Windows compatibility pack.
const (
	WindowsCompatibilityPackage    = "Microsoft.Windows.Compatibility"
	WindowsCompatibilityMinVersion = "8.0.0"
)

// Name implements Analyzer.
func (WindowsCompatibilityAnalyzer) Name() string { return "windows-compatibility" }

// Analyze implements Analyzer.
func (a WindowsCompatibilityAnalyzer) Analyze(_ context.Context, _ Input, state *AnalysisState) error {
	windows := false
	for _, target := range state.Targets {
		if target.IsWindows() {
			windows = true
			break
		}
	}
	if !windows {
		return nil
	}

	name := a.PackageName
	if name == "" {
		name = WindowsCompatibilityPackage
	}
	minVersion := a.MinVersion
	if minVersion == "" {
		minVersion = WindowsCompatibilityMinVersion
	}

	existing := state.Packages.Find(strings.ToLower(name))
	for _, ref := range existing {
		if CompareVersions(ref.Version, minVersion) >= 0 {
			return nil
		}
	}

	detail := fmt.Sprintf("windows targets need %s %s or later", name, minVersion)
	state.Packages.Add(PackageReference{Name: name, Version: minVersion}, OperationDetails{
		Details: []string{detail},
		Risk:    step.RiskLow,
	})
	return nil
}

// DefaultAnalyzers returns the analyzers in the order they must run.
func DefaultAnalyzers(packageMap *PackageMap) []Analyzer {
	return []Analyzer{
		DuplicateReferenceAnalyzer{},
		TransitiveReferenceAnalyzer{},
		TargetCompatibilityAnalyzer{},
		PackageMapAnalyzer{Map: packageMap},
		WindowsCompatibilityAnalyzer{},
	}
}
