package deps

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/pelletier/go-toml/v2"
)

//go:embed packagemap.toml
var defaultPackageMap []byte

// VersionLatest asks the registry for the newest version supporting the targets.
const VersionLatest = "latest"

// PackageMap is a table of known package replacements.
type PackageMap struct {
	Entries []MapEntry `toml:"entry"`
}

// MapEntry replaces the Old packages with New packages and framework references.
type MapEntry struct {
	Name             string             `toml:"name"`
	Old              []string           `toml:"old"`
	OldAssemblies    []string           `toml:"old_assemblies"`
	New              []PackageReference `toml:"new"`
	Frameworks       []string           `toml:"frameworks"`
	OnlyIfTransitive bool               `toml:"only_if_transitive"`
}

// ParsePackageMap decodes a TOML package map.
func ParsePackageMap(data []byte) (*PackageMap, error) {
	var m PackageMap
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse package map: %w", err)
	}
	for i, entry := range m.Entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("package map entry %d has no name", i)
		}
		if len(entry.Old) == 0 && len(entry.OldAssemblies) == 0 {
			return nil, fmt.Errorf("package map entry %q replaces nothing", entry.Name)
		}
	}
	return &m, nil
}

// DefaultPackageMap returns the embedded package map.
func DefaultPackageMap() (*PackageMap, error) {
	return ParsePackageMap(defaultPackageMap)
}

// Merge returns a map with other's entries overriding same-named entries.
func (m *PackageMap) Merge(other *PackageMap) *PackageMap {
	merged := &PackageMap{}
	index := make(map[string]int)
	for _, src := range []*PackageMap{m, other} {
		if src == nil {
			continue
		}
		for _, entry := range src.Entries {
			key := strings.ToLower(entry.Name)
			if i, ok := index[key]; ok {
				merged.Entries[i] = entry
				continue
			}
			index[key] = len(merged.Entries)
			merged.Entries = append(merged.Entries, entry)
		}
	}
	return merged
}

// PackageMapAnalyzer applies a PackageMap.
type PackageMapAnalyzer struct {
	Map *PackageMap
}

// Name implements Analyzer.
func (PackageMapAnalyzer) Name() string { return "package-map" }

// Analyze implements Analyzer. An entry gated by OnlyIfTransitive fires only
// when one of its old packages is required by another package.
func (a PackageMapAnalyzer) Analyze(ctx context.Context, in Input, state *AnalysisState) error {
	if a.Map == nil {
		return nil
	}

	for _, entry := range a.Map.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		oldKeys := make(map[string]bool, len(entry.Old))
		transitive := false
		for _, name := range entry.Old {
			oldKeys[strings.ToLower(name)] = true
			if state.IsTransitive(name) {
				transitive = true
			}
		}
		if entry.OnlyIfTransitive && !transitive {
			continue
		}

		var direct []PackageReference
		for _, ref := range state.EffectivePackages() {
			if oldKeys[ref.Key()] {
				direct = append(direct, ref)
			}
		}
		var assemblies []AssemblyReference
		for _, name := range entry.OldAssemblies {
			assemblies = append(assemblies, state.Assemblies.Find(strings.ToLower(name))...)
		}
		if len(direct) == 0 && len(assemblies) == 0 && !(entry.OnlyIfTransitive && transitive) {
			continue
		}

		replacements, ok := a.resolve(ctx, in, state, entry)
		if !ok {
			continue
		}

		detail := fmt.Sprintf("replaced per package map %q", entry.Name)
		if len(replacements) > 0 {
			names := make([]string, len(replacements))
			for i, r := range replacements {
				names[i] = r.String()
			}
			detail = fmt.Sprintf("replaced by %s per package map %q", strings.Join(names, "; "), entry.Name)
		}
		details := OperationDetails{Details: []string{detail}, Risk: step.RiskMedium}

		for _, ref := range direct {
			state.Packages.Remove(ref, details)
		}
		for _, ref := range assemblies {
			state.Assemblies.Remove(ref, details)
		}
		for _, ref := range replacements {
			if hasAtLeast(state, ref) {
				continue
			}
			state.Packages.Add(ref, OperationDetails{
				Details: []string{fmt.Sprintf("added per package map %q", entry.Name)},
				Risk:    step.RiskMedium,
			})
		}
		for _, name := range entry.Frameworks {
			fw := FrameworkReference{Name: name}
			if state.Frameworks.Contains(fw.Key()) {
				continue
			}
			state.Frameworks.Add(fw, OperationDetails{
				Details: []string{fmt.Sprintf("shared framework required by package map %q", entry.Name)},
				Risk:    step.RiskLow,
			})
		}
	}
	return nil
}

// resolve turns "latest" versions into concrete ones. A failed lookup skips
// the entry rather than guessing.
func (a PackageMapAnalyzer) resolve(ctx context.Context, in Input, state *AnalysisState, entry MapEntry) ([]PackageReference, bool) {
	out := make([]PackageReference, 0, len(entry.New))
	for _, ref := range entry.New {
		if ref.Version != "" && !strings.EqualFold(ref.Version, VersionLatest) {
			out = append(out, ref)
			continue
		}
		if in.Registry == nil {
			state.Warn("package map %q: no registry to resolve %s", entry.Name, ref.Name)
			return nil, false
		}
		version, err := in.Registry.GetLatestVersion(ctx, ref.Name, state.Targets)
		if err != nil {
			state.Warn("package map %q: could not resolve latest %s: %v", entry.Name, ref.Name, err)
			return nil, false
		}
		out = append(out, PackageReference{Name: ref.Name, Version: version})
	}
	return out, true
}

func hasAtLeast(state *AnalysisState, ref PackageReference) bool {
	for _, existing := range state.Packages.Find(ref.Key()) {
		if CompareVersions(existing.Version, ref.Version) >= 0 {
			return true
		}
	}
	return false
}
