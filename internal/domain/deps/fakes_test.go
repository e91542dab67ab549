package deps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

type fakePackage struct {
	version    string
	frameworks []string
	deps       []PackageReference
}

// fakeRegistry is a deterministic in-memory registry.
type fakeRegistry struct {
	packages     map[string][]fakePackage
	supportCalls int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{packages: make(map[string][]fakePackage)}
}

func (r *fakeRegistry) add(name, version string, frameworks []string, deps ...PackageReference) *fakeRegistry {
	key := strings.ToLower(name)
	r.packages[key] = append(r.packages[key], fakePackage{version: version, frameworks: frameworks, deps: deps})
	return r
}

func (r *fakeRegistry) find(name, version string) (fakePackage, bool) {
	for _, p := range r.packages[strings.ToLower(name)] {
		if CompareVersions(p.version, version) == 0 {
			return p, true
		}
	}
	return fakePackage{}, false
}

func (r *fakeRegistry) supports(p fakePackage, targets []tfm.Framework) bool {
	for _, target := range targets {
		ok := false
		for _, fw := range p.frameworks {
			if tfm.CompatibleWith(tfm.MustParse(fw), target) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (r *fakeRegistry) GetLatestVersion(_ context.Context, name string, targets []tfm.Framework) (string, error) {
	best := ""
	for _, p := range r.packages[strings.ToLower(name)] {
		if MustParseVersion(p.version).IsPrerelease() || !r.supports(p, targets) {
			continue
		}
		if best == "" || CompareVersions(p.version, best) > 0 {
			best = p.version
		}
	}
	if best == "" {
		return "", fmt.Errorf("no version of %s supports targets", name)
	}
	return best, nil
}

func (r *fakeRegistry) GetNewerVersions(_ context.Context, name, current string) ([]string, error) {
	var out []string
	for _, p := range r.packages[strings.ToLower(name)] {
		if CompareVersions(p.version, current) > 0 {
			out = append(out, p.version)
		}
	}
	sort.Slice(out, func(i, j int) bool { return CompareVersions(out[i], out[j]) < 0 })
	return out, nil
}

func (r *fakeRegistry) DoesPackageSupportTargets(_ context.Context, ref PackageReference, targets []tfm.Framework) (bool, error) {
	r.supportCalls++
	p, ok := r.find(ref.Name, ref.Version)
	if !ok {
		return false, fmt.Errorf("unknown package %s", ref)
	}
	return r.supports(p, targets), nil
}

// fakeRestorer resolves the package graph from the fake registry.
type fakeRestorer struct {
	registry *fakeRegistry
	err      error
	calls    int
}

func (r *fakeRestorer) Restore(_ context.Context, subject Subject) (RestoreResult, error) {
	r.calls++
	if r.err != nil {
		return RestoreResult{}, r.err
	}
	result := RestoreResult{
		LockFilePath: subject.FilePath() + ".lock.json",
		CachePath:    "/cache",
	}
	seen := make(map[string]bool)
	queue := subject.PackageReferences()
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		node := ResolvedPackage{Name: ref.Name, Version: ref.Version}
		if r.registry != nil {
			if p, ok := r.registry.find(ref.Name, ref.Version); ok {
				node.Dependencies = p.deps
				queue = append(queue, p.deps...)
			}
		}
		result.Packages = append(result.Packages, node)
	}
	return result, nil
}

// fakeProject is an in-memory Mutable.
type fakeProject struct {
	name       string
	targets    []tfm.Framework
	packages   []PackageReference
	frameworks []FrameworkReference
	assemblies []AssemblyReference
	saves      int
	reloads    int
}

func newFakeProject(name string, targets string, packages ...PackageReference) *fakeProject {
	frameworks, err := tfm.ParseList(targets)
	if err != nil {
		panic(err)
	}
	return &fakeProject{name: name, targets: frameworks, packages: packages}
}

func (p *fakeProject) Name() string                      { return p.name }
func (p *fakeProject) FilePath() string                  { return "/src/" + p.name + "/" + p.name + ".csproj" }
func (p *fakeProject) TargetFrameworks() []tfm.Framework { return p.targets }
func (p *fakeProject) PackageReferences() []PackageReference {
	return append([]PackageReference(nil), p.packages...)
}
func (p *fakeProject) FrameworkReferences() []FrameworkReference {
	return append([]FrameworkReference(nil), p.frameworks...)
}
func (p *fakeProject) AssemblyReferences() []AssemblyReference {
	return append([]AssemblyReference(nil), p.assemblies...)
}

func (p *fakeProject) AddPackageReference(ref PackageReference) error {
	p.packages = append(p.packages, ref)
	return nil
}

func (p *fakeProject) RemovePackageReference(ref PackageReference) error {
	for i, existing := range p.packages {
		if existing.Identity() == ref.Identity() {
			p.packages = append(p.packages[:i:i], p.packages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *fakeProject) AddFrameworkReference(ref FrameworkReference) error {
	p.frameworks = append(p.frameworks, ref)
	return nil
}

func (p *fakeProject) RemoveFrameworkReference(ref FrameworkReference) error {
	out := p.frameworks[:0]
	for _, existing := range p.frameworks {
		if existing.Key() != ref.Key() {
			out = append(out, existing)
		}
	}
	p.frameworks = out
	return nil
}

func (p *fakeProject) RemoveAssemblyReference(ref AssemblyReference) error {
	out := p.assemblies[:0]
	for _, existing := range p.assemblies {
		if existing.Key() != ref.Key() {
			out = append(out, existing)
		}
	}
	p.assemblies = out
	return nil
}

func (p *fakeProject) Save(context.Context) error {
	p.saves++
	return nil
}

func (p *fakeProject) Reload(context.Context) error {
	p.reloads++
	return nil
}

func pkg(name, version string) PackageReference {
	return PackageReference{Name: name, Version: version}
}
