package mocks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// Project is an in-memory test double for project.Model.
type Project struct {
	mu sync.RWMutex

	name       string
	path       string
	references []string
	frameworks []tfm.Framework
	kind       project.OutputKind
	sdkStyle   bool
	sdk        string
	components []project.Component
	central    bool

	packages   []deps.PackageReference
	fwRefs     []deps.FrameworkReference
	assemblies []deps.AssemblyReference

	saves   int
	reloads int

	SaveErr   error
	ReloadErr error

	// OnReload runs after each Reload, e.g. to simulate an external tool
	// having rewritten the file.
	OnReload func(p *Project)
}

// NewProject creates a library project at /src/<name>/<name>.csproj.
func NewProject(name string, frameworks ...string) *Project {
	p := &Project{
		name: name,
		path: filepath.Join("/src", name, name+".csproj"),
		kind: project.OutputLibrary,
	}
	for _, f := range frameworks {
		p.frameworks = append(p.frameworks, tfm.MustParse(f))
	}
	return p
}

// WithReferences adds project references.
func (p *Project) WithReferences(refs ...*Project) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range refs {
		p.references = append(p.references, r.path)
	}
	return p
}

// WithKind sets the output kind.
func (p *Project) WithKind(kind project.OutputKind) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kind = kind
	return p
}

// WithSdkStyle marks the project as SDK style.
func (p *Project) WithSdkStyle(sdk string) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sdkStyle = true
	p.sdk = sdk
	return p
}

// WithComponents sets the detected components.
func (p *Project) WithComponents(components ...project.Component) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.components = append(p.components, components...)
	return p
}

// WithCentralPackageManagement marks the project as using central package versions.
func (p *Project) WithCentralPackageManagement() *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.central = true
	return p
}

// WithPackages adds package references.
func (p *Project) WithPackages(refs ...deps.PackageReference) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packages = append(p.packages, refs...)
	return p
}

// WithAssemblies adds assembly references.
func (p *Project) WithAssemblies(refs ...deps.AssemblyReference) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assemblies = append(p.assemblies, refs...)
	return p
}

// Name implements project.Project.
func (p *Project) Name() string { return p.name }

// FilePath implements project.Project.
func (p *Project) FilePath() string { return p.path }

// Directory implements project.Project.
func (p *Project) Directory() string { return filepath.Dir(p.path) }

// ProjectReferences implements project.Project.
func (p *Project) ProjectReferences() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.references...)
}

// TargetFrameworks implements project.Project.
func (p *Project) TargetFrameworks() []tfm.Framework {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]tfm.Framework(nil), p.frameworks...)
}

// OutputKind implements project.Project.
func (p *Project) OutputKind() project.OutputKind {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kind
}

// IsSdkStyle implements project.Project.
func (p *Project) IsSdkStyle() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sdkStyle
}

// Sdk implements project.Project.
func (p *Project) Sdk() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sdk
}

// Components implements project.Project.
func (p *Project) Components() []project.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]project.Component(nil), p.components...)
}

// UsesCentralPackageManagement implements project.Project.
func (p *Project) UsesCentralPackageManagement() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.central
}

// PackageReferences implements project.Project.
func (p *Project) PackageReferences() []deps.PackageReference {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]deps.PackageReference(nil), p.packages...)
}

// FrameworkReferences implements project.Project.
func (p *Project) FrameworkReferences() []deps.FrameworkReference {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]deps.FrameworkReference(nil), p.fwRefs...)
}

// AssemblyReferences implements project.Project.
func (p *Project) AssemblyReferences() []deps.AssemblyReference {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]deps.AssemblyReference(nil), p.assemblies...)
}

// AddPackageReference implements project.Model.
func (p *Project) AddPackageReference(ref deps.PackageReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packages = append(p.packages, ref)
	return nil
}

// RemovePackageReference implements project.Model. Only the first matching
// occurrence is removed.
func (p *Project) RemovePackageReference(ref deps.PackageReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.packages {
		if existing.Identity() == ref.Identity() {
			p.packages = append(p.packages[:i:i], p.packages[i+1:]...)
			return nil
		}
	}
	return nil
}

// AddFrameworkReference implements project.Model.
func (p *Project) AddFrameworkReference(ref deps.FrameworkReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fwRefs = append(p.fwRefs, ref)
	return nil
}

// RemoveFrameworkReference implements project.Model.
func (p *Project) RemoveFrameworkReference(ref deps.FrameworkReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]deps.FrameworkReference, 0, len(p.fwRefs))
	for _, existing := range p.fwRefs {
		if existing.Key() != ref.Key() {
			out = append(out, existing)
		}
	}
	p.fwRefs = out
	return nil
}

// RemoveAssemblyReference implements project.Model.
func (p *Project) RemoveAssemblyReference(ref deps.AssemblyReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]deps.AssemblyReference, 0, len(p.assemblies))
	for _, existing := range p.assemblies {
		if existing.Key() != ref.Key() {
			out = append(out, existing)
		}
	}
	p.assemblies = out
	return nil
}

// SetTargetFrameworks implements project.Model.
func (p *Project) SetTargetFrameworks(frameworks []tfm.Framework) error {
	if len(frameworks) == 0 {
		return errors.New("at least one target framework is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frameworks = append([]tfm.Framework(nil), frameworks...)
	return nil
}

// ConvertToSdkStyle simulates an external converter rewriting the file.
func (p *Project) ConvertToSdkStyle(sdk string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sdkStyle = true
	p.sdk = sdk
}

// Save implements project.Model.
func (p *Project) Save(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	return p.SaveErr
}

// Reload implements project.Model.
func (p *Project) Reload(context.Context) error {
	p.mu.Lock()
	p.reloads++
	err, hook := p.ReloadErr, p.OnReload
	p.mu.Unlock()
	if err == nil && hook != nil {
		hook(p)
	}
	return err
}

// Saves returns how often Save was called.
func (p *Project) Saves() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.saves
}

// Reloads returns how often Reload was called.
func (p *Project) Reloads() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reloads
}

var _ project.Model = (*Project)(nil)

// Workspace is an in-memory test double for project.Workspace.
type Workspace struct {
	mu        sync.RWMutex
	projects  map[string]*Project
	solutions map[string][]string
	loads     []string
}

// NewWorkspace creates a workspace holding the given projects.
func NewWorkspace(projects ...*Project) *Workspace {
	w := &Workspace{
		projects:  make(map[string]*Project),
		solutions: make(map[string][]string),
	}
	for _, p := range projects {
		w.projects[filepath.Clean(p.FilePath())] = p
	}
	return w
}

// AddSolution registers a solution listing the given projects.
func (w *Workspace) AddSolution(path string, projects ...*Project) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range projects {
		w.projects[filepath.Clean(p.FilePath())] = p
		w.solutions[filepath.Clean(path)] = append(w.solutions[filepath.Clean(path)], p.FilePath())
	}
}

// Load implements project.Loader.
func (w *Workspace) Load(_ context.Context, path string) (project.Model, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loads = append(w.loads, path)
	p, ok := w.projects[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("project not found: %s", path)
	}
	return p, nil
}

// Projects implements project.Workspace.
func (w *Workspace) Projects(_ context.Context, path string) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if paths, ok := w.solutions[filepath.Clean(path)]; ok {
		return append([]string(nil), paths...), nil
	}
	if _, ok := w.projects[filepath.Clean(path)]; ok {
		return []string{path}, nil
	}
	return nil, fmt.Errorf("no solution or project at %s", path)
}

// AllPaths returns every known project path, sorted.
func (w *Workspace) AllPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.projects))
	for path := range w.projects {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Loads returns the paths passed to Load.
func (w *Workspace) Loads() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.loads...)
}

var _ project.Workspace = (*Workspace)(nil)
