// Package project models the projects of a solution and decides the order
// and targets in which they are upgraded.
package project

import (
	"context"
	"path/filepath"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// OutputKind is what building the project produces.
type OutputKind string

const (
	OutputLibrary OutputKind = "library"
	OutputExe     OutputKind = "exe"
	OutputWinExe  OutputKind = "winexe"
	OutputWeb     OutputKind = "web"
)

// Component is an application technology detected in a project.
type Component string

const (
	ComponentWeb      Component = "web"
	ComponentWebForms Component = "webforms"
	ComponentWCF      Component = "wcf"
	ComponentWinForms Component = "winforms"
	ComponentWPF      Component = "wpf"
	ComponentMaui     Component = "maui"
)

// Project is the read-only view of a project file.
type Project interface {
	deps.Subject

	// Directory returns the directory containing the project file.
	Directory() string

	// ProjectReferences returns absolute paths of referenced projects.
	ProjectReferences() []string

	OutputKind() OutputKind
	IsSdkStyle() bool
	Sdk() string
	Components() []Component

	// UsesCentralPackageManagement reports whether versions live in Directory.Packages.props.
	UsesCentralPackageManagement() bool
}

// Model is a project with its mutation surface. The handle must be reloaded
// after anything outside the process touches the file.
type Model interface {
	Project
	deps.Mutable

	SetTargetFrameworks(frameworks []tfm.Framework) error
}

// Loader opens a single project file.
type Loader interface {
	Load(ctx context.Context, path string) (Model, error)
}

// Workspace opens solutions and projects.
type Workspace interface {
	Loader

	// Projects returns the project file paths of a solution, or the path
	// itself when it names a project file.
	Projects(ctx context.Context, path string) ([]string, error)
}

// HasComponent reports whether p uses component c.
func HasComponent(p Project, c Component) bool {
	for _, existing := range p.Components() {
		if existing == c {
			return true
		}
	}
	return false
}

// IsWindowsHead reports whether p hosts a Windows desktop UI.
func IsWindowsHead(p Project) bool {
	return p.OutputKind() == OutputWinExe || HasComponent(p, ComponentWinForms) || HasComponent(p, ComponentWPF)
}

// Key returns the normalized identity of a project path.
func Key(path string) string {
	return filepath.Clean(path)
}
