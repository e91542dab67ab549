package deps

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// Subject is the read-only project view the analyzers work from.
type Subject interface {
	Name() string
	FilePath() string
	TargetFrameworks() []tfm.Framework
	PackageReferences() []PackageReference
	FrameworkReferences() []FrameworkReference
	AssemblyReferences() []AssemblyReference
}

// Mutable is the project mutation surface used when converging.
type Mutable interface {
	Subject
	AddPackageReference(ref PackageReference) error
	RemovePackageReference(ref PackageReference) error
	AddFrameworkReference(ref FrameworkReference) error
	RemoveFrameworkReference(ref FrameworkReference) error
	RemoveAssemblyReference(ref AssemblyReference) error
	Save(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Registry lookups report these when they cannot answer, so callers can fall
// back to another source.
var (
	ErrPackageNotFound     = errors.New("package not found")
	ErrVersionNotFound     = errors.New("version not found")
	ErrNoCompatibleVersion = errors.New("no compatible version")
)

// Registry answers version and compatibility questions about packages.
type Registry interface {
	// GetLatestVersion returns the newest stable version supporting targets.
	GetLatestVersion(ctx context.Context, name string, targets []tfm.Framework) (string, error)
	// GetNewerVersions returns versions newer than current, ascending.
	GetNewerVersions(ctx context.Context, name, current string) ([]string, error)
	// DoesPackageSupportTargets reports whether ref has assets for every target.
	DoesPackageSupportTargets(ctx context.Context, ref PackageReference, targets []tfm.Framework) (bool, error)
}

// ResolvedPackage is one node of the restored package graph.
type ResolvedPackage struct {
	Name         string
	Version      string
	Dependencies []PackageReference
}

// RestoreResult is what a restore produces.
type RestoreResult struct {
	LockFilePath string
	CachePath    string
	Packages     []ResolvedPackage
}

// Restorer resolves a project's packages.
type Restorer interface {
	Restore(ctx context.Context, subject Subject) (RestoreResult, error)
}
