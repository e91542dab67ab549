package deps

import (
	"fmt"
	"strings"
)

// Reference is anything a Collection can track. Key identifies the logical
// item (its name); Identity distinguishes versions of the same item.
type Reference interface {
	Key() string
	Identity() string
	String() string
}

// PackageReference is a package dependency declared by a project.
type PackageReference struct {
	Name    string `yaml:"name" json:"name" toml:"name"`
	Version string `yaml:"version" json:"version" toml:"version"`
}

// Key returns the case-insensitive package name.
func (r PackageReference) Key() string {
	return strings.ToLower(r.Name)
}

// Identity returns name and version.
func (r PackageReference) Identity() string {
	return r.Key() + "|" + strings.ToLower(r.Version)
}

// String returns "Name, Version".
func (r PackageReference) String() string {
	if r.Version == "" {
		return r.Name
	}
	return fmt.Sprintf("%s, %s", r.Name, r.Version)
}

// FrameworkReference is a shared framework reference such as Microsoft.AspNetCore.App.
type FrameworkReference struct {
	Name string `yaml:"name" json:"name"`
}

// Key returns the case-insensitive framework name.
func (r FrameworkReference) Key() string {
	return strings.ToLower(r.Name)
}

// Identity returns the key; framework references are unversioned.
func (r FrameworkReference) Identity() string {
	return r.Key()
}

// String returns the framework name.
func (r FrameworkReference) String() string {
	return r.Name
}

// AssemblyReference is a direct assembly reference, typically from the GAC.
type AssemblyReference struct {
	Name     string `yaml:"name" json:"name"`
	HintPath string `yaml:"hint_path,omitempty" json:"hintPath,omitempty"`
}

// Key returns the case-insensitive assembly name.
func (r AssemblyReference) Key() string {
	return strings.ToLower(r.Name)
}

// Identity returns the key.
func (r AssemblyReference) Identity() string {
	return r.Key()
}

// String returns the assembly name.
func (r AssemblyReference) String() string {
	return r.Name
}
