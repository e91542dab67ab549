package msbuild

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// Workspace opens solutions and project files through a FileSystem.
type Workspace struct {
	fs ports.FileSystem
}

var _ project.Workspace = (*Workspace)(nil)

// NewWorkspace creates a Workspace.
func NewWorkspace(fs ports.FileSystem) *Workspace {
	return &Workspace{fs: fs}
}

// Load implements project.Loader.
func (w *Workspace) Load(ctx context.Context, path string) (project.Model, error) {
	return LoadProject(ctx, w.fs, path)
}

// IsProjectFile reports whether path names an MSBuild project.
func IsProjectFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csproj", ".vbproj", ".fsproj":
		return true
	default:
		return false
	}
}

// IsSolutionFile reports whether path names a solution.
func IsSolutionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sln", ".slnx":
		return true
	default:
		return false
	}
}

// Projects implements project.Workspace. Solution folders and non-MSBuild
// entries are skipped.
func (w *Workspace) Projects(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)

	switch {
	case IsProjectFile(path):
		if !w.fs.Exists(path) {
			return nil, fmt.Errorf("project file not found: %s", path)
		}
		return []string{path}, nil
	case IsSolutionFile(path):
	default:
		return nil, fmt.Errorf("%s is neither a solution nor a project file", path)
	}

	data, err := w.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []string
	if strings.EqualFold(filepath.Ext(path), ".slnx") {
		entries, err = slnxEntries(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		entries = slnEntries(data)
	}

	dir := filepath.Dir(path)
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if !IsProjectFile(e) {
			continue
		}
		abs := resolvePath(dir, e)
		if seen[project.Key(abs)] {
			continue
		}
		seen[project.Key(abs)] = true
		out = append(out, abs)
	}
	return out, nil
}

// Project("{type}") = "Name", "relative\path.csproj", "{guid}"
var slnProjectLine = regexp.MustCompile(`^\s*Project\("\{[^}]*\}"\)\s*=\s*"[^"]*"\s*,\s*"([^"]+)"`)

func slnEntries(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if m := slnProjectLine.FindStringSubmatch(scanner.Text()); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

// slnxEntries collects Project Path attributes at any folder depth.
func slnxEntries(data []byte) ([]string, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(e *element)
	walk = func(e *element) {
		for _, child := range e.elements("") {
			if strings.EqualFold(localName(child.name), "Project") {
				if p, ok := child.attr("Path"); ok {
					out = append(out, p)
				}
			}
			walk(child)
		}
	}
	walk(doc.root)
	return out, nil
}
