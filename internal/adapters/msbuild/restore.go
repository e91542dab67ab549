package msbuild

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

const assetsFile = "project.assets.json"

// Restorer restores packages with the dotnet CLI and reads the resulting
// assets file.
type Restorer struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
	log    ports.Logger
}

var _ deps.Restorer = (*Restorer)(nil)

// NewRestorer creates a Restorer.
func NewRestorer(runner ports.CommandRunner, fs ports.FileSystem, log ports.Logger) *Restorer {
	if log == nil {
		log = ports.Discard
	}
	return &Restorer{runner: runner, fs: fs, log: log}
}

// Restore implements deps.Restorer. Projects still on packages.config get
// no assets file; their declared packages are returned without edges.
func (r *Restorer) Restore(ctx context.Context, subject deps.Subject) (deps.RestoreResult, error) {
	path := subject.FilePath()
	r.log.Debug(ctx, "restoring packages", ports.F("project", path))

	res, err := r.runner.Run(ctx, "dotnet", "restore", path)
	if err != nil {
		return deps.RestoreResult{}, fmt.Errorf("dotnet restore %s: %w", path, err)
	}
	if !res.Success() {
		return deps.RestoreResult{}, fmt.Errorf("dotnet restore %s exited with %d: %s",
			path, res.ExitCode, res.Output())
	}

	lock := filepath.Join(filepath.Dir(path), "obj", assetsFile)
	if !r.fs.Exists(lock) {
		var pkgs []deps.ResolvedPackage
		for _, ref := range subject.PackageReferences() {
			pkgs = append(pkgs, deps.ResolvedPackage{Name: ref.Name, Version: ref.Version})
		}
		return deps.RestoreResult{Packages: pkgs}, nil
	}

	data, err := r.fs.ReadFile(lock)
	if err != nil {
		return deps.RestoreResult{}, fmt.Errorf("failed to read %s: %w", lock, err)
	}
	result, err := ParseAssets(data)
	if err != nil {
		return deps.RestoreResult{}, fmt.Errorf("failed to parse %s: %w", lock, err)
	}
	result.LockFilePath = lock
	return result, nil
}

type assets struct {
	Targets        map[string]map[string]assetsLibrary `json:"targets"`
	PackageFolders map[string]json.RawMessage          `json:"packageFolders"`
}

type assetsLibrary struct {
	Type         string            `json:"type"`
	Dependencies map[string]string `json:"dependencies"`
}

// ParseAssets reads the package graph from a project.assets.json document.
// Packages resolved for several frameworks are reported once.
func ParseAssets(data []byte) (deps.RestoreResult, error) {
	var a assets
	if err := json.Unmarshal(data, &a); err != nil {
		return deps.RestoreResult{}, err
	}

	var result deps.RestoreResult
	folders := make([]string, 0, len(a.PackageFolders))
	for folder := range a.PackageFolders {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	if len(folders) > 0 {
		result.CachePath = folders[0]
	}

	seen := make(map[string]int)
	frameworks := make([]string, 0, len(a.Targets))
	for fw := range a.Targets {
		frameworks = append(frameworks, fw)
	}
	sort.Strings(frameworks)

	for _, fw := range frameworks {
		for key, lib := range a.Targets[fw] {
			if lib.Type != "" && lib.Type != "package" {
				continue
			}
			name, version, ok := strings.Cut(key, "/")
			if !ok {
				continue
			}
			id := strings.ToLower(key)
			if i, dup := seen[id]; dup {
				result.Packages[i].Dependencies = mergeDeps(result.Packages[i].Dependencies, lib.Dependencies)
				continue
			}
			seen[id] = len(result.Packages)
			result.Packages = append(result.Packages, deps.ResolvedPackage{
				Name:         name,
				Version:      version,
				Dependencies: mergeDeps(nil, lib.Dependencies),
			})
		}
	}

	sort.Slice(result.Packages, func(i, j int) bool {
		a, b := result.Packages[i], result.Packages[j]
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.Version < b.Version
	})
	return result, nil
}

func mergeDeps(existing []deps.PackageReference, add map[string]string) []deps.PackageReference {
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Key()] = true
	}
	names := make([]string, 0, len(add))
	for name := range add {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := deps.PackageReference{Name: name, Version: minVersion(add[name])}
		if have[ref.Key()] {
			continue
		}
		have[ref.Key()] = true
		existing = append(existing, ref)
	}
	return existing
}

// minVersion returns the lower bound of a NuGet version range such as
// "[1.0.0, )" or a plain "1.0.0".
func minVersion(r string) string {
	r = strings.TrimSpace(r)
	r = strings.TrimLeft(r, "[(")
	low, _, _ := strings.Cut(r, ",")
	return strings.TrimSpace(strings.TrimRight(low, "])"))
}
