// Package catalog answers package registry questions from YAML catalogs and
// layers registries so a local catalog can shadow the online feed.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Document is the YAML catalog format.
type Document struct {
	Packages []Package `yaml:"packages"`
}

// Package lists the published versions of one package.
type Package struct {
	Name     string    `yaml:"name"`
	Versions []Release `yaml:"versions"`
}

// Release is one published version.
type Release struct {
	Version      string                  `yaml:"version"`
	Frameworks   []string                `yaml:"frameworks"`
	Dependencies []deps.PackageReference `yaml:"dependencies,omitempty"`
}

type release struct {
	version      deps.Version
	frameworks   []tfm.Framework
	dependencies []deps.PackageReference
}

// Catalog is an in-memory registry. It is safe for concurrent reads.
type Catalog struct {
	packages map[string][]release
}

var _ deps.Registry = (*Catalog)(nil)

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{packages: make(map[string][]release)}
	for _, pkg := range doc.Packages {
		if pkg.Name == "" {
			return nil, errors.New("catalog entry without a name")
		}
		key := strings.ToLower(pkg.Name)
		for _, r := range pkg.Versions {
			v, err := deps.ParseVersion(r.Version)
			if err != nil {
				return nil, fmt.Errorf("catalog %s: %w", pkg.Name, err)
			}
			fws := make([]tfm.Framework, 0, len(r.Frameworks))
			for _, f := range r.Frameworks {
				fw, err := tfm.Parse(f)
				if err != nil {
					return nil, fmt.Errorf("catalog %s %s: %w", pkg.Name, r.Version, err)
				}
				fws = append(fws, fw)
			}
			c.packages[key] = append(c.packages[key], release{version: v, frameworks: fws, dependencies: r.Dependencies})
		}
		sort.SliceStable(c.packages[key], func(i, j int) bool {
			return c.packages[key][i].version.Compare(c.packages[key][j].version) < 0
		})
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file.
func Load(fs ports.FileSystem, path string) (*Catalog, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func (c *Catalog) releases(name string) ([]release, error) {
	rs, ok := c.packages[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", deps.ErrPackageNotFound, name)
	}
	return rs, nil
}

func (c *Catalog) release(name, version string) (release, error) {
	rs, err := c.releases(name)
	if err != nil {
		return release{}, err
	}
	want, err := deps.ParseVersion(version)
	if err != nil {
		return release{}, err
	}
	for _, r := range rs {
		if r.version.Compare(want) == 0 {
			return r, nil
		}
	}
	return release{}, fmt.Errorf("%w: %s %s", deps.ErrVersionNotFound, name, version)
}

// supports reports whether every target can consume one of the assets.
func supports(assets, targets []tfm.Framework) bool {
	for _, target := range targets {
		ok := false
		for _, asset := range assets {
			if tfm.CompatibleWith(asset, target) {
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

// GetLatestVersion implements deps.Registry.
func (c *Catalog) GetLatestVersion(ctx context.Context, name string, targets []tfm.Framework) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rs, err := c.releases(name)
	if err != nil {
		return "", err
	}
	for i := len(rs) - 1; i >= 0; i-- {
		if !rs[i].version.IsPrerelease() && supports(rs[i].frameworks, targets) {
			return rs[i].version.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s for %s", deps.ErrNoCompatibleVersion, name, tfm.Join(targets))
}

// GetNewerVersions implements deps.Registry.
func (c *Catalog) GetNewerVersions(ctx context.Context, name, current string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs, err := c.releases(name)
	if err != nil {
		return nil, err
	}
	cur, err := deps.ParseVersion(current)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rs {
		if r.version.Compare(cur) > 0 {
			out = append(out, r.version.String())
		}
	}
	return out, nil
}

// DoesPackageSupportTargets implements deps.Registry.
func (c *Catalog) DoesPackageSupportTargets(ctx context.Context, ref deps.PackageReference, targets []tfm.Framework) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r, err := c.release(ref.Name, ref.Version)
	if err != nil {
		return false, err
	}
	return supports(r.frameworks, targets), nil
}

// Dependencies returns the declared dependencies of a package version.
func (c *Catalog) Dependencies(name, version string) ([]deps.PackageReference, error) {
	r, err := c.release(name, version)
	if err != nil {
		return nil, err
	}
	return r.dependencies, nil
}
