package catalog

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// Layered asks each registry in turn and moves on when one does not know a
// package or version. Any other error stops the lookup.
type Layered struct {
	layers []deps.Registry
}

var _ deps.Registry = (*Layered)(nil)

// NewLayered creates a Layered registry. Nil layers are ignored.
func NewLayered(layers ...deps.Registry) *Layered {
	l := &Layered{}
	for _, r := range layers {
		if r != nil {
			l.layers = append(l.layers, r)
		}
	}
	return l
}

func unknown(err error) bool {
	return errors.Is(err, deps.ErrPackageNotFound) || errors.Is(err, deps.ErrVersionNotFound)
}

// GetLatestVersion implements deps.Registry.
func (l *Layered) GetLatestVersion(ctx context.Context, name string, targets []tfm.Framework) (string, error) {
	err := error(deps.ErrPackageNotFound)
	for _, r := range l.layers {
		var v string
		v, err = r.GetLatestVersion(ctx, name, targets)
		if err == nil || !unknown(err) {
			return v, err
		}
	}
	return "", err
}

// GetNewerVersions implements deps.Registry.
func (l *Layered) GetNewerVersions(ctx context.Context, name, current string) ([]string, error) {
	err := error(deps.ErrPackageNotFound)
	for _, r := range l.layers {
		var vs []string
		vs, err = r.GetNewerVersions(ctx, name, current)
		if err == nil || !unknown(err) {
			return vs, err
		}
	}
	return nil, err
}

// DoesPackageSupportTargets implements deps.Registry.
func (l *Layered) DoesPackageSupportTargets(ctx context.Context, ref deps.PackageReference, targets []tfm.Framework) (bool, error) {
	err := error(deps.ErrPackageNotFound)
	for _, r := range l.layers {
		var ok bool
		ok, err = r.DoesPackageSupportTargets(ctx, ref, targets)
		if err == nil || !unknown(err) {
			return ok, err
		}
	}
	return false, err
}
