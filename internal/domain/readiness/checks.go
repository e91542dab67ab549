package readiness

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// TargetSupportedCheck fails projects that already target something newer
// than the upgrade target; the tool never downgrades.
type TargetSupportedCheck struct {
	Selector project.TargetSelector
}

// ID implements Check.
func (TargetSupportedCheck) ID() string { return "target-supported" }

// Evaluate implements Check.
func (c TargetSupportedCheck) Evaluate(_ context.Context, p project.Project) (Result, error) {
	target := c.Selector.Select(p)
	for _, f := range p.TargetFrameworks() {
		if f.Family() == target.Family() && tfm.Compare(f, target) > 0 {
			return Result{
				Value:   NotReady,
				Message: fmt.Sprintf("%s targets %s which is newer than %s", p.Name(), f, target),
			}, nil
		}
	}
	return Result{Value: Ready}, nil
}

// CentralPackageManagementCheck flags projects whose package versions live
// in Directory.Packages.props; reference edits would land in the wrong file.
type CentralPackageManagementCheck struct{}

// RemediationCentralPackages identifies the central package management guidance.
const RemediationCentralPackages = "central-package-management"

// ID implements Check.
func (CentralPackageManagementCheck) ID() string { return "central-package-management" }

// Evaluate implements Check.
func (CentralPackageManagementCheck) Evaluate(_ context.Context, p project.Project) (Result, error) {
	if !p.UsesCentralPackageManagement() {
		return Result{Value: Ready}, nil
	}
	return Result{
		Value:       Unsupported,
		Message:     fmt.Sprintf("%s uses central package management; package versions must be updated by hand", p.Name()),
		Bypassable:  true,
		Remediation: RemediationCentralPackages,
	}, nil
}

// UnsupportedComponentCheck flags technologies with no upgrade path.
type UnsupportedComponentCheck struct {
	// Components maps a component to its remediation identifier.
	Components map[project.Component]string
}

// DefaultUnsupportedComponents lists technologies without a direct equivalent.
func DefaultUnsupportedComponents() map[project.Component]string {
	return map[project.Component]string{
		project.ComponentWCF:      "corewcf",
		project.ComponentWebForms: "blazor",
	}
}

// ID implements Check.
func (UnsupportedComponentCheck) ID() string { return "unsupported-component" }

// Evaluate implements Check.
func (c UnsupportedComponentCheck) Evaluate(_ context.Context, p project.Project) (Result, error) {
	components := c.Components
	if components == nil {
		components = DefaultUnsupportedComponents()
	}

	var found, remediations []string
	for _, comp := range p.Components() {
		if remediation, ok := components[comp]; ok {
			found = append(found, string(comp))
			remediations = append(remediations, remediation)
		}
	}
	if len(found) == 0 {
		return Result{Value: Ready}, nil
	}
	return Result{
		Value:       Unsupported,
		Message:     fmt.Sprintf("%s uses unsupported technology: %s", p.Name(), strings.Join(found, ", ")),
		Bypassable:  true,
		Remediation: strings.Join(remediations, ","),
	}, nil
}

// DefaultChecks returns the built-in checks.
func DefaultChecks(selector project.TargetSelector) []Check {
	return []Check{
		TargetSupportedCheck{Selector: selector},
		CentralPackageManagementCheck{},
		UnsupportedComponentCheck{},
	}
}
