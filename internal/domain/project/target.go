package project

import (
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
)

// TargetSelector computes the target framework for each project.
type TargetSelector struct {
	// Default is the solution-wide target, e.g. net8.0.
	Default tfm.Framework

	// KeepNetStandard leaves libraries that only target .NET Standard alone.
	KeepNetStandard bool
}

// Select returns the target for p. Windows desktop heads need the windows
// platform; web and library projects use the base target.
func (s TargetSelector) Select(p Project) tfm.Framework {
	if IsWindowsHead(p) {
		return s.Default.WithPlatform(tfm.PlatformWindows)
	}

	if s.KeepNetStandard && p.OutputKind() == OutputLibrary {
		current := p.TargetFrameworks()
		if len(current) > 0 && allNetStandard(current) {
			return current[0]
		}
	}
	return s.Default
}

func allNetStandard(frameworks []tfm.Framework) bool {
	for _, f := range frameworks {
		if f.Family() != tfm.FamilyNetStandard {
			return false
		}
	}
	return true
}

// IsDone reports whether p already is an SDK-style project whose every
// declared framework meets target.
func IsDone(p Project, target tfm.Framework) bool {
	if !p.IsSdkStyle() {
		return false
	}
	frameworks := p.TargetFrameworks()
	if len(frameworks) == 0 {
		return false
	}
	for _, f := range frameworks {
		if !f.Satisfies(target) {
			return false
		}
	}
	return true
}
