// Package deps tracks package, framework and assembly reference changes for a
// project and runs the analyzer pipeline that converges on them.
package deps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned for unparseable package versions.
var ErrInvalidVersion = errors.New("invalid package version")

// Version is a NuGet package version. NuGet allows a fourth numeric
// component, which is kept as Revision next to the semver core. Prerelease
// labels compare case-insensitively and build metadata is ignored.
type Version struct {
	raw        string
	semver     string
	revision   int
	prerelease string
}

// ParseVersion parses versions such as 1.0, 4.5.0, 1.2.3.4 and 2.0.0-beta1.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	// Brackets appear in exact-match ranges like [1.0.0].
	trimmed := strings.Trim(raw, "[]")

	core, suffix := trimmed, ""
	if i := strings.IndexAny(trimmed, "-+"); i >= 0 {
		core, suffix = trimmed[:i], trimmed[i:]
	}

	parts := strings.Split(core, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("%w %q: too many components", ErrInvalidVersion, s)
	}
	nums := [4]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}

	sv := fmt.Sprintf("v%d.%d.%d%s", nums[0], nums[1], nums[2], strings.ToLower(suffix))
	if !semver.IsValid(sv) {
		return Version{}, fmt.Errorf("%w %q", ErrInvalidVersion, s)
	}
	pre, _, _ := strings.Cut(suffix, "+")
	return Version{
		raw:        trimmed,
		semver:     sv,
		revision:   nums[3],
		prerelease: strings.TrimPrefix(pre, "-"),
	}, nil
}

// MustParseVersion parses a version, panicking on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as written.
func (v Version) String() string {
	return v.raw
}

// Major returns the major component.
func (v Version) Major() int {
	n, _ := strconv.Atoi(strings.TrimPrefix(semver.Major(v.semver), "v"))
	return n
}

// IsPrerelease reports whether the version carries a prerelease label.
func (v Version) IsPrerelease() bool {
	return semver.Prerelease(v.semver) != ""
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v.semver == ""
}

// Normalized returns the NuGet normalized form: three components, a fourth
// only when it is not zero, the prerelease label and no build metadata.
// Feeds address versions by this form.
func (v Version) Normalized() string {
	if v.IsZero() {
		return ""
	}
	out := strings.TrimPrefix(semver.Canonical(v.core()), "v")
	if v.revision != 0 {
		out += "." + strconv.Itoa(v.revision)
	}
	if v.prerelease != "" {
		out += "-" + v.prerelease
	}
	return out
}

// core is the semver major.minor.patch without prerelease or build.
func (v Version) core() string {
	c := semver.Canonical(v.semver)
	if i := strings.IndexAny(c, "-+"); i >= 0 {
		c = c[:i]
	}
	return c
}

// Compare returns -1, 0 or 1. The revision ranks above the prerelease
// label, so 1.0.0.2-beta is newer than 1.0.0.1.
func (v Version) Compare(other Version) int {
	if c := semver.Compare(v.core(), other.core()); c != 0 {
		return c
	}
	switch {
	case v.revision < other.revision:
		return -1
	case v.revision > other.revision:
		return 1
	}
	return semver.Compare(v.semver, other.semver)
}

// CompareVersions compares two version strings. Unparseable versions sort
// before parseable ones and compare equal to each other.
func CompareVersions(a, b string) int {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}
