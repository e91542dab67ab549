// Package tfm parses and compares target framework monikers such as net48,
// netstandard2.0, netcoreapp3.1, net8.0 and net8.0-windows.
package tfm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Family is a platform generation.
type Family int

// Families in generation order.
const (
	FamilyUnknown Family = iota
	FamilyNetFramework
	FamilyNetStandard
	FamilyNetCoreApp
	FamilyNet
)

// String returns the moniker prefix of the family.
func (f Family) String() string {
	switch f {
	case FamilyNetFramework:
		return "netframework"
	case FamilyNetStandard:
		return "netstandard"
	case FamilyNetCoreApp:
		return "netcoreapp"
	case FamilyNet:
		return "net"
	case FamilyUnknown:
	}
	return "unknown"
}

// PlatformWindows is the OS platform suffix for Windows-only targets.
const PlatformWindows = "windows"

// ErrInvalidFramework is returned for unparseable monikers.
var ErrInvalidFramework = errors.New("invalid target framework")

// Framework is a parsed target framework moniker.
type Framework struct {
	family   Family
	major    int
	minor    int
	patch    int
	platform string
}

// Parse parses a target framework moniker.
func Parse(moniker string) (Framework, error) {
	s := strings.ToLower(strings.TrimSpace(moniker))
	if s == "" {
		return Framework{}, fmt.Errorf("%w: empty moniker", ErrInvalidFramework)
	}

	base, platform, _ := strings.Cut(s, "-")

	var (
		f   Framework
		err error
	)
	switch {
	case strings.HasPrefix(base, "netstandard"):
		f.family = FamilyNetStandard
		f.major, f.minor, err = parseDotted(strings.TrimPrefix(base, "netstandard"))
	case strings.HasPrefix(base, "netcoreapp"):
		f.family = FamilyNetCoreApp
		f.major, f.minor, err = parseDotted(strings.TrimPrefix(base, "netcoreapp"))
	case strings.HasPrefix(base, "net"):
		rest := strings.TrimPrefix(base, "net")
		if strings.Contains(rest, ".") {
			f.family = FamilyNet
			f.major, f.minor, err = parseDotted(rest)
			if err == nil && f.major < 5 {
				err = fmt.Errorf("net%s predates .NET 5", rest)
			}
		} else {
			f.family = FamilyNetFramework
			f.major, f.minor, f.patch, err = parseCompact(rest)
		}
	default:
		err = errors.New("unrecognized prefix")
	}
	if err != nil {
		return Framework{}, fmt.Errorf("%w %q: %v", ErrInvalidFramework, moniker, err)
	}

	if platform != "" {
		if f.family != FamilyNet {
			return Framework{}, fmt.Errorf("%w %q: platform suffix requires net5.0 or later", ErrInvalidFramework, moniker)
		}
		f.platform = platform
	}
	return f, nil
}

// MustParse parses a moniker, panicking on error.
func MustParse(moniker string) Framework {
	f, err := Parse(moniker)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseList parses a semicolon separated list such as "net48;net8.0".
func ParseList(monikers string) ([]Framework, error) {
	var out []Framework
	for _, part := range strings.Split(monikers, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func parseDotted(s string) (int, int, error) {
	majorStr, minorStr, _ := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 0, 0, fmt.Errorf("bad major version %q", majorStr)
	}
	minor := 0
	if minorStr != "" {
		minor, err = strconv.Atoi(minorStr)
		if err != nil {
			return 0, 0, fmt.Errorf("bad minor version %q", minorStr)
		}
	}
	return major, minor, nil
}

// parseCompact parses .NET Framework digits where each digit is a component: 472 -> 4.7.2.
func parseCompact(s string) (int, int, int, error) {
	if s == "" || len(s) > 3 {
		return 0, 0, 0, fmt.Errorf("bad framework version %q", s)
	}
	parts := [3]int{}
	for i, r := range s {
		if r < '0' || r > '9' {
			return 0, 0, 0, fmt.Errorf("bad framework version %q", s)
		}
		parts[i] = int(r - '0')
	}
	return parts[0], parts[1], parts[2], nil
}

// Family returns the platform generation.
func (f Framework) Family() Family {
	return f.family
}

// Major returns the major version, e.g. 8 for net8.0 and 4 for net48.
func (f Framework) Major() int {
	return f.major
}

// Platform returns the OS platform suffix, or "".
func (f Framework) Platform() string {
	return f.platform
}

// IsWindows reports whether the framework targets the windows platform.
func (f Framework) IsWindows() bool {
	return strings.HasPrefix(f.platform, PlatformWindows)
}

// IsZero reports whether f is the zero value.
func (f Framework) IsZero() bool {
	return f.family == FamilyUnknown
}

// Base returns the framework without its platform suffix.
func (f Framework) Base() Framework {
	f.platform = ""
	return f
}

// WithPlatform returns a copy with the given platform. Only .NET 5+ carries platforms.
func (f Framework) WithPlatform(platform string) Framework {
	if f.family == FamilyNet {
		f.platform = strings.ToLower(platform)
	}
	return f
}

// String returns the canonical moniker.
func (f Framework) String() string {
	var s string
	switch f.family {
	case FamilyNetFramework:
		s = fmt.Sprintf("net%d%d", f.major, f.minor)
		if f.patch > 0 {
			s += strconv.Itoa(f.patch)
		}
	case FamilyNetStandard:
		s = fmt.Sprintf("netstandard%d.%d", f.major, f.minor)
	case FamilyNetCoreApp:
		s = fmt.Sprintf("netcoreapp%d.%d", f.major, f.minor)
	case FamilyNet:
		s = fmt.Sprintf("net%d.%d", f.major, f.minor)
	case FamilyUnknown:
		return ""
	}
	if f.platform != "" {
		s += "-" + f.platform
	}
	return s
}

// Compare orders frameworks by generation then version. Platforms are ignored.
func Compare(a, b Framework) int {
	switch {
	case a.family != b.family:
		return cmpInt(int(a.family), int(b.family))
	case a.major != b.major:
		return cmpInt(a.major, b.major)
	case a.minor != b.minor:
		return cmpInt(a.minor, b.minor)
	default:
		return cmpInt(a.patch, b.patch)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Satisfies reports whether a project declaring f already meets target:
// the same generation or newer, and on the target's platform if it has one.
func (f Framework) Satisfies(target Framework) bool {
	if Compare(f, target) < 0 {
		return false
	}
	if target.platform != "" && f.platform != target.platform {
		return false
	}
	return true
}

// CompatibleWith reports whether build assets for asset can be consumed by a
// project targeting target.
func CompatibleWith(asset, target Framework) bool {
	switch asset.family {
	case FamilyNetFramework:
		return target.family == FamilyNetFramework && Compare(target, asset) >= 0
	case FamilyNetStandard:
		switch target.family {
		case FamilyNet:
			return true
		case FamilyNetCoreApp:
			if asset.major == 2 && asset.minor >= 1 {
				return target.major >= 3
			}
			return target.major >= 2 || asset.major < 2
		case FamilyNetStandard:
			return Compare(target, asset) >= 0
		case FamilyNetFramework:
			return asset.major < 2 || (asset.major == 2 && asset.minor == 0 && Compare(target, MustParse("net461")) >= 0)
		case FamilyUnknown:
		}
		return false
	case FamilyNetCoreApp:
		return target.family == FamilyNet || (target.family == FamilyNetCoreApp && Compare(target, asset) >= 0)
	case FamilyNet:
		if target.family != FamilyNet || Compare(target, asset) < 0 {
			return false
		}
		return asset.platform == "" || asset.platform == target.platform
	case FamilyUnknown:
	}
	return false
}

// Join renders frameworks as a semicolon separated list.
func Join(frameworks []Framework) string {
	parts := make([]string, len(frameworks))
	for i, f := range frameworks {
		parts[i] = f.String()
	}
	return strings.Join(parts, ";")
}
