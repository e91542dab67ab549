package msbuild

import (
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/ports"
	"gopkg.in/ini.v1"
)

const (
	editorConfigFile = ".editorconfig"
	defaultIndent    = "  "
)

// indentUnit resolves the indentation for new elements in file from the
// .editorconfig files above it, nearest first, stopping at root = true.
func indentUnit(fs ports.FileSystem, file string) string {
	style, size := "", 0
	base := filepath.Base(file)

	for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
		data, err := fs.ReadFile(filepath.Join(dir, editorConfigFile))
		if err == nil {
			cfg, err := ini.LoadSources(ini.LoadOptions{
				AllowBooleanKeys:        true,
				SkipUnrecognizableLines: true,
			}, data)
			if err == nil {
				s, n, root := indentFrom(cfg, base)
				if style == "" {
					style = s
				}
				if size == 0 {
					size = n
				}
				if root {
					break
				}
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	switch {
	case style == "tab":
		return "\t"
	case size > 0:
		return strings.Repeat(" ", size)
	default:
		return defaultIndent
	}
}

// indentFrom reads indent settings of the last matching section, as later
// sections win within one file.
func indentFrom(cfg *ini.File, base string) (style string, size int, root bool) {
	root = cfg.Section(ini.DefaultSection).Key("root").MustBool(false)
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection || !matchesGlob(sec.Name(), base) {
			continue
		}
		if sec.HasKey("indent_style") {
			style = strings.ToLower(sec.Key("indent_style").String())
		}
		if sec.HasKey("indent_size") {
			if n, err := strconv.Atoi(sec.Key("indent_size").String()); err == nil {
				size = n
			}
		}
	}
	return style, size, root
}

// matchesGlob matches an editorconfig section glob against a file name.
// Brace alternatives such as *.{csproj,props} are expanded.
func matchesGlob(pattern, base string) bool {
	pattern = strings.TrimPrefix(pattern, "**/")
	for _, p := range expandBraces(pattern) {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

func expandBraces(pattern string) []string {
	open := strings.IndexByte(pattern, '{')
	if open < 0 {
		return []string{pattern}
	}
	end := strings.IndexByte(pattern[open:], '}')
	if end < 0 {
		return []string{pattern}
	}
	end += open

	var out []string
	for _, alt := range strings.Split(pattern[open+1:end], ",") {
		out = append(out, expandBraces(pattern[:open]+alt+pattern[end+1:])...)
	}
	return out
}
