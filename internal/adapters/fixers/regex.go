// Package fixers finds and rewrites source incompatibilities with regular
// expression rules.
package fixers

import (
	"context"
	_ "embed"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var builtinRules []byte

// SkipDirs are never scanned.
var SkipDirs = []string{"bin", "obj", ".git", ".vs", "node_modules", "packages"}

// Rule is a compiled fix rule.
type Rule struct {
	ID      string
	Title   string
	Glob    string
	Risk    string
	Manual  bool
	pattern *regexp.Regexp
	replace string
}

// Compile compiles configured rules.
func Compile(rules []config.FixRule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("fix rule %s: %w", r.ID, err)
		}
		risk := r.Risk
		if risk == "" {
			risk = "low"
		}
		out = append(out, Rule{
			ID:      r.ID,
			Title:   r.Title,
			Glob:    r.Glob,
			Risk:    risk,
			Manual:  r.Manual,
			pattern: re,
			replace: r.Replace,
		})
	}
	return out, nil
}

// BuiltinRules returns the embedded rule set.
func BuiltinRules() ([]config.FixRule, error) {
	var rules []config.FixRule
	if err := yaml.Unmarshal(builtinRules, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse built-in rules: %w", err)
	}
	return rules, nil
}

// MergeRules returns base with same-ID rules from override replaced and new
// ones appended.
func MergeRules(base, override []config.FixRule) []config.FixRule {
	index := make(map[string]int, len(base))
	out := make([]config.FixRule, 0, len(base)+len(override))
	for _, r := range base {
		index[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range override {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// Provider is a ports.FixProvider over a rule set.
type Provider struct {
	fs    ports.FileSystem
	rules []Rule
	log   ports.Logger
}

var _ ports.FixProvider = (*Provider)(nil)

// NewProvider creates a Provider.
func NewProvider(fs ports.FileSystem, rules []Rule, log ports.Logger) *Provider {
	if log == nil {
		log = ports.Discard
	}
	return &Provider{fs: fs, rules: rules, log: log}
}

// Rules implements ports.FixProvider.
func (p *Provider) Rules() []ports.Diagnostic {
	out := make([]ports.Diagnostic, len(p.rules))
	for i, r := range p.rules {
		out[i] = ports.Diagnostic{ID: r.ID, Title: r.Title, Risk: r.Risk, Fixable: !r.Manual}
	}
	return out
}

func (p *Provider) rule(id string) (Rule, bool) {
	for _, r := range p.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// matches reports whether rel, a slash separated path relative to the scan
// root, matches glob. A leading **/ matches at any depth.
func matches(glob, rel string) bool {
	if ok, _ := path.Match(glob, rel); ok {
		return true
	}
	rest, anyDepth := strings.CutPrefix(glob, "**/")
	if !anyDepth {
		return false
	}
	for {
		if ok, _ := path.Match(rest, rel); ok {
			return true
		}
		i := strings.IndexByte(rel, '/')
		if i < 0 {
			return false
		}
		rel = rel[i+1:]
	}
}

// files lists the files below dir that rule applies to.
func (p *Provider) files(dir string, r Rule) ([]string, error) {
	all, err := p.fs.ListFiles(dir, SkipDirs...)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range all {
		if !ports.IsPathWithinRoot(dir, f) {
			continue
		}
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			continue
		}
		if matches(r.Glob, filepath.ToSlash(rel)) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Diagnose implements ports.FixProvider.
func (p *Provider) Diagnose(ctx context.Context, dir string) ([]ports.Diagnostic, error) {
	var out []ports.Diagnostic
	for _, r := range p.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := p.files(dir, r)
		if err != nil {
			return nil, err
		}

		d := ports.Diagnostic{ID: r.ID, Title: r.Title, Risk: r.Risk, Fixable: !r.Manual}
		for _, f := range files {
			data, err := p.fs.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f, err)
			}
			if n := len(r.pattern.FindAllIndex(data, -1)); n > 0 {
				d.Files = append(d.Files, f)
				d.Count += n
			}
		}
		if d.Count > 0 {
			p.log.Debug(ctx, "diagnostic found", ports.F("id", r.ID), ports.F("count", d.Count))
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Fix implements ports.FixProvider. Manual rules are rejected.
func (p *Provider) Fix(ctx context.Context, dir string, d ports.Diagnostic) (ports.FixResult, error) {
	r, ok := p.rule(d.ID)
	if !ok {
		return ports.FixResult{}, fmt.Errorf("unknown diagnostic %s", d.ID)
	}
	if r.Manual {
		return ports.FixResult{}, fmt.Errorf("%s must be fixed by hand: %s", r.ID, r.Title)
	}

	changes, err := p.rewrite(ctx, dir, r)
	if err != nil {
		return ports.FixResult{}, err
	}

	var result ports.FixResult
	for _, c := range changes {
		if err := p.fs.WriteFile(c.path, c.after, 0o644); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", c.path, err)
		}
		result.FilesChanged++
		result.Replacements += c.count
	}
	p.log.Info(ctx, "applied fix", ports.F("id", r.ID),
		ports.F("files", result.FilesChanged), ports.F("replacements", result.Replacements))
	return result, nil
}

type change struct {
	path   string
	before []byte
	after  []byte
	count  int
}

// rewrite computes the new content of every file the rule changes.
func (p *Provider) rewrite(ctx context.Context, dir string, r Rule) ([]change, error) {
	files, err := p.files(dir, r)
	if err != nil {
		return nil, err
	}
	var out []change
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.fs.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		n := len(r.pattern.FindAllIndex(data, -1))
		if n == 0 {
			continue
		}
		out = append(out, change{
			path:   f,
			before: data,
			after:  r.pattern.ReplaceAll(data, []byte(r.replace)),
			count:  n,
		})
	}
	return out, nil
}
