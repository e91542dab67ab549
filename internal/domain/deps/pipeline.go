package deps

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// DefaultMaxIterations bounds the convergence loop.
const DefaultMaxIterations = 3

// Change is one reference operation applied to a project.
type Change struct {
	Kind      string // "add" or "remove"
	Reference string
	Details   []string
	Risk      step.Risk
}

// String renders the change for reports.
func (c Change) String() string {
	if len(c.Details) == 0 {
		return fmt.Sprintf("%s %s", c.Kind, c.Reference)
	}
	return fmt.Sprintf("%s %s (%s)", c.Kind, c.Reference, strings.Join(c.Details, "; "))
}

// ConvergeResult summarizes a convergence run.
type ConvergeResult struct {
	Iterations int
	Changes    []Change
	Warnings   []string
	State      *AnalysisState

	PossibleBreakingChange bool
}

// Risk returns the highest risk among applied changes.
func (r *ConvergeResult) Risk() step.Risk {
	risks := make([]step.Risk, len(r.Changes))
	for i, c := range r.Changes {
		risks[i] = c.Risk
	}
	return step.MaxRisk(risks...)
}

// Pipeline runs analyzers in a fixed order against a fresh state.
type Pipeline struct {
	analyzers     []Analyzer
	registry      Registry
	restorer      Restorer
	maxIterations int
	logger        ports.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithAnalyzers replaces the default analyzer chain.
func WithAnalyzers(analyzers ...Analyzer) PipelineOption {
	return func(p *Pipeline) {
		p.analyzers = analyzers
	}
}

// WithMaxIterations sets the convergence ceiling.
func WithMaxIterations(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger ports.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline using the default analyzers and the
// embedded package map unless overridden.
func NewPipeline(registry Registry, restorer Restorer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry:      registry,
		restorer:      restorer,
		maxIterations: DefaultMaxIterations,
		logger:        ports.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.analyzers == nil {
		m, err := DefaultPackageMap()
		if err != nil {
			panic("embedded package map: " + err.Error())
		}
		p.analyzers = DefaultAnalyzers(m)
	}
	return p
}

// Analyzers returns the analyzer chain in run order.
func (p *Pipeline) Analyzers() []Analyzer {
	out := make([]Analyzer, len(p.analyzers))
	copy(out, p.analyzers)
	return out
}

// Analyze restores subject and runs one pass of the analyzers. It proposes
// changes without applying them.
func (p *Pipeline) Analyze(ctx context.Context, subject Subject) (*AnalysisState, error) {
	return p.analyze(ctx, subject, newCachedRegistry(p.registry))
}

func (p *Pipeline) analyze(ctx context.Context, subject Subject, registry Registry) (*AnalysisState, error) {
	state, err := NewAnalysisState(ctx, subject, p.restorer)
	if err != nil {
		p.logger.Warn(ctx, "restore failed", ports.F("project", subject.Name()), ports.Err(err))
		return state, err
	}

	in := Input{Subject: subject, Registry: registry}
	for _, analyzer := range p.analyzers {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		before := state.Version()
		if err := analyzer.Analyze(ctx, in, state); err != nil {
			if step.IsCancellation(err) {
				return state, err
			}
			state.Failed = true
			return state, fmt.Errorf("analyzer %s: %w", analyzer.Name(), err)
		}
		p.logger.Debug(ctx, "analyzer finished",
			ports.F("project", subject.Name()),
			ports.F("analyzer", analyzer.Name()),
			ports.F("mutations", state.Version()-before),
		)
	}
	return state, nil
}

// Converge repeatedly analyzes, applies, saves and reloads project until a
// pass proposes nothing. Reaching the iteration ceiling with changes still
// pending fails with ErrMaxIterations; the last proposal is not applied.
func (p *Pipeline) Converge(ctx context.Context, project Mutable) (*ConvergeResult, error) {
	registry := newCachedRegistry(p.registry)
	result := &ConvergeResult{}
	seen := make(map[string]bool)

	for i := 1; ; i++ {
		state, err := p.analyze(ctx, project, registry)
		result.Iterations = i
		result.State = state
		if state != nil {
			for _, w := range state.Warnings {
				if !seen[w] {
					seen[w] = true
					result.Warnings = append(result.Warnings, w)
				}
			}
			if state.PossibleBreakingChangeRecommended {
				result.PossibleBreakingChange = true
			}
		}
		if err != nil {
			return result, err
		}

		if !state.HasChanges() {
			p.logger.Info(ctx, "dependencies converged",
				ports.F("project", project.Name()),
				ports.F("iterations", i),
				ports.F("changes", len(result.Changes)),
			)
			return result, nil
		}

		if i >= p.maxIterations {
			return result, fmt.Errorf("%w: %s still has %d pending changes after %d iterations",
				ErrMaxIterations, project.Name(), state.Packages.Count()+state.Frameworks.Count()+state.Assemblies.Count(), i)
		}

		changes, err := Apply(state, project)
		result.Changes = append(result.Changes, changes...)
		if err != nil {
			return result, err
		}
		if err := project.Save(ctx); err != nil {
			return result, fmt.Errorf("failed to save %s: %w", project.Name(), err)
		}
		if err := project.Reload(ctx); err != nil {
			return result, fmt.Errorf("failed to reload %s: %w", project.Name(), err)
		}
	}
}

// Apply writes the state's pending operations to project. Removals run
// before additions; an addition that replaces original versions removes
// them first. RemovePackageReference removes a single occurrence per call.
func Apply(state *AnalysisState, project Mutable) ([]Change, error) {
	var changes []Change

	for _, op := range state.Packages.Removals() {
		for n := state.Packages.RemovedCount(op.Item); n > 0; n-- {
			if err := project.RemovePackageReference(op.Item); err != nil {
				return changes, fmt.Errorf("failed to remove %s: %w", op.Item, err)
			}
		}
		changes = append(changes, Change{Kind: "remove", Reference: op.Item.String(), Details: op.Details, Risk: op.Risk})
	}
	for _, op := range state.Packages.Additions() {
		for _, old := range state.Packages.Replaces(op.Item.Key()) {
			if err := project.RemovePackageReference(old); err != nil {
				return changes, fmt.Errorf("failed to remove %s: %w", old, err)
			}
		}
		if err := project.AddPackageReference(op.Item); err != nil {
			return changes, fmt.Errorf("failed to add %s: %w", op.Item, err)
		}
		changes = append(changes, Change{Kind: "add", Reference: op.Item.String(), Details: op.Details, Risk: op.Risk})
	}

	for _, op := range state.Frameworks.Removals() {
		if err := project.RemoveFrameworkReference(op.Item); err != nil {
			return changes, fmt.Errorf("failed to remove framework %s: %w", op.Item, err)
		}
		changes = append(changes, Change{Kind: "remove", Reference: op.Item.String(), Details: op.Details, Risk: op.Risk})
	}
	for _, op := range state.Frameworks.Additions() {
		if err := project.AddFrameworkReference(op.Item); err != nil {
			return changes, fmt.Errorf("failed to add framework %s: %w", op.Item, err)
		}
		changes = append(changes, Change{Kind: "add", Reference: op.Item.String(), Details: op.Details, Risk: op.Risk})
	}

	for _, op := range state.Assemblies.Removals() {
		if err := project.RemoveAssemblyReference(op.Item); err != nil {
			return changes, fmt.Errorf("failed to remove assembly %s: %w", op.Item, err)
		}
		changes = append(changes, Change{Kind: "remove", Reference: op.Item.String(), Details: op.Details, Risk: op.Risk})
	}

	return changes, nil
}

// cachedRegistry memoizes registry answers for one pipeline run.
type cachedRegistry struct {
	inner Registry

	mu      sync.Mutex
	latest  map[string]cachedString
	newer   map[string]cachedStrings
	support map[string]cachedBool
}

type cachedString struct {
	value string
	err   error
}

type cachedStrings struct {
	value []string
	err   error
}

type cachedBool struct {
	value bool
	err   error
}

func newCachedRegistry(inner Registry) Registry {
	if inner == nil {
		return nil
	}
	return &cachedRegistry{
		inner:   inner,
		latest:  make(map[string]cachedString),
		newer:   make(map[string]cachedStrings),
		support: make(map[string]cachedBool),
	}
}

func (c *cachedRegistry) GetLatestVersion(ctx context.Context, name string, targets []tfm.Framework) (string, error) {
	key := strings.ToLower(name) + "|" + tfm.Join(targets)
	c.mu.Lock()
	if hit, ok := c.latest[key]; ok {
		c.mu.Unlock()
		return hit.value, hit.err
	}
	c.mu.Unlock()

	v, err := c.inner.GetLatestVersion(ctx, name, targets)
	if step.IsCancellation(err) {
		return v, err
	}
	c.mu.Lock()
	c.latest[key] = cachedString{value: v, err: err}
	c.mu.Unlock()
	return v, err
}

func (c *cachedRegistry) GetNewerVersions(ctx context.Context, name, current string) ([]string, error) {
	key := strings.ToLower(name) + "|" + current
	c.mu.Lock()
	if hit, ok := c.newer[key]; ok {
		c.mu.Unlock()
		return hit.value, hit.err
	}
	c.mu.Unlock()

	v, err := c.inner.GetNewerVersions(ctx, name, current)
	if step.IsCancellation(err) {
		return v, err
	}
	c.mu.Lock()
	c.newer[key] = cachedStrings{value: v, err: err}
	c.mu.Unlock()
	return v, err
}

func (c *cachedRegistry) DoesPackageSupportTargets(ctx context.Context, ref PackageReference, targets []tfm.Framework) (bool, error) {
	key := ref.Identity() + "|" + tfm.Join(targets)
	c.mu.Lock()
	if hit, ok := c.support[key]; ok {
		c.mu.Unlock()
		return hit.value, hit.err
	}
	c.mu.Unlock()

	v, err := c.inner.DoesPackageSupportTargets(ctx, ref, targets)
	if step.IsCancellation(err) {
		return v, err
	}
	c.mu.Lock()
	c.support[key] = cachedBool{value: v, err: err}
	c.mu.Unlock()
	return v, err
}
