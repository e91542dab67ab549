package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// Orchestration errors.
var (
	// ErrNoCurrentStep is returned when an action needs a current step but
	// every step is terminal or blocked.
	ErrNoCurrentStep = errors.New("no step is ready to run")

	// ErrUnknownStep is returned when a step ID is not part of the tree.
	ErrUnknownStep = errors.New("unknown step")

	// ErrQuit is returned by Run when the driver asks to stop.
	ErrQuit = errors.New("upgrade stopped by user")

	// ErrStalled is returned by Run when a step stays incomplete after
	// repeated applies.
	ErrStalled = errors.New("step made no progress")
)

// DefaultMaxAttempts bounds consecutive applies of a step that stays incomplete.
const DefaultMaxAttempts = 3

// Orchestrator drives a tree of steps in dependency order. It never runs
// two steps at once.
type Orchestrator struct {
	roots         *step.Graph
	children      map[string]*step.Graph
	byID          map[string]*step.Step
	results       map[string]StepResult
	logger        ports.Logger
	blockOnFailed bool
	maxAttempts   int
	now           func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for step transitions.
func WithLogger(logger ports.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBlockOnFailedDependency makes every failed step block its dependents.
// Without it only steps created with step.WithRequiresSuccess are blocked.
func WithBlockOnFailedDependency(block bool) Option {
	return func(o *Orchestrator) {
		o.blockOnFailed = block
	}
}

// WithMaxAttempts sets how often Run re-applies a step that stays incomplete.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// withClock replaces the time source in tests.
func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator orders steps and their sub-steps. It fails on duplicate
// IDs anywhere in the tree, on dependencies naming unknown siblings, and on
// dependency cycles.
func NewOrchestrator(steps []*step.Step, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		children:    make(map[string]*step.Graph),
		byID:        make(map[string]*step.Step),
		results:     make(map[string]StepResult),
		logger:      ports.Discard,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	roots, err := step.NewGraph(steps)
	if err != nil {
		return nil, err
	}
	o.roots = roots

	for _, root := range steps {
		var walkErr error
		root.Walk(func(s *step.Step) bool {
			id := s.ID().String()
			if _, dup := o.byID[id]; dup {
				walkErr = step.NewStepDuplicateError(id)
				return false
			}
			o.byID[id] = s
			if s.HasSubSteps() {
				g, err := step.NewGraph(s.SubSteps())
				if err != nil {
					walkErr = fmt.Errorf("sub-steps of %s: %w", id, err)
					return false
				}
				o.children[id] = g
			}
			return true
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return o, nil
}

// Steps returns the top-level steps in execution order.
func (o *Orchestrator) Steps() []*step.Step {
	return o.roots.Order()
}

// Step looks up a step anywhere in the tree.
func (o *Orchestrator) Step(id step.ID) (*step.Step, bool) {
	s, ok := o.byID[id.String()]
	return s, ok
}

// Initialize initializes every step whose predecessors are terminal, in
// order. Steps behind unfinished predecessors are initialized later, when
// CurrentStep reaches them.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	return o.initialize(ctx, o.roots)
}

func (o *Orchestrator) initialize(ctx context.Context, g *step.Graph) error {
	for _, s := range g.Order() {
		if !o.ready(g, s) {
			continue
		}
		if err := o.initStep(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// initStep initializes a step. Only cancellation is returned; other
// failures leave the step Failed and are recorded in its result.
func (o *Orchestrator) initStep(ctx context.Context, s *step.Step) error {
	start := o.now()
	err := s.Initialize(ctx)
	if err != nil && step.IsCancellation(err) {
		return err
	}

	for _, sub := range s.SubSteps() {
		sub.Walk(func(d *step.Step) bool {
			o.record(d, ActionInitialized, nil, 0)
			return true
		})
	}
	o.record(s, ActionInitialized, err, o.now().Sub(start))

	fields := []ports.Field{
		ports.F("step", s.ID().String()),
		ports.F("status", s.StatusCode()),
		ports.F("risk", s.Risk().String()),
	}
	if err != nil {
		o.logger.Warn(ctx, "step initialization failed", append(fields, ports.Err(err))...)
		return nil
	}
	o.logger.Debug(ctx, "step initialized", fields...)
	return nil
}

// CurrentStep returns the single step the user should act on next, or nil
// when every step is terminal or blocked. Sub-steps are offered before
// their parent. Steps are initialized lazily once their predecessors finish.
func (o *Orchestrator) CurrentStep(ctx context.Context) (*step.Step, error) {
	return o.current(ctx, o.roots)
}

func (o *Orchestrator) current(ctx context.Context, g *step.Graph) (*step.Step, error) {
	for _, s := range g.Order() {
		if !o.ready(g, s) {
			continue
		}
		if s.Status() == step.StatusUnknown {
			if err := o.initStep(ctx, s); err != nil {
				return nil, err
			}
		}
		if s.Status().IsTerminal() {
			continue
		}
		if s.HasSubSteps() {
			sub, err := o.current(ctx, o.children[s.ID().String()])
			if err != nil || sub != nil {
				return sub, err
			}
			if !allTerminal(s.SubSteps()) {
				// Remaining sub-steps are blocked.
				continue
			}
		}
		return s, nil
	}
	return nil, nil
}

// ready reports whether every predecessor of s has finished and none of
// them blocks it.
func (o *Orchestrator) ready(g *step.Graph, s *step.Step) bool {
	for _, pred := range g.Predecessors(s.ID()) {
		status := pred.Status()
		if !status.IsTerminal() {
			return false
		}
		if status == step.StatusFailed && o.blocks(s) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) blocks(s *step.Step) bool {
	return o.blockOnFailed || s.RequiresSuccess()
}

// ApplyCurrent applies the current step. The returned error is the step's
// own failure, if any; the step is then Failed and the orchestrator can
// continue with independent steps.
func (o *Orchestrator) ApplyCurrent(ctx context.Context) (StepResult, error) {
	s, err := o.CurrentStep(ctx)
	if err != nil {
		return StepResult{}, err
	}
	if s == nil {
		return StepResult{}, ErrNoCurrentStep
	}
	return o.applyAndSettle(ctx, s)
}

// SkipCurrent skips the current step and any of its unfinished sub-steps.
func (o *Orchestrator) SkipCurrent(ctx context.Context) (StepResult, error) {
	s, err := o.CurrentStep(ctx)
	if err != nil {
		return StepResult{}, err
	}
	if s == nil {
		return StepResult{}, ErrNoCurrentStep
	}
	return o.skip(ctx, s, "skipped by user")
}

// ApplyStep applies a specific step, typically to retry one that failed.
// Its predecessors must have finished.
func (o *Orchestrator) ApplyStep(ctx context.Context, id step.ID) (StepResult, error) {
	s, ok := o.byID[id.String()]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	if !o.ready(o.graphOf(s), s) {
		return NewStepResult(s, ActionNone, nil), fmt.Errorf("step %s is waiting on its dependencies", id)
	}
	if s.Status() == step.StatusUnknown {
		if err := o.initStep(ctx, s); err != nil {
			return StepResult{}, err
		}
	}
	return o.applyAndSettle(ctx, s)
}

func (o *Orchestrator) graphOf(s *step.Step) *step.Graph {
	if p := s.Parent(); p != nil {
		return o.children[p.ID().String()]
	}
	return o.roots
}

func (o *Orchestrator) applyAndSettle(ctx context.Context, s *step.Step) (StepResult, error) {
	out, res, err := o.apply(ctx, s, ActionApplied)
	if err != nil {
		return res, err
	}
	if err := o.settleParents(ctx, s, out); err != nil {
		return o.results[s.ID().String()], err
	}
	return o.results[s.ID().String()], nil
}

func (o *Orchestrator) apply(ctx context.Context, s *step.Step, action Action) (step.Outcome, StepResult, error) {
	o.logger.Info(ctx, "applying step",
		ports.F("step", s.ID().String()),
		ports.F("title", s.Title()),
		ports.F("risk", s.Risk().String()),
	)

	start := o.now()
	out, err := s.Apply(ctx)
	res := o.record(s, action, err, o.now().Sub(start))

	if err != nil {
		if step.IsCancellation(err) {
			o.logger.Warn(ctx, "step apply cancelled", ports.F("step", s.ID().String()))
		} else {
			o.logger.Error(ctx, "step apply failed",
				ports.F("step", s.ID().String()),
				ports.F("status", s.StatusCode()),
				ports.Err(err),
			)
		}
		return out, res, err
	}

	o.logger.Info(ctx, "step applied",
		ports.F("step", s.ID().String()),
		ports.F("status", s.StatusCode()),
		ports.F("details", s.Details()),
		ports.F("duration", res.Duration().String()),
	)
	return out, res, nil
}

func (o *Orchestrator) skip(ctx context.Context, s *step.Step, reason string) (StepResult, error) {
	out, err := s.Skip(reason)
	if err != nil {
		return o.record(s, ActionSkipped, err, 0), err
	}
	s.Walk(func(sub *step.Step) bool {
		o.record(sub, ActionSkipped, nil, 0)
		return true
	})
	o.logger.Info(ctx, "step skipped", ports.F("step", s.ID().String()), ports.F("reason", reason))

	if err := o.settleParents(ctx, s, out); err != nil {
		return o.results[s.ID().String()], err
	}
	return o.results[s.ID().String()], nil
}

// settleParents re-evaluates ancestors after a sub-step finished and
// applies a parent whose sub-steps are all done.
func (o *Orchestrator) settleParents(ctx context.Context, s *step.Step, out step.Outcome) error {
	for out.ParentShouldReevaluate {
		parent := s.Parent()
		if err := parent.Reevaluate(ctx); err != nil {
			if step.IsCancellation(err) {
				return err
			}
			o.record(parent, ActionInitialized, err, 0)
			o.logger.Warn(ctx, "parent re-evaluation failed",
				ports.F("step", parent.ID().String()),
				ports.Err(err),
			)
			return nil
		}
		o.record(parent, ActionInitialized, nil, 0)

		if parent.Status() == step.StatusIncomplete && parent.AllSubStepsDone() {
			o.logger.Debug(ctx, "all sub-steps done, applying parent", ports.F("step", parent.ID().String()))
			var err error
			out, _, err = o.apply(ctx, parent, ActionAutoApplied)
			if err != nil {
				if step.IsCancellation(err) {
					return err
				}
				return nil
			}
		} else {
			out = step.Outcome{
				Status:                 parent.Status(),
				ParentShouldReevaluate: parent.Parent() != nil && parent.Status().IsDone(),
			}
		}
		s = parent
	}
	return nil
}

func (o *Orchestrator) record(s *step.Step, action Action, err error, d time.Duration) StepResult {
	id := s.ID().String()
	res := NewStepResult(s, action, err).WithDuration(d)
	if prev, ok := o.results[id]; ok && err == nil && action == ActionInitialized &&
		prev.action != ActionInitialized && prev.action != ActionNone {
		// Re-evaluation keeps the last real action.
		res = refresh(prev, s)
	}
	o.results[id] = res
	return res
}

// Run asks the driver what to do with each current step until no step is
// left, the driver quits, or ctx is cancelled. Step failures do not stop
// the run; the failed step's dependents are skipped over when blocking
// applies.
func (o *Orchestrator) Run(ctx context.Context, driver Driver) error {
	var (
		last     *step.Step
		attempts int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s, err := o.CurrentStep(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}

		if s == last {
			attempts++
			if attempts >= o.maxAttempts {
				return fmt.Errorf("%w: %s (%s)", ErrStalled, s.ID(), s.Details())
			}
		} else {
			last, attempts = s, 0
		}

		cmd, err := driver.Next(ctx, s)
		if err != nil {
			return err
		}

		switch cmd {
		case CommandApply:
			if _, err := o.applyAndSettle(ctx, s); err != nil && step.IsCancellation(err) {
				return err
			}
		case CommandSkip:
			if _, err := o.skip(ctx, s, "skipped by user"); err != nil {
				return err
			}
		case CommandQuit:
			o.logger.Info(ctx, "run stopped", ports.F("step", s.ID().String()))
			return ErrQuit
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
	}
}

// Results returns one result per step in the tree, parents before their
// sub-steps, in execution order.
func (o *Orchestrator) Results() []StepResult {
	results := make([]StepResult, 0, len(o.byID))
	var visit func(g *step.Graph, blockedParent bool)
	visit = func(g *step.Graph, blockedParent bool) {
		for _, s := range g.Order() {
			res, ok := o.results[s.ID().String()]
			if !ok {
				res = NewStepResult(s, ActionNone, nil)
			} else {
				res = refresh(res, s)
			}
			blocked := blockedParent || o.isBlocked(g, s)
			if s.Status().IsTerminal() {
				blocked = false
			}
			results = append(results, res.WithBlocked(blocked))
			if sub, ok := o.children[s.ID().String()]; ok {
				visit(sub, blocked)
			}
		}
	}
	visit(o.roots, false)
	return results
}

// refresh updates the recorded state with the step's current status.
func refresh(res StepResult, s *step.Step) StepResult {
	res.status = s.Status()
	res.details = s.Details()
	res.risk = s.Risk()
	return res
}

// isBlocked reports whether s waits on a failed predecessor, directly or
// through other blocked predecessors.
func (o *Orchestrator) isBlocked(g *step.Graph, s *step.Step) bool {
	if s.Status().IsTerminal() {
		return false
	}
	for _, pred := range g.Predecessors(s.ID()) {
		if pred.Status() == step.StatusFailed && o.blocks(s) {
			return true
		}
		if o.isBlocked(g, pred) {
			return true
		}
	}
	return false
}

// Summary aggregates the results.
func (o *Orchestrator) Summary() Summary {
	return Summarize(o.Results())
}

// Succeeded returns false if any step failed or is blocked.
func (o *Orchestrator) Succeeded() bool {
	s := o.Summary()
	return s.Failed == 0 && s.Blocked == 0
}

func allTerminal(steps []*step.Step) bool {
	for _, s := range steps {
		if !s.Status().IsTerminal() {
			return false
		}
	}
	return true
}
