package step

import (
	"github.com/felixgeelhaar/statekit"
)

// Event types for the step lifecycle state machine.
const (
	EventInitIncomplete = "INIT_INCOMPLETE"
	EventInitComplete   = "INIT_COMPLETE"
	EventInitFailed     = "INIT_FAILED"
	EventInitSkipped    = "INIT_SKIPPED"
	EventApplied        = "APPLIED"
	EventApplyPartial   = "APPLY_PARTIAL"
	EventApplyFailed    = "APPLY_FAILED"
	EventSkip           = "SKIP"
)

// lifecycleContext is the statekit context type. The step keeps its own
// details and risk; the machine only tracks the status.
type lifecycleContext struct {
	StepID string
}

// lifecycle guards status transitions with a statekit machine.
type lifecycle struct {
	interp *statekit.Interpreter[lifecycleContext]
}

// newLifecycle builds and starts the lifecycle machine for one step.
// The machine definition is static, so a build failure is a programming error.
func newLifecycle(stepID string) *lifecycle {
	machine, err := statekit.NewMachine[lifecycleContext]("step-lifecycle").
		WithInitial(stateUnknown).
		WithContext(lifecycleContext{StepID: stepID}).
		State(stateUnknown).
		On(EventInitIncomplete).Target(stateIncomplete).
		On(EventInitComplete).Target(stateComplete).
		On(EventInitFailed).Target(stateFailed).
		On(EventInitSkipped).Target(stateSkipped).
		On(EventSkip).Target(stateSkipped).Done().
		State(stateIncomplete).
		On(EventInitComplete).Target(stateComplete).
		On(EventInitFailed).Target(stateFailed).
		On(EventInitSkipped).Target(stateSkipped).
		On(EventApplied).Target(stateComplete).
		On(EventApplyFailed).Target(stateFailed).
		On(EventSkip).Target(stateSkipped).Done().
		State(stateComplete).
		On(EventInitIncomplete).Target(stateIncomplete).
		On(EventInitFailed).Target(stateFailed).
		On(EventInitSkipped).Target(stateSkipped).
		On(EventSkip).Target(stateSkipped).Done().
		State(stateFailed).
		On(EventInitIncomplete).Target(stateIncomplete).
		On(EventInitComplete).Target(stateComplete).
		On(EventInitSkipped).Target(stateSkipped).
		On(EventApplied).Target(stateComplete).
		On(EventApplyPartial).Target(stateIncomplete).
		On(EventSkip).Target(stateSkipped).Done().
		State(stateSkipped).
		On(EventInitIncomplete).Target(stateIncomplete).
		On(EventInitComplete).Target(stateComplete).
		On(EventInitFailed).Target(stateFailed).Done().
		Build()
	if err != nil {
		panic("step lifecycle machine: " + err.Error())
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycle{interp: interp}
}

// Current returns the machine's current status.
func (l *lifecycle) Current() Status {
	return Status(l.interp.State().Value)
}

// Fire sends event and reports whether the machine landed on want.
// Self-transitions are accepted without consulting the machine.
func (l *lifecycle) Fire(event string, want Status) bool {
	if l.Current() == want {
		return true
	}
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	return l.Current() == want
}

// initEvent maps an initialization result onto its lifecycle event.
func initEvent(s Status) string {
	switch s {
	case StatusComplete:
		return EventInitComplete
	case StatusFailed:
		return EventInitFailed
	case StatusSkipped:
		return EventInitSkipped
	default:
		return EventInitIncomplete
	}
}

// applyEvent maps an apply result onto its lifecycle event.
func applyEvent(s Status) string {
	switch s {
	case StatusComplete:
		return EventApplied
	case StatusFailed:
		return EventApplyFailed
	default:
		return EventApplyPartial
	}
}
