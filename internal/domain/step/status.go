package step

// Status represents the lifecycle state of a step.
type Status string

// Lifecycle state names. They double as statekit state identifiers, which is
// why they are untyped.
const (
	stateUnknown    = "unknown"
	stateIncomplete = "incomplete"
	stateComplete   = "complete"
	stateFailed     = "failed"
	stateSkipped    = "skipped"
)

const (
	// StatusUnknown is the state of a step before its first initialization.
	StatusUnknown Status = stateUnknown
	// StatusIncomplete indicates the step still needs to be applied.
	StatusIncomplete Status = stateIncomplete
	// StatusComplete indicates the step's desired state is met.
	StatusComplete Status = stateComplete
	// StatusFailed indicates initialization or apply failed.
	StatusFailed Status = stateFailed
	// StatusSkipped indicates the step was skipped or is not applicable.
	StatusSkipped Status = stateSkipped
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status is final for the current
// initialization pass.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusSkipped:
		return true
	case StatusUnknown, StatusIncomplete:
		return false
	}
	return false
}

// IsDone returns true if the step finished without failing.
func (s Status) IsDone() bool {
	return s == StatusComplete || s == StatusSkipped
}

// IsValid returns true for known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusUnknown, StatusIncomplete, StatusComplete, StatusFailed, StatusSkipped:
		return true
	}
	return false
}
