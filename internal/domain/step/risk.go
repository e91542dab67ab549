package step

// Risk estimates how likely applying a change is to break the build.
// Each step reports its own risk; the orchestrator never computes it.
type Risk string

const (
	RiskNone    Risk = "none"
	RiskLow     Risk = "low"
	RiskMedium  Risk = "medium"
	RiskHigh    Risk = "high"
	RiskUnknown Risk = "unknown"
)

// String returns the string representation of the risk.
func (r Risk) String() string {
	if r == "" {
		return string(RiskNone)
	}
	return string(r)
}

// rank orders risks. Unknown sits between medium and high.
func (r Risk) rank() int {
	switch r {
	case RiskNone, "":
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskUnknown:
		return 3
	case RiskHigh:
		return 4
	}
	return 3
}

// MaxRisk returns the highest of the given risks.
func MaxRisk(risks ...Risk) Risk {
	highest := RiskNone
	for _, r := range risks {
		if r.rank() > highest.rank() {
			highest = r
		}
	}
	return highest
}
