package execution

import "github.com/felixgeelhaar/uplift/internal/domain/step"

// Summary provides aggregate statistics about an orchestration run.
type Summary struct {
	Total      int
	Complete   int
	Incomplete int
	Failed     int
	Skipped    int
	Unknown    int
	Blocked    int
	Risk       step.Risk
}

// Summarize counts results by status. Blocked steps are counted both as
// blocked and under their status.
func Summarize(results []StepResult) Summary {
	summary := Summary{Total: len(results), Risk: step.RiskNone}
	for _, r := range results {
		switch r.Status() {
		case step.StatusComplete:
			summary.Complete++
		case step.StatusIncomplete:
			summary.Incomplete++
		case step.StatusFailed:
			summary.Failed++
		case step.StatusSkipped:
			summary.Skipped++
		case step.StatusUnknown:
			summary.Unknown++
		}
		if r.Blocked() {
			summary.Blocked++
		}
		if r.Status() != step.StatusSkipped {
			summary.Risk = step.MaxRisk(summary.Risk, r.Risk())
		}
	}
	return summary
}

// Done returns true when no step is left to act on.
func (s Summary) Done() bool {
	return s.Incomplete+s.Unknown == s.Blocked
}
