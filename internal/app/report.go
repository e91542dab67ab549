package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/uplift/internal/domain/execution"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/tui/ui"
	"github.com/felixgeelhaar/uplift/internal/upgrade"
)

func riskStyle(styles ui.Styles, r step.Risk) lipgloss.Style {
	switch r {
	case step.RiskHigh, step.RiskUnknown:
		return styles.Error
	case step.RiskMedium:
		return styles.Warning
	case step.RiskLow:
		return styles.Info
	default:
		return styles.Muted
	}
}

// statusMark renders the one-character marker of a step result.
func statusMark(styles ui.Styles, r execution.StepResult) string {
	switch {
	case r.Blocked():
		return styles.Muted.Render("·")
	case r.Status() == step.StatusComplete:
		return styles.Success.Render("✓")
	case r.Status() == step.StatusFailed:
		return styles.Error.Render("✗")
	case r.Status() == step.StatusSkipped:
		return styles.Muted.Render("-")
	case r.Status() == step.StatusIncomplete:
		return styles.Warning.Render("+")
	default:
		return styles.Muted.Render("?")
	}
}

// PrintResult writes the step results of every pass and the readiness
// guidance of the last project that was checked.
func (u *Upgrader) PrintResult(result *upgrade.Result, session *upgrade.Session) {
	u.printf("\n%s\n", u.styles.Title.Render("Upgrade Results"))

	for _, pass := range result.Passes {
		if pass.Project != "" {
			u.printf("\n%s\n", u.styles.Subtitle.Render(pass.Project))
		}
		for _, r := range pass.Results {
			if r.Skipped() && r.Details() == "not applicable" {
				continue
			}
			indent := "  " + strings.Repeat("  ", strings.Count(r.StepID().String(), ":")-1)
			line := indent + statusMark(u.styles, r) + " " + r.Title()
			if d := firstLine(r.Details()); d != "" {
				line += u.styles.Muted.Render(" (" + d + ")")
			}
			u.printf("%s\n", line)
			if r.Failed() && r.Error() != nil {
				u.printf("%s    %s\n", indent, u.styles.Error.Render(r.Error().Error()))
			}
		}
	}

	if report := session.Readiness; report != nil && !report.Ready() {
		u.printf("\n%s\n", u.styles.Warning.Render(report.Summary()))
		for _, g := range report.Guidance {
			u.printf("  %s\n", g)
		}
	}

	u.printf("\n%d projects upgraded", len(result.Upgraded))
	if result.Completed {
		u.printf(", %s\n", u.styles.Success.Render("nothing left to do"))
	} else {
		u.printf(", %s\n", u.styles.Warning.Render("run again to continue"))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
