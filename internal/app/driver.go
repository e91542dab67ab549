package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/uplift/internal/domain/execution"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/tui/ui"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InteractiveDriver shows each step and asks whether to apply it, skip it
// or stop.
type InteractiveDriver struct {
	chooser ports.Chooser
	out     io.Writer
	styles  ui.Styles
	title   cases.Caser
}

var _ execution.Driver = (*InteractiveDriver)(nil)

// NewInteractiveDriver creates a driver that asks chooser about each step.
func NewInteractiveDriver(chooser ports.Chooser, out io.Writer) *InteractiveDriver {
	return &InteractiveDriver{
		chooser: chooser,
		out:     out,
		styles:  ui.DefaultStyles(),
		title:   cases.Title(language.English),
	}
}

// Next implements execution.Driver. Cancelling the prompt stops the run.
func (d *InteractiveDriver) Next(ctx context.Context, current *step.Step) (execution.Command, error) {
	_, _ = fmt.Fprintf(d.out, "\n%s\n", d.styles.Title.Render(d.title.String(current.Title())))
	if desc := current.Description(); desc != "" {
		_, _ = fmt.Fprintf(d.out, "%s\n", d.styles.Muted.Render(desc))
	}
	if details := current.Details(); details != "" {
		_, _ = fmt.Fprintf(d.out, "%s\n", details)
	}
	_, _ = fmt.Fprintf(d.out, "Risk: %s\n", riskStyle(d.styles, current.Risk()).Render(current.Risk().String()))

	choice, err := d.chooser.Choose(ctx, "What should happen with this step?", []ports.Choice{
		{Key: string(execution.CommandApply), Label: "Apply", Description: "Run the step now"},
		{Key: string(execution.CommandSkip), Label: "Skip", Description: "Leave it as it is and move on"},
		{Key: string(execution.CommandQuit), Label: "Quit", Description: "Stop the upgrade; finished steps are kept"},
	})
	if err != nil {
		if errors.Is(err, ports.ErrNoChoice) {
			return execution.CommandQuit, nil
		}
		return "", err
	}
	return execution.Command(choice.Key), nil
}
