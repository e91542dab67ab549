package tui

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// Confirmer is an interactive ports.Confirmer. Aborting the form answers no.
type Confirmer struct {
	in  io.Reader
	out io.Writer
}

var _ ports.Confirmer = (*Confirmer)(nil)

// NewConfirmer creates a Confirmer.
func NewConfirmer(opts ...PromptOption) *Confirmer {
	p := applyPromptOptions(opts)
	return &Confirmer{in: p.in, out: p.out}
}

// Confirm implements ports.Confirmer.
func (c *Confirmer) Confirm(ctx context.Context, question string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)).WithShowHelp(false)
	if c.in != nil {
		form = form.WithInput(c.in)
	}
	if c.out != nil {
		form = form.WithOutput(c.out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}
	return ok, nil
}

// AutoConfirmer gives the same answer to every question.
type AutoConfirmer struct {
	Answer bool
}

var _ ports.Confirmer = AutoConfirmer{}

// Confirm implements ports.Confirmer.
func (a AutoConfirmer) Confirm(context.Context, string) (bool, error) {
	return a.Answer, nil
}
