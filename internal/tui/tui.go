// Package tui provides the interactive prompts and terminal rendering of
// uplift.
package tui

import (
	"io"
	"os"

	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/mattn/go-isatty"
)

// PromptOption configures the interactive prompts.
type PromptOption func(*promptIO)

type promptIO struct {
	in  io.Reader
	out io.Writer
}

// WithIO sets the terminal streams the prompts use.
func WithIO(in io.Reader, out io.Writer) PromptOption {
	return func(p *promptIO) {
		p.in = in
		p.out = out
	}
}

func applyPromptOptions(opts []PromptOption) promptIO {
	var p promptIO
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Prompts bundles the chooser and confirmer used during a run.
type Prompts struct {
	Chooser     ports.Chooser
	Confirmer   ports.Confirmer
	Interactive bool
}

// NewPrompts returns interactive prompts when both stdin and stdout are
// terminals and nonInteractive is false. Otherwise every prompt is answered
// automatically: the first choice is taken and confirmations answer no.
func NewPrompts(nonInteractive bool, log ports.Logger) Prompts {
	if !nonInteractive && IsTerminal(os.Stdin) && IsTerminal(os.Stdout) {
		return Prompts{
			Chooser:     NewChooser(),
			Confirmer:   NewConfirmer(),
			Interactive: true,
		}
	}
	return Prompts{
		Chooser:   &AutoChooser{Log: log},
		Confirmer: AutoConfirmer{},
	}
}
