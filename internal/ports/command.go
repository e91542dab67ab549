// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"strings"

	"github.com/kballard/go-shellquote"
)

// CommandResult is the outcome of running an external tool such as dotnet
// or the project converter.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns what the tool had to say about a failure: stderr, or
// stdout when stderr is empty.
func (r CommandResult) Output() string {
	if out := strings.TrimSpace(r.Stderr); out != "" {
		return out
	}
	return strings.TrimSpace(r.Stdout)
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// String renders the call as a command line a user could paste into a shell.
func (c CommandCall) String() string {
	return shellquote.Join(append([]string{c.Command}, c.Args...)...)
}

// CommandRunner runs external tools.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}
