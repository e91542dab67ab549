package execution

import (
	"context"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
)

// Command is a driver's decision for the current step.
type Command string

// Commands understood by Run.
const (
	CommandApply Command = "apply"
	CommandSkip  Command = "skip"
	CommandQuit  Command = "quit"
)

// Driver decides what to do with each current step.
type Driver interface {
	Next(ctx context.Context, current *step.Step) (Command, error)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(ctx context.Context, current *step.Step) (Command, error)

// Next implements Driver.
func (f DriverFunc) Next(ctx context.Context, current *step.Step) (Command, error) {
	return f(ctx, current)
}

// ApplyAll is a Driver that applies every step without asking.
var ApplyAll Driver = DriverFunc(func(context.Context, *step.Step) (Command, error) {
	return CommandApply, nil
})
