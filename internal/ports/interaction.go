package ports

import (
	"context"
	"errors"
)

// ErrNoChoice is returned when a Chooser is cancelled or has nothing to offer.
var ErrNoChoice = errors.New("no choice made")

// Choice is one option offered to the user.
type Choice struct {
	Key         string
	Label       string
	Description string
}

// Chooser asks the user to pick one of several choices.
type Chooser interface {
	Choose(ctx context.Context, prompt string, choices []Choice) (Choice, error)
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}
