// Package command provides command execution adapters.
package command

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/ports"
)

// DotnetEnv quiets the dotnet CLI's first-run banner and telemetry.
var DotnetEnv = []string{
	"DOTNET_CLI_TELEMETRY_OPTOUT=1",
	"DOTNET_NOLOGO=1",
	"DOTNET_SKIP_FIRST_TIME_EXPERIENCE=1",
}

// RealRunner executes actual commands.
type RealRunner struct {
	dir string
	env []string
}

// RunnerOption configures a RealRunner.
type RunnerOption func(*RealRunner)

// WithDir runs commands in dir instead of the current directory.
func WithDir(dir string) RunnerOption {
	return func(r *RealRunner) {
		r.dir = dir
	}
}

// WithEnv adds KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) RunnerOption {
	return func(r *RealRunner) {
		r.env = append(r.env, env...)
	}
}

// NewRealRunner creates a new RealRunner.
func NewRealRunner(opts ...RunnerOption) *RealRunner {
	r := &RealRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a command and returns the result. A non-zero exit code is
// reported in the result, not as an error.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// Ensure RealRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*RealRunner)(nil)
