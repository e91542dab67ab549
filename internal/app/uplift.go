// Package app wires the uplift services together for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/felixgeelhaar/uplift/internal/adapters/command"
	"github.com/felixgeelhaar/uplift/internal/adapters/filesystem"
	"github.com/felixgeelhaar/uplift/internal/adapters/msbuild"
	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/domain/execution"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/tui"
	"github.com/felixgeelhaar/uplift/internal/tui/ui"
	"github.com/felixgeelhaar/uplift/internal/upgrade"
	"github.com/google/uuid"
)

var (
	// ErrUnfinished is returned when a run ends with projects left to upgrade,
	// usually because a step failed.
	ErrUnfinished = errors.New("upgrade did not finish")

	// ErrStepsFailed is joined to ErrUnfinished when at least one step
	// ended Failed.
	ErrStepsFailed = errors.New("steps failed")

	// ErrDeclined is returned when the user declines to continue.
	ErrDeclined = errors.New("upgrade cancelled")
)

// Upgrader is the application service behind the upgrade, analyze and
// projects commands.
type Upgrader struct {
	fs        ports.FileSystem
	runner    ports.CommandRunner
	workspace project.Workspace
	prompts   *tui.Prompts
	driver    execution.Driver
	log       ports.Logger
	out       io.Writer
	styles    ui.Styles
	newID     func() string
}

// Option configures an Upgrader.
type Option func(*Upgrader)

// WithFileSystem replaces the file system.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(u *Upgrader) { u.fs = fs }
}

// WithRunner replaces the command runner used for external tools.
func WithRunner(r ports.CommandRunner) Option {
	return func(u *Upgrader) { u.runner = r }
}

// WithWorkspace replaces the solution and project loader.
func WithWorkspace(w project.Workspace) Option {
	return func(u *Upgrader) { u.workspace = w }
}

// WithPrompts replaces the prompts chosen from the terminal state.
func WithPrompts(p tui.Prompts) Option {
	return func(u *Upgrader) { u.prompts = &p }
}

// WithDriver replaces the driver that decides what to do with each step.
func WithDriver(d execution.Driver) Option {
	return func(u *Upgrader) { u.driver = d }
}

// WithLogger sets the logger.
func WithLogger(log ports.Logger) Option {
	return func(u *Upgrader) {
		if log != nil {
			u.log = log
		}
	}
}

// WithOutput sets where reports are written.
func WithOutput(out io.Writer) Option {
	return func(u *Upgrader) { u.out = out }
}

// NewUpgrader creates an Upgrader backed by the real file system and
// process runner unless options say otherwise.
func NewUpgrader(opts ...Option) *Upgrader {
	u := &Upgrader{
		log:    ports.Discard,
		out:    os.Stdout,
		styles: ui.DefaultStyles(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.fs == nil {
		u.fs = filesystem.NewRealFileSystem()
	}
	if u.runner == nil {
		u.runner = command.NewRealRunner(command.WithEnv(command.DotnetEnv...))
	}
	if u.workspace == nil {
		u.workspace = msbuild.NewWorkspace(u.fs)
	}
	return u
}

func (u *Upgrader) promptsFor(opts config.Options) tui.Prompts {
	if u.prompts != nil {
		return *u.prompts
	}
	return tui.NewPrompts(opts.NonInteractive, u.log)
}

// Upgrade migrates the solution or project at inputPath. It returns
// ErrUnfinished when projects were left behind or any step failed, and
// execution.ErrQuit when the user stopped the run.
func (u *Upgrader) Upgrade(ctx context.Context, inputPath string, opts config.Options) (*upgrade.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	target, err := opts.TargetFramework()
	if err != nil {
		return nil, err
	}

	prompts := u.promptsFor(opts)
	if opts.SkipBackup && prompts.Interactive {
		ok, err := prompts.Confirmer.Confirm(ctx, "Projects will be changed without a backup. Continue?")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDeclined
		}
	}

	session := upgrade.NewSession(u.newID(), inputPath, opts, target, u.workspace)
	svc, err := u.services(session, prompts.Chooser)
	if err != nil {
		return nil, err
	}

	driver := u.driver
	if driver == nil {
		driver = execution.ApplyAll
		if prompts.Interactive {
			driver = NewInteractiveDriver(prompts.Chooser, u.out)
		}
	}

	log := u.log.With(ports.F("run", session.ID))
	log.Info(ctx, "upgrade started", ports.F("input", inputPath), ports.F("target", target.String()))

	result, runErr := upgrade.Run(ctx, session, svc, driver)
	if result != nil {
		u.PrintResult(result, session)
	}
	if runErr != nil {
		return result, runErr
	}
	if failed := result.Failed(); failed > 0 {
		return result, fmt.Errorf("%w: %w: %s", ErrUnfinished, ErrStepsFailed, english.Plural(failed, "step", ""))
	}
	if !result.Completed {
		return result, fmt.Errorf("%w: %d of the reachable projects upgraded", ErrUnfinished, len(result.Upgraded))
	}
	return result, nil
}

// printf writes to the output writer, ignoring errors.
func (u *Upgrader) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(u.out, format, args...)
}
