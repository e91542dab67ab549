package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/uplift/internal/adapters/logging"
	"github.com/felixgeelhaar/uplift/internal/app"
	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	verbose     bool
	logJSON     bool
	logFile     string
	target      string
	entryPoints []string
	offline     bool
)

var rootCmd = &cobra.Command{
	Use:   "uplift",
	Short: "Upgrade .NET Framework solutions to modern .NET",
	Long: `Uplift walks a solution in dependency order and upgrades one project at a time:
  back up → convert to SDK style → retarget → update references → fix source

Every step reports what it will change and how risky it is before it runs.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: uplift.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write debug logs as JSON lines to this file")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "", "target framework (default: net8.0)")
	rootCmd.PersistentFlags().StringSliceVar(&entryPoints, "entry-point", nil, "project to upgrade towards; may be repeated")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "resolve packages from the catalog instead of nuget.org")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// upgrader is the part of app.Upgrader the commands use.
type upgrader interface {
	Upgrade(ctx context.Context, inputPath string, opts config.Options) error
	Analyze(ctx context.Context, inputPath string, opts config.Options, aopts app.AnalyzeOptions) (*app.Analysis, error)
	PrintAnalysis(a *app.Analysis)
	Projects(ctx context.Context, inputPath string, opts config.Options) error
}

type upgraderAdapter struct {
	*app.Upgrader
}

func (u upgraderAdapter) Upgrade(ctx context.Context, inputPath string, opts config.Options) error {
	_, err := u.Upgrader.Upgrade(ctx, inputPath, opts)
	return err
}

func (u upgraderAdapter) Projects(ctx context.Context, inputPath string, opts config.Options) error {
	candidates, err := u.Upgrader.Projects(ctx, inputPath, opts)
	if err != nil {
		return err
	}
	u.PrintProjects(candidates)
	return nil
}

var newUpgrader = func(out io.Writer, log ports.Logger) upgrader {
	return upgraderAdapter{app.NewUpgrader(app.WithOutput(out), app.WithLogger(log))}
}

// loadOptions reads the config file and applies the flags that were set.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	opts, err := config.Load(ports.ExpandPath(cfgFile))
	if err != nil {
		return opts, err
	}
	flags := cmd.Flags()
	if flags.Changed("target") {
		opts.Target = target
	}
	if flags.Changed("entry-point") {
		opts.EntryPoints = entryPoints
	}
	if flags.Changed("offline") {
		opts.Offline = offline
	}
	if verbose {
		opts.Log.Level = "debug"
	}
	if logJSON {
		opts.Log.JSON = true
	}
	if flags.Changed("log-file") {
		opts.Log.File = logFile
	}
	opts.ExpandPaths()
	return opts, nil
}

// newLogger creates the console logger for opts. Logs go to errOut so
// reports on stdout stay readable. The returned function closes the log
// file, if any.
func newLogger(opts config.Options, errOut io.Writer) (ports.Logger, func(), error) {
	level, err := logging.ParseLevel(opts.Log.Level)
	if err != nil {
		return nil, nil, config.NewValidationFailedError("log.level", err.Error())
	}
	console := logging.NewConsoleLogger(
		logging.WithOutput(errOut),
		logging.WithLevel(level),
		logging.WithJSONFormat(opts.Log.JSON),
		logging.WithTimestamp(opts.Log.JSON),
	)
	if opts.Log.File == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(opts.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, config.NewFileNotFoundError(opts.Log.File).WithUnderlying(err)
	}
	file := logging.NewConsoleLogger(
		logging.WithOutput(f),
		logging.WithLevel(ports.LevelDebug),
		logging.WithJSONFormat(true),
	)
	return logging.Tee(console, file), func() { _ = f.Close() }, nil
}

// setup loads options and builds the upgrader for a command. Callers must
// call the returned function when the command is done.
func setup(cmd *cobra.Command) (upgrader, config.Options, func(), error) {
	opts, err := loadOptions(cmd)
	if err != nil {
		return nil, opts, nil, err
	}
	log, closeLog, err := newLogger(opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, opts, nil, err
	}
	return newUpgrader(cmd.OutOrStdout(), log), opts, closeLog, nil
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var list *config.ErrorList
	if errors.As(err, &list) {
		return list.Format()
	}
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"net8.0\tLong-term support",
			"net9.0\tStandard-term support",
			"net10.0\tLong-term support",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("entry-point", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"csproj", "vbproj", "fsproj"}, cobra.ShellCompDirectiveFilterFileExt
	})
}
