package upgrade

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/adapters/catalog"
	"github.com/felixgeelhaar/uplift/internal/adapters/fixers"
	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/execution"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/readiness"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackup struct {
	mu   sync.Mutex
	dirs []string
}

func (b *recordingBackup) Create(_ context.Context, dir string) (ports.BackupRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirs = append(b.dirs, dir)
	return ports.BackupRecord{ID: "b1", Source: dir, Location: dir + ".backup", Files: 2}, nil
}

type countingToolchain struct {
	calls int
	err   error
}

func (c *countingToolchain) TryEnsureRegistered(context.Context) error {
	c.calls++
	return c.err
}

type fixedChooser struct {
	key     string
	prompts []string
}

func (c *fixedChooser) Choose(_ context.Context, prompt string, choices []ports.Choice) (ports.Choice, error) {
	c.prompts = append(c.prompts, prompt)
	for _, ch := range choices {
		if ch.Key == c.key {
			return ch, nil
		}
	}
	return ports.Choice{}, ports.ErrNoChoice
}

type fixture struct {
	session   *Session
	svc       Services
	fs        *mocks.FileSystem
	runner    *mocks.CommandRunner
	backup    *recordingBackup
	toolchain *countingToolchain
	chooser   *fixedChooser
	lib       *mocks.Project
	app       *mocks.Project
}

// newFixture builds a solution with a classic App referencing a classic Lib.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	lib := mocks.NewProject("Lib", "net48")
	app := mocks.NewProject("App", "net48").WithKind(project.OutputExe).WithReferences(lib)
	ws := mocks.NewWorkspace()
	ws.AddSolution("/src/App.sln", app, lib)

	fs := mocks.NewFileSystem()
	fs.AddFile(lib.FilePath(), "<Project />")
	fs.AddFile("/src/Lib/Legacy.cs", "using System.Web.Mvc;\n")
	fs.AddFile(app.FilePath(), "<Project />")
	fs.AddFile("/src/App/Program.cs", "class Program {}\n")

	runner := mocks.NewCommandRunner()
	for _, p := range []*mocks.Project{lib, app} {
		runner.AddResult("try-convert", []string{"--keep-current-tfms", "-p", p.FilePath()}, ports.CommandResult{ExitCode: 0})
		p.OnReload = func(p *mocks.Project) { p.ConvertToSdkStyle("Microsoft.NET.Sdk") }
	}

	builtin, err := fixers.BuiltinRules()
	require.NoError(t, err)
	rules, err := fixers.Compile(builtin)
	require.NoError(t, err)

	cat, err := catalog.Default()
	require.NoError(t, err)

	opts := config.DefaultOptions()
	target := tfm.MustParse("net8.0")
	session := NewSession("run-1", "/src/App.sln", opts, target, ws)

	f := &fixture{
		session:   session,
		fs:        fs,
		runner:    runner,
		backup:    &recordingBackup{},
		toolchain: &countingToolchain{},
		chooser:   &fixedChooser{key: allProjectsKey},
		lib:       lib,
		app:       app,
	}
	f.svc = Services{
		Workspace: ws,
		Gate:      readiness.NewGate(readiness.DefaultChecks(session.Selector)),
		Pipeline:  deps.NewPipeline(cat, catalog.NewRestorer(cat)),
		Fixers:    fixers.NewProvider(fs, rules, nil),
		Backup:    f.backup,
		Toolchain: f.toolchain,
		Runner:    runner,
		Chooser:   f.chooser,
	}
	return f
}

func TestRun_UpgradesProjectsInDependencyOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, []string{f.lib.FilePath(), f.app.FilePath()}, result.Upgraded)
	assert.Len(t, result.Passes, 3, "one pass per project plus the pass that finds nothing left")

	assert.Equal(t, []string{f.lib.Directory(), f.app.Directory()}, f.backup.dirs)
	assert.Equal(t, 2, f.toolchain.calls, "toolchain checked before every conversion")
	assert.Len(t, f.runner.CallsTo("try-convert"), 2)

	for _, p := range []*mocks.Project{f.lib, f.app} {
		assert.True(t, p.IsSdkStyle(), p.Name())
		assert.Equal(t, []tfm.Framework{tfm.MustParse("net8.0")}, p.TargetFrameworks(), p.Name())
	}

	data, err := f.fs.ReadFile("/src/Lib/Legacy.cs")
	require.NoError(t, err)
	assert.Equal(t, "using Microsoft.AspNetCore.Mvc;\n", string(data))
}

func TestRun_NothingToUpgrade(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for _, p := range []*mocks.Project{f.lib, f.app} {
		p.ConvertToSdkStyle("Microsoft.NET.Sdk")
		require.NoError(t, p.SetTargetFrameworks([]tfm.Framework{tfm.MustParse("net8.0")}))
	}

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Empty(t, result.Upgraded)
	assert.Empty(t, f.backup.dirs)
	assert.Empty(t, f.runner.Calls())
}

func TestRun_ReadinessBlocksProject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.lib.WithComponents(project.ComponentWCF)

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Empty(t, result.Upgraded)
	require.NotNil(t, f.session.Readiness)
	assert.False(t, f.session.Readiness.Ready())
	assert.Empty(t, f.backup.dirs, "nothing runs after a failed readiness check")

	last := result.Passes[len(result.Passes)-1]
	assert.Equal(t, 1, last.Summary.Failed)
}

func TestRun_IgnoreUnsupportedWithAcknowledge(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.lib.WithComponents(project.ComponentWCF)
	f.session.Options.IgnoreUnsupported = true
	f.session.Options.Acknowledge = true

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Len(t, result.Upgraded, 2)
}

func TestRun_SkipBackup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session.Options.SkipBackup = true

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Empty(t, f.backup.dirs)

	first := result.Passes[0]
	for _, r := range first.Results {
		if r.StepID().Equals(BackupID) {
			assert.Equal(t, step.StatusSkipped, r.Status())
		}
	}
}

func TestRun_ConverterFailureStopsRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.runner.AddResult("try-convert", []string{"--keep-current-tfms", "-p", f.lib.FilePath()},
		ports.CommandResult{ExitCode: 1, Stderr: "boom"})

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Empty(t, result.Upgraded)
	assert.False(t, f.lib.IsSdkStyle())

	var convert execution.StepResult
	for _, r := range result.Passes[0].Results {
		if r.StepID().Equals(ConvertID) {
			convert = r
		}
	}
	assert.Equal(t, step.StatusFailed, convert.Status())
	assert.Contains(t, convert.Details(), "boom")
}

func TestRun_ConverterLeavesClassicProject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.lib.OnReload = nil
	runs := 0
	f.runner.AddHandler("try-convert", []string{"--keep-current-tfms", "-p", f.lib.FilePath()},
		func() (ports.CommandResult, error) {
			runs++
			return ports.CommandResult{Stdout: "Nothing to convert"}, nil
		})

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)

	assert.Equal(t, 1, runs)
	assert.False(t, result.Completed)
	assert.Equal(t, 1, f.lib.Reloads())

	var details string
	for _, r := range result.Passes[0].Results {
		if r.StepID().Equals(ConvertID) {
			details = r.Details()
		}
	}
	assert.Contains(t, details, "did not convert Lib to SDK style")
}

func TestRun_MissingToolchain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.toolchain.err = errors.New("no sdk")

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Empty(t, f.runner.Calls())
}

func TestRun_ManualRuleFailsSourceStep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.fs.AddFile("/src/Lib/Session.cs", "var u = HttpContext.Current.User;\n")

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)

	// A failed source step blocks finalize, so Lib stays pending.
	assert.False(t, result.Completed)
	assert.Empty(t, result.Upgraded)
	assert.Equal(t, 2, result.Failed(), "source and its UA0006 sub-step")

	manual, err := SourceID.Child("UA0006")
	require.NoError(t, err)
	var found bool
	for _, r := range result.Passes[0].Results {
		switch {
		case r.StepID().Equals(manual):
			found = true
			assert.Equal(t, step.StatusFailed, r.Status())
			assert.Contains(t, r.Details(), "fixed by hand")
		case r.StepID().Equals(FinalizeID):
			assert.True(t, r.Blocked())
			assert.NotEqual(t, step.StatusComplete, r.Status())
		}
	}
	assert.True(t, found)

	require.NotNil(t, f.session.Current, "Lib was never finished")
	assert.Equal(t, f.lib.FilePath(), f.session.Current.Project.FilePath())
}

func TestRun_BlockOnFailureKeepsProjectOpen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.fs.AddFile("/src/Lib/Session.cs", "var u = HttpContext.Current.User;\n")
	f.session.Options.BlockOnFailure = true

	result, err := Run(context.Background(), f.session, f.svc, execution.ApplyAll)
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Empty(t, result.Upgraded)
}

func TestRun_Quit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	quit := execution.DriverFunc(func(context.Context, *step.Step) (execution.Command, error) {
		return execution.CommandQuit, nil
	})

	result, err := Run(context.Background(), f.session, f.svc, quit)
	require.ErrorIs(t, err, execution.ErrQuit)
	assert.False(t, result.Completed)
	assert.Len(t, result.Passes, 1)
}

func TestEntryPoint_SingleRootIsChosenWithoutAsking(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	e := &entryPointStep{session: f.session, svc: f.svc}

	eval, err := e.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, step.StatusComplete, eval.Status)
	require.Len(t, f.session.EntryPoints, 1)
	assert.Equal(t, "App", f.session.EntryPoints[0].Name())
	assert.Empty(t, f.chooser.prompts)
}

func TestEntryPoint_ChooserForSeveralRoots(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tool := mocks.NewProject("Tool", "net48").WithKind(project.OutputExe)
	f.svc.Workspace.(*mocks.Workspace).AddSolution("/src/App.sln", tool)
	f.fs.AddFile(tool.FilePath(), "<Project />")
	f.chooser.key = tool.FilePath()
	e := &entryPointStep{session: f.session, svc: f.svc}

	_, err := e.Apply(context.Background())
	require.NoError(t, err)
	require.Len(t, f.session.EntryPoints, 1)
	assert.Equal(t, "Tool", f.session.EntryPoints[0].Name())
	assert.Len(t, f.chooser.prompts, 1)

	f.session.EntryPoints = nil
	f.chooser.key = allProjectsKey
	_, err = e.Apply(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.session.EntryPoints, 2)

	f.session.EntryPoints = nil
	f.chooser.key = "nothing"
	eval, err := e.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, step.StatusFailed, eval.Status)
}

func TestEntryPoint_Configured(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session.Options.EntryPoints = []string{"lib.csproj"}
	e := &entryPointStep{session: f.session, svc: f.svc}

	_, err := e.Apply(context.Background())
	require.NoError(t, err)
	require.Len(t, f.session.EntryPoints, 1)
	assert.Equal(t, "Lib", f.session.EntryPoints[0].Name())

	f.session.Options.EntryPoints = []string{"Missing"}
	_, err = e.Apply(context.Background())
	assert.ErrorContains(t, err, "not part of the solution")
}

func TestConverterCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		command  string
		args     []string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"default", "try-convert", []string{"--keep-current-tfms"}, "try-convert",
			[]string{"--keep-current-tfms", "-p", "/src/A/A.csproj"}, false},
		{"placeholder", "dotnet tool run try-convert", []string{"--project={project}"}, "dotnet",
			[]string{"tool", "run", "try-convert", "--project=/src/A/A.csproj"}, false},
		{"quoted", `"/opt/my tools/convert" --fast`, nil, "/opt/my tools/convert",
			[]string{"--fast", "-p", "/src/A/A.csproj"}, false},
		{"empty", "", nil, "", nil, true},
		{"unterminated", `"try-convert`, nil, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, args, err := ConverterCommand(tt.command, tt.args, "/src/A/A.csproj")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRetarget(t *testing.T) {
	t.Parallel()
	net8 := tfm.MustParse("net8.0")

	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"classic", "net48", "net8.0"},
		{"multi", "net472;net48", "net8.0"},
		{"keeps newer", "net48;net9.0", "net8.0;net9.0"},
		{"already", "net8.0", "net8.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			current, err := tfm.ParseList(tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tfm.Join(Retarget(current, net8)))
		})
	}
}

func TestSession_ScanIsCachedUntilInvalidated(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session.Current = &project.Candidate{Project: f.lib, Target: tfm.MustParse("net8.0")}

	first, err := f.session.scan(context.Background(), f.svc.Fixers)
	require.NoError(t, err)
	second, err := f.session.scan(context.Background(), f.svc.Fixers)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Contains(t, first.found, "UA0001")

	f.session.invalidateScan()
	third, err := f.session.scan(context.Background(), f.svc.Fixers)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}
