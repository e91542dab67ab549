package config

import (
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions_Valid(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	require.NoError(t, opts.Validate())
	assert.Equal(t, "net8.0", opts.Target)
	assert.Equal(t, 3, opts.MaxIterations)
	assert.Equal(t, "try-convert", opts.Converter.Command)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("reads yaml over defaults", func(t *testing.T) {
		t.Parallel()
		content := `target: net8.0-windows
entry_points:
  - src/App/App.csproj
skip_backup: true
max_iterations: 5
fixers:
  - id: UP0001
    title: Replace HttpContext.Current
    glob: "**/*.cs"
    pattern: HttpContext\.Current
    replace: httpContextAccessor.HttpContext
    risk: medium
unsupported_components:
  wcf: corewcf
`
		path := testutil.WriteTempFile(t, t.TempDir(), "uplift.yaml", content)

		opts, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "net8.0-windows", opts.Target)
		assert.Equal(t, []string{"src/App/App.csproj"}, opts.EntryPoints)
		assert.True(t, opts.SkipBackup)
		assert.Equal(t, 5, opts.MaxIterations)
		assert.Equal(t, "try-convert", opts.Converter.Command)
		require.Len(t, opts.Fixers, 1)
		assert.Equal(t, "UP0001", opts.Fixers[0].ID)
		assert.Equal(t, "medium", opts.Fixers[0].Risk)
		assert.Equal(t, "corewcf", opts.Unsupported["wcf"])
		assert.NoError(t, opts.Validate())
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, IsUserError(err, ErrCodeConfigNotFound))
	})

	t.Run("parse error", func(t *testing.T) {
		t.Parallel()
		path := testutil.WriteTempFile(t, t.TempDir(), "uplift.yaml", "entry_points:\n  key: value\n")

		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, IsUserError(err, ErrCodeConfigParse))
	})
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Options)
		context string
		code    string
	}{
		{
			name:    "missing target",
			mutate:  func(o *Options) { o.Target = "" },
			context: "target",
			code:    ErrCodeValidationFailed,
		},
		{
			name:    "framework target",
			mutate:  func(o *Options) { o.Target = "net48" },
			context: "target",
			code:    ErrCodeTargetInvalid,
		},
		{
			name:    "garbage target",
			mutate:  func(o *Options) { o.Target = "banana" },
			context: "target",
			code:    ErrCodeTargetInvalid,
		},
		{
			name:    "zero iterations",
			mutate:  func(o *Options) { o.MaxIterations = 0 },
			context: "max_iterations",
			code:    ErrCodeValidationFailed,
		},
		{
			name:    "too many iterations",
			mutate:  func(o *Options) { o.MaxIterations = 11 },
			context: "max_iterations",
			code:    ErrCodeValidationFailed,
		},
		{
			name:    "missing converter",
			mutate:  func(o *Options) { o.Converter.Command = "" },
			context: "converter.command",
			code:    ErrCodeValidationFailed,
		},
		{
			name:    "bad log level",
			mutate:  func(o *Options) { o.Log.Level = "loud" },
			context: "log.level",
			code:    ErrCodeValidationFailed,
		},
		{
			name: "fix rule without pattern",
			mutate: func(o *Options) {
				o.Fixers = []FixRule{{ID: "UP1", Glob: "*.cs"}}
			},
			context: "fixers[0].pattern",
			code:    ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)

			var list *ErrorList
			require.ErrorAs(t, err, &list)
			require.Equal(t, 1, list.Len())
			assert.Equal(t, tt.code, list.Errors()[0].Code)
			assert.Equal(t, tt.context, list.Errors()[0].Context)
		})
	}
}

func TestOptions_TargetFramework(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Target = "net8.0-windows"
	fw, err := opts.TargetFramework()
	require.NoError(t, err)
	assert.Equal(t, tfm.MustParse("net8.0-windows"), fw)

	opts.Target = "netstandard2.0"
	_, err = opts.TargetFramework()
	assert.True(t, IsUserError(err, ErrCodeTargetInvalid))
}

func TestOptions_ExpandPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	opts := DefaultOptions()
	opts.BackupDir = "~/backups"
	opts.Catalog = "~/uplift/catalog.yaml"
	opts.PackageMapFile = "/etc/uplift/map.toml"
	opts.Log.File = "~/uplift.log"
	opts.ExpandPaths()

	assert.Equal(t, filepath.Join(home, "backups"), opts.BackupDir)
	assert.Equal(t, filepath.Join(home, "uplift", "catalog.yaml"), opts.Catalog)
	assert.Equal(t, "/etc/uplift/map.toml", opts.PackageMapFile)
	assert.Equal(t, filepath.Join(home, "uplift.log"), opts.Log.File)
}
