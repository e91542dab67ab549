package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listSDKs = `6.0.420 [/usr/share/dotnet/sdk]
8.0.204 [/usr/share/dotnet/sdk]
`

func TestParseSDKs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []SDK{
		{Version: "6.0.420", Path: "/usr/share/dotnet/sdk"},
		{Version: "8.0.204", Path: "/usr/share/dotnet/sdk"},
	}, ParseSDKs(listSDKs))
	assert.Empty(t, ParseSDKs("\n"))
}

func TestDotnet_TryEnsureRegistered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("registers once", func(t *testing.T) {
		t.Parallel()
		runner := mocks.NewCommandRunner()
		runner.AddResult("dotnet", []string{"--list-sdks"}, ports.CommandResult{Stdout: listSDKs})

		d := NewDotnet(runner, 8, nil)
		require.NoError(t, d.TryEnsureRegistered(ctx))
		require.NoError(t, d.TryEnsureRegistered(ctx))

		assert.Len(t, runner.Calls(), 1)
		assert.Equal(t, []SDK{{Version: "8.0.204", Path: "/usr/share/dotnet/sdk"}}, d.SDKs())
	})

	t.Run("sdk too old", func(t *testing.T) {
		t.Parallel()
		runner := mocks.NewCommandRunner()
		runner.AddResult("dotnet", []string{"--list-sdks"}, ports.CommandResult{Stdout: listSDKs})

		err := NewDotnet(runner, 9, nil).TryEnsureRegistered(ctx)
		assert.ErrorIs(t, err, ErrNoSDK)
		assert.ErrorContains(t, err, "9")
	})

	t.Run("dotnet missing is retried", func(t *testing.T) {
		t.Parallel()
		runner := mocks.NewCommandRunner()
		runner.AddError("dotnet", []string{"--list-sdks"}, errors.New("executable file not found"))

		d := NewDotnet(runner, 0, nil)
		assert.ErrorIs(t, d.TryEnsureRegistered(ctx), ErrNoSDK)
		assert.ErrorIs(t, d.TryEnsureRegistered(ctx), ErrNoSDK)
		assert.Len(t, runner.Calls(), 2)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		t.Parallel()
		runner := mocks.NewCommandRunner()
		runner.AddResult("dotnet", []string{"--list-sdks"}, ports.CommandResult{ExitCode: 1, Stderr: "boom"})

		err := NewDotnet(runner, 0, nil).TryEnsureRegistered(ctx)
		assert.ErrorIs(t, err, ErrNoSDK)
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("no sdks", func(t *testing.T) {
		t.Parallel()
		runner := mocks.NewCommandRunner()
		runner.AddResult("dotnet", []string{"--list-sdks"}, ports.CommandResult{})

		assert.ErrorIs(t, NewDotnet(runner, 0, nil).TryEnsureRegistered(ctx), ErrNoSDK)
	})
}
