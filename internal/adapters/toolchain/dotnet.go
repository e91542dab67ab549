// Package toolchain locates the .NET SDK that external converters and the
// restore step depend on.
package toolchain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// ErrNoSDK is returned when no usable SDK is installed.
var ErrNoSDK = errors.New("no .NET SDK found")

// SDK is one installed SDK.
type SDK struct {
	Version string
	Path    string
}

// Dotnet is a ports.ToolchainRegistrar that runs `dotnet --list-sdks`. A
// successful registration is remembered; failures are retried on the next
// call.
type Dotnet struct {
	runner   ports.CommandRunner
	minMajor int
	log      ports.Logger

	mu         sync.Mutex
	registered bool
	sdks       []SDK
}

var _ ports.ToolchainRegistrar = (*Dotnet)(nil)

// NewDotnet creates a registrar requiring an SDK of at least minMajor. Zero
// accepts any SDK.
func NewDotnet(runner ports.CommandRunner, minMajor int, log ports.Logger) *Dotnet {
	if log == nil {
		log = ports.Discard
	}
	return &Dotnet{runner: runner, minMajor: minMajor, log: log}
}

// TryEnsureRegistered implements ports.ToolchainRegistrar.
func (d *Dotnet) TryEnsureRegistered(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registered {
		return nil
	}

	res, err := d.runner.Run(ctx, "dotnet", "--list-sdks")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoSDK, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: dotnet --list-sdks exited with %d: %s", ErrNoSDK, res.ExitCode, res.Output())
	}

	sdks := ParseSDKs(res.Stdout)
	var usable []SDK
	for _, s := range sdks {
		v, err := deps.ParseVersion(s.Version)
		if err != nil {
			continue
		}
		if v.Major() >= d.minMajor {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		if d.minMajor > 0 {
			return fmt.Errorf("%w: need version %d or later", ErrNoSDK, d.minMajor)
		}
		return ErrNoSDK
	}

	d.sdks = usable
	d.registered = true
	d.log.Debug(ctx, "toolchain registered",
		ports.F("sdk", usable[len(usable)-1].Version), ports.F("path", usable[len(usable)-1].Path))
	return nil
}

// SDKs returns the usable SDKs found by the last successful registration.
func (d *Dotnet) SDKs() []SDK {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SDK, len(d.sdks))
	copy(out, d.sdks)
	return out
}

// ParseSDKs parses `dotnet --list-sdks` output lines such as
// "8.0.100 [/usr/share/dotnet/sdk]".
func ParseSDKs(out string) []SDK {
	var sdks []SDK
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		version, rest, _ := strings.Cut(line, " ")
		path := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(rest), "["), "]")
		sdks = append(sdks, SDK{Version: version, Path: path})
	}
	return sdks
}
