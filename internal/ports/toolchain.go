package ports

import "context"

// ToolchainRegistrar makes sure the build toolchain that external tools
// depend on is discoverable. Implementations must be idempotent.
type ToolchainRegistrar interface {
	TryEnsureRegistered(ctx context.Context) error
}
