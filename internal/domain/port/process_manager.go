package port

import (
	"context"

	"github.com/hookport/hookport/internal/domain/model"
)

// ProcessManager owns the lifecycle of the local tunnel process
type ProcessManager interface {
	// EnsureRunning returns a handle to a tunnel process forwarding
	// localPort. An already-reachable control plane is reused; a second
	// call with the same port returns the same handle and never spawns
	// a duplicate.
	EnsureRunning(ctx context.Context, localPort int) (*model.TunnelHandle, error)

	// Alive reports whether the process behind the handle is still running
	Alive(handle *model.TunnelHandle) bool

	// Stop terminates the process behind the handle. Processes that were
	// reused rather than spawned are left alone.
	Stop(handle *model.TunnelHandle) error
}
