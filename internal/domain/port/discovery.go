package port

import (
	"context"

	"github.com/hookport/hookport/internal/domain/model"
)

// DiscoveryPoller queries a tunnel's control-plane API for its public URL
type DiscoveryPoller interface {
	// Discover polls the control plane referenced by handle until a
	// well-formed secure public URL appears or the configured timeout
	// elapses. The context is checked before every attempt.
	Discover(ctx context.Context, handle *model.TunnelHandle) (*model.TunnelEndpoint, error)
}
