package port

import (
	"context"

	"github.com/hookport/hookport/internal/domain/model"
)

// Registrar registers a public callback URL with the downstream service
type Registrar interface {
	// Register issues a single registration call for the given endpoint
	// and webhook path. The outcome is terminal for this call; retry
	// policy belongs to the orchestrator. A non-nil error is returned
	// only for local failures such as a cancelled context.
	Register(ctx context.Context, endpoint *model.TunnelEndpoint, webhookPath string) (model.RegistrationOutcome, error)
}
