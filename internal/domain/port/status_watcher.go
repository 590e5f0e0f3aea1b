package port

import (
	"context"

	"github.com/hookport/hookport/internal/domain/model"
)

// TunnelEventType classifies a status event observed on a tunnel
type TunnelEventType string

const (
	// TunnelEventUp means the tunnel is forwarding with a known URL
	TunnelEventUp TunnelEventType = "up"
	// TunnelEventURLChanged means the public URL was replaced
	TunnelEventURLChanged TunnelEventType = "url_changed"
	// TunnelEventDown means the tunnel disappeared or the process died
	TunnelEventDown TunnelEventType = "down"
)

// TunnelEvent is a single observation of tunnel state
type TunnelEvent struct {
	// Type classifies the event
	Type TunnelEventType
	// PublicURL is the URL associated with the event, if any
	PublicURL string
	// Message is a human-readable description
	Message string
}

// StatusWatcher observes a provisioned tunnel after registration
type StatusWatcher interface {
	// Watch streams tunnel status events to onEvent until the context
	// is cancelled or the tunnel goes down.
	Watch(ctx context.Context, handle *model.TunnelHandle, onEvent func(TunnelEvent)) error
}
