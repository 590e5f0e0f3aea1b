package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
)

// watchPollInterval paces the HTTP fallback when no event feed exists
const watchPollInterval = 5 * time.Second

// controlEvent is one event from the control plane's websocket feed
type controlEvent struct {
	Event     string `json:"event"`
	TunnelID  string `json:"tunnel_id,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
	Message   string `json:"message,omitempty"`
}

// StatusWatcher is an implementation of port.StatusWatcher. It subscribes
// to the control plane's websocket event feed, falling back to polling
// the tunnel listing when the feed is unavailable.
type StatusWatcher struct {
	tunnel       *model.TunnelConfig
	manager      port.ProcessManager
	logger       port.Logger
	client       *http.Client
	pollInterval time.Duration
}

// NewStatusWatcher creates a new StatusWatcher instance
func NewStatusWatcher(tunnel *model.TunnelConfig, manager port.ProcessManager, logger port.Logger) *StatusWatcher {
	return &StatusWatcher{
		tunnel:       tunnel,
		manager:      manager,
		logger:       logger,
		client:       &http.Client{Timeout: probeTimeout},
		pollInterval: watchPollInterval,
	}
}

// Watch streams tunnel status events until the context is cancelled or
// the tunnel goes down.
func (w *StatusWatcher) Watch(ctx context.Context, handle *model.TunnelHandle, onEvent func(port.TunnelEvent)) error {
	wsURL, err := eventFeedURL(handle.ControlURL, w.tunnel.EventsPath)
	if err != nil {
		return fmt.Errorf("invalid control URL: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		w.logger.Debug("Event feed unavailable (%v), falling back to polling", err)
		return w.watchByPolling(ctx, handle, onEvent)
	}
	defer conn.Close()

	w.logger.Info("Watching tunnel events at %s", wsURL)

	// Unblock ReadJSON when the caller cancels. The done channel keeps
	// the goroutine from outliving Watch when the feed closes first.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event controlEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return model.ErrCancelled
			}
			// A dropped feed usually means the process died
			onEvent(port.TunnelEvent{
				Type:    port.TunnelEventDown,
				Message: fmt.Sprintf("event feed closed: %v", err),
			})
			return nil
		}
		onEvent(translateEvent(event))
	}
}

// watchByPolling synthesizes events from the tunnel listing
func (w *StatusWatcher) watchByPolling(ctx context.Context, handle *model.TunnelHandle, onEvent func(port.TunnelEvent)) error {
	lastURL := ""
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return model.ErrCancelled
		case <-ticker.C:
		}

		if !w.manager.Alive(handle) {
			onEvent(port.TunnelEvent{
				Type:    port.TunnelEventDown,
				Message: "tunnel process exited",
			})
			return nil
		}

		currentURL, ok := w.currentPublicURL(ctx, handle)
		switch {
		case !ok:
			onEvent(port.TunnelEvent{
				Type:    port.TunnelEventDown,
				Message: "tunnel no longer listed on control plane",
			})
			return nil
		case lastURL == "":
			onEvent(port.TunnelEvent{
				Type:      port.TunnelEventUp,
				PublicURL: currentURL,
				Message:   "tunnel forwarding",
			})
		case currentURL != lastURL:
			onEvent(port.TunnelEvent{
				Type:      port.TunnelEventURLChanged,
				PublicURL: currentURL,
				Message:   fmt.Sprintf("public URL changed from %s", lastURL),
			})
		}
		lastURL = currentURL
	}
}

// currentPublicURL reads the first secure URL from the tunnel listing
func (w *StatusWatcher) currentPublicURL(ctx context.Context, handle *model.TunnelHandle) (string, bool) {
	listURL := model.JoinCallbackURL(handle.ControlURL, w.tunnel.TunnelsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var listing tunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return "", false
	}
	for _, entry := range listing.Tunnels {
		if publicURL, err := validatePublicURL(entry.PublicURL); err == nil {
			return publicURL, true
		}
	}
	return "", false
}

// translateEvent maps a control-plane event onto the domain event type
func translateEvent(event controlEvent) port.TunnelEvent {
	switch strings.ToLower(event.Event) {
	case "tunnel_started", "tunnel_up", "connected":
		return port.TunnelEvent{Type: port.TunnelEventUp, PublicURL: event.PublicURL, Message: event.Message}
	case "tunnel_stopped", "tunnel_down", "disconnected":
		return port.TunnelEvent{Type: port.TunnelEventDown, PublicURL: event.PublicURL, Message: event.Message}
	case "url_changed":
		return port.TunnelEvent{Type: port.TunnelEventURLChanged, PublicURL: event.PublicURL, Message: event.Message}
	default:
		return port.TunnelEvent{Type: port.TunnelEventUp, PublicURL: event.PublicURL, Message: event.Message}
	}
}

// eventFeedURL converts the HTTP control URL into the websocket feed URL
func eventFeedURL(controlURL string, eventsPath string) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return model.JoinCallbackURL(u.String(), eventsPath), nil
}

// Ensure StatusWatcher implements port.StatusWatcher
var _ port.StatusWatcher = (*StatusWatcher)(nil)
