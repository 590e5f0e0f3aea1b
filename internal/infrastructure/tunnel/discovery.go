package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
)

// tunnelsResponse is the control plane's active tunnel listing
type tunnelsResponse struct {
	Tunnels []tunnelEntry `json:"tunnels"`
}

// tunnelEntry is one active tunnel reported by the control plane
type tunnelEntry struct {
	Name      string `json:"name"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
	Config    struct {
		Addr string `json:"addr"`
	} `json:"config"`
}

// DiscoveryPoller is an implementation of port.DiscoveryPoller. It reads
// the tunnel's public URL from the local control-plane API at a fixed
// interval until the URL appears or the configured timeout elapses.
type DiscoveryPoller struct {
	config  *model.DiscoveryConfig
	tunnel  *model.TunnelConfig
	manager port.ProcessManager
	logger  port.Logger
	client  *http.Client

	mutex sync.Mutex
	last  *model.TunnelEndpoint
}

// NewDiscoveryPoller creates a new DiscoveryPoller instance
func NewDiscoveryPoller(config *model.DiscoveryConfig, tunnel *model.TunnelConfig, manager port.ProcessManager, logger port.Logger) *DiscoveryPoller {
	return &DiscoveryPoller{
		config:  config,
		tunnel:  tunnel,
		manager: manager,
		logger:  logger,
		client:  &http.Client{Timeout: probeTimeout},
	}
}

// Discover polls the control plane referenced by handle for a secure
// public URL. Insecure or malformed URLs count as "not yet available".
func (p *DiscoveryPoller) Discover(ctx context.Context, handle *model.TunnelHandle) (*model.TunnelEndpoint, error) {
	deadline := time.Now().Add(p.config.Timeout)
	attempts := 0

	for {
		// Cancellation is checked before every attempt
		select {
		case <-ctx.Done():
			return nil, model.ErrCancelled
		default:
		}

		// A dead process will never publish a URL
		if !p.manager.Alive(handle) {
			return nil, &model.ProcessExitedError{Handle: handle}
		}

		attempts++
		if publicURL, ok := p.query(ctx, handle); ok {
			endpoint := p.observe(publicURL)
			p.logger.Info("Discovered public endpoint %s after %d attempts", publicURL, attempts)
			return endpoint, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &model.DiscoveryTimeoutError{
				Elapsed:  p.config.Timeout - remaining,
				Attempts: attempts,
			}
		}

		wait := p.config.PollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, model.ErrCancelled
		case <-timer.C:
		}
	}
}

// observe records a new endpoint, superseding a previous observation
// that reported a different URL. The latest observation always wins.
func (p *DiscoveryPoller) observe(publicURL string) *model.TunnelEndpoint {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.last != nil && p.last.PublicURL != publicURL {
		p.last.Supersede()
	}
	endpoint := model.NewTunnelEndpoint(publicURL)
	p.last = endpoint
	return endpoint
}

// query reads the tunnel list once and extracts the first acceptable URL
func (p *DiscoveryPoller) query(ctx context.Context, handle *model.TunnelHandle) (string, bool) {
	listURL := model.JoinCallbackURL(handle.ControlURL, p.tunnel.TunnelsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		p.logger.Error("Failed to build control-plane request: %v", err)
		return "", false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("Control plane not reachable yet: %v", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("Control plane returned status %d", resp.StatusCode)
		return "", false
	}

	var listing tunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		p.logger.Debug("Control plane returned malformed listing: %v", err)
		return "", false
	}

	for _, entry := range listing.Tunnels {
		if publicURL, err := validatePublicURL(entry.PublicURL); err == nil {
			return publicURL, true
		}
	}
	return "", false
}

// validatePublicURL accepts only well-formed https URLs with a host
func validatePublicURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("malformed URL %q: %v", raw, err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("insecure scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", raw)
	}
	return raw, nil
}

// Ensure DiscoveryPoller implements port.DiscoveryPoller
var _ port.DiscoveryPoller = (*DiscoveryPoller)(nil)
