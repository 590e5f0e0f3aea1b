package tunnel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/infrastructure/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeManager is a port.ProcessManager stub for poller tests
type fakeManager struct {
	alive bool
}

func (f *fakeManager) EnsureRunning(ctx context.Context, localPort int) (*model.TunnelHandle, error) {
	return nil, nil
}

func (f *fakeManager) Alive(handle *model.TunnelHandle) bool {
	return f.alive
}

func (f *fakeManager) Stop(handle *model.TunnelHandle) error {
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(io.Discard, "error")
}

func newPoller(controlURL string, timeout, interval time.Duration, alive bool) (*DiscoveryPoller, *model.TunnelHandle) {
	discovery := &model.DiscoveryConfig{Timeout: timeout, PollInterval: interval}
	tunnelCfg := &model.TunnelConfig{ControlURL: controlURL, TunnelsPath: "/api/tunnels"}
	poller := NewDiscoveryPoller(discovery, tunnelCfg, &fakeManager{alive: alive}, testLogger())
	handle := &model.TunnelHandle{ID: "h1", LocalPort: 3000, ControlURL: controlURL}
	return poller, handle
}

func tunnelListing(urls ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing := tunnelsResponse{}
		for _, u := range urls {
			listing.Tunnels = append(listing.Tunnels, tunnelEntry{PublicURL: u, Proto: "https"})
		}
		json.NewEncoder(w).Encode(listing)
	}
}

func TestDiscoverReturnsURLOncePublished(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			tunnelListing()(w, r)
			return
		}
		tunnelListing("https://abc.ngrok.io")(w, r)
	}))
	defer server.Close()

	poller, handle := newPoller(server.URL, 3*time.Second, 20*time.Millisecond, true)
	defer poller.client.CloseIdleConnections()

	endpoint, err := poller.Discover(context.Background(), handle)
	require.NoError(t, err)
	require.Equal(t, "https://abc.ngrok.io", endpoint.PublicURL)
	require.True(t, endpoint.Fresh(time.Minute))
	require.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestDiscoverNeverAcceptsInsecureURL(t *testing.T) {
	server := httptest.NewServer(tunnelListing("http://abc.ngrok.io"))
	defer server.Close()

	poller, handle := newPoller(server.URL, 200*time.Millisecond, 20*time.Millisecond, true)
	defer poller.client.CloseIdleConnections()

	endpoint, err := poller.Discover(context.Background(), handle)
	require.Nil(t, endpoint)

	var timeout *model.DiscoveryTimeoutError
	require.ErrorAs(t, err, &timeout)
}

func TestDiscoverPrefersSecureURLFromMixedListing(t *testing.T) {
	server := httptest.NewServer(tunnelListing("http://abc.ngrok.io", "https://abc.ngrok.io"))
	defer server.Close()

	poller, handle := newPoller(server.URL, time.Second, 20*time.Millisecond, true)
	defer poller.client.CloseIdleConnections()

	endpoint, err := poller.Discover(context.Background(), handle)
	require.NoError(t, err)
	require.Equal(t, "https://abc.ngrok.io", endpoint.PublicURL)
}

func TestDiscoverTimesOutAtOrAfterDeadline(t *testing.T) {
	server := httptest.NewServer(tunnelListing())
	defer server.Close()

	timeout := 250 * time.Millisecond
	poller, handle := newPoller(server.URL, timeout, 20*time.Millisecond, true)
	defer poller.client.CloseIdleConnections()

	start := time.Now()
	_, err := poller.Discover(context.Background(), handle)
	elapsed := time.Since(start)

	var timeoutErr *model.DiscoveryTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.GreaterOrEqual(t, elapsed, timeout)
	require.Greater(t, timeoutErr.Attempts, 0)
}

func TestDiscoverReturnsPromptlyOnCancellation(t *testing.T) {
	server := httptest.NewServer(tunnelListing())
	defer server.Close()

	poller, handle := newPoller(server.URL, 10*time.Second, time.Second, true)
	defer poller.client.CloseIdleConnections()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := poller.Discover(ctx, handle)
	require.ErrorIs(t, err, model.ErrCancelled)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestDiscoverDetectsDeadProcess(t *testing.T) {
	server := httptest.NewServer(tunnelListing("https://abc.ngrok.io"))
	defer server.Close()

	poller, handle := newPoller(server.URL, time.Second, 20*time.Millisecond, false)
	defer poller.client.CloseIdleConnections()

	_, err := poller.Discover(context.Background(), handle)

	var exited *model.ProcessExitedError
	require.ErrorAs(t, err, &exited)
}

func TestLaterObservationSupersedesEarlierOne(t *testing.T) {
	var current atomic.Value
	current.Store("https://first.ngrok.io")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tunnelListing(current.Load().(string))(w, r)
	}))
	defer server.Close()

	poller, handle := newPoller(server.URL, time.Second, 20*time.Millisecond, true)
	defer poller.client.CloseIdleConnections()

	first, err := poller.Discover(context.Background(), handle)
	require.NoError(t, err)

	// The tunnel was restarted and came back under a new URL
	current.Store("https://second.ngrok.io")

	second, err := poller.Discover(context.Background(), handle)
	require.NoError(t, err)

	require.Equal(t, "https://second.ngrok.io", second.PublicURL)
	require.True(t, first.Superseded())
	require.False(t, first.Fresh(time.Minute))
	require.True(t, second.Fresh(time.Minute))
}

func TestValidatePublicURL(t *testing.T) {
	_, err := validatePublicURL("https://abc.ngrok.io")
	require.NoError(t, err)

	for _, raw := range []string{"", "http://abc.ngrok.io", "https://", ":// nonsense"} {
		_, err := validatePublicURL(raw)
		require.Error(t, err, "expected %q to be refused", raw)
	}
}
