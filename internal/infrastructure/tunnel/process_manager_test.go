package tunnel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func newManager(config model.TunnelConfig) *ProcessManager {
	if config.TunnelsPath == "" {
		config.TunnelsPath = "/api/tunnels"
	}
	return NewProcessManager(&config, testLogger())
}

func TestEnsureRunningAdoptsReachableControlPlane(t *testing.T) {
	server := httptest.NewServer(tunnelListing("https://abc.ngrok.io"))
	defer server.Close()

	manager := newManager(model.TunnelConfig{ControlURL: server.URL})
	defer manager.client.CloseIdleConnections()

	handle, err := manager.EnsureRunning(context.Background(), 3000)
	require.NoError(t, err)
	require.True(t, handle.Reused)
	require.Zero(t, handle.PID)
	require.True(t, manager.Alive(handle))
}

func TestEnsureRunningIsIdempotentPerPort(t *testing.T) {
	server := httptest.NewServer(tunnelListing("https://abc.ngrok.io"))
	defer server.Close()

	manager := newManager(model.TunnelConfig{ControlURL: server.URL})
	defer manager.client.CloseIdleConnections()

	first, err := manager.EnsureRunning(context.Background(), 3000)
	require.NoError(t, err)

	second, err := manager.EnsureRunning(context.Background(), 3000)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestEnsureRunningSpawnsWhenControlUnreachable(t *testing.T) {
	manager := newManager(model.TunnelConfig{
		Command:    "sleep",
		Args:       []string{"60"},
		ControlURL: "http://127.0.0.1:1",
	})
	defer manager.client.CloseIdleConnections()

	handle, err := manager.EnsureRunning(context.Background(), 3000)
	require.NoError(t, err)
	require.False(t, handle.Reused)
	require.NotZero(t, handle.PID)
	require.True(t, manager.Alive(handle))

	require.NoError(t, manager.Stop(handle))
	require.False(t, manager.Alive(handle))
}

func TestEnsureRunningReportsSpawnError(t *testing.T) {
	manager := newManager(model.TunnelConfig{
		Command:    "/nonexistent/hookport-test-binary",
		ControlURL: "http://127.0.0.1:1",
	})
	defer manager.client.CloseIdleConnections()

	_, err := manager.EnsureRunning(context.Background(), 3000)

	var spawn *model.ProcessSpawnError
	require.ErrorAs(t, err, &spawn)
	require.Equal(t, 3000, spawn.LocalPort)
}

func TestAliveDetectsIndependentExit(t *testing.T) {
	manager := newManager(model.TunnelConfig{
		Command:    "sleep",
		Args:       []string{"0.05"},
		ControlURL: "http://127.0.0.1:1",
	})
	defer manager.client.CloseIdleConnections()

	handle, err := manager.EnsureRunning(context.Background(), 3000)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !manager.Alive(handle)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStopLeavesAdoptedProcessAlone(t *testing.T) {
	server := httptest.NewServer(tunnelListing("https://abc.ngrok.io"))
	defer server.Close()

	manager := newManager(model.TunnelConfig{ControlURL: server.URL})
	defer manager.client.CloseIdleConnections()

	handle, err := manager.EnsureRunning(context.Background(), 3000)
	require.NoError(t, err)
	require.True(t, handle.Reused)

	require.NoError(t, manager.Stop(handle))
	// The external process is untouched, its control plane still answers
	require.True(t, manager.controlReachable(context.Background()))
}

func TestAliveProbeDoesNotHoldUpOtherCalls(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		tunnelListing("https://abc.ngrok.io")(w, r)
	}))
	defer server.Close()

	manager := newManager(model.TunnelConfig{ControlURL: server.URL})
	defer manager.client.CloseIdleConnections()

	adopted := &model.TunnelHandle{ID: "adopted", ControlURL: server.URL, Reused: true}

	probing := make(chan bool, 1)
	go func() {
		probing <- manager.Alive(adopted)
	}()

	// While the reachability probe is held up by the server, calls that
	// take the manager lock must still return promptly
	start := time.Now()
	require.NoError(t, manager.Stop(&model.TunnelHandle{ID: "unknown"}))
	require.Less(t, time.Since(start), time.Second)

	unblock()
	require.True(t, <-probing)
}
