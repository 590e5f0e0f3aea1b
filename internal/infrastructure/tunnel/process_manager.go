package tunnel

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
)

// probeTimeout bounds the control-plane reachability check
const probeTimeout = 2 * time.Second

// stopGracePeriod is how long Stop waits after SIGTERM before SIGKILL
const stopGracePeriod = 5 * time.Second

// managedProcess tracks one spawned tunnel process
type managedProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// ProcessManager is an implementation of port.ProcessManager. It spawns the
// configured tunnel command or adopts an already-running process whose
// control plane is reachable.
type ProcessManager struct {
	config *model.TunnelConfig
	logger port.Logger
	client *http.Client

	mutex     sync.Mutex
	handles   map[int]*model.TunnelHandle
	processes map[string]*managedProcess
}

// NewProcessManager creates a new ProcessManager instance
func NewProcessManager(config *model.TunnelConfig, logger port.Logger) *ProcessManager {
	return &ProcessManager{
		config:    config,
		logger:    logger,
		client:    &http.Client{Timeout: probeTimeout},
		handles:   make(map[int]*model.TunnelHandle),
		processes: make(map[string]*managedProcess),
	}
}

// EnsureRunning returns a handle to a tunnel process forwarding localPort.
// Calling it twice with the same port returns the same handle; it never
// spawns a duplicate next to a reachable control plane.
func (m *ProcessManager) EnsureRunning(ctx context.Context, localPort int) (*model.TunnelHandle, error) {
	m.mutex.Lock()
	existing := m.handles[localPort]
	m.mutex.Unlock()

	// A handle we already own is reused as long as its process lives
	if m.Alive(existing) {
		m.logger.Debug("Reusing existing tunnel handle %s", existing)
		return existing, nil
	}

	// Probe before taking the lock; a slow control plane must not stall
	// concurrent Alive and Stop callers
	reachable := m.controlReachable(ctx)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.handles, localPort)

	// An external process already exposing the control plane is adopted
	if reachable {
		handle := &model.TunnelHandle{
			ID:         uuid.NewString(),
			LocalPort:  localPort,
			ControlURL: m.config.ControlURL,
			StartedAt:  time.Now(),
			Reused:     true,
		}
		m.handles[localPort] = handle
		m.logger.Info("Adopted running tunnel process at %s", m.config.ControlURL)
		return handle, nil
	}

	handle, err := m.spawnLocked(localPort)
	if err != nil {
		return nil, err
	}
	m.handles[localPort] = handle
	return handle, nil
}

// spawnLocked starts a new tunnel process. Caller holds the mutex.
func (m *ProcessManager) spawnLocked(localPort int) (*model.TunnelHandle, error) {
	args := make([]string, 0, len(m.config.Args))
	for _, arg := range m.config.Args {
		args = append(args, strings.ReplaceAll(arg, "{port}", strconv.Itoa(localPort)))
	}

	cmd := exec.Command(m.config.Command, args...)
	if err := cmd.Start(); err != nil {
		return nil, &model.ProcessSpawnError{
			Command:   m.config.Command,
			LocalPort: localPort,
			Err:       err,
		}
	}

	handle := &model.TunnelHandle{
		ID:         uuid.NewString(),
		PID:        cmd.Process.Pid,
		LocalPort:  localPort,
		ControlURL: m.config.ControlURL,
		StartedAt:  time.Now(),
	}

	proc := &managedProcess{
		cmd:    cmd,
		exited: make(chan struct{}),
	}
	m.processes[handle.ID] = proc

	// Reap the child and record its independent exit
	go func() {
		err := cmd.Wait()
		close(proc.exited)
		if err != nil {
			m.logger.Warn("Tunnel process pid=%d exited: %v", handle.PID, err)
		} else {
			m.logger.Info("Tunnel process pid=%d exited", handle.PID)
		}
	}()

	m.logger.Info("Spawned tunnel process: %s", handle)
	return handle, nil
}

// Alive reports whether the process behind the handle is still running
func (m *ProcessManager) Alive(handle *model.TunnelHandle) bool {
	if handle == nil {
		return false
	}
	if handle.Reused {
		// The adopted process is external; reachability is the only
		// signal. The probe runs unlocked.
		return m.controlReachable(context.Background())
	}
	m.mutex.Lock()
	proc, ok := m.processes[handle.ID]
	m.mutex.Unlock()
	if !ok {
		return false
	}
	select {
	case <-proc.exited:
		return false
	default:
		return true
	}
}

// Stop terminates a spawned tunnel process. Adopted processes are not
// ours to kill and are left running.
func (m *ProcessManager) Stop(handle *model.TunnelHandle) error {
	if handle == nil {
		return nil
	}

	m.mutex.Lock()
	proc, ok := m.processes[handle.ID]
	delete(m.processes, handle.ID)
	delete(m.handles, handle.LocalPort)
	m.mutex.Unlock()

	if handle.Reused || !ok {
		return nil
	}

	select {
	case <-proc.exited:
		return nil
	default:
	}

	m.logger.Info("Stopping tunnel process pid=%d", handle.PID)
	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal tunnel process: %v", err)
	}

	select {
	case <-proc.exited:
		return nil
	case <-time.After(stopGracePeriod):
		m.logger.Warn("Tunnel process pid=%d did not stop, killing", handle.PID)
		if err := proc.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill tunnel process: %v", err)
		}
		<-proc.exited
		return nil
	}
}

// controlReachable probes the control-plane API for a live tunnel process
func (m *ProcessManager) controlReachable(ctx context.Context) bool {
	url := model.JoinCallbackURL(m.config.ControlURL, m.config.TunnelsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Ensure ProcessManager implements port.ProcessManager
var _ port.ProcessManager = (*ProcessManager)(nil)
