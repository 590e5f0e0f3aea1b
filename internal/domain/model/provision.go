package model

// ProvisionState is a state of the provisioning state machine
type ProvisionState string

const (
	// StateIdle is the initial state before anything runs
	StateIdle ProvisionState = "idle"
	// StateStarting means the tunnel process is being started or adopted
	StateStarting ProvisionState = "starting"
	// StateDiscovering means the control plane is being polled for a URL
	StateDiscovering ProvisionState = "discovering"
	// StateRegistering means the callback URL is being registered downstream
	StateRegistering ProvisionState = "registering"
	// StateDone means registration was confirmed
	StateDone ProvisionState = "done"
	// StateFailed is the terminal failure state
	StateFailed ProvisionState = "failed"
)

// Stage names the component in which a failure occurred
type Stage string

const (
	// StageStart is the tunnel process manager
	StageStart Stage = "start"
	// StageDiscover is the discovery poller
	StageDiscover Stage = "discover"
	// StageRegister is the webhook registrar
	StageRegister Stage = "register"
)

// ProvisionReport is the terminal result of one provisioning run. On
// failure the handle of a still-running tunnel is kept for inspection.
type ProvisionReport struct {
	// State is the terminal state, StateDone or StateFailed
	State ProvisionState
	// Stage names the failing component when State is StateFailed
	Stage Stage
	// Attempts is how many full sequences were run
	Attempts int
	// Handle is the tunnel process handle, if one exists
	Handle *TunnelHandle
	// Endpoint is the last discovered endpoint, if any
	Endpoint *TunnelEndpoint
	// Cause is the failure cause when State is StateFailed
	Cause error
}

// Succeeded reports whether provisioning reached StateDone
func (r *ProvisionReport) Succeeded() bool {
	return r.State == StateDone
}
