package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when an operation is interrupted by its caller
var ErrCancelled = errors.New("provisioning cancelled")

// ProcessSpawnError means the tunnel process could not be started
type ProcessSpawnError struct {
	// Command is the binary that failed to start
	Command string
	// LocalPort is the port the tunnel was meant to forward
	LocalPort int
	// Err is the underlying failure
	Err error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to spawn tunnel process %q for port %d: %v", e.Command, e.LocalPort, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}

// DiscoveryTimeoutError means no valid public URL appeared on the control
// plane before the configured deadline. Recoverable: the orchestrator may
// retry with a fresh process.
type DiscoveryTimeoutError struct {
	// Elapsed is how long discovery ran before giving up
	Elapsed time.Duration
	// Attempts is the number of control-plane queries issued
	Attempts int
}

func (e *DiscoveryTimeoutError) Error() string {
	return fmt.Sprintf("no public endpoint discovered after %s (%d attempts)", e.Elapsed.Round(time.Millisecond), e.Attempts)
}

// ProcessExitedError means the tunnel process died while it was still
// needed. Recoverable: the orchestrator may retry with a fresh process.
type ProcessExitedError struct {
	// Handle identifies the dead process
	Handle *TunnelHandle
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("tunnel process exited: %s", e.Handle)
}

// RejectedError means the downstream service explicitly refused the
// callback URL. Terminal: a rejection is a configuration problem.
type RejectedError struct {
	// Reason is the downstream rejection text, credential redacted
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("registration rejected: %s", e.Reason)
}

// UnreachableError means the downstream service could not be reached.
// Recoverable: the orchestrator may retry.
type UnreachableError struct {
	// Reason is the transport failure text, credential redacted
	Reason string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("registration endpoint unreachable: %s", e.Reason)
}

// IsRecoverable reports whether the orchestrator may retry the whole
// provisioning sequence after this error
func IsRecoverable(err error) bool {
	var timeout *DiscoveryTimeoutError
	var exited *ProcessExitedError
	var unreachable *UnreachableError
	return errors.As(err, &timeout) || errors.As(err, &exited) || errors.As(err, &unreachable)
}
