package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsRecoverable(t *testing.T) {
	recoverable := []error{
		&DiscoveryTimeoutError{Elapsed: 20 * time.Second, Attempts: 10},
		&ProcessExitedError{Handle: &TunnelHandle{ID: "h1"}},
		&UnreachableError{Reason: "connection refused"},
		fmt.Errorf("wrapped: %w", &UnreachableError{Reason: "timeout"}),
	}
	for _, err := range recoverable {
		require.True(t, IsRecoverable(err), "expected %v to be recoverable", err)
	}

	terminal := []error{
		&ProcessSpawnError{Command: "ngrok", LocalPort: 3000, Err: fmt.Errorf("not found")},
		&RejectedError{Reason: "bad url"},
		ErrCancelled,
	}
	for _, err := range terminal {
		require.False(t, IsRecoverable(err), "expected %v to be terminal", err)
	}
}

func TestProcessSpawnErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("executable file not found")
	err := &ProcessSpawnError{Command: "ngrok", LocalPort: 3000, Err: inner}

	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "ngrok")
	require.Contains(t, err.Error(), "3000")
}
