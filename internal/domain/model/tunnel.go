package model

import (
	"fmt"
	"time"
)

// TunnelHandle identifies a running tunnel process. It is created by the
// process manager and is the only reference through which the process
// lifecycle may be controlled.
type TunnelHandle struct {
	// ID uniquely identifies this handle
	ID string
	// PID is the OS process id, 0 when the process was not spawned by us
	PID int
	// LocalPort is the local port the tunnel forwards to
	LocalPort int
	// ControlURL is the address of the process's control-plane API
	ControlURL string
	// StartedAt is when the handle was created
	StartedAt time.Time
	// Reused is true when an already-running process was adopted
	// instead of spawning a new one
	Reused bool
}

// String returns a short human-readable description of the handle
func (h *TunnelHandle) String() string {
	if h.Reused {
		return fmt.Sprintf("tunnel[%s] reused, control=%s, port=%d", h.ID, h.ControlURL, h.LocalPort)
	}
	return fmt.Sprintf("tunnel[%s] pid=%d, control=%s, port=%d", h.ID, h.PID, h.ControlURL, h.LocalPort)
}

// TunnelEndpoint is a public URL observed on the tunnel's control plane.
// Endpoints are never mutated in place: a later observation with a
// different URL supersedes the earlier one.
type TunnelEndpoint struct {
	// PublicURL is the discovered public URL (secure scheme only)
	PublicURL string
	// ObservedAt is when the URL was read from the control plane
	ObservedAt time.Time

	superseded bool
}

// NewTunnelEndpoint creates an endpoint observed now
func NewTunnelEndpoint(publicURL string) *TunnelEndpoint {
	return &TunnelEndpoint{
		PublicURL:  publicURL,
		ObservedAt: time.Now(),
	}
}

// Supersede marks the endpoint as replaced by a later observation
func (e *TunnelEndpoint) Supersede() {
	e.superseded = true
}

// Superseded reports whether a later observation replaced this endpoint
func (e *TunnelEndpoint) Superseded() bool {
	return e.superseded
}

// Fresh reports whether the endpoint may still be used for registration.
// A superseded endpoint is never fresh.
func (e *TunnelEndpoint) Fresh(maxAge time.Duration) bool {
	if e.superseded {
		return false
	}
	return time.Since(e.ObservedAt) <= maxAge
}
