package model

import (
	"fmt"
	"strings"
)

// OutcomeStatus classifies the result of a registration call
type OutcomeStatus string

const (
	// OutcomeConfirmed means the downstream service acknowledged the URL
	OutcomeConfirmed OutcomeStatus = "confirmed"
	// OutcomeRejected means the downstream service explicitly refused the URL
	OutcomeRejected OutcomeStatus = "rejected"
	// OutcomeUnreachable means the downstream service could not be reached
	OutcomeUnreachable OutcomeStatus = "unreachable"
)

// RegistrationOutcome is the terminal result of a single registration call.
// Retry policy is decided by the orchestrator, never here.
type RegistrationOutcome struct {
	// Status is the outcome classification
	Status OutcomeStatus
	// Reason carries the downstream rejection text or transport error,
	// verbatim but with the credential redacted
	Reason string
}

// Confirmed returns an outcome for an acknowledged registration
func Confirmed() RegistrationOutcome {
	return RegistrationOutcome{Status: OutcomeConfirmed}
}

// Rejected returns an outcome for an explicit downstream refusal
func Rejected(reason string) RegistrationOutcome {
	return RegistrationOutcome{Status: OutcomeRejected, Reason: reason}
}

// Unreachable returns an outcome for a transport-level failure
func Unreachable(reason string) RegistrationOutcome {
	return RegistrationOutcome{Status: OutcomeUnreachable, Reason: reason}
}

// RegistrationRequest is the payload of one registration call. It is
// constructed immediately before the call and never persisted.
type RegistrationRequest struct {
	// CallbackURL is the public callback URL sent downstream
	CallbackURL string
	// Credential authenticates against the downstream service
	Credential string
}

// String describes the request with the credential redacted
func (r RegistrationRequest) String() string {
	return fmt.Sprintf("register callback=%s credential=%s", r.CallbackURL, MaskCredential(r.Credential))
}

// NewRegistrationRequest builds the request from a fresh endpoint and the
// service-specific webhook path
func NewRegistrationRequest(endpoint *TunnelEndpoint, webhookPath string, credential string) RegistrationRequest {
	return RegistrationRequest{
		CallbackURL: JoinCallbackURL(endpoint.PublicURL, webhookPath),
		Credential:  credential,
	}
}

// JoinCallbackURL joins a public base URL and a webhook path with exactly
// one separating slash, regardless of trailing/leading slashes on either side
func JoinCallbackURL(base string, path string) string {
	base = strings.TrimRight(base, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// MaskCredential hides all but the edges of a credential for display
func MaskCredential(credential string) string {
	if credential == "" {
		return ""
	}
	if len(credential) <= 8 {
		return "****"
	}
	return credential[:4] + "****" + credential[len(credential)-4:]
}
