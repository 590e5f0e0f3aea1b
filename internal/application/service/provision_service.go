package service

import (
	"context"
	"time"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
)

// ProvisionParams are the per-invocation inputs of one provisioning run
type ProvisionParams struct {
	// LocalPort is the local service port to expose
	LocalPort int
	// WebhookPath is the service-specific callback path suffix
	WebhookPath string
}

// ProvisionService drives the provisioning state machine:
// Idle -> Starting -> Discovering -> Registering -> Done, with a terminal
// Failed(stage, cause) reachable from every non-terminal state. It is the
// only place where retry decisions are made.
type ProvisionService struct {
	manager   port.ProcessManager
	poller    port.DiscoveryPoller
	registrar port.Registrar
	config    *model.ProvisionConfig
	freshness time.Duration
	logger    port.Logger

	// OnTransition, when set, is called on every state change
	OnTransition func(state model.ProvisionState)
}

// NewProvisionService creates a new ProvisionService instance
func NewProvisionService(manager port.ProcessManager, poller port.DiscoveryPoller, registrar port.Registrar, config *model.ProvisionConfig, freshness time.Duration, logger port.Logger) *ProvisionService {
	return &ProvisionService{
		manager:   manager,
		poller:    poller,
		registrar: registrar,
		config:    config,
		freshness: freshness,
		logger:    logger,
	}
}

// Run executes the provisioning sequence with bounded whole-sequence
// retries and linear backoff. Rejections and cancellation are terminal;
// discovery timeouts, process death and unreachable downstreams are
// retried up to the configured attempt count. On terminal failure a
// still-running tunnel is left alive for inspection.
func (s *ProvisionService) Run(ctx context.Context, params ProvisionParams) *model.ProvisionReport {
	s.transition(model.StateIdle)

	maxAttempts := s.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var handle *model.TunnelHandle
	var endpoint *model.TunnelEndpoint
	var lastStage model.Stage
	var lastCause error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		s.logger.Info("Provisioning attempt %d/%d for port %d", attempt, maxAttempts, params.LocalPort)

		report, retry := s.runOnce(ctx, params, attempt)
		if report != nil {
			return report
		}
		handle = retry.handle
		endpoint = retry.endpoint
		lastStage = retry.stage
		lastCause = retry.cause

		s.logger.Warn("Attempt %d failed in stage %q: %v", attempt, lastStage, lastCause)

		if attempt == maxAttempts {
			break
		}

		// A fresh process may resolve transient provider-side issues.
		// The last attempt's tunnel is never stopped here: a terminal
		// failure leaves it running for inspection.
		if lastStage == model.StageDiscover && handle != nil && !handle.Reused {
			if err := s.manager.Stop(handle); err != nil {
				s.logger.Warn("Failed to stop tunnel process before retry: %v", err)
			}
			handle = nil
		}

		if err := s.backoff(ctx, attempt); err != nil {
			return s.failed(lastStage, err, attempt, handle, endpoint)
		}
	}

	return s.failed(lastStage, lastCause, maxAttempts, handle, endpoint)
}

// retryState carries the partial progress of a failed attempt
type retryState struct {
	stage    model.Stage
	cause    error
	handle   *model.TunnelHandle
	endpoint *model.TunnelEndpoint
}

// runOnce executes one Starting -> Registering sequence. It returns a
// terminal report, or a retryState when the orchestrator may try again.
func (s *ProvisionService) runOnce(ctx context.Context, params ProvisionParams, attempt int) (*model.ProvisionReport, retryState) {
	s.transition(model.StateStarting)
	handle, err := s.manager.EnsureRunning(ctx, params.LocalPort)
	if err != nil {
		// Spawn failures are environment problems, not transience
		return s.failed(model.StageStart, err, attempt, nil, nil), retryState{}
	}

	s.transition(model.StateDiscovering)
	endpoint, err := s.poller.Discover(ctx, handle)
	if err != nil {
		if model.IsRecoverable(err) {
			return nil, retryState{stage: model.StageDiscover, cause: err, handle: handle}
		}
		return s.failed(model.StageDiscover, err, attempt, handle, nil), retryState{}
	}

	// A stale or superseded endpoint must never be registered
	if !endpoint.Fresh(s.freshness) {
		s.logger.Warn("Discovered endpoint went stale, re-discovering")
		endpoint, err = s.poller.Discover(ctx, handle)
		if err != nil {
			if model.IsRecoverable(err) {
				return nil, retryState{stage: model.StageDiscover, cause: err, handle: handle}
			}
			return s.failed(model.StageDiscover, err, attempt, handle, nil), retryState{}
		}
	}

	s.transition(model.StateRegistering)
	outcome, err := s.registrar.Register(ctx, endpoint, params.WebhookPath)
	if err != nil {
		return s.failed(model.StageRegister, err, attempt, handle, endpoint), retryState{}
	}

	switch outcome.Status {
	case model.OutcomeConfirmed:
		s.transition(model.StateDone)
		return &model.ProvisionReport{
			State:    model.StateDone,
			Attempts: attempt,
			Handle:   handle,
			Endpoint: endpoint,
		}, retryState{}
	case model.OutcomeRejected:
		// An explicit rejection implies a configuration problem
		cause := &model.RejectedError{Reason: outcome.Reason}
		return s.failed(model.StageRegister, cause, attempt, handle, endpoint), retryState{}
	default:
		cause := &model.UnreachableError{Reason: outcome.Reason}
		return nil, retryState{stage: model.StageRegister, cause: cause, handle: handle, endpoint: endpoint}
	}
}

// backoff sleeps attempt x step, returning early on cancellation
func (s *ProvisionService) backoff(ctx context.Context, attempt int) error {
	if ctx.Err() != nil {
		return model.ErrCancelled
	}
	wait := time.Duration(attempt) * s.config.BackoffStep
	if wait <= 0 {
		return nil
	}
	s.logger.Info("Backing off %s before next attempt", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return model.ErrCancelled
	case <-timer.C:
		return nil
	}
}

// failed builds the terminal failure report
func (s *ProvisionService) failed(stage model.Stage, cause error, attempts int, handle *model.TunnelHandle, endpoint *model.TunnelEndpoint) *model.ProvisionReport {
	s.transition(model.StateFailed)
	return &model.ProvisionReport{
		State:    model.StateFailed,
		Stage:    stage,
		Attempts: attempts,
		Handle:   handle,
		Endpoint: endpoint,
		Cause:    cause,
	}
}

func (s *ProvisionService) transition(state model.ProvisionState) {
	if s.OnTransition != nil {
		s.OnTransition(state)
	}
}
