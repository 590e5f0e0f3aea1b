package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
)

// registerResponse is the downstream service's acknowledgment body
type registerResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Registrar is an implementation of port.Registrar. It registers a public
// callback URL with the downstream webhook consumer through a single
// form-encoded POST.
type Registrar struct {
	config *model.WebhookConfig
	logger port.Logger
	client *http.Client
}

// NewRegistrar creates a new Registrar instance
func NewRegistrar(config *model.WebhookConfig, logger port.Logger) *Registrar {
	return &Registrar{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: config.RequestTimeout},
	}
}

// Register issues one registration call for the endpoint and webhook path.
// The credential never appears in logs or outcome reasons.
func (r *Registrar) Register(ctx context.Context, endpoint *model.TunnelEndpoint, webhookPath string) (model.RegistrationOutcome, error) {
	request := model.NewRegistrationRequest(endpoint, webhookPath, r.config.Credential)
	r.logger.Info("Registering webhook: %s", request)

	form := url.Values{}
	form.Set("url", request.CallbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.registerURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return model.RegistrationOutcome{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "HookportClient/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return model.RegistrationOutcome{}, model.ErrCancelled
		}
		// Transport-level failure: safe for the orchestrator to retry
		return model.Unreachable(r.redact(err.Error())), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Unreachable(fmt.Sprintf("failed to read response: %v", err)), nil
	}

	var ack registerResponse
	if jsonErr := json.Unmarshal(body, &ack); jsonErr != nil {
		// A response arrived but it is not the provider's acknowledgment
		preview := string(body)
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		return model.Rejected(fmt.Sprintf("unexpected response (status %d): %s", resp.StatusCode, r.redact(preview))), nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && ack.OK {
		r.logger.Info("Webhook registration confirmed for %s", request.CallbackURL)
		return model.Confirmed(), nil
	}

	reason := ack.Description
	if reason == "" {
		reason = fmt.Sprintf("registration refused with status %d", resp.StatusCode)
	}
	return model.Rejected(r.redact(reason)), nil
}

// registerURL builds the credential-bearing registration URL
func (r *Registrar) registerURL() string {
	path := strings.ReplaceAll(r.config.RegisterPath, "{credential}", r.config.Credential)
	return model.JoinCallbackURL(r.config.APIBase, path)
}

// redact strips the credential from text destined for logs or reports
func (r *Registrar) redact(text string) string {
	if r.config.Credential == "" {
		return text
	}
	return strings.ReplaceAll(text, r.config.Credential, model.MaskCredential(r.config.Credential))
}

// Ensure Registrar implements port.Registrar
var _ port.Registrar = (*Registrar)(nil)
