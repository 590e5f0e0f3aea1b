package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/infrastructure/logger"
	"github.com/stretchr/testify/require"
)

const testCredential = "1234:secret-token"

func newRegistrar(apiBase string) *Registrar {
	config := &model.WebhookConfig{
		APIBase:        apiBase,
		RegisterPath:   "/bot{credential}/setWebhook",
		Credential:     testCredential,
		RequestTimeout: 2 * time.Second,
	}
	return NewRegistrar(config, logger.NewLogger(io.Discard, "error"))
}

func TestRegisterConfirmed(t *testing.T) {
	var gotPath, gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotURL = r.FormValue("url")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "description": "Webhook was set"}`))
	}))
	defer server.Close()

	registrar := newRegistrar(server.URL)
	defer registrar.client.CloseIdleConnections()

	endpoint := model.NewTunnelEndpoint("https://abc.ngrok.io/")
	outcome, err := registrar.Register(context.Background(), endpoint, "/webhook")

	require.NoError(t, err)
	require.Equal(t, model.OutcomeConfirmed, outcome.Status)
	require.Equal(t, "/bot"+testCredential+"/setWebhook", gotPath)
	// Exactly one slash at the join despite trailing and leading slashes
	require.Equal(t, "https://abc.ngrok.io/webhook", gotURL)
}

func TestRegisterRejectedCarriesReasonVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok": false, "description": "bad url"}`))
	}))
	defer server.Close()

	registrar := newRegistrar(server.URL)
	defer registrar.client.CloseIdleConnections()

	endpoint := model.NewTunnelEndpoint("https://abc.ngrok.io")
	outcome, err := registrar.Register(context.Background(), endpoint, "webhook")

	require.NoError(t, err)
	require.Equal(t, model.OutcomeRejected, outcome.Status)
	require.Equal(t, "bad url", outcome.Reason)
}

func TestRegisterRejectedOnOKFalseWithSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "description": "wrong credential"}`))
	}))
	defer server.Close()

	registrar := newRegistrar(server.URL)
	defer registrar.client.CloseIdleConnections()

	endpoint := model.NewTunnelEndpoint("https://abc.ngrok.io")
	outcome, err := registrar.Register(context.Background(), endpoint, "webhook")

	require.NoError(t, err)
	require.Equal(t, model.OutcomeRejected, outcome.Status)
	require.Equal(t, "wrong credential", outcome.Reason)
}

func TestRegisterUnreachableOnConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	registrar := newRegistrar(server.URL)
	defer registrar.client.CloseIdleConnections()

	endpoint := model.NewTunnelEndpoint("https://abc.ngrok.io")
	outcome, err := registrar.Register(context.Background(), endpoint, "webhook")

	require.NoError(t, err)
	require.Equal(t, model.OutcomeUnreachable, outcome.Status)
	require.NotEmpty(t, outcome.Reason)
}

func TestRegisterNeverExposesCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		// A provider echoing the credential back must still not leak it
		w.Write([]byte(`{"ok": false, "description": "no route for /bot` + testCredential + `/setWebhook"}`))
	}))
	defer server.Close()

	registrar := newRegistrar(server.URL)
	defer registrar.client.CloseIdleConnections()

	endpoint := model.NewTunnelEndpoint("https://abc.ngrok.io")
	outcome, err := registrar.Register(context.Background(), endpoint, "webhook")

	require.NoError(t, err)
	require.Equal(t, model.OutcomeRejected, outcome.Status)
	require.NotContains(t, outcome.Reason, testCredential)
}

func TestRegisterCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	registrar := newRegistrar(server.URL)
	defer registrar.client.CloseIdleConnections()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	endpoint := model.NewTunnelEndpoint("https://abc.ngrok.io")
	_, err := registrar.Register(ctx, endpoint, "webhook")
	require.ErrorIs(t, err, model.ErrCancelled)
}
