package model

import (
	"os"
	"path/filepath"
	"time"
)

// LogLevel defines logging levels
type LogLevel string

const (
	// LogLevelDebug is the level for debug messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the level for informational messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the level for warning messages
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the level for error messages
	LogLevelError LogLevel = "error"
)

// TunnelConfig describes the local tunnel process and its control-plane API
type TunnelConfig struct {
	// Command is the tunnel binary to spawn (e.g. "ngrok")
	Command string
	// Args are the command arguments; the literal "{port}" is replaced
	// with the local port at spawn time
	Args []string
	// ControlURL is the address of the tunnel's local control-plane API
	ControlURL string
	// TunnelsPath is the control-plane path listing active tunnels
	TunnelsPath string
	// EventsPath is the control-plane websocket path streaming tunnel events
	EventsPath string
}

// DiscoveryConfig holds polling parameters for public URL discovery
type DiscoveryConfig struct {
	// Timeout is the overall deadline for discovering a public URL
	Timeout time.Duration
	// PollInterval is the fixed delay between control-plane queries
	PollInterval time.Duration
	// FreshnessWindow is how long a discovered endpoint may be used
	// before it must be re-discovered
	FreshnessWindow time.Duration
}

// WebhookConfig holds the downstream registration API parameters
type WebhookConfig struct {
	// APIBase is the base URL of the webhook-registration API
	APIBase string
	// RegisterPath is the credential-bearing path template; the literal
	// "{credential}" is replaced with the credential at request time
	RegisterPath string
	// Credential authenticates against the downstream service
	Credential string
	// RequestTimeout bounds the registration HTTP call
	RequestTimeout time.Duration
}

// ProvisionConfig holds the orchestrator retry policy
type ProvisionConfig struct {
	// MaxAttempts caps full Starting->Registering sequences
	MaxAttempts int
	// BackoffStep is multiplied by the attempt number between retries
	BackoffStep time.Duration
}

// Config is the configuration structure for the hookport client
type Config struct {
	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel LogLevel
	// LogFile is the path to log file (empty for stdout)
	LogFile string
	// Tunnel configures the local tunnel process
	Tunnel TunnelConfig
	// Discovery configures public URL polling
	Discovery DiscoveryConfig
	// Webhook configures downstream registration
	Webhook WebhookConfig
	// Provision configures orchestrator retries
	Provision ProvisionConfig
}

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	return &Config{
		LogLevel: LogLevelWarn,
		LogFile:  "",
		Tunnel: TunnelConfig{
			Command:     "ngrok",
			Args:        []string{"http", "{port}"},
			ControlURL:  "http://127.0.0.1:4040",
			TunnelsPath: "/api/tunnels",
			EventsPath:  "/api/events",
		},
		Discovery: DiscoveryConfig{
			Timeout:         20 * time.Second,
			PollInterval:    1 * time.Second,
			FreshnessWindow: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			APIBase:        "https://api.telegram.org",
			RegisterPath:   "/bot{credential}/setWebhook",
			Credential:     "",
			RequestTimeout: 10 * time.Second,
		},
		Provision: ProvisionConfig{
			MaxAttempts: 3,
			BackoffStep: 2 * time.Second,
		},
	}
}

// GetConfigFilePath returns the path to configuration file
func (c *Config) GetConfigFilePath() string {
	// Determine configuration directory based on user
	configDir := "/etc/hookport"

	// If not root, use home directory
	if os.Getuid() != 0 {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configDir = filepath.Join(homeDir, ".hookport")
		}
	}

	// Configuration file path
	return filepath.Join(configDir, "config.yaml")
}
