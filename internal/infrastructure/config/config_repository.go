package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
	"github.com/spf13/viper"
)

// ConfigRepository is an implementation of port.ConfigRepository
type ConfigRepository struct{}

// NewConfigRepository creates a new ConfigRepository instance
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

// Load loads configuration from file
func (r *ConfigRepository) Load(configPath string) (*model.Config, error) {
	config := model.NewConfig()

	// If configPath is empty, look in the default location
	if configPath == "" {
		var err error
		configPath, err = r.GetDefaultPath()
		if err != nil {
			return nil, err
		}
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	// Load configuration from file
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	// Map from viper to Config struct, keeping defaults for unset keys
	if v.IsSet("log_level") {
		config.LogLevel = model.LogLevel(v.GetString("log_level"))
	}
	config.LogFile = v.GetString("log_file")

	if v.IsSet("tunnel.command") {
		config.Tunnel.Command = v.GetString("tunnel.command")
	}
	if v.IsSet("tunnel.args") {
		config.Tunnel.Args = v.GetStringSlice("tunnel.args")
	}
	if v.IsSet("tunnel.control_url") {
		config.Tunnel.ControlURL = v.GetString("tunnel.control_url")
	}
	if v.IsSet("tunnel.tunnels_path") {
		config.Tunnel.TunnelsPath = v.GetString("tunnel.tunnels_path")
	}
	if v.IsSet("tunnel.events_path") {
		config.Tunnel.EventsPath = v.GetString("tunnel.events_path")
	}

	if v.IsSet("discovery.timeout") {
		config.Discovery.Timeout = v.GetDuration("discovery.timeout")
	}
	if v.IsSet("discovery.poll_interval") {
		config.Discovery.PollInterval = v.GetDuration("discovery.poll_interval")
	}
	if v.IsSet("discovery.freshness_window") {
		config.Discovery.FreshnessWindow = v.GetDuration("discovery.freshness_window")
	}

	if v.IsSet("webhook.api_base") {
		config.Webhook.APIBase = v.GetString("webhook.api_base")
	}
	if v.IsSet("webhook.register_path") {
		config.Webhook.RegisterPath = v.GetString("webhook.register_path")
	}
	config.Webhook.Credential = v.GetString("webhook.credential")
	if v.IsSet("webhook.request_timeout") {
		config.Webhook.RequestTimeout = v.GetDuration("webhook.request_timeout")
	}

	if v.IsSet("provision.max_attempts") {
		config.Provision.MaxAttempts = v.GetInt("provision.max_attempts")
	}
	if v.IsSet("provision.backoff_step") {
		config.Provision.BackoffStep = v.GetDuration("provision.backoff_step")
	}

	return config, nil
}

// Save saves configuration to file
func (r *ConfigRepository) Save(config *model.Config, configPath string) error {
	// If configPath is empty, use default location
	if configPath == "" {
		var err error
		configPath, err = r.GetDefaultPath()
		if err != nil {
			return err
		}
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %v", err)
	}

	// Set configuration values in viper
	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("log_level", string(config.LogLevel))
	v.Set("log_file", config.LogFile)
	v.Set("tunnel.command", config.Tunnel.Command)
	v.Set("tunnel.args", config.Tunnel.Args)
	v.Set("tunnel.control_url", config.Tunnel.ControlURL)
	v.Set("tunnel.tunnels_path", config.Tunnel.TunnelsPath)
	v.Set("tunnel.events_path", config.Tunnel.EventsPath)
	v.Set("discovery.timeout", config.Discovery.Timeout.String())
	v.Set("discovery.poll_interval", config.Discovery.PollInterval.String())
	v.Set("discovery.freshness_window", config.Discovery.FreshnessWindow.String())
	v.Set("webhook.api_base", config.Webhook.APIBase)
	v.Set("webhook.register_path", config.Webhook.RegisterPath)
	v.Set("webhook.credential", config.Webhook.Credential)
	v.Set("webhook.request_timeout", config.Webhook.RequestTimeout.String())
	v.Set("provision.max_attempts", config.Provision.MaxAttempts)
	v.Set("provision.backoff_step", config.Provision.BackoffStep.String())

	// Save to file
	if err := v.WriteConfig(); err != nil {
		// If file doesn't exist, create new one
		if strings.Contains(err.Error(), "no such file") {
			return v.SafeWriteConfig()
		}
		return fmt.Errorf("error saving configuration: %v", err)
	}

	return nil
}

// GetDefaultPath returns the default path for configuration file
func (r *ConfigRepository) GetDefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %v", err)
	}

	return filepath.Join(homeDir, ".hookport", "config.yaml"), nil
}

// Ensure ConfigRepository implements port.ConfigRepository
var _ port.ConfigRepository = (*ConfigRepository)(nil)
