package service

import (
	"fmt"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
)

// ConfigService is a service for managing configuration
type ConfigService struct {
	configRepo port.ConfigRepository
	logger     port.Logger
}

// NewConfigService creates a new ConfigService instance
func NewConfigService(configRepo port.ConfigRepository, logger port.Logger) *ConfigService {
	return &ConfigService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// LoadConfig loads configuration from a file
func (s *ConfigService) LoadConfig(configPath string) (*model.Config, error) {
	// If configPath is empty, use the default path
	if configPath == "" {
		var err error
		configPath, err = s.configRepo.GetDefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default path: %v", err)
		}
	}

	// Load configuration
	config, err := s.configRepo.Load(configPath)
	if err != nil {
		s.logger.Warn("Failed to load configuration from %s: %v", configPath, err)
		// Return default configuration if loading fails
		return model.NewConfig(), nil
	}

	s.logger.Info("Configuration loaded from %s", configPath)

	return config, nil
}

// SaveConfig saves configuration to a file
func (s *ConfigService) SaveConfig(config *model.Config, configPath string) error {
	// If configPath is empty, use the default path
	if configPath == "" {
		var err error
		configPath, err = s.configRepo.GetDefaultPath()
		if err != nil {
			return fmt.Errorf("failed to get default path: %v", err)
		}
	}

	// Save configuration
	if err := s.configRepo.Save(config, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %v", err)
	}

	s.logger.Info("Configuration saved to %s", configPath)

	return nil
}

// SetTunnelCommand sets the tunnel binary
func (s *ConfigService) SetTunnelCommand(config *model.Config, command string) {
	config.Tunnel.Command = command
}

// SetControlURL sets the control-plane API address
func (s *ConfigService) SetControlURL(config *model.Config, controlURL string) {
	config.Tunnel.ControlURL = controlURL
}

// SetAPIBase sets the webhook-registration API base URL
func (s *ConfigService) SetAPIBase(config *model.Config, apiBase string) {
	config.Webhook.APIBase = apiBase
}

// SetCredential sets the downstream service credential
func (s *ConfigService) SetCredential(config *model.Config, credential string) {
	config.Webhook.Credential = credential
}

// SetMaxAttempts sets the orchestrator attempt cap
func (s *ConfigService) SetMaxAttempts(config *model.Config, maxAttempts int) {
	config.Provision.MaxAttempts = maxAttempts
}

// SetLogLevel sets the log level
func (s *ConfigService) SetLogLevel(config *model.Config, logLevel string) {
	config.LogLevel = model.LogLevel(logLevel)
}

// SetLogFile sets the log file
func (s *ConfigService) SetLogFile(config *model.Config, logFile string) {
	config.LogFile = logFile
}
