package di

import (
	"os"

	"github.com/hookport/hookport/internal/application/service"
	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
	"github.com/hookport/hookport/internal/infrastructure/config"
	"github.com/hookport/hookport/internal/infrastructure/logger"
	"github.com/hookport/hookport/internal/infrastructure/tunnel"
	"github.com/hookport/hookport/internal/infrastructure/webhook"
)

// Container is a container for dependency injection
type Container struct {
	// Logger
	Logger *logger.Logger

	// Repositories
	ConfigRepository *config.ConfigRepository

	// Services
	ConfigService    *service.ConfigService
	ProvisionService *service.ProvisionService

	// Infrastructure
	ProcessManager  port.ProcessManager
	DiscoveryPoller port.DiscoveryPoller
	Registrar       port.Registrar
	StatusWatcher   port.StatusWatcher

	// Config
	Config *model.Config
}

// NewContainer creates a new Container instance
func NewContainer() *Container {
	return &Container{}
}

// Initialize initializes the container
func (c *Container) Initialize(configPath string) error {
	// Initialize logger
	c.Logger = logger.NewLogger(os.Stdout, "info")

	// Initialize config repository
	c.ConfigRepository = config.NewConfigRepository()

	// Initialize config service
	c.ConfigService = service.NewConfigService(c.ConfigRepository, c.Logger)

	// Load configuration
	var err error
	c.Config, err = c.ConfigService.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Set logger level based on configuration
	c.Logger.SetLevel(string(c.Config.LogLevel))

	// If log file is specified, use file logger but still display output to terminal
	if c.Config.LogFile != "" {
		_, err := logger.NewFileLogger(c.Config.LogFile, string(c.Config.LogLevel))
		if err != nil {
			c.Logger.Error("Failed to create file logger: %v", err)
		} else {
			// Keep using the existing logger (to stdout)
			c.Logger.Info("Logs will also be written to file: %s", c.Config.LogFile)
		}
	}

	// Initialize tunnel infrastructure
	manager := tunnel.NewProcessManager(&c.Config.Tunnel, c.Logger)
	c.ProcessManager = manager
	c.DiscoveryPoller = tunnel.NewDiscoveryPoller(&c.Config.Discovery, &c.Config.Tunnel, manager, c.Logger)
	c.StatusWatcher = tunnel.NewStatusWatcher(&c.Config.Tunnel, manager, c.Logger)

	// Initialize webhook registrar
	c.Registrar = webhook.NewRegistrar(&c.Config.Webhook, c.Logger)

	// Initialize provision service
	c.ProvisionService = service.NewProvisionService(
		c.ProcessManager,
		c.DiscoveryPoller,
		c.Registrar,
		&c.Config.Provision,
		c.Config.Discovery.FreshnessWindow,
		c.Logger,
	)

	return nil
}

// Close closes all resources
func (c *Container) Close() {
	// Close logger
	if c.Logger != nil {
		c.Logger.Close()
	}
}
