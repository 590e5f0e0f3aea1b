package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hookport/hookport/internal/domain/model"
	"github.com/spf13/cobra"
)

// configCmd is the command to manage configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage Hookport Client configuration.`,
}

// configShowCmd is the command to display configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration",
	Long:  `Display Hookport Client configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Display configuration
		fmt.Println("Hookport Client Configuration:")
		fmt.Printf("Log Level: %s\n", Container.Config.LogLevel)
		fmt.Printf("Log File: %s\n", Container.Config.LogFile)

		fmt.Println("\nTunnel:")
		fmt.Printf("  Command: %s %v\n", Container.Config.Tunnel.Command, Container.Config.Tunnel.Args)
		fmt.Printf("  Control URL: %s\n", Container.Config.Tunnel.ControlURL)
		fmt.Printf("  Tunnels Path: %s\n", Container.Config.Tunnel.TunnelsPath)
		fmt.Printf("  Events Path: %s\n", Container.Config.Tunnel.EventsPath)

		fmt.Println("\nDiscovery:")
		fmt.Printf("  Timeout: %s\n", Container.Config.Discovery.Timeout)
		fmt.Printf("  Poll Interval: %s\n", Container.Config.Discovery.PollInterval)
		fmt.Printf("  Freshness Window: %s\n", Container.Config.Discovery.FreshnessWindow)

		fmt.Println("\nWebhook:")
		fmt.Printf("  API Base: %s\n", Container.Config.Webhook.APIBase)
		fmt.Printf("  Register Path: %s\n", Container.Config.Webhook.RegisterPath)
		fmt.Printf("  Credential: %s\n", model.MaskCredential(Container.Config.Webhook.Credential))
		fmt.Printf("  Request Timeout: %s\n", Container.Config.Webhook.RequestTimeout)

		fmt.Println("\nProvision:")
		fmt.Printf("  Max Attempts: %d\n", Container.Config.Provision.MaxAttempts)
		fmt.Printf("  Backoff Step: %s\n", Container.Config.Provision.BackoffStep)
	},
}

// configSetCmd is the command to set configuration
var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set configuration",
	Long: `Set Hookport Client configuration.
Examples:
  hookport config set tunnel_command ngrok
  hookport config set control_url http://127.0.0.1:4040
  hookport config set api_base https://api.telegram.org
  hookport config set credential my-token
  hookport config set max_attempts 5
  hookport config set log_level debug`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		// Update configuration
		switch key {
		case "tunnel_command":
			Container.ConfigService.SetTunnelCommand(Container.Config, value)
		case "control_url":
			Container.ConfigService.SetControlURL(Container.Config, value)
		case "api_base":
			Container.ConfigService.SetAPIBase(Container.Config, value)
		case "credential":
			Container.ConfigService.SetCredential(Container.Config, value)
		case "max_attempts":
			attempts, err := strconv.Atoi(value)
			if err != nil {
				fmt.Printf("Error: Max attempts must be a number: %v\n", err)
				os.Exit(1)
			}
			Container.ConfigService.SetMaxAttempts(Container.Config, attempts)
		case "log_level":
			Container.ConfigService.SetLogLevel(Container.Config, value)
		case "log_file":
			Container.ConfigService.SetLogFile(Container.Config, value)
		default:
			fmt.Printf("Error: Invalid configuration key: %s\n", key)
			os.Exit(1)
		}

		// Save configuration
		if err := Container.ConfigService.SaveConfig(Container.Config, ConfigPath); err != nil {
			fmt.Printf("Error: Failed to save configuration: %v\n", err)
			os.Exit(1)
		}

		if key == "credential" {
			fmt.Println("Configuration credential successfully changed")
			return
		}
		fmt.Printf("Configuration %s successfully changed to %s\n", key, value)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
