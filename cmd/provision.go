package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hookport/hookport/internal/application/service"
	"github.com/hookport/hookport/internal/domain/model"
	"github.com/hookport/hookport/internal/domain/port"
	"github.com/spf13/cobra"
)

// Exit codes for scripting callers: each terminal failure is distinct
const (
	ExitOK          = 0
	ExitSpawn       = 2
	ExitDiscovery   = 3
	ExitRejected    = 4
	ExitUnreachable = 5
	ExitCancelled   = 6
)

var (
	// Provision command flags
	provisionLocalPort   int
	provisionPath        string
	provisionToken       string
	provisionTimeout     time.Duration
	provisionInterval    time.Duration
	provisionMaxAttempts int
	provisionWatch       bool
)

// provisionCmd is the command to provision a public endpoint
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a public endpoint",
	Long: `Provision a public endpoint for a local service: start or adopt a
tunnel process, discover its public URL, and register the URL as a
webhook with the downstream API.
Examples:
  hookport provision -p 3000 --path /webhook
  hookport provision --port 8080 --path /bot/updates --token 1234:abcd
  hookport provision -p 3000 --path /webhook --timeout 30s --max-attempts 5 --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate parameters
		if provisionLocalPort <= 0 {
			fmt.Println("Error: Local port must be greater than 0")
			os.Exit(1)
		}
		if provisionPath == "" {
			fmt.Println("Error: Webhook path is required")
			os.Exit(1)
		}

		// Flag overrides take precedence over the configuration file
		if provisionToken != "" {
			Container.Config.Webhook.Credential = provisionToken
		}
		if provisionTimeout > 0 {
			Container.Config.Discovery.Timeout = provisionTimeout
		}
		if provisionInterval > 0 {
			Container.Config.Discovery.PollInterval = provisionInterval
		}
		if provisionMaxAttempts > 0 {
			Container.Config.Provision.MaxAttempts = provisionMaxAttempts
		}

		if Container.Config.Webhook.Credential == "" {
			fmt.Println("\n===================================================")
			fmt.Println("⚠️ ERROR: Webhook credential not found")
			fmt.Println("===================================================")
			fmt.Println("You need to provide a credential for the downstream API:")
			fmt.Println("1. Pass it with --token, or")
			fmt.Println("2. Add it to your configuration file:")
			fmt.Printf("   %s\n", Container.Config.GetConfigFilePath())
			fmt.Println("   under webhook.credential")
			fmt.Println("===================================================")
			os.Exit(1)
		}

		// Cancel the run on Ctrl+C
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		Container.ProvisionService.OnTransition = func(state model.ProvisionState) {
			Container.Logger.Info("Provisioning state: %s", state)
		}

		report := Container.ProvisionService.Run(ctx, service.ProvisionParams{
			LocalPort:   provisionLocalPort,
			WebhookPath: provisionPath,
		})

		if !report.Succeeded() {
			printFailure(report)
			os.Exit(exitCode(report))
		}

		printSuccess(report)

		if provisionWatch {
			watchTunnel(ctx, report.Handle)
		}
	},
}

// printSuccess prints the success banner for a confirmed registration
func printSuccess(report *model.ProvisionReport) {
	callback := model.JoinCallbackURL(report.Endpoint.PublicURL, provisionPath)

	fmt.Fprintf(os.Stderr, "=================================================\n")
	fmt.Fprintf(os.Stderr, "✅ PUBLIC ENDPOINT PROVISIONED!\n")
	fmt.Fprintf(os.Stderr, "=================================================\n")
	fmt.Fprintf(os.Stderr, "🌐 Public URL: %s\n", report.Endpoint.PublicURL)
	fmt.Fprintf(os.Stderr, "📬 Webhook Callback: %s\n", callback)
	fmt.Fprintf(os.Stderr, "🔌 Local Port: %d\n", provisionLocalPort)
	fmt.Fprintf(os.Stderr, "🛠 Tunnel: %s\n", report.Handle)
	fmt.Fprintf(os.Stderr, "🔁 Attempts: %d\n", report.Attempts)
	fmt.Fprintf(os.Stderr, "=================================================\n")
}

// printFailure prints the terminal state, leaving the tunnel process
// running for manual inspection
func printFailure(report *model.ProvisionReport) {
	fmt.Fprintf(os.Stderr, "=================================================\n")
	fmt.Fprintf(os.Stderr, "⚠️ PROVISIONING FAILED (stage: %s)\n", report.Stage)
	fmt.Fprintf(os.Stderr, "=================================================\n")
	fmt.Fprintf(os.Stderr, "Cause: %v\n", report.Cause)
	fmt.Fprintf(os.Stderr, "Attempts: %d\n", report.Attempts)
	if report.Handle != nil {
		fmt.Fprintf(os.Stderr, "\nThe tunnel process is still running for inspection:\n")
		fmt.Fprintf(os.Stderr, "  %s\n", report.Handle)
	}
	fmt.Fprintf(os.Stderr, "=================================================\n")
}

// watchTunnel keeps observing the tunnel after registration until
// interrupted or the tunnel goes down
func watchTunnel(ctx context.Context, handle *model.TunnelHandle) {
	fmt.Fprintf(os.Stderr, "📋 Watching tunnel status, press Ctrl+C to stop\n")

	err := Container.StatusWatcher.Watch(ctx, handle, func(event port.TunnelEvent) {
		switch event.Type {
		case port.TunnelEventDown:
			fmt.Fprintf(os.Stderr, "❌ Tunnel down: %s\n", event.Message)
		case port.TunnelEventURLChanged:
			fmt.Fprintf(os.Stderr, "🔄 Tunnel URL changed to %s (%s)\n", event.PublicURL, event.Message)
			fmt.Fprintf(os.Stderr, "   Re-run provision to update the webhook registration\n")
		default:
			Container.Logger.Info("Tunnel status: %s %s", event.Type, event.PublicURL)
		}
	})
	if err != nil && !errors.Is(err, model.ErrCancelled) {
		Container.Logger.Error("Tunnel watch ended: %v", err)
	}
}

// exitCode maps the failure stage and cause onto a distinct exit code
func exitCode(report *model.ProvisionReport) int {
	if errors.Is(report.Cause, model.ErrCancelled) {
		return ExitCancelled
	}

	var spawn *model.ProcessSpawnError
	if errors.As(report.Cause, &spawn) {
		return ExitSpawn
	}
	var rejected *model.RejectedError
	if errors.As(report.Cause, &rejected) {
		return ExitRejected
	}
	var unreachable *model.UnreachableError
	if errors.As(report.Cause, &unreachable) {
		return ExitUnreachable
	}

	switch report.Stage {
	case model.StageStart:
		return ExitSpawn
	case model.StageRegister:
		return ExitUnreachable
	default:
		return ExitDiscovery
	}
}

func init() {
	RootCmd.AddCommand(provisionCmd)

	// Add flags
	provisionCmd.Flags().IntVarP(&provisionLocalPort, "port", "p", 0, "Local port to expose")
	provisionCmd.Flags().StringVar(&provisionPath, "path", "", "Webhook path suffix joined to the public URL")
	provisionCmd.Flags().StringVarP(&provisionToken, "token", "t", "", "Credential for the downstream API (overrides config)")
	provisionCmd.Flags().DurationVar(&provisionTimeout, "timeout", 0, "Overall discovery timeout (overrides config)")
	provisionCmd.Flags().DurationVar(&provisionInterval, "interval", 0, "Discovery poll interval (overrides config)")
	provisionCmd.Flags().IntVar(&provisionMaxAttempts, "max-attempts", 0, "Maximum provisioning attempts (overrides config)")
	provisionCmd.Flags().BoolVar(&provisionWatch, "watch", false, "Keep watching tunnel status after registration")
}
