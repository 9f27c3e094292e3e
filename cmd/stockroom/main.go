// Stockroom Core - inventory view server
//
// This is the main entry point for the Stockroom Core application. It serves
// the browser shell and hosts one view session per connected shell, keeping
// the address fragment and the inventory view in step.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Commands are built fresh each call so
// tests can run them in isolation.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stockroom",
		Short: "Stockroom Core inventory view server",
		Long: `Stockroom Core serves the inventory shell and keeps each browser's
address fragment in step with what its inventory view shows.

Configuration is read from configs/config.yaml, or the file named by
STOCKROOM_CONFIG or --config.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newRouteCmd())
	return root
}

// getConfigPath returns the configuration file path.
// Uses STOCKROOM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STOCKROOM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
