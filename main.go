// Package main is the entry point for the agrigate AI gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"agrigate/bootstrap"
	"agrigate/cmd"
)

// run initializes and starts the gateway.
func run() error {
	ctx := context.Background()

	// Create and verify the application. A failed pre-flight check
	// (wrong runtime version, unloadable application) aborts here.
	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Start serving
	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	app.WaitForShutdown()

	// Graceful shutdown
	app.Shutdown()

	return nil
}

// main is the entry point.
func main() {
	// Check if running as CLI command
	if len(os.Args) > 1 && os.Args[1] == "check" {
		// Strip "check" from os.Args since the command already knows it's the check command
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		checkCmd := cmd.NewCheckCmd()
		if err := checkCmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Otherwise run as normal server
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var verifyErr *bootstrap.VerifyError
		if errors.As(err, &verifyErr) {
			if verifyErr.Remediation != "" {
				fmt.Fprintf(os.Stderr, "Remediation: %s\n", verifyErr.Remediation)
			}
			os.Exit(bootstrap.ExitVerifyFailed)
		}
		os.Exit(1)
	}
}
