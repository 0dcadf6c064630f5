// Package cmd provides command-line interface commands for the gateway.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"agrigate/bootstrap"
	"agrigate/config"
	"agrigate/core"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Global flags for the check command
var (
	outputJSON bool
	noColor    bool
	quiet      bool
)

// checkTimeout bounds the whole pre-flight run from the CLI.
const checkTimeout = 30 * time.Second

// checkReport is the JSON shape of the check outcome.
type checkReport struct {
	DetectedRuntime string `json:"detected_runtime"`
	RequiredRuntime string `json:"required_runtime"`
	VersionOK       bool   `json:"version_ok"`
	LoadOK          bool   `json:"load_ok"`
	TokenConfigured bool   `json:"token_configured"`
	Languages       int    `json:"languages"`
	Error           string `json:"error,omitempty"`
	Remediation     string `json:"remediation,omitempty"`
}

// NewCheckCmd creates the check command, which runs the same pre-flight
// verification the server runs at startup and exits non-zero on
// failure. Useful in CI and deploy pipelines.
func NewCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Run pre-flight verification without starting the server",
		Long: `Verify that the environment can run the gateway: the Go runtime version
matches the required series and the application configuration loads cleanly.

Exits 0 when all checks pass, 1 otherwise.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: runCheck,
	}

	checkCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	checkCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	checkCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	return checkCmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	report := checkReport{DetectedRuntime: runtime.Version()}

	var spin *spinner.Spinner
	if !outputJSON && !quiet {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = " Running pre-flight checks..."
		spin.Start()
	}

	// The required series comes from config, so a broken config fails
	// before any verification runs.
	cfg, err := config.LoadConfig()
	if err != nil {
		if spin != nil {
			spin.Stop()
		}
		report.Error = fmt.Sprintf("failed to load config: %v", err)
		report.Remediation = "Fix config.yaml or the AGRIGATE_* environment variables"
		printReport(report, false)
		os.Exit(bootstrap.ExitVerifyFailed)
	}
	report.RequiredRuntime = cfg.Runtime.Required

	verifier := &bootstrap.Verifier{
		DetectedRuntime: report.DetectedRuntime,
		RequiredRuntime: cfg.Runtime.Required,
		Load: func(ctx context.Context) error {
			if cfg.Languages.OverridePath != "" {
				return core.LoadLanguageOverrides(cfg.Languages.OverridePath)
			}
			return nil
		},
	}

	err = verifier.Run(ctx)
	if spin != nil {
		spin.Stop()
	}

	if err != nil {
		var verifyErr *bootstrap.VerifyError
		if errors.As(err, &verifyErr) {
			report.VersionOK = verifyErr.Stage != bootstrap.StageVersion
			report.Error = verifyErr.Error()
			report.Remediation = verifyErr.Remediation
		} else {
			report.Error = err.Error()
		}
		printReport(report, false)
		os.Exit(bootstrap.ExitVerifyFailed)
	}

	report.VersionOK = true
	report.LoadOK = true
	report.TokenConfigured = cfg.Lelapa.Token != ""
	report.Languages = len(core.SupportedLanguages())

	printReport(report, true)
	return nil
}

func printReport(report checkReport, passed bool) {
	if outputJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err == nil {
			fmt.Println(string(encoded))
		}
		return
	}

	if passed {
		successColor.Println("✓ Pre-flight checks passed")
		if !quiet {
			infoColor.Printf("  Runtime: %s (required %s)\n", report.DetectedRuntime, report.RequiredRuntime)
			infoColor.Printf("  Supported languages: %d\n", report.Languages)
			if !report.TokenConfigured {
				warningColor.Println("  Warning: AI provider token not configured")
			}
		}
		return
	}

	errorColor.Println("✗ Pre-flight checks failed")
	errorColor.Printf("  %s\n", report.Error)
	if report.Remediation != "" {
		warningColor.Printf("  Remediation: %s\n", report.Remediation)
	}
}
