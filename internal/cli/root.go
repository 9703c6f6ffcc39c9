// Package cli implements the cobra-based CLI commands for layerpack.
//
// Each subcommand (build, verify, clean, inspect) is defined in its own
// file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/layerpack/internal/config"
	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Global flag variables shared across all subcommands. These are bound
// to cobra persistent flags on the root command, which makes them
// available to every subcommand automatically.
var (
	// jsonOutput switches command output on stdout to JSON for machine
	// consumption. Progress logging on stderr is unaffected.
	jsonOutput bool

	// verbose lowers the stderr log level to Debug.
	verbose bool

	// configPath overrides config file discovery with an explicit path.
	configPath string
)

// logger is the shared progress logger. All build phase progress goes
// here, on stderr, so stdout stays reserved for command results.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
})

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// The root command itself performs no action; functionality lives in
// the build, verify, clean, and inspect subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "layerpack",
		Short: "Build deployable Lambda layer archives from Python manifests",
		Long: `layerpack stages and archives AWS Lambda layers: it installs the
packages declared in a requirements manifest into the runtime-specific
layer layout, overlays the application package, verifies every declared
dependency actually installed, and compresses the result into a zip
ready for upload.

Configuration lives in layerpack.jsonc (or .json/.yaml) next to the
project; every build starts from a clean staging directory, so the
artifact never carries leftovers from a previous run.`,

		// Errors are formatted by Execute (text or JSON), so cobra's own
		// usage/error printing is silenced.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// The log level must be set before any subcommand runs.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: discover layerpack.jsonc/.json/.yaml upward)")

	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewInspectCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes. CLIError values
// carry their own exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag. Errors always go to
// stderr, even in JSON mode, because stdout is reserved for successful
// command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set. Subcommands use
// this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig resolves the build configuration for a command invocation:
// the --config path when given, otherwise upward discovery from the
// working directory, otherwise pure defaults anchored at the working
// directory (the conventional layout needs no config file at all).
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	found, err := config.Find(cwd)
	if err != nil {
		logger.Debug("no config file found, using defaults", "dir", cwd)
		return config.Default(cwd)
	}

	logger.Debug("using config file", "path", found)
	return config.Load(found)
}
