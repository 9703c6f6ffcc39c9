package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/layerpack/internal/archive"
	"github.com/mmr-tortoise/layerpack/internal/manifest"
	"github.com/mmr-tortoise/layerpack/internal/model"
	"github.com/mmr-tortoise/layerpack/internal/staging"
)

// verifyResult is the JSON shape of a successful verify run.
type verifyResult struct {
	Name            string               `json:"name"`
	Runtime         model.Runtime        `json:"runtime"`
	Status          model.LayerStatus    `json:"status"`
	Packages        []model.PackageEntry `json:"packages"`
	ArchiveVerified bool                 `json:"archiveVerified"`
}

// NewVerifyCommand creates the "verify" cobra command. Verify re-runs the
// build's gating checks against whatever is currently on disk without
// rebuilding anything: every layer manifest requirement must have an
// installed entry in the staging site-packages, and when the archive
// exists its contents must match the staging directory byte for byte.
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the staged layer against the manifest and archive",
		Long: `Verify an existing layer build without rebuilding it.

Checks that every requirement in the layer manifest has a matching
installed entry in the staging site-packages directory, and that the
output archive (when present) matches the staging directory contents.

Exit codes distinguish the failure: 7 for a missing package, 6 for an
archive mismatch.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify()
		},
	}
}

func runVerify() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	status := cfg.Status()
	if status == model.StatusMissing {
		return model.NewCLIError(
			model.ExitVerifyError,
			fmt.Sprintf("nothing to verify: staging directory %s does not exist (run \"layerpack build\" first)", cfg.StagingDir),
		)
	}

	reqs, err := manifest.Parse(cfg.LayerRequirements)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid layer manifest", err)
	}

	logger.Info("Verifying installed packages", "staging", cfg.StagingDir)
	packages, err := staging.Verify(cfg.SitePackagesDir(), reqs)
	if err != nil {
		return err
	}

	archiveVerified := false
	if _, statErr := os.Stat(cfg.Output); statErr == nil {
		logger.Info("Comparing archive against staging directory", "archive", cfg.Output)
		if err := archive.Compare(cfg.Output, cfg.StagingDir); err != nil {
			return err
		}
		archiveVerified = true
	} else {
		logger.Debug("no archive present, skipping archive comparison", "path", cfg.Output)
	}

	printVerifyResult(&verifyResult{
		Name:            cfg.Name,
		Runtime:         cfg.Runtime,
		Status:          status,
		Packages:        packages,
		ArchiveVerified: archiveVerified,
	})
	return nil
}

// printVerifyResult outputs the verify result in text or JSON format.
func printVerifyResult(result *verifyResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Layer %q (%s) verified\n", result.Name, result.Runtime)
	fmt.Printf("  Status:   %s\n", result.Status)
	fmt.Printf("  Packages: %d present\n", len(result.Packages))
	if result.ArchiveVerified {
		fmt.Println("  Archive:  matches staging directory")
	} else {
		fmt.Println("  Archive:  not present (staging only)")
	}
}
