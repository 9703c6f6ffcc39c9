package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/layerpack/internal/archive"
	"github.com/mmr-tortoise/layerpack/internal/config"
	"github.com/mmr-tortoise/layerpack/internal/docker"
	"github.com/mmr-tortoise/layerpack/internal/manifest"
	"github.com/mmr-tortoise/layerpack/internal/model"
	"github.com/mmr-tortoise/layerpack/internal/python"
	"github.com/mmr-tortoise/layerpack/internal/staging"
)

// buildFlags holds the flag values for the build command.
type buildFlags struct {
	skipVenv  bool   // --skip-venv: skip the tooling venv phase
	noArchive bool   // --no-archive: force the archive step off
	doArchive bool   // --archive: force the archive step on
	container bool   // --container: run the layer install in Docker
	image     string // --image: override the build image
}

// NewBuildCommand creates the "build" cobra command.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the layer staging directory and archive",
		Long: `Build the Lambda layer artifact from scratch.

The staging directory and virtual environment are destroyed and rebuilt
on every run, so the artifact contains exactly the current manifest's
packages plus the current application source tree.

Examples:
  layerpack build
  layerpack build --no-archive
  layerpack build --container
  layerpack build --skip-venv --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.noArchive && flags.doArchive {
				return model.NewCLIError(model.ExitGeneralError, "--archive and --no-archive are mutually exclusive")
			}
			return runBuild(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.skipVenv, "skip-venv", false, "Skip creating the tooling virtual environment")
	cmd.Flags().BoolVar(&flags.noArchive, "no-archive", false, "Stage the layer without producing the zip archive")
	cmd.Flags().BoolVar(&flags.doArchive, "archive", false, "Produce the zip archive even if the config disables it")
	cmd.Flags().BoolVar(&flags.container, "container", false, "Install layer dependencies inside a Docker build container")
	cmd.Flags().StringVar(&flags.image, "image", "", "Build image for --container (default: SAM build image for the runtime)")

	return cmd
}

// runBuild runs the full packaging pipeline in strict order, with every
// step's failure aborting the build:
//
//  1. Reset and recreate the virtual environment
//  2. Install the tooling manifest into it
//  3. Reset the staging directory to the runtime layer layout
//  4. Install the layer manifest into staging (host pip or container)
//  5. Copy the application package into staging
//  6. Verify every layer requirement produced an installed entry
//  7. Archive the staging tree and prove the archive matches it
func runBuild(ctx context.Context, flags *buildFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags override the config's archive and container settings.
	archiveEnabled := cfg.Archive
	if flags.noArchive {
		archiveEnabled = false
	}
	if flags.doArchive {
		archiveEnabled = true
	}
	containerized := cfg.Container.Enabled || flags.container
	buildImage := cfg.Container.Image
	if flags.image != "" {
		buildImage = flags.image
	}
	if containerized && buildImage == "" {
		buildImage = cfg.Runtime.BuildImage()
	}

	logger.Debug("resolved configuration",
		"name", cfg.Name,
		"runtime", cfg.Runtime,
		"staging", cfg.StagingDir,
		"archive", archiveEnabled,
		"containerized", containerized,
	)

	// The layer manifest drives both the install and the verification;
	// parse it up front so a broken manifest fails before any resets.
	reqs, err := manifest.Parse(cfg.LayerRequirements)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid layer manifest", err)
	}
	logger.Debug("parsed layer manifest", "path", cfg.LayerRequirements, "requirements", len(reqs))

	// The host interpreter is needed for venv creation and for host-mode
	// installs. Containerized builds with --skip-venv never touch it.
	var pyMgr *python.Manager
	if !flags.skipVenv || !containerized {
		pyMgr, err = python.NewManager(cfg.Python)
		if err != nil {
			return err
		}
		logger.Debug("using interpreter", "path", pyMgr.Interpreter())
	}

	// Phase 1-2: tooling virtual environment.
	installInterpreter := ""
	if flags.skipVenv {
		logger.Info("Skipping virtual environment (--skip-venv)")
	} else {
		logger.Info("Creating virtual environment", "path", cfg.VenvDir)
		if err := pyMgr.CreateVenv(ctx, cfg.VenvDir); err != nil {
			return err
		}
		installInterpreter = python.VenvPython(cfg.VenvDir)

		if _, statErr := os.Stat(cfg.Requirements); statErr == nil {
			logger.Info("Installing tooling dependencies", "manifest", cfg.Requirements)
			if err := pyMgr.Install(ctx, installInterpreter, cfg.Requirements); err != nil {
				return err
			}
		} else {
			// The tooling manifest ships local test/dev dependencies and
			// is not part of the artifact; its absence is not an error.
			logger.Warn("No tooling manifest found, skipping install", "path", cfg.Requirements)
		}
	}

	// Phase 3: staging directory reset.
	logger.Info("Resetting staging directory", "path", cfg.StagingDir)
	sitePackages, err := staging.Reset(cfg.StagingDir, cfg.Runtime)
	if err != nil {
		return err
	}

	// Phase 4: layer dependency install.
	if containerized {
		logger.Info("Installing layer dependencies in container", "image", buildImage)
		if err := runContainerInstall(ctx, cfg, buildImage, sitePackages); err != nil {
			return err
		}
	} else {
		if installInterpreter == "" {
			installInterpreter = pyMgr.Interpreter()
		}
		logger.Info("Installing layer dependencies", "manifest", cfg.LayerRequirements)
		if err := pyMgr.InstallTo(ctx, installInterpreter, cfg.LayerRequirements, sitePackages); err != nil {
			return err
		}
	}

	// Phase 5: application overlay.
	logger.Info("Copying application package", "source", cfg.SourceDir)
	if _, err := staging.CopyTree(cfg.SourceDir, sitePackages); err != nil {
		return err
	}

	// Phase 6: gating verification. Runs before archiving so a bad
	// install can never be shipped inside a structurally valid zip.
	logger.Info("Verifying installed packages")
	packages, err := staging.Verify(sitePackages, reqs)
	if err != nil {
		return err
	}
	for _, p := range packages {
		logger.Debug("verified", "package", p.Name, "entry", p.Entry)
	}

	// Phase 7: archive.
	archivePath := ""
	if archiveEnabled {
		logger.Info("Creating archive", "path", cfg.Output)
		if err := archive.Create(cfg.StagingDir, cfg.Output); err != nil {
			return err
		}
		if err := archive.Compare(cfg.Output, cfg.StagingDir); err != nil {
			return err
		}
		archivePath = cfg.Output
	} else {
		logger.Info("Archive step disabled, staging directory is the artifact")
	}

	result := &model.BuildResult{
		Name:          cfg.Name,
		Runtime:       cfg.Runtime,
		StagingDir:    cfg.StagingDir,
		ArchivePath:   archivePath,
		Packages:      packages,
		SourceDir:     cfg.SourceDir,
		Containerized: containerized,
		CreatedAt:     time.Now().UTC(),
	}

	printBuildResult(result)
	return nil
}

// runContainerInstall performs the layer install inside a one-shot
// Docker container.
func runContainerInstall(ctx context.Context, cfg *config.Config, image, sitePackages string) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	return docker.InstallLayer(ctx, cli, docker.InstallSpec{
		LayerName:    cfg.Name,
		Runtime:      cfg.Runtime,
		Image:        image,
		ManifestPath: cfg.LayerRequirements,
		TargetDir:    sitePackages,
	})
}

// printBuildResult outputs the build result in text or JSON format.
func printBuildResult(result *model.BuildResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Built layer %q (%s)\n", result.Name, result.Runtime)
	fmt.Printf("  Staging:  %s\n", result.StagingDir)
	if result.ArchivePath != "" {
		fmt.Printf("  Archive:  %s\n", result.ArchivePath)
	}
	fmt.Printf("  Source:   %s\n", result.SourceDir)

	if len(result.Packages) > 0 {
		fmt.Println()
		fmt.Printf("  Packages (%d):\n", len(result.Packages))
		for _, p := range result.Packages {
			fmt.Printf("    %-30s %s\n", p.Name, p.Entry)
		}
	}

	fmt.Println()
	fmt.Println("All build steps completed successfully.")
}
