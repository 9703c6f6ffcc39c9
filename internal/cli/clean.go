package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/layerpack/internal/docker"
	"github.com/mmr-tortoise/layerpack/internal/model"
	"github.com/mmr-tortoise/layerpack/internal/python"
	"github.com/mmr-tortoise/layerpack/internal/staging"
)

// cleanResult is the JSON shape of a clean run.
type cleanResult struct {
	Removed           []string `json:"removed"`
	ContainersRemoved int      `json:"containersRemoved"`
}

// NewCleanCommand creates the "clean" cobra command. Clean removes the
// build byproducts: the virtual environment, the staging directory, and
// the archive. With --containers it also removes leftover install
// containers from crashed containerized builds.
func NewCleanCommand() *cobra.Command {
	var cleanContainers bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the virtual environment, staging directory, and archive",
		Long: `Remove everything a build produces.

The virtual environment, the staging directory, and the output archive
are deleted. Source files and manifests are never touched. Paths that
do not exist are skipped silently; clean is safe to run repeatedly.

With --containers, leftover Docker install containers from interrupted
containerized builds are force-removed as well. These containers carry
layerpack-specific labels, so nothing else on the Docker host is
affected.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, cleanContainers)
		},
	}

	cmd.Flags().BoolVar(&cleanContainers, "containers", false, "Also remove leftover Docker install containers")

	return cmd
}

func runClean(cmd *cobra.Command, cleanContainers bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	removed := []string{}

	if _, statErr := os.Stat(cfg.VenvDir); statErr == nil {
		logger.Info("Removing virtual environment", "path", cfg.VenvDir)
		if err := python.RemoveVenv(cfg.VenvDir); err != nil {
			return err
		}
		removed = append(removed, cfg.VenvDir)
	}

	if _, statErr := os.Stat(cfg.StagingDir); statErr == nil {
		logger.Info("Removing staging directory", "path", cfg.StagingDir)
		if err := staging.Remove(cfg.StagingDir); err != nil {
			return err
		}
		removed = append(removed, cfg.StagingDir)
	}

	if _, statErr := os.Stat(cfg.Output); statErr == nil {
		logger.Info("Removing archive", "path", cfg.Output)
		if err := os.Remove(cfg.Output); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to remove archive %s", cfg.Output), err)
		}
		removed = append(removed, cfg.Output)
	}

	containersRemoved := 0
	if cleanContainers {
		containersRemoved, err = removeInstallContainers(cmd)
		if err != nil {
			return err
		}
	}

	printCleanResult(&cleanResult{
		Removed:           removed,
		ContainersRemoved: containersRemoved,
	})
	return nil
}

// removeInstallContainers connects to Docker and removes every leftover
// install container.
func removeInstallContainers(cmd *cobra.Command) (int, error) {
	ctx := cmd.Context()

	cli, err := docker.NewClient()
	if err != nil {
		return 0, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return 0, err
	}

	stale, err := docker.ListStaleInstallers(ctx, cli)
	if err != nil {
		return 0, err
	}
	for _, name := range stale {
		logger.Info("Removing leftover install container", "name", name)
	}

	return docker.RemoveStaleInstallers(ctx, cli)
}

// printCleanResult outputs the clean result in text or JSON format.
func printCleanResult(result *cleanResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(result.Removed) == 0 && result.ContainersRemoved == 0 {
		fmt.Println("Nothing to clean.")
		return
	}

	for _, path := range result.Removed {
		fmt.Printf("Removed %s\n", path)
	}
	if result.ContainersRemoved > 0 {
		fmt.Printf("Removed %d leftover install container(s)\n", result.ContainersRemoved)
	}
}
