package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/layerpack/internal/config"
	"github.com/mmr-tortoise/layerpack/internal/model"
)

// inspectResult is the JSON shape of an inspect run: the fully resolved
// configuration plus the artifact state derived from the filesystem.
type inspectResult struct {
	Name              string            `json:"name"`
	Runtime           model.Runtime     `json:"runtime"`
	Status            model.LayerStatus `json:"status"`
	ConfigPath        string            `json:"configPath,omitempty"`
	Requirements      string            `json:"requirements"`
	LayerRequirements string            `json:"layerRequirements"`
	SourceDir         string            `json:"sourceDir"`
	VenvDir           string            `json:"venvDir"`
	StagingDir        string            `json:"stagingDir"`
	SitePackagesDir   string            `json:"sitePackagesDir"`
	Output            string            `json:"output"`
	Archive           bool              `json:"archive"`
	Container         bool              `json:"container"`
	ContainerImage    string            `json:"containerImage,omitempty"`
}

// NewInspectCommand creates the "inspect" cobra command. Inspect shows
// the fully resolved configuration (defaults applied, paths made
// absolute) and the current artifact state, without modifying anything.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the resolved configuration and artifact state",
		Long: `Show the configuration a build would run with.

All defaults are applied and all paths are resolved to absolute form,
so the output is exactly what "layerpack build" would use. The status
field reports what currently exists on disk: missing, staged, or
archived.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect()
		},
	}
}

func runInspect() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printInspectResult(cfg)
	return nil
}

// printInspectResult outputs the resolved configuration in text or JSON
// format.
func printInspectResult(cfg *config.Config) {
	if IsJSONOutput() {
		result := &inspectResult{
			Name:              cfg.Name,
			Runtime:           cfg.Runtime,
			Status:            cfg.Status(),
			ConfigPath:        cfg.Path,
			Requirements:      cfg.Requirements,
			LayerRequirements: cfg.LayerRequirements,
			SourceDir:         cfg.SourceDir,
			VenvDir:           cfg.VenvDir,
			StagingDir:        cfg.StagingDir,
			SitePackagesDir:   cfg.SitePackagesDir(),
			Output:            cfg.Output,
			Archive:           cfg.Archive,
			Container:         cfg.Container.Enabled,
			ContainerImage:    cfg.Container.Image,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Layer %q (%s)\n", cfg.Name, cfg.Runtime)
	fmt.Printf("  Status:             %s\n", cfg.Status())
	if cfg.Path != "" {
		fmt.Printf("  Config:             %s\n", cfg.Path)
	} else {
		fmt.Println("  Config:             (defaults, no config file)")
	}
	fmt.Printf("  Tooling manifest:   %s\n", cfg.Requirements)
	fmt.Printf("  Layer manifest:     %s\n", cfg.LayerRequirements)
	fmt.Printf("  Source:             %s\n", cfg.SourceDir)
	fmt.Printf("  Virtualenv:         %s\n", cfg.VenvDir)
	fmt.Printf("  Staging:            %s\n", cfg.StagingDir)
	fmt.Printf("  Site-packages:      %s\n", cfg.SitePackagesDir())
	fmt.Printf("  Archive:            %s", cfg.Output)
	if !cfg.Archive {
		fmt.Print(" (disabled)")
	}
	fmt.Println()
	if cfg.Container.Enabled {
		fmt.Printf("  Build container:    %s\n", cfg.Container.Image)
	}
}
