package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// configFileNames lists the supported config file names in lookup order.
// JSONC is preferred because it tolerates comments in the same file the
// plain-JSON tooling already understands.
var configFileNames = []string{
	"layerpack.jsonc",
	"layerpack.json",
	"layerpack.yaml",
	"layerpack.yml",
}

// Default values applied when the corresponding config field is absent.
// The source directory and runtime defaults match the packaged
// application this tool grew out of: a Python 3.12 Lambda whose handler
// package lives in ./action_lambda.
const (
	defaultRuntime           = model.RuntimePython312
	defaultRequirements      = "requirements.txt"
	defaultLayerRequirements = "requirements-layer.txt"
	defaultSourceDir         = "action_lambda"
	defaultVenvDir           = ".venv"
	defaultStagingDir        = "layer"
	defaultOutput            = "layer.zip"
)

// Container holds the containerized-install settings.
type Container struct {
	// Enabled switches the layer install step to run inside a Docker
	// build container instead of the host interpreter.
	Enabled bool

	// Image is the container image to use. Empty means the default SAM
	// build image for the configured runtime.
	Image string
}

// Config is the fully resolved build configuration. All path fields are
// absolute. Instances are produced by Load or Default, never constructed
// directly by callers.
type Config struct {
	// Name is the layer name, used in output and container labels.
	Name string

	// Runtime is the target Lambda Python runtime.
	Runtime model.Runtime

	// Requirements is the top-level tooling manifest installed into the
	// virtual environment. It is not part of the artifact.
	Requirements string

	// LayerRequirements is the packaging manifest whose packages are
	// installed into the staging directory and shipped in the layer.
	LayerRequirements string

	// SourceDir is the application package directory copied into the
	// staging directory alongside the installed dependencies.
	SourceDir string

	// VenvDir is the disposable virtual environment path.
	VenvDir string

	// StagingDir is the packaging directory whose contents become the
	// deployable archive.
	StagingDir string

	// Output is the zip archive path.
	Output string

	// Archive controls whether the archive step runs. The two historical
	// build script variants disagreed on this; it is an explicit option
	// rather than an assumption.
	Archive bool

	// Python optionally pins the interpreter used for venv creation.
	// Empty means discover python3/python on PATH.
	Python string

	// Container holds the containerized-install settings.
	Container Container

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string

	// Path is the config file the values came from. Empty when the
	// configuration is entirely defaults.
	Path string
}

// rawConfig mirrors the config file schema. It is separate from Config so
// that absent fields are distinguishable from zero values (notably the
// archive flag) and paths can be resolved in one place.
type rawConfig struct {
	Name              string       `json:"name" yaml:"name"`
	Runtime           string       `json:"runtime" yaml:"runtime"`
	Requirements      string       `json:"requirements" yaml:"requirements"`
	LayerRequirements string       `json:"layerRequirements" yaml:"layerRequirements"`
	SourceDir         string       `json:"sourceDir" yaml:"sourceDir"`
	VenvDir           string       `json:"venvDir" yaml:"venvDir"`
	StagingDir        string       `json:"stagingDir" yaml:"stagingDir"`
	Output            string       `json:"output" yaml:"output"`
	Archive           *bool        `json:"archive" yaml:"archive"`
	Python            string       `json:"python" yaml:"python"`
	Container         rawContainer `json:"container" yaml:"container"`
}

// rawContainer mirrors the "container" config section.
type rawContainer struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Image   string `json:"image" yaml:"image"`
}

// Find searches for a config file starting at startDir and walking up
// toward the filesystem root. It returns the first match, or a CLIError
// with ExitConfigError when no config file exists anywhere above startDir.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", model.WrapCLIError(model.ExitConfigError, "failed to resolve search directory", err)
	}

	for {
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without a match.
			return "", model.NewCLIError(
				model.ExitConfigError,
				fmt.Sprintf("no config file (%s) found in %s or any parent directory", strings.Join(configFileNames, ", "), startDir),
			)
		}
		dir = parent
	}
}

// Load reads, parses, and resolves the config file at the given path.
// The file format is chosen by extension: .yaml/.yml use the YAML parser,
// everything else is treated as JSONC.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("config file not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to read config file %s", path), err)
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to parse YAML config %s", path), err)
		}
	default:
		// Strip JSONC comments and trailing commas, then parse as plain
		// JSON. Unknown fields are silently ignored.
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to parse JSONC config %s", path), err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to resolve config file path", err)
	}

	return resolve(raw, filepath.Dir(abs), abs)
}

// Default returns the configuration produced by applying every default,
// resolved against baseDir. Used when no config file exists but the
// conventional layout (action_lambda/, requirements.txt) is present.
func Default(baseDir string) (*Config, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to resolve base directory", err)
	}
	return resolve(rawConfig{}, abs, "")
}

// resolve applies defaults, validates field values, and converts all
// relative paths into absolute ones anchored at baseDir.
func resolve(raw rawConfig, baseDir, path string) (*Config, error) {
	if raw.Runtime == "" {
		raw.Runtime = defaultRuntime.String()
	}
	runtime, err := model.ParseRuntime(raw.Runtime)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid config", err)
	}

	if raw.Requirements == "" {
		raw.Requirements = defaultRequirements
	}
	if raw.LayerRequirements == "" {
		raw.LayerRequirements = defaultLayerRequirements
	}
	if raw.SourceDir == "" {
		raw.SourceDir = defaultSourceDir
	}
	if raw.VenvDir == "" {
		raw.VenvDir = defaultVenvDir
	}
	if raw.StagingDir == "" {
		raw.StagingDir = defaultStagingDir
	}
	if raw.Output == "" {
		raw.Output = defaultOutput
	}

	// Default the layer name to the application package name. Package
	// directories conventionally use underscores, which the name rules
	// reject, so they are folded to hyphens.
	if raw.Name == "" {
		raw.Name = strings.ReplaceAll(filepath.Base(raw.SourceDir), "_", "-")
	}
	if err := model.ValidateName(raw.Name); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid config", err)
	}

	// The archive flag defaults to on; producing the layer zip is the
	// point of the tool, and omitting it must be a deliberate choice.
	archive := true
	if raw.Archive != nil {
		archive = *raw.Archive
	}

	image := raw.Container.Image
	if raw.Container.Enabled && image == "" {
		image = runtime.BuildImage()
	}

	return &Config{
		Name:              raw.Name,
		Runtime:           runtime,
		Requirements:      resolvePath(baseDir, raw.Requirements),
		LayerRequirements: resolvePath(baseDir, raw.LayerRequirements),
		SourceDir:         resolvePath(baseDir, raw.SourceDir),
		VenvDir:           resolvePath(baseDir, raw.VenvDir),
		StagingDir:        resolvePath(baseDir, raw.StagingDir),
		Output:            resolvePath(baseDir, raw.Output),
		Archive:           archive,
		Python:            raw.Python,
		Container: Container{
			Enabled: raw.Container.Enabled,
			Image:   image,
		},
		BaseDir: baseDir,
		Path:    path,
	}, nil
}

// resolvePath anchors a possibly relative path at baseDir.
func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

// SitePackagesDir returns the absolute site-packages directory inside the
// staging directory for the configured runtime. This is both the pip
// --target destination and the directory the application source is
// copied into.
func (c *Config) SitePackagesDir() string {
	return filepath.Join(c.StagingDir, c.Runtime.SitePackagesDir())
}

// Status derives the current artifact state from the filesystem.
func (c *Config) Status() model.LayerStatus {
	if _, err := os.Stat(c.StagingDir); err != nil {
		return model.StatusMissing
	}
	if _, err := os.Stat(c.Output); err != nil {
		return model.StatusStaged
	}
	return model.StatusArchived
}
