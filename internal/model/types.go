package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Runtime identifies the target Lambda Python runtime for a layer build.
// The runtime determines the site-packages directory layout inside the
// staging directory, which Lambda requires to be versioned:
//
//	python/lib/<runtime>/site-packages
type Runtime string

const (
	RuntimePython39  Runtime = "python3.9"
	RuntimePython310 Runtime = "python3.10"
	RuntimePython311 Runtime = "python3.11"
	RuntimePython312 Runtime = "python3.12"
	RuntimePython313 Runtime = "python3.13"
)

// String returns the string representation of the runtime, e.g. "python3.12".
func (r Runtime) String() string {
	return string(r)
}

// IsValid checks whether the Runtime is one of the supported Lambda
// Python runtimes.
func (r Runtime) IsValid() bool {
	switch r {
	case RuntimePython39, RuntimePython310, RuntimePython311, RuntimePython312, RuntimePython313:
		return true
	default:
		return false
	}
}

// Version returns the bare interpreter version, e.g. "3.12" for python3.12.
func (r Runtime) Version() string {
	return strings.TrimPrefix(string(r), "python")
}

// SitePackagesDir returns the runtime-specific site-packages path relative
// to the staging directory root. This is the layout Lambda expects when it
// mounts a layer into the function's execution environment.
func (r Runtime) SitePackagesDir() string {
	return filepath.Join("python", "lib", string(r), "site-packages")
}

// BuildImage returns the default container image used for containerized
// dependency installs targeting this runtime. The SAM build images ship
// the matching interpreter and produce manylinux-compatible wheels.
func (r Runtime) BuildImage() string {
	return "public.ecr.aws/sam/build-" + string(r) + ":latest"
}

// ParseRuntime converts a string to a Runtime.
// Returns an error if the string does not match any supported runtime.
func ParseRuntime(s string) (Runtime, error) {
	r := Runtime(strings.ToLower(s))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid runtime: %q (valid: python3.9, python3.10, python3.11, python3.12, python3.13)", s)
	}
	return r, nil
}

// LayerStatus represents the observed state of the layer artifacts on disk.
// It is derived entirely from the filesystem each time it is needed; there
// is no persistent state file.
type LayerStatus string

const (
	// StatusMissing indicates no staging directory exists; the layer has
	// not been built (or has been cleaned).
	StatusMissing LayerStatus = "missing"

	// StatusStaged indicates the staging directory exists but no archive
	// has been produced for it.
	StatusStaged LayerStatus = "staged"

	// StatusArchived indicates both the staging directory and the output
	// archive exist.
	StatusArchived LayerStatus = "archived"
)

// String returns the string representation of LayerStatus.
func (s LayerStatus) String() string {
	return string(s)
}

// IsValid checks whether the LayerStatus value is one of the defined states.
func (s LayerStatus) IsValid() bool {
	switch s {
	case StatusMissing, StatusStaged, StatusArchived:
		return true
	default:
		return false
	}
}

// nameRegex validates layer names: alphanumeric + hyphens only,
// must start and end with alphanumeric.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is a valid layer name.
// Layer names end up in container names and archive metadata, so the
// character set is restricted to alphanumerics and hyphens.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("layer name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid layer name %q: must contain only alphanumeric characters and hyphens, and start/end with alphanumeric", name)
	}
	return nil
}

// PackageEntry describes a single installed dependency as observed in the
// staging directory after the layer install step. It pairs the manifest
// requirement with the top-level directory entry that satisfied it.
type PackageEntry struct {
	// Name is the requirement name as declared in the layer manifest.
	Name string `json:"name"`

	// Entry is the top-level site-packages entry that matched the
	// requirement (a package directory or a .dist-info directory).
	Entry string `json:"entry"`
}

// BuildResult is the aggregate outcome of a successful build. It is the
// value rendered by the build command in text or JSON form.
type BuildResult struct {
	// Name is the layer name from the build configuration.
	Name string `json:"name"`

	// Runtime is the target Lambda runtime.
	Runtime Runtime `json:"runtime"`

	// StagingDir is the absolute path of the packaging directory whose
	// contents form the deployable artifact.
	StagingDir string `json:"stagingDir"`

	// ArchivePath is the absolute path of the produced zip archive.
	// Empty when archiving was disabled for this build.
	ArchivePath string `json:"archivePath,omitempty"`

	// Packages lists the verified dependency installs, one per layer
	// manifest requirement.
	Packages []PackageEntry `json:"packages,omitempty"`

	// SourceDir is the application package directory that was copied
	// into the staging tree.
	SourceDir string `json:"sourceDir"`

	// Containerized reports whether the layer install ran inside a
	// Docker build container.
	Containerized bool `json:"containerized"`

	// CreatedAt is the timestamp when the build completed.
	CreatedAt time.Time `json:"createdAt"`
}

// ExitCode defines the process exit codes for the layerpack CLI.
// Each build phase failure maps to its own code so scripts and CI
// systems can distinguish what went wrong.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the build configuration could not be
	// found, parsed, or validated.
	ExitConfigError ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// (containerized install mode only).
	ExitDockerNotRunning ExitCode = 3

	// ExitPythonError indicates interpreter discovery or virtual
	// environment creation failed.
	ExitPythonError ExitCode = 4

	// ExitInstallError indicates a pip install step failed.
	ExitInstallError ExitCode = 5

	// ExitArchiveError indicates the output archive could not be
	// produced or does not match the staging directory contents.
	ExitArchiveError ExitCode = 6

	// ExitVerifyError indicates post-build verification found a layer
	// manifest requirement with no installed entry.
	ExitVerifyError ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate build phase failures into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
