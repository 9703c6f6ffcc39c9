package model

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRuntime_String verifies that Runtime values produce the expected
// string representations used in config files and layer layouts.
func TestRuntime_String(t *testing.T) {
	tests := []struct {
		runtime  Runtime
		expected string
	}{
		{RuntimePython39, "python3.9"},
		{RuntimePython310, "python3.10"},
		{RuntimePython311, "python3.11"},
		{RuntimePython312, "python3.12"},
		{RuntimePython313, "python3.13"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.runtime.String())
		})
	}
}

// TestRuntime_IsValid checks that only supported runtimes pass validation.
func TestRuntime_IsValid(t *testing.T) {
	assert.True(t, RuntimePython312.IsValid())
	assert.True(t, RuntimePython39.IsValid())
	assert.False(t, Runtime("python2.7").IsValid())
	assert.False(t, Runtime("node18").IsValid())
	assert.False(t, Runtime("").IsValid())
}

// TestParseRuntime verifies string-to-runtime conversion, including case
// normalization and rejection of unknown values.
func TestParseRuntime(t *testing.T) {
	tests := []struct {
		input    string
		expected Runtime
		hasError bool
	}{
		{"python3.12", RuntimePython312, false},
		{"python3.9", RuntimePython39, false},
		{"Python3.11", RuntimePython311, false}, // case insensitive
		{"python2.7", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRuntime(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestRuntime_SitePackagesDir verifies the versioned layer layout that
// Lambda requires when mounting a layer.
func TestRuntime_SitePackagesDir(t *testing.T) {
	expected := filepath.Join("python", "lib", "python3.12", "site-packages")
	assert.Equal(t, expected, RuntimePython312.SitePackagesDir())
}

// TestRuntime_Version verifies extraction of the bare interpreter version.
func TestRuntime_Version(t *testing.T) {
	assert.Equal(t, "3.12", RuntimePython312.Version())
	assert.Equal(t, "3.9", RuntimePython39.Version())
}

// TestRuntime_BuildImage verifies the default containerized-install image.
func TestRuntime_BuildImage(t *testing.T) {
	assert.Equal(t, "public.ecr.aws/sam/build-python3.12:latest", RuntimePython312.BuildImage())
}

// TestLayerStatus_IsValid checks that only defined status values pass validation.
func TestLayerStatus_IsValid(t *testing.T) {
	assert.True(t, StatusMissing.IsValid())
	assert.True(t, StatusStaged.IsValid())
	assert.True(t, StatusArchived.IsValid())
	assert.False(t, LayerStatus("deployed").IsValid())
	assert.False(t, LayerStatus("").IsValid())
}

// TestValidateName verifies the layer name character set rules.
func TestValidateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hasError bool
	}{
		{"simple", "action-lambda", false},
		{"single char", "a", false},
		{"alphanumeric", "layer2", false},
		{"empty", "", true},
		{"leading hyphen", "-layer", true},
		{"trailing hyphen", "layer-", true},
		{"underscore", "action_lambda", true},
		{"slash", "action/lambda", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestCLIError_Error verifies message formatting with and without an
// underlying error.
func TestCLIError_Error(t *testing.T) {
	plain := NewCLIError(ExitArchiveError, "archive creation failed")
	assert.Equal(t, "archive creation failed", plain.Error())

	underlying := errors.New("disk full")
	wrapped := WrapCLIError(ExitArchiveError, "archive creation failed", underlying)
	assert.Equal(t, "archive creation failed: disk full", wrapped.Error())
}

// TestCLIError_Unwrap verifies errors.Is works through the wrapper.
func TestCLIError_Unwrap(t *testing.T) {
	underlying := errors.New("pip exited with status 1")
	wrapped := WrapCLIError(ExitInstallError, "layer install failed", underlying)

	assert.True(t, errors.Is(wrapped, underlying))
	assert.Equal(t, underlying, wrapped.Unwrap())

	var cliErr *CLIError
	require.True(t, errors.As(error(wrapped), &cliErr))
	assert.Equal(t, ExitInstallError, cliErr.Code)
}
