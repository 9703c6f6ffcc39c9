package python

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirePython skips the test when no Python interpreter is available
// on PATH and returns a Manager bound to the discovered interpreter.
func requirePython(t *testing.T) *Manager {
	t.Helper()

	found := false
	for _, name := range candidateInterpreters {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no python interpreter on PATH")
	}

	m, err := NewManager("")
	require.NoError(t, err)
	return m
}

// TestNewManager_Discovery verifies PATH discovery picks an interpreter
// and records its resolved path.
func TestNewManager_Discovery(t *testing.T) {
	m := requirePython(t)
	assert.NotEmpty(t, m.Interpreter())
}

// TestNewManager_MissingInterpreter verifies the explicit-interpreter
// error path.
func TestNewManager_MissingInterpreter(t *testing.T) {
	_, err := NewManager("definitely-not-a-python-binary")
	assert.Error(t, err)
}

// TestVenvPython verifies the platform-specific interpreter path inside
// a virtual environment.
func TestVenvPython(t *testing.T) {
	got := VenvPython(filepath.Join("work", ".venv"))
	if runtime.GOOS == "windows" {
		assert.Equal(t, filepath.Join("work", ".venv", "Scripts", "python.exe"), got)
	} else {
		assert.Equal(t, filepath.Join("work", ".venv", "bin", "python"), got)
	}
}

// TestCreateVenv verifies that a fresh virtual environment is created and
// that recreating it wipes prior contents.
func TestCreateVenv(t *testing.T) {
	m := requirePython(t)
	venvDir := filepath.Join(t.TempDir(), ".venv")

	require.NoError(t, m.CreateVenv(context.Background(), venvDir))

	// The environment's own interpreter must exist.
	_, err := os.Stat(VenvPython(venvDir))
	require.NoError(t, err)

	// Plant a stray file inside the venv, then recreate. The reset must
	// remove it; stale state never survives a rebuild.
	stray := filepath.Join(venvDir, "stale-marker")
	require.NoError(t, os.WriteFile(stray, []byte("old"), 0644))

	require.NoError(t, m.CreateVenv(context.Background(), venvDir))

	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err), "stray file should be gone after venv recreation")
}

// TestRemoveVenv verifies removal is idempotent: removing a nonexistent
// venv is not an error.
func TestRemoveVenv(t *testing.T) {
	venvDir := filepath.Join(t.TempDir(), ".venv")
	assert.NoError(t, RemoveVenv(venvDir))

	require.NoError(t, os.MkdirAll(venvDir, 0755))
	assert.NoError(t, RemoveVenv(venvDir))

	_, err := os.Stat(venvDir)
	assert.True(t, os.IsNotExist(err))
}

// TestInstall_EmptyManifest verifies pip plumbing end to end without
// needing network access: installing from an empty requirements file
// succeeds and touches nothing.
func TestInstall_EmptyManifest(t *testing.T) {
	m := requirePython(t)
	dir := t.TempDir()

	venvDir := filepath.Join(dir, ".venv")
	require.NoError(t, m.CreateVenv(context.Background(), venvDir))

	manifestPath := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(manifestPath, []byte("# no deps\n"), 0644))

	assert.NoError(t, m.Install(context.Background(), VenvPython(venvDir), manifestPath))
}

// TestInstall_MissingManifest verifies that pip failures surface as
// errors instead of being silently absorbed.
func TestInstall_MissingManifest(t *testing.T) {
	m := requirePython(t)
	dir := t.TempDir()

	venvDir := filepath.Join(dir, ".venv")
	require.NoError(t, m.CreateVenv(context.Background(), venvDir))

	err := m.Install(context.Background(), VenvPython(venvDir), filepath.Join(dir, "no-such.txt"))
	assert.Error(t, err)
}

// TestVersion verifies the interpreter reports a version string.
func TestVersion(t *testing.T) {
	m := requirePython(t)

	version, err := m.Version(context.Background())
	require.NoError(t, err)
	assert.Contains(t, version, "Python")
}
