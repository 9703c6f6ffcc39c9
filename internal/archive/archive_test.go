package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// buildStagingTree creates a small staging-like directory with nested
// files and returns its path.
func buildStagingTree(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "layer")

	files := map[string]string{
		"python/lib/python3.12/site-packages/requests/__init__.py": "import urllib3\n",
		"python/lib/python3.12/site-packages/six.py":               "# six\n",
		"python/lib/python3.12/site-packages/action_lambda/lambda_function.py": "def handler(event, context):\n    pass\n",
	}
	for rel, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return dir
}

// TestCreateAndCompare verifies the archive completeness property: the
// produced archive compares clean against the directory it was made from.
func TestCreateAndCompare(t *testing.T) {
	srcDir := buildStagingTree(t)
	outPath := filepath.Join(t.TempDir(), "layer.zip")

	require.NoError(t, Create(srcDir, outPath))
	assert.NoError(t, Compare(outPath, srcDir))

	// Entry names must be forward-slash relative paths.
	zr, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["python/lib/python3.12/site-packages/six.py"])
	assert.True(t, names["python/lib/python3.12/site-packages/action_lambda/lambda_function.py"])
}

// TestCreate_Overwrites verifies that an existing archive at the output
// path is replaced, not appended to.
func TestCreate_Overwrites(t *testing.T) {
	srcDir := buildStagingTree(t)
	outPath := filepath.Join(t.TempDir(), "layer.zip")

	require.NoError(t, os.WriteFile(outPath, []byte("not a zip"), 0644))

	require.NoError(t, Create(srcDir, outPath))
	assert.NoError(t, Compare(outPath, srcDir))
}

// TestCreate_MissingSource verifies the failure visibility property:
// archiving a deleted staging directory returns an explicit error and
// produces no output file.
func TestCreate_MissingSource(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "layer.zip")

	err := Create(filepath.Join(t.TempDir(), "gone"), outPath)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitArchiveError, cliErr.Code)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "no archive may exist after a failed create")
}

// TestCompare_FileAddedAfterArchiving verifies that a file created in the
// staging tree after compression is reported as missing from the archive.
func TestCompare_FileAddedAfterArchiving(t *testing.T) {
	srcDir := buildStagingTree(t)
	outPath := filepath.Join(t.TempDir(), "layer.zip")
	require.NoError(t, Create(srcDir, outPath))

	late := filepath.Join(srcDir, "python", "late.py")
	require.NoError(t, os.WriteFile(late, []byte("late"), 0644))

	err := Compare(outPath, srcDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing from archive: python/late.py")
}

// TestCompare_FileRemovedAfterArchiving verifies that a file deleted from
// the staging tree after compression is reported as archive-only.
func TestCompare_FileRemovedAfterArchiving(t *testing.T) {
	srcDir := buildStagingTree(t)
	outPath := filepath.Join(t.TempDir(), "layer.zip")
	require.NoError(t, Create(srcDir, outPath))

	removed := filepath.Join(srcDir, "python", "lib", "python3.12", "site-packages", "six.py")
	require.NoError(t, os.Remove(removed))

	err := Compare(outPath, srcDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only in archive: python/lib/python3.12/site-packages/six.py")
}

// TestCompare_ContentMismatch verifies byte-level comparison, not just
// file-name comparison.
func TestCompare_ContentMismatch(t *testing.T) {
	srcDir := buildStagingTree(t)
	outPath := filepath.Join(t.TempDir(), "layer.zip")
	require.NoError(t, Create(srcDir, outPath))

	changed := filepath.Join(srcDir, "python", "lib", "python3.12", "site-packages", "six.py")
	require.NoError(t, os.WriteFile(changed, []byte("# edited after archiving\n"), 0644))

	err := Compare(outPath, srcDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content mismatch: python/lib/python3.12/site-packages/six.py")
}

// TestCompare_NotAZip verifies the error path for a corrupt archive.
func TestCompare_NotAZip(t *testing.T) {
	srcDir := buildStagingTree(t)
	outPath := filepath.Join(t.TempDir(), "layer.zip")
	require.NoError(t, os.WriteFile(outPath, []byte("garbage"), 0644))

	err := Compare(outPath, srcDir)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitArchiveError, cliErr.Code)
}
