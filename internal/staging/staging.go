package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Reset deletes the staging directory and recreates the runtime-specific
// site-packages layout inside it. It returns the absolute site-packages
// path, which is the destination for both the layer dependency install
// and the application source copy.
//
// The removal is unconditional: any manual edits inside the staging
// directory are lost. The staging tree is owned exclusively by the build.
func Reset(stagingDir string, runtime model.Runtime) (string, error) {
	if err := os.RemoveAll(stagingDir); err != nil {
		return "", model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to remove staging directory %s", stagingDir),
			err,
		)
	}

	sitePackages := filepath.Join(stagingDir, runtime.SitePackagesDir())
	if err := os.MkdirAll(sitePackages, 0755); err != nil {
		return "", model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to create staging layout %s", sitePackages),
			err,
		)
	}

	return sitePackages, nil
}

// Remove deletes the staging directory if it exists.
func Remove(stagingDir string) error {
	if err := os.RemoveAll(stagingDir); err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to remove staging directory %s", stagingDir),
			err,
		)
	}
	return nil
}

// CopyTree recursively copies the application source directory into
// dstDir, preserving relative paths, file contents, and file modes.
// The destination is <dstDir>/<basename of srcDir>, so the application
// package sits alongside the installed dependencies exactly as it would
// import on the target runtime.
//
// Symbolic links are skipped: a layer archive cannot represent them
// portably, and an app package should not contain any.
func CopyTree(srcDir, dstDir string) (string, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("application source directory not found: %s", srcDir),
			err,
		)
	}
	if !info.IsDir() {
		return "", model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("application source path is not a directory: %s", srcDir),
		)
	}

	dstRoot := filepath.Join(dstDir, filepath.Base(srcDir))

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error walking source directory at %s: %w", path, walkErr)
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		dstPath := filepath.Join(dstRoot, relPath)

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if info.IsDir() {
			if err := os.MkdirAll(dstPath, info.Mode()); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			return nil
		}

		return copyFile(path, dstPath, info.Mode())
	})
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to copy application source %s into staging", srcDir),
			err,
		)
	}

	return dstRoot, nil
}

// copyFile copies a single file from src to dst, preserving the file
// mode. Contents are streamed with io.Copy rather than read into memory,
// which matters for bundled data files.
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}
