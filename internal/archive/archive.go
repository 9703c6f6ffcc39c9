package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Create compresses the full contents of srcDir into a zip archive at
// outPath, overwriting any existing file there. Entry names are the
// forward-slash relative paths under srcDir, so the archive extracts to
// the same tree the staging directory holds.
//
// On any failure the partially written archive is removed: if the output
// file exists after Create returns, it is complete.
func Create(srcDir, outPath string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("cannot archive %s: staging directory missing", srcDir),
			err,
		)
	}
	if !info.IsDir() {
		return model.NewCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("cannot archive %s: not a directory", srcDir),
		)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("failed to create output directory for %s", outPath),
			err,
		)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("failed to create archive %s", outPath),
			err,
		)
	}

	if err := writeZip(out, srcDir); err != nil {
		_ = out.Close()
		// Leave no partial archive behind; its existence would read as
		// success to anything checking for the output file.
		_ = os.Remove(outPath)
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("failed to write archive %s", outPath),
			err,
		)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(outPath)
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("failed to finalize archive %s", outPath),
			err,
		)
	}

	return nil
}

// writeZip streams every regular file under srcDir into the zip writer.
func writeZip(out io.Writer, srcDir string) error {
	zw := zip.NewWriter(out)

	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error walking %s: %w", path, walkErr)
		}

		// Directories are implied by their children's entry names, and
		// symlinks have no portable zip representation.
		if info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to build header for %s: %w", path, err)
		}
		header.Name = filepath.ToSlash(relPath)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", relPath, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("failed to compress %s: %w", relPath, err)
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return err
	}

	// Close flushes the central directory; an error here means the
	// archive is structurally incomplete.
	return zw.Close()
}

// Compare verifies that the archive's contents equal the full recursive
// contents of srcDir: same file set, same bytes. It returns a CLIError
// with ExitArchiveError describing every divergence: files missing from
// the archive, files present only in the archive, and content mismatches.
func Compare(archivePath, srcDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("failed to open archive %s", archivePath),
			err,
		)
	}
	defer func() { _ = zr.Close() }()

	// Index the archive's file entries. Directory entries (trailing
	// slash) carry no content and are skipped.
	archived := make(map[string]*zip.File)
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		archived[f.Name] = f
	}

	var problems []string
	seen := make(map[string]bool)

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relPath)
		seen[name] = true

		entry, ok := archived[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing from archive: %s", name))
			return nil
		}

		same, err := contentsEqual(entry, path)
		if err != nil {
			return err
		}
		if !same {
			problems = append(problems, fmt.Sprintf("content mismatch: %s", name))
		}
		return nil
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("failed to compare archive against %s", srcDir),
			err,
		)
	}

	for name := range archived {
		if !seen[name] {
			problems = append(problems, fmt.Sprintf("only in archive: %s", name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return model.NewCLIError(
			model.ExitArchiveError,
			fmt.Sprintf("archive %s does not match %s:\n  %s",
				archivePath, srcDir, strings.Join(problems, "\n  ")),
		)
	}

	return nil
}

// contentsEqual reports whether a zip entry's decompressed bytes equal
// the file on disk.
func contentsEqual(entry *zip.File, path string) (bool, error) {
	rc, err := entry.Open()
	if err != nil {
		return false, fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer func() { _ = rc.Close() }()

	want, err := io.ReadAll(rc)
	if err != nil {
		return false, fmt.Errorf("failed to read archive entry %s: %w", entry.Name, err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return bytes.Equal(want, got), nil
}
