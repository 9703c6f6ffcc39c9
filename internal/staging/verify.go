package staging

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mmr-tortoise/layerpack/internal/manifest"
	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Verify asserts that every requirement in the layer manifest produced a
// top-level entry in the site-packages directory. It returns one
// PackageEntry per requirement, pairing the declared name with the
// directory entry (package dir, module file, or dist-info) that
// satisfied it.
//
// This is a gating check: a missing entry returns a CLIError with
// ExitVerifyError naming every unsatisfied requirement, and the build
// must not report success past it.
func Verify(sitePackagesDir string, reqs []manifest.Requirement) ([]model.PackageEntry, error) {
	entries, err := os.ReadDir(sitePackagesDir)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitVerifyError,
			fmt.Sprintf("cannot verify installs: failed to read %s", sitePackagesDir),
			err,
		)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	var verified []model.PackageEntry
	var missing []string

	for _, req := range reqs {
		entry, found := matchEntry(req, names)
		if !found {
			missing = append(missing, req.Name)
			continue
		}
		verified = append(verified, model.PackageEntry{
			Name:  req.Name,
			Entry: entry,
		})
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, model.NewCLIError(
			model.ExitVerifyError,
			fmt.Sprintf("verification failed: no installed entry in %s for: %s",
				sitePackagesDir, strings.Join(missing, ", ")),
		)
	}

	return verified, nil
}

// matchEntry finds the site-packages entry satisfying a requirement.
// Non-metadata entries (the importable package or module) are preferred
// over dist-info directories so the reported entry is the one users
// recognize.
func matchEntry(req manifest.Requirement, entries []string) (string, bool) {
	distInfo := ""
	for _, name := range entries {
		if !req.Matches(name) {
			continue
		}
		if strings.HasSuffix(name, ".dist-info") {
			distInfo = name
			continue
		}
		return name, true
	}
	if distInfo != "" {
		return distInfo, true
	}
	return "", false
}
