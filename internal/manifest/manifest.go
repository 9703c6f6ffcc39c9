package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Requirement is a single dependency declaration from a requirements file.
type Requirement struct {
	// Name is the distribution name exactly as written in the manifest
	// (e.g. "charset-normalizer", "PyYAML").
	Name string

	// Constraint is the version specifier that followed the name, if any
	// (e.g. "==2.31.0", ">=1.26,<2"). Empty for unpinned requirements.
	Constraint string

	// Raw is the original manifest line with comments stripped.
	Raw string
}

// nameRegex matches a PEP 508 distribution name at the start of a
// requirement line: it must begin and end with an alphanumeric character
// and may contain dots, hyphens, and underscores in between.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?`)

// normalizeRegex collapses runs of the characters PEP 503 treats as
// equivalent separators (".", "-", "_") into a single hyphen.
var normalizeRegex = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the PEP 503 normalized form of a distribution
// name: lowercase, with runs of ".", "-", and "_" collapsed to "-".
// Normalized names are what pip itself uses for equality, so both
// "Charset_Normalizer" and "charset-normalizer" normalize identically.
func NormalizeName(name string) string {
	return strings.ToLower(normalizeRegex.ReplaceAllString(name, "-"))
}

// Parse reads and parses a requirements file at the given path.
func Parse(path string) ([]Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements file %s: %w", path, err)
	}
	reqs, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse requirements file %s: %w", path, err)
	}
	return reqs, nil
}

// ParseBytes parses requirements file contents.
//
// Handled per line:
//   - blank lines and full-line comments are skipped
//   - trailing comments (" #...") are stripped
//   - installer options (lines starting with "-") are skipped
//   - environment markers ("; python_version < ...") are stripped
//   - extras ("requests[socks]") are stripped from the name
//   - the version specifier after the name becomes the Constraint
//
// Line continuations (trailing backslash) are joined before parsing.
func ParseBytes(data []byte) ([]Requirement, error) {
	var reqs []Requirement

	for lineNo, line := range splitLogicalLines(string(data)) {
		line = stripComment(line)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Installer options like "-r other.txt" or "--index-url ..." are
		// pip's concern, not the verifier's. They declare no package name.
		if strings.HasPrefix(line, "-") {
			continue
		}

		// Drop the environment marker; the name and constraint precede it.
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		name := nameRegex.FindString(line)
		if name == "" {
			return nil, fmt.Errorf("line %d: cannot parse requirement %q", lineNo+1, line)
		}

		rest := strings.TrimSpace(line[len(name):])

		// Strip extras: "requests[socks]>=2" → constraint starts after "]".
		if strings.HasPrefix(rest, "[") {
			end := strings.Index(rest, "]")
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated extras in %q", lineNo+1, line)
			}
			rest = strings.TrimSpace(rest[end+1:])
		}

		reqs = append(reqs, Requirement{
			Name:       name,
			Constraint: rest,
			Raw:        line,
		})
	}

	return reqs, nil
}

// Matches reports whether a top-level site-packages entry satisfies this
// requirement. pip's --target installs produce three kinds of entries per
// distribution:
//
//	requests/                        package directory
//	six.py                           single-module distribution
//	charset_normalizer-3.4.0.dist-info/  metadata directory
//
// Import names commonly use underscores where distribution names use
// hyphens, so comparison happens on PEP 503 normalized forms.
func (r Requirement) Matches(entry string) bool {
	want := NormalizeName(r.Name)

	// Metadata directory: "<name>-<version>.dist-info". The name part is
	// everything before the last "-" preceding the version.
	if strings.HasSuffix(entry, ".dist-info") {
		base := strings.TrimSuffix(entry, ".dist-info")
		if idx := strings.LastIndex(base, "-"); idx > 0 {
			return NormalizeName(base[:idx]) == want
		}
		return false
	}

	// Single-module distribution: "six.py" for distribution "six".
	if strings.HasSuffix(entry, ".py") {
		return NormalizeName(strings.TrimSuffix(entry, ".py")) == want
	}

	return NormalizeName(entry) == want
}

// Names returns the declared names of the given requirements, in order.
func Names(reqs []Requirement) []string {
	names := make([]string, 0, len(reqs))
	for _, r := range reqs {
		names = append(names, r.Name)
	}
	return names
}

// stripComment removes a trailing comment from a requirement line.
// A "#" starts a comment when it is the first character or is preceded
// by whitespace; a "#" embedded in a URL fragment is left alone.
func stripComment(line string) string {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return ""
	}
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i]
		}
	}
	return line
}

// splitLogicalLines splits file contents into lines, joining physical
// lines that end with a backslash continuation.
func splitLogicalLines(s string) []string {
	physical := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	var logical []string
	pending := ""
	for _, line := range physical {
		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\")
			continue
		}
		logical = append(logical, pending+line)
		pending = ""
	}
	if pending != "" {
		logical = append(logical, pending)
	}
	return logical
}
