package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeName verifies PEP 503 normalization: lowercase with runs
// of ".", "-", and "_" collapsed to a single hyphen.
func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"requests", "requests"},
		{"Charset_Normalizer", "charset-normalizer"},
		{"zope.interface", "zope-interface"},
		{"some--odd__name", "some-odd-name"},
		{"PyYAML", "pyyaml"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

// TestParseBytes covers the requirement line formats that appear in real
// manifests: pins, ranges, extras, markers, comments, and option lines.
func TestParseBytes(t *testing.T) {
	input := `# tooling dependencies
requests==2.31.0
boto3>=1.34,<2   # AWS SDK
PyYAML
charset_normalizer~=3.4
requests[socks]>=2.28
urllib3; python_version < "3.10"

--index-url https://pypi.example.com/simple
-r common.txt
`

	reqs, err := ParseBytes([]byte(input))
	require.NoError(t, err)
	require.Len(t, reqs, 6)

	assert.Equal(t, "requests", reqs[0].Name)
	assert.Equal(t, "==2.31.0", reqs[0].Constraint)

	assert.Equal(t, "boto3", reqs[1].Name)
	assert.Equal(t, ">=1.34,<2", reqs[1].Constraint)

	assert.Equal(t, "PyYAML", reqs[2].Name)
	assert.Empty(t, reqs[2].Constraint)

	assert.Equal(t, "charset_normalizer", reqs[3].Name)
	assert.Equal(t, "~=3.4", reqs[3].Constraint)

	// Extras are stripped from the name but the constraint survives.
	assert.Equal(t, "requests", reqs[4].Name)
	assert.Equal(t, ">=2.28", reqs[4].Constraint)

	// Environment marker is dropped.
	assert.Equal(t, "urllib3", reqs[5].Name)
	assert.Empty(t, reqs[5].Constraint)
}

// TestParseBytes_Continuation verifies that backslash continuations are
// joined into a single logical requirement line.
func TestParseBytes_Continuation(t *testing.T) {
	input := "requests\\\n==2.31.0\n"

	reqs, err := ParseBytes([]byte(input))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "requests", reqs[0].Name)
	assert.Equal(t, "==2.31.0", reqs[0].Constraint)
}

// TestParseBytes_Empty verifies that a manifest of only comments and
// blank lines yields no requirements and no error.
func TestParseBytes_Empty(t *testing.T) {
	reqs, err := ParseBytes([]byte("# nothing here\n\n   \n"))
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

// TestParseBytes_Invalid verifies that a line that cannot possibly be a
// requirement is rejected with the line number in the error.
func TestParseBytes_Invalid(t *testing.T) {
	_, err := ParseBytes([]byte("===broken===\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

// TestParse reads a manifest from disk and reports missing files.
func TestParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("requests==2.31.0\n"), 0644))

	reqs, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "requests", reqs[0].Name)

	_, err = Parse(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

// TestRequirement_Matches covers the three entry kinds pip creates in a
// --target install, plus normalization across naming conventions.
func TestRequirement_Matches(t *testing.T) {
	tests := []struct {
		name    string
		req     string
		entry   string
		matches bool
	}{
		{"package dir", "requests", "requests", true},
		{"underscore dir", "charset-normalizer", "charset_normalizer", true},
		{"dist-info", "charset-normalizer", "charset_normalizer-3.4.0.dist-info", true},
		{"single module", "six", "six.py", true},
		{"case insensitive", "PyYAML", "pyyaml-6.0.2.dist-info", true},
		{"different package", "requests", "urllib3", false},
		{"dist-info other package", "requests", "urllib3-2.2.0.dist-info", false},
		{"bin dir", "requests", "bin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Requirement{Name: tt.req}
			assert.Equal(t, tt.matches, r.Matches(tt.entry))
		})
	}
}

// TestNames verifies extraction of declared names in manifest order.
func TestNames(t *testing.T) {
	reqs := []Requirement{{Name: "requests"}, {Name: "boto3"}}
	assert.Equal(t, []string{"requests", "boto3"}, Names(reqs))
}
