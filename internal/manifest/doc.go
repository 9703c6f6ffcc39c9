// Package manifest parses pip requirements files (requirements.txt).
//
// The parser extracts the distribution name and version constraint from
// each requirement line and normalizes names per PEP 503, so that
// declared requirements can be matched against the directory entries
// pip creates in a --target install (package directories, single-module
// files, and *.dist-info metadata directories).
//
// Only the subset of the requirements format that matters for layer
// builds is handled: comments, blank lines, version specifiers, extras,
// and environment markers. Installer option lines (-r, -e, --index-url,
// ...) are skipped rather than followed; the build installs from the
// manifest file itself, so pip resolves those natively.
package manifest
