// Package config loads and resolves the layerpack build configuration.
//
// The configuration replaces the ambient state a shell-based build would
// rely on (current directory, activated environment): every path the
// build touches is declared here and threaded explicitly into each step.
//
// Config files may be JSONC ("layerpack.jsonc" / "layerpack.json",
// comments stripped via github.com/tidwall/jsonc) or YAML
// ("layerpack.yaml" / "layerpack.yml", parsed with gopkg.in/yaml.v3).
// All relative paths in a config file resolve against the file's own
// directory, so builds behave identically regardless of where the CLI
// is invoked from.
package config
