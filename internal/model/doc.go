// Package model defines the domain types for the layerpack CLI.
//
// It contains the target runtime and artifact status enums, the build
// result aggregate, and the CLIError/ExitCode machinery that maps
// failures in individual build phases to distinct process exit codes.
//
// The types here perform no I/O: all filesystem and process interaction
// lives in the python, staging, archive, and docker packages, which
// return these types.
package model
