// Package python wraps the Python and pip CLIs for layer builds.
//
// It shells out to the interpreter (via os/exec) rather than using any
// binding, because virtual environment creation and dependency
// resolution are owned entirely by the python/pip toolchain. The Manager
// never "activates" an environment: every install addresses the venv's
// own interpreter by explicit path, so no ambient shell state is needed.
//
// All failures are wrapped in model.CLIError with ExitPythonError (for
// interpreter/venv problems) or ExitInstallError (for pip failures) so
// the CLI can exit with a distinct code per phase.
package python
