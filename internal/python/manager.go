package python

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Manager provides virtual environment and pip operations by invoking
// the Python CLI. It holds only the host interpreter path; the venv to
// operate on is passed to each method, keeping the manager reusable
// across build configurations.
type Manager struct {
	// interpreter is the host Python executable used to create venvs.
	interpreter string
}

// candidateInterpreters lists the executable names probed on PATH when
// no interpreter is configured, in preference order. "python3" is the
// conventional name on Unix; plain "python" covers Windows installs and
// venv shims.
var candidateInterpreters = []string{"python3", "python"}

// NewManager creates a Manager for the given interpreter. An empty
// interpreter triggers PATH discovery. The chosen executable is verified
// to exist; actual runnability is proven by the first invocation.
func NewManager(interpreter string) (*Manager, error) {
	if interpreter != "" {
		resolved, err := exec.LookPath(interpreter)
		if err != nil {
			return nil, model.WrapCLIError(
				model.ExitPythonError,
				fmt.Sprintf("configured python interpreter %q not found", interpreter),
				err,
			)
		}
		return &Manager{interpreter: resolved}, nil
	}

	for _, name := range candidateInterpreters {
		if resolved, err := exec.LookPath(name); err == nil {
			return &Manager{interpreter: resolved}, nil
		}
	}

	return nil, model.NewCLIError(
		model.ExitPythonError,
		fmt.Sprintf("no python interpreter found on PATH (tried: %s)", strings.Join(candidateInterpreters, ", ")),
	)
}

// Interpreter returns the resolved host interpreter path.
func (m *Manager) Interpreter() string {
	return m.interpreter
}

// Version returns the interpreter's version string, e.g. "Python 3.12.4".
func (m *Manager) Version(ctx context.Context) (string, error) {
	out, err := runPython(ctx, m.interpreter, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateVenv creates a fresh virtual environment at venvDir. Any existing
// environment at that path is removed first, so no package state from a
// previous run can leak into the new one.
func (m *Manager) CreateVenv(ctx context.Context, venvDir string) error {
	if err := RemoveVenv(venvDir); err != nil {
		return err
	}

	if _, err := runPython(ctx, m.interpreter, "-m", "venv", venvDir); err != nil {
		return err
	}

	// venv creation can exit zero yet produce an unusable tree when the
	// host install is broken (e.g. Debian without python3-venv). Probe
	// for the environment's interpreter before declaring success.
	venvPython := VenvPython(venvDir)
	if _, err := os.Stat(venvPython); err != nil {
		return model.WrapCLIError(
			model.ExitPythonError,
			fmt.Sprintf("virtual environment at %s has no interpreter at %s", venvDir, venvPython),
			err,
		)
	}

	return nil
}

// RemoveVenv deletes the virtual environment directory if it exists.
func RemoveVenv(venvDir string) error {
	if err := os.RemoveAll(venvDir); err != nil {
		return model.WrapCLIError(
			model.ExitPythonError,
			fmt.Sprintf("failed to remove existing virtual environment %s", venvDir),
			err,
		)
	}
	return nil
}

// VenvPython returns the path of the interpreter inside a virtual
// environment. The layout differs by platform: POSIX venvs use bin/,
// Windows venvs use Scripts/ with an .exe suffix.
func VenvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// Install installs the packages declared in the manifest into the given
// interpreter's environment. Pass a venv interpreter (from VenvPython)
// to target that venv; there is no activation step.
func (m *Manager) Install(ctx context.Context, interpreter, manifestPath string) error {
	_, err := runPip(ctx, interpreter, "install", "-r", manifestPath)
	return err
}

// InstallTo installs the packages declared in the manifest into targetDir
// using pip's --target mode, bypassing the interpreter's own site
// directory. This is how layer dependencies land in the staging tree.
//
// --upgrade makes repeated installs into a reused target deterministic:
// whatever the manifest pins wins over any half-stale prior contents.
func (m *Manager) InstallTo(ctx context.Context, interpreter, manifestPath, targetDir string) error {
	_, err := runPip(ctx, interpreter, "install", "-r", manifestPath, "--target", targetDir, "--upgrade")
	return err
}

// runPip executes "python -m pip <args>" with the given interpreter and
// wraps failures with the install exit code. Invoking pip through -m
// avoids depending on a pip shim being on PATH for the venv.
func runPip(ctx context.Context, interpreter string, args ...string) (string, error) {
	fullArgs := append([]string{"-m", "pip"}, args...)

	out, err := run(ctx, interpreter, fullArgs)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitInstallError,
			fmt.Sprintf("pip %s failed%s", strings.Join(args, " "), errDetail(out)),
			err,
		)
	}
	return out, nil
}

// runPython executes the interpreter with the given arguments and wraps
// failures with the python exit code.
func runPython(ctx context.Context, interpreter string, args ...string) (string, error) {
	out, err := run(ctx, interpreter, args)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitPythonError,
			fmt.Sprintf("python %s failed%s", strings.Join(args, " "), errDetail(out)),
			err,
		)
	}
	return out, nil
}

// run executes the interpreter as a child process, returning combined
// stdout+stderr. The combined stream is what gets embedded in error
// messages; pip writes resolution errors to both.
func run(ctx context.Context, interpreter string, args []string) (string, error) {
	// #nosec G204: interpreter and args are constructed internally
	cmd := exec.CommandContext(ctx, interpreter, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// errDetail formats captured tool output for inclusion in an error
// message, keeping only the tail where pip puts the actual failure.
func errDetail(out string) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	lines := strings.Split(out, "\n")
	const keep = 10
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return ": " + strings.Join(lines, "\n")
}
