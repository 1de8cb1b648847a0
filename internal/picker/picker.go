// Package picker opens native file dialogs by shelling out to the platform's
// scripting tool: osascript on macOS and zenity on Linux. Other platforms get
// a Picker that reports errors.ErrUnsupported.
//
// A dialog the user dismisses is not an error: the methods return an empty
// path and a nil error.
package picker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
)

// Picker is the dialog capability the presentation layer calls directly.
type Picker interface {
	// SelectDirectory asks for a directory, starting at initial if set.
	SelectDirectory(ctx context.Context, initial string) (string, error)
	// SaveText asks for a destination file and writes content to it.
	SaveText(ctx context.Context, defaultName, content string) (string, error)
}

// runFunc runs a dialog command and returns its stdout, stderr and exit code.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr string, code int, err error)

// Dialog is a Picker backed by an external dialog program.
type Dialog struct {
	backend backend
	fs      afero.Fs
	home    string
	run     runFunc
}

// backend builds the command lines for one dialog program.
type backend interface {
	name() string
	selectDirectory(initial string) []string
	saveFile(dir, defaultName string) []string
	// canceled reports whether a failed invocation means the user dismissed
	// the dialog.
	canceled(code int, stderr string) bool
}

// New returns the Picker for the running platform. fs receives SaveText
// output.
func New(fs afero.Fs) Picker {
	var b backend
	switch runtime.GOOS {
	case "darwin":
		b = osascript{}
	case "linux":
		if _, err := exec.LookPath("zenity"); err == nil {
			b = zenity{}
		}
	}
	if b == nil {
		return Unsupported{}
	}
	return newDialog(b, fs, runCommand)
}

func newDialog(b backend, fs afero.Fs, run runFunc) *Dialog {
	home, _ := os.UserHomeDir()
	return &Dialog{backend: b, fs: fs, home: home, run: run}
}

// SelectDirectory implements Picker.
func (d *Dialog) SelectDirectory(ctx context.Context, initial string) (string, error) {
	return d.ask(ctx, d.backend.selectDirectory(initial))
}

// SaveText implements Picker. The dialog starts in the home directory.
func (d *Dialog) SaveText(ctx context.Context, defaultName, content string) (string, error) {
	path, err := d.ask(ctx, d.backend.saveFile(d.home, defaultName))
	if err != nil || path == "" {
		return "", err
	}
	if err := afero.WriteFile(d.fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (d *Dialog) ask(ctx context.Context, argv []string) (string, error) {
	stdout, stderr, code, err := d.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.backend.name(), err)
	}
	if code != 0 {
		if d.backend.canceled(code, stderr) {
			return "", nil
		}
		return "", fmt.Errorf("%s exited with status %d: %s", d.backend.name(), code, strings.TrimSpace(stderr))
	}

	path := strings.TrimSpace(stdout)
	if path == "" {
		return "", nil
	}
	return filepath.Clean(path), nil
}

// runCommand runs name and reports a non-zero exit through code rather than
// err, so callers can tell a dismissed dialog from a missing program.
func runCommand(ctx context.Context, name string, args ...string) (string, string, int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return "", "", -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}

// Unsupported is the Picker used where no dialog program is available.
type Unsupported struct{}

// SelectDirectory implements Picker.
func (Unsupported) SelectDirectory(context.Context, string) (string, error) {
	return "", errors.ErrUnsupported
}

// SaveText implements Picker.
func (Unsupported) SaveText(context.Context, string, string) (string, error) {
	return "", errors.ErrUnsupported
}
