package rsync

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
)

// Executable is a resolved rsync binary.
type Executable struct {
	// Path is the binary to spawn.
	Path string
	// LibDir holds the bundled copy's shared libraries. Empty for a system rsync.
	LibDir string
	// Bundled is true when Path points into the bundle directory.
	Bundled bool
}

// Env returns base with LibDir prepended to the dynamic linker search path,
// keeping any value already present. A system rsync leaves base untouched.
func (e Executable) Env(base []string) []string {
	env := append([]string(nil), base...)
	if e.LibDir == "" {
		return env
	}

	key := LibraryPathVar()
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			existing := strings.TrimPrefix(kv, prefix)
			if existing == "" {
				env[i] = prefix + e.LibDir
			} else {
				env[i] = prefix + e.LibDir + string(os.PathListSeparator) + existing
			}
			return env
		}
	}
	return append(env, prefix+e.LibDir)
}

// LibraryPathVar is the environment variable the platform's dynamic linker
// consults for extra library directories.
func LibraryPathVar() string {
	if runtime.GOOS == "darwin" {
		return "DYLD_LIBRARY_PATH"
	}
	return "LD_LIBRARY_PATH"
}

// Locator finds the rsync binary: a bundled copy first, then one well-known
// system installation.
type Locator struct {
	BundleDir    string
	FallbackPath string

	stat func(string) (os.FileInfo, error)
}

// NewLocator creates a Locator. bundleDir contains "rsync" and "lib/".
func NewLocator(bundleDir, fallbackPath string) *Locator {
	return &Locator{
		BundleDir:    bundleDir,
		FallbackPath: fallbackPath,
		stat:         os.Stat,
	}
}

// Resolve returns the executable to run, or a NotFoundError wrapping
// errors.ErrExecutableNotFound that lists every location tried.
func (l *Locator) Resolve() (Executable, error) {
	var tried []string

	if l.BundleDir != "" {
		bundled := filepath.Join(l.BundleDir, "rsync")
		tried = append(tried, bundled)
		if l.isFile(bundled) {
			return Executable{
				Path:    bundled,
				LibDir:  filepath.Join(l.BundleDir, "lib"),
				Bundled: true,
			}, nil
		}
	}

	if l.FallbackPath != "" {
		tried = append(tried, l.FallbackPath)
		if l.isFile(l.FallbackPath) {
			return Executable{Path: l.FallbackPath}, nil
		}
	}

	return Executable{}, errors.NewNotFoundError("rsync", tried...).WithCause(errors.ErrExecutableNotFound)
}

func (l *Locator) isFile(path string) bool {
	stat := l.stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	return err == nil && !info.IsDir()
}
