package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileLock serializes read-modify-write cycles on the settings document
// between processes, such as the TUI and "rsyncsync settings set".
type fileLock struct {
	path string
	file *os.File
}

// newFileLock returns the lock guarding the document at docPath. The lock
// file sits beside it as "<name>.lock".
func newFileLock(docPath string) *fileLock {
	return &fileLock{path: docPath + ".lock"}
}

// Lock blocks until the exclusive lock is held.
func (fl *fileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("lock settings: %w", err)
	}
	fl.file = f
	return nil
}

// Unlock releases the lock. It is a no-op when the lock is not held.
func (fl *fileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}
	f := fl.file
	fl.file = nil
	if err := unlockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("unlock settings: %w", err)
	}
	return f.Close()
}
