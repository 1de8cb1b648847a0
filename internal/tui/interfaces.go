package tui

import (
	"context"

	"github.com/Iron-Ham/rsyncsync/internal/rsync"
	"github.com/Iron-Ham/rsyncsync/internal/rsync/runner"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
)

// SyncRunner is the part of *runner.Runner the TUI drives.
type SyncRunner interface {
	Start(ctx context.Context, opts rsync.Options, sink runner.Sink) error
	Stop(ctx context.Context) error
	Active() bool
}

// SettingsStore is the part of *settings.Store the TUI uses.
type SettingsStore interface {
	Get() settings.Settings
	Update(fn func(*settings.Settings)) (settings.Settings, error)
	Watch(ctx context.Context, fn func(settings.Settings)) error
}
