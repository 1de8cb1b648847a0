package tui

import (
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
)

// runEventMsg carries one event of the active run.
type runEventMsg struct {
	ev event.Event
}

// runDoneMsg is sent when Runner.Start returns.
type runDoneMsg struct {
	err error
}

// stopDoneMsg is sent when Runner.Stop returns.
type stopDoneMsg struct {
	err error
}

// pickedMsg is the result of a directory dialog.
type pickedMsg struct {
	field focusField
	path  string
	err   error
}

// savedMsg is the result of saving the log.
type savedMsg struct {
	path string
	err  error
}

// settingsChangedMsg reports an external edit of the settings file.
type settingsChangedMsg struct {
	settings settings.Settings
}
