// Package tui is the interactive terminal front end: a form for the source,
// destination and options, live progress of the active run, and a log drawer.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	opts    Options
}

// New creates a new TUI application
func New(opts Options) *App {
	return &App{opts: opts}
}

// Run starts the TUI and blocks until the user quits. An active run is
// stopped on the way out.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.opts.Context = ctx
	a.model = NewModel(a.opts)
	a.program = tea.NewProgram(a.model, tea.WithAltScreen(), tea.WithContext(ctx))

	if err := a.opts.Store.Watch(ctx, func(s settings.Settings) {
		a.program.Send(settingsChangedMsg{settings: s})
	}); err != nil {
		a.model.logger.Warn("settings watch unavailable", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case <-sigChan:
			a.program.Send(tea.Quit())
		case <-ctx.Done():
		}
	}()

	_, err := a.program.Run()
	signal.Stop(sigChan)

	// Unblocks event forwarding and stops a run started with ctx.
	cancel()
	if a.opts.Runner.Active() {
		if stopErr := a.opts.Runner.Stop(context.Background()); stopErr != nil {
			a.model.logger.Warn("failed to stop rsync on exit", "error", stopErr)
		}
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
