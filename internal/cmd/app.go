package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/rsyncsync/internal/config"
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/logging"
	"github.com/Iron-Ham/rsyncsync/internal/rsync"
	"github.com/Iron-Ham/rsyncsync/internal/rsync/runner"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	store  *settings.Store
	runner *runner.Runner
}

// newApp loads the configuration and wires the runner, settings store and
// event bus. Every event published on the bus is written to the debug log.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	locator := rsync.NewLocator(cfg.Rsync.ResolveBundleDir(exe), cfg.Rsync.FallbackPath)

	bus := event.NewBus(logger)
	bus.SubscribeAll(auditLog(logger.With("component", "audit")))

	return &app{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		store:  settings.NewStore(afero.NewOsFs(), cfg.Settings.ResolvePath(), logger),
		runner: runner.New(locator,
			runner.WithGracePeriod(cfg.Rsync.GracePeriod),
			runner.WithLogger(logger),
		),
	}, nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	dir := cfg.ResolveLogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return logging.NewLogger(logging.Options{
		Dir:   dir,
		Level: cfg.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		},
	})
}

func (a *app) close() {
	a.bus.Clear()
	_ = a.logger.Close()
}

// auditLog returns a bus handler that records each event. Progress and
// rsync output go to the debug level; stage changes and results to info.
func auditLog(logger *logging.Logger) event.Handler {
	return func(ev event.Event) {
		switch e := ev.(type) {
		case event.StageEvent:
			logger.Info("stage", "stage", e.Stage, "detail", e.Detail)
		case event.ProgressEvent:
			logger.Debug("progress", "stage", e.Stage, "percent", e.Percent, "speed", e.Speed, "eta", e.ETA)
		case event.LogEvent:
			logger.Debug("rsync output", "level", e.Level, "line", e.Line)
		case event.FinishedEvent:
			logger.Info("finished",
				"ok", e.OK,
				"exit_code", e.ExitCode,
				"stage", e.Stage,
				"dry_run", e.DryRun,
				"summary", e.Summary.String(),
			)
		}
	}
}
