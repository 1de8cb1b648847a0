// Package logging provides structured logging for rsyncsync.
//
// It wraps log/slog with a JSON handler and adds child loggers that carry
// run context, so every record written while a sync is in flight can be
// filtered by run ID afterwards.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Run and stream context via WithRun / WithStream
//   - Size-based rotation with optional gzip compression of backups
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(logging.Options{Dir: dir, Level: "info"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLog := logger.WithRun("3f2a...")
//	runLog.Info("rsync started", "exe", path)
//
// The TUI owns the terminal, so the default destination is a debug.log file
// in the config directory rather than stderr.
package logging
