package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "rsync.grace_period")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// maxGracePeriod bounds how long Stop may wait before escalating.
const maxGracePeriod = time.Minute

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateRsync()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)
	return errors
}

func (c *Config) validateRsync() []ValidationError {
	var errors []ValidationError

	if c.Rsync.GracePeriod <= 0 || c.Rsync.GracePeriod > maxGracePeriod {
		errors = append(errors, ValidationError{
			Field:   "rsync.grace_period",
			Value:   c.Rsync.GracePeriod,
			Message: fmt.Sprintf("must be between 1ms and %s", maxGracePeriod),
		})
	}
	if c.Rsync.FallbackPath != "" && !strings.HasPrefix(c.Rsync.FallbackPath, "/") {
		errors = append(errors, ValidationError{
			Field:   "rsync.fallback_path",
			Value:   c.Rsync.FallbackPath,
			Message: "must be an absolute path",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	if c.TUI.MaxLogLines < 100 || c.TUI.MaxLogLines > 100000 {
		return []ValidationError{{
			Field:   "tui.max_log_lines",
			Value:   c.TUI.MaxLogLines,
			Message: "must be between 100 and 100000",
		}}
	}
	return nil
}
