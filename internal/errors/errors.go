// Package errors provides the error definitions shared across rsyncsync.
//
// It mirrors the standard library surface (Is, As, New, Join) so callers only
// need one import, and adds sentinel errors, typed errors that carry run
// context, and classification helpers used by the CLI and TUI to decide what
// to show the user.
//
// # Error Taxonomy
//
//   - Configuration errors (invalid options, executable not found) surface
//     synchronously from Runner.Start before anything is spawned.
//   - Concurrent-start errors (ErrRunActive) reject a second Start while a
//     run is in flight; the active run is unaffected.
//   - Run errors describe a run that started but could not be driven to a
//     normal exit (pipe setup, spawn failure).
//
// A non-zero exit of rsync is NOT an error value: it is reported through the
// terminal finished event with stage "error" or "canceled".
//
// # Usage
//
//	if errors.Is(err, errors.ErrRunActive) { ... }
//
//	var runErr *errors.RunError
//	if errors.As(err, &runErr) {
//	    log.Error("run failed", "op", runErr.Op, "run_id", runErr.RunID)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Run-related sentinel errors
var (
	// ErrRunActive indicates that Start was called while another run is in flight.
	ErrRunActive = New("sync run already active")
	// ErrNotRunning indicates that an operation needs an active run but none exists.
	ErrNotRunning = New("no sync run active")
	// ErrExecutableNotFound indicates that neither the bundled nor the system rsync exists.
	ErrExecutableNotFound = New("rsync executable not found")
	// ErrSpawnFailed indicates that the rsync process could not be started.
	ErrSpawnFailed = New("failed to start rsync")
)

// General sentinel errors
var (
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrUnsupported indicates that a capability is not available on this platform.
	ErrUnsupported = New("not supported on this platform")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// ClassifiedError is implemented by every typed error in this package.
type ClassifiedError interface {
	error
	Unwrap() error
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error      { return e.cause }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RunError describes a failure while setting up or driving one rsync run.
//
// Example:
//
//	err := errors.NewRunError("spawn", errors.ErrSpawnFailed).WithRunID(id).WithExecutable(path)
//	fmt.Println(err) // "run error [run=..., exe=/opt/homebrew/bin/rsync]: spawn: failed to start rsync"
type RunError struct {
	baseError
	Op         string
	RunID      string
	Executable string
}

// NewRunError creates a RunError for the given operation.
func NewRunError(op string, cause error) *RunError {
	return &RunError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true, // the user may simply start again
			userFacing: true,
		},
		Op: op,
	}
}

// WithRunID adds the run ID to the error context.
func (e *RunError) WithRunID(id string) *RunError {
	e.RunID = id
	return e
}

// WithExecutable adds the resolved executable path to the error context.
func (e *RunError) WithExecutable(path string) *RunError {
	e.Executable = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *RunError) WithRetryable(r bool) *RunError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *RunError) Error() string {
	var parts []string
	if e.RunID != "" {
		parts = append(parts, fmt.Sprintf("run=%s", e.RunID))
	}
	if e.Executable != "" {
		parts = append(parts, fmt.Sprintf("exe=%s", e.Executable))
	}

	prefix := "run error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("run error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *RunError) Is(target error) bool {
	if _, ok := target.(*RunError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// NotFoundError reports a missing resource, such as the rsync executable.
type NotFoundError struct {
	baseError
	ResourceType string
	Candidates   []string
}

// NewNotFoundError creates a NotFoundError listing every location that was tried.
func NewNotFoundError(resourceType string, candidates ...string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    resourceType + " not found",
			severity:   SeverityError,
			userFacing: true,
		},
		ResourceType: resourceType,
		Candidates:   candidates,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	msg := e.message
	if len(e.Candidates) > 0 {
		msg = fmt.Sprintf("%s (tried: %s)", msg, strings.Join(e.Candidates, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// ValidationError represents invalid input such as an empty source path.
//
// Example:
//
//	err := errors.NewValidationError("source path is required").WithField("source")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return errors.Is(target, ErrInvalidInput)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if starting the operation again may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var classified ClassifiedError
	if As(err, &classified) {
		return classified.IsRetryable()
	}
	return Is(err, ErrRunActive)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var classified ClassifiedError
	if As(err, &classified) {
		return classified.IsUserFacing()
	}
	return Is(err, ErrRunActive) || Is(err, ErrUnsupported)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that are not classified.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var classified ClassifiedError
	if As(err, &classified) {
		return classified.Severity()
	}
	return SeverityError
}

// IsConfigurationError reports whether err was raised before any process was
// spawned because the run could not be configured.
func IsConfigurationError(err error) bool {
	var validation *ValidationError
	var notFound *NotFoundError
	return As(err, &validation) || As(err, &notFound) || Is(err, ErrExecutableNotFound)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
