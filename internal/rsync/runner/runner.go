// Package runner supervises one rsync process at a time and streams its
// progress to a caller-supplied sink.
//
// A Runner owns the single-active-run guarantee: Start fails with
// errors.ErrRunActive while a run is in flight and leaves that run alone.
// Output from stdout and stderr is reassembled into lines by one pump per
// stream, merged into a single channel, and classified by a stage.Machine
// on the goroutine that called Start, so the sink is never called
// concurrently. Order is preserved within each stream; lines from the two
// streams interleave as they arrive.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/logging"
	"github.com/Iron-Ham/rsyncsync/internal/rsync"
	"github.com/Iron-Ham/rsyncsync/internal/rsync/lines"
	"github.com/Iron-Ham/rsyncsync/internal/rsync/stage"
)

// DefaultGracePeriod is how long Stop waits after SIGTERM before SIGKILL.
const DefaultGracePeriod = 1500 * time.Millisecond

// Sink receives the events of a run in order. It is called from the
// goroutine running Start and must not block for long.
type Sink func(event.Event)

// Resolver locates the rsync executable. *rsync.Locator implements it.
type Resolver interface {
	Resolve() (rsync.Executable, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithGracePeriod sets how long Stop waits before force-killing rsync.
// Non-positive values are ignored.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithLogger sets the logger for run lifecycle records.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner drives rsync. Construct one per application with New and share it
// by reference; the zero value is not usable.
type Runner struct {
	resolver Resolver
	grace    time.Duration
	logger   *logging.Logger
	machine  *stage.Machine

	mu     sync.Mutex
	active bool
	cmd    *exec.Cmd
	done   chan struct{} // closed once the process has been reaped
	runID  string
}

// New creates a Runner that finds rsync through resolver.
func New(resolver Resolver, opts ...Option) *Runner {
	r := &Runner{
		resolver: resolver,
		grace:    DefaultGracePeriod,
		logger:   logging.NopLogger(),
		machine:  stage.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active reports whether a run is in flight.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// RunID returns the ID of the active run, or "" when idle.
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Stage returns the stage of the active run, or idle.
func (r *Runner) Stage() event.Stage {
	return r.machine.Stage()
}

// line is one reassembled output line and the level it logs at.
type line struct {
	text  string
	level event.Level
}

// Start runs rsync with opts and blocks until the process has exited and
// its finished event has been delivered to sink.
//
// Invalid options, a missing executable, or a failure to spawn are returned
// before any event is emitted, and the run slot is released. Once rsync is
// running, Start returns nil whatever the exit status; the outcome is in
// the finished event. Canceling ctx has the same effect as calling Stop.
func (r *Runner) Start(ctx context.Context, opts rsync.Options, sink Sink) error {
	if sink == nil {
		sink = func(event.Event) {}
	}

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return errors.ErrRunActive
	}

	cmd, stdout, stderr, exe, err := r.spawn(opts)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	runID := uuid.NewString()
	done := make(chan struct{})
	r.active = true
	r.cmd = cmd
	r.done = done
	r.runID = runID
	begin := r.machine.Begin()
	r.mu.Unlock()

	logger := r.logger.WithRun(runID)
	logger.Info("rsync started",
		"executable", exe.Path,
		"bundled", exe.Bundled,
		"pid", cmd.Process.Pid,
		"args", opts.Args(),
	)

	sink(begin)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("context canceled, stopping rsync", "error", ctx.Err())
			if err := r.Stop(context.Background()); err != nil {
				logger.Warn("stop after context cancellation failed", "error", err)
			}
		case <-done:
		}
	}()

	feed := make(chan line, 64)
	var pumps conc.WaitGroup
	pumps.Go(func() { pump(logger.WithStream("stdout"), stdout, event.LevelInfo, feed) })
	pumps.Go(func() { pump(logger.WithStream("stderr"), stderr, event.LevelWarn, feed) })
	go func() {
		pumps.Wait()
		close(feed)
	}()

	for l := range feed {
		for _, ev := range r.machine.Observe(l.text, l.level) {
			sink(ev)
		}
	}

	code := exitCode(cmd.Wait())
	close(done)

	fin := r.machine.Finish(code)
	fin.DryRun = opts.DryRun
	logger.Info("rsync exited", "exit_code", code, "stage", fin.Stage)

	sink(fin)
	r.release()
	return nil
}

// spawn validates opts, resolves the executable and starts rsync. Callers
// hold r.mu so Stop never observes a half-started run.
func (r *Runner) spawn(opts rsync.Options) (*exec.Cmd, io.ReadCloser, io.ReadCloser, rsync.Executable, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, nil, rsync.Executable{}, err
	}

	exe, err := r.resolver.Resolve()
	if err != nil {
		return nil, nil, nil, rsync.Executable{}, err
	}

	cmd := exec.Command(exe.Path, opts.Args()...)
	cmd.Env = exe.Env(os.Environ())
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, exe, errors.NewRunError("stdout pipe", err).WithExecutable(exe.Path)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, exe, errors.NewRunError("stderr pipe", err).WithExecutable(exe.Path)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, exe, errors.NewRunError("spawn", fmt.Errorf("%w: %w", errors.ErrSpawnFailed, err)).
			WithExecutable(exe.Path)
	}
	return cmd, stdout, stderr, exe, nil
}

// pump reassembles lines from one stream until EOF. A read failure is
// reported as an error-level line rather than aborting the run.
func pump(logger *logging.Logger, r io.Reader, level event.Level, out chan<- line) {
	err := lines.Scan(r, func(text string) {
		out <- line{text: text, level: level}
	})
	if err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn("stream read failed", "error", err)
		out <- line{text: fmt.Sprintf("read error: %v", err), level: event.LevelError}
	}
}

func (r *Runner) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.cmd = nil
	r.done = nil
	r.runID = ""
}

// exitCode maps the result of cmd.Wait to an exit code. Termination by a
// signal is reported as -1.
func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Stop cancels the active run. It is a no-op when no run is active or the
// process has already exited.
//
// The stage becomes canceled and SIGTERM is sent. If rsync has not exited
// within the grace period, or ctx ends first, it is killed. Stop returns once
// termination has been requested; the finished event is still delivered to
// the sink passed to Start.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.active || r.cmd == nil {
		r.mu.Unlock()
		return nil
	}
	proc, done, runID := r.cmd.Process, r.done, r.runID
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	default:
	}

	logger := r.logger.WithRun(runID)
	r.machine.Cancel()
	logger.Info("stopping rsync", "grace_period", r.grace.String())

	if err := terminate(proc); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.NewRunError("terminate", err).WithRunID(runID)
	}

	timer := time.NewTimer(r.grace)
	defer timer.Stop()

	var ctxErr error
	select {
	case <-done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	select {
	case <-done:
		return ctxErr
	default:
	}

	logger.Warn("rsync ignored SIGTERM, killing")
	if err := kill(proc); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.NewRunError("kill", err).WithRunID(runID)
	}
	return ctxErr
}
