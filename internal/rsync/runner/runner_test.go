package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/rsync"
)

// fakeResolver returns a fixed executable or error.
type fakeResolver struct {
	exe rsync.Executable
	err error
}

func (f fakeResolver) Resolve() (rsync.Executable, error) { return f.exe, f.err }

// recorder is a Sink that records events and signals when a log line
// containing a marker arrives.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
	marker string
	seen   chan struct{}
	once   sync.Once
}

func newRecorder(marker string) *recorder {
	return &recorder{marker: marker, seen: make(chan struct{})}
}

func (r *recorder) sink(ev event.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if l, ok := ev.(event.LogEvent); ok && r.marker != "" && strings.Contains(l.Line, r.marker) {
		r.once.Do(func() { close(r.seen) })
	}
}

func (r *recorder) snapshot() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func (r *recorder) waitMarker(t *testing.T) {
	t.Helper()
	select {
	case <-r.seen:
	case <-time.After(5 * time.Second):
		t.Fatalf("marker %q never arrived; events: %v", r.marker, r.snapshot())
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for rsync")
	}
	path := filepath.Join(t.TempDir(), "rsync")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRunner(path string) *Runner {
	return New(fakeResolver{exe: rsync.Executable{Path: path}}, WithGracePeriod(200*time.Millisecond))
}

var testOpts = rsync.Options{Source: "/src", Dest: "/dst"}

func finished(t *testing.T, evs []event.Event) event.FinishedEvent {
	t.Helper()
	var fins []event.FinishedEvent
	for _, ev := range evs {
		if f, ok := ev.(event.FinishedEvent); ok {
			fins = append(fins, f)
		}
	}
	if len(fins) != 1 {
		t.Fatalf("got %d finished events, want exactly 1", len(fins))
	}
	if _, ok := evs[len(evs)-1].(event.FinishedEvent); !ok {
		t.Fatalf("last event is %T, want FinishedEvent", evs[len(evs)-1])
	}
	return fins[0]
}

func TestStart_SuccessfulRun(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	path := writeScript(t, `printf '%s\n' "$@" > `+argsFile+`
printf 'sending incremental file list\n'
printf '  1,024  10%%  1.00MB/s  0:00:09 (xfr#1, to-chk=1/2)\r'
printf '    512   5%%  0.50MB/s  0:00:20 (xfr#1, to-chk=1/2)\r'
printf '  5,120  50%%  2.00MB/s  0:00:03 (xfr#2, to-chk=0/2)\n'
printf '\nNumber of files: 120\nTotal file size: 4.50M\n'
exit 0`)

	r := newTestRunner(path)
	rec := newRecorder("")
	opts := rsync.Options{Source: "/src", Dest: "/dst", Delete: true, DryRun: true}

	if err := r.Start(context.Background(), opts, rec.sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	evs := rec.snapshot()
	first, ok := evs[0].(event.StageEvent)
	if !ok || first.Stage != event.StageScan {
		t.Fatalf("first event = %+v, want scan stage", evs[0])
	}

	var percents []int
	for _, ev := range evs {
		if p, ok := ev.(event.ProgressEvent); ok {
			percents = append(percents, p.Percent)
			if p.Stage != event.StageTransfer {
				t.Errorf("progress stage = %s, want transfer", p.Stage)
			}
		}
	}
	if len(percents) != 3 || percents[0] != 10 || percents[1] != 5 || percents[2] != 50 {
		t.Errorf("percents = %v, want [10 5 50]", percents)
	}

	fin := finished(t, evs)
	if !fin.OK || fin.Stage != event.StageDone || fin.ExitCode != 0 || !fin.DryRun {
		t.Errorf("finished = %+v", fin)
	}
	if fin.Summary.FilesTotal == nil || *fin.Summary.FilesTotal != "120" {
		t.Errorf("summary = %v", fin.Summary)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join(opts.Args(), "\n") + "\n"
	if string(args) != want {
		t.Errorf("rsync args = %q, want %q", args, want)
	}

	if r.Active() || r.Stage() != event.StageIdle || r.RunID() != "" {
		t.Error("runner should be idle after Start returns")
	}
}

func TestStart_NonZeroExitIsError(t *testing.T) {
	path := writeScript(t, `echo "rsync: change_dir failed: No such file or directory (2)" >&2
exit 23`)

	r := newTestRunner(path)
	rec := newRecorder("")
	if err := r.Start(context.Background(), testOpts, rec.sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	evs := rec.snapshot()
	var warned bool
	for _, ev := range evs {
		if l, ok := ev.(event.LogEvent); ok && l.Level == event.LevelWarn && strings.Contains(l.Line, "change_dir") {
			warned = true
		}
	}
	if !warned {
		t.Error("stderr line should arrive as a warn log event")
	}

	fin := finished(t, evs)
	if fin.OK || fin.Stage != event.StageError || fin.ExitCode != 23 {
		t.Errorf("finished = %+v", fin)
	}
}

func TestStart_ConfigurationErrorsEmitNothing(t *testing.T) {
	notExecutable := filepath.Join(t.TempDir(), "rsync")
	if err := os.WriteFile(notExecutable, []byte("not a program"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		resolver Resolver
		opts     rsync.Options
		is       error
	}{
		{
			name:     "missing source",
			resolver: fakeResolver{exe: rsync.Executable{Path: "/bin/true"}},
			opts:     rsync.Options{Dest: "/d"},
			is:       errors.ErrInvalidInput,
		},
		{
			name:     "executable not found",
			resolver: rsync.NewLocator(filepath.Join(t.TempDir(), "none"), filepath.Join(t.TempDir(), "rsync")),
			opts:     testOpts,
			is:       errors.ErrExecutableNotFound,
		},
		{
			name:     "spawn failure",
			resolver: fakeResolver{exe: rsync.Executable{Path: notExecutable}},
			opts:     testOpts,
			is:       errors.ErrSpawnFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.resolver)
			rec := newRecorder("")
			err := r.Start(context.Background(), tt.opts, rec.sink)
			if !errors.Is(err, tt.is) {
				t.Fatalf("Start() error = %v, want %v", err, tt.is)
			}
			if n := len(rec.snapshot()); n != 0 {
				t.Errorf("got %d events, want none", n)
			}
			if r.Active() {
				t.Error("run slot should be free after a configuration error")
			}
		})
	}
}

func TestStart_RejectsSecondRun(t *testing.T) {
	path := writeScript(t, `echo started
sleep 0.5
echo finished-first`)

	r := newTestRunner(path)
	rec := newRecorder("started")

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(context.Background(), testOpts, rec.sink) }()
	rec.waitMarker(t)

	other := newRecorder("")
	if err := r.Start(context.Background(), testOpts, other.sink); !errors.Is(err, errors.ErrRunActive) {
		t.Fatalf("second Start() = %v, want ErrRunActive", err)
	}
	if n := len(other.snapshot()); n != 0 {
		t.Errorf("rejected Start emitted %d events", n)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	fin := finished(t, rec.snapshot())
	if fin.Stage != event.StageDone {
		t.Errorf("first run finished with %s, want done", fin.Stage)
	}
}

func TestStop_IdleIsNoOp(t *testing.T) {
	r := New(fakeResolver{})
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop() on idle runner = %v", err)
	}
	if r.Stage() != event.StageIdle {
		t.Errorf("Stage() = %s, want idle", r.Stage())
	}
}

func TestStop_GracefulTermination(t *testing.T) {
	path := writeScript(t, `echo started
exec sleep 10`)

	r := newTestRunner(path)
	rec := newRecorder("started")

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(context.Background(), testOpts, rec.sink) }()
	rec.waitMarker(t)

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	fin := finished(t, rec.snapshot())
	if fin.OK || fin.Stage != event.StageCanceled {
		t.Errorf("finished = %+v, want canceled", fin)
	}
}

func TestStop_ForceKillsAfterGracePeriod(t *testing.T) {
	path := writeScript(t, `trap '' TERM
echo started
while true; do sleep 0.05; done`)

	r := newTestRunner(path)
	rec := newRecorder("started")

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(context.Background(), testOpts, rec.sink) }()
	rec.waitMarker(t)

	begin := time.Now()
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(begin); elapsed < 200*time.Millisecond {
		t.Errorf("Stop() returned after %v, before the grace period", elapsed)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed")
	}

	fin := finished(t, rec.snapshot())
	if fin.Stage != event.StageCanceled || fin.ExitCode != -1 {
		t.Errorf("finished = %+v, want canceled with exit -1", fin)
	}
}

func TestStart_ContextCancellationStops(t *testing.T) {
	path := writeScript(t, `echo started
exec sleep 10`)

	r := newTestRunner(path)
	rec := newRecorder("started")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(ctx, testOpts, rec.sink) }()
	rec.waitMarker(t)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("context cancellation did not stop the run")
	}

	if fin := finished(t, rec.snapshot()); fin.Stage != event.StageCanceled {
		t.Errorf("finished stage = %s, want canceled", fin.Stage)
	}
}

func TestStart_SinkCalledSerially(t *testing.T) {
	path := writeScript(t, `i=0
while [ $i -lt 50 ]; do
  echo "out $i"
  echo "err $i" >&2
  i=$((i+1))
done`)

	r := newTestRunner(path)
	var inSink, overlaps int
	var mu sync.Mutex
	sink := func(ev event.Event) {
		mu.Lock()
		inSink++
		if inSink > 1 {
			overlaps++
		}
		mu.Unlock()
		time.Sleep(100 * time.Microsecond)
		mu.Lock()
		inSink--
		mu.Unlock()
	}

	if err := r.Start(context.Background(), testOpts, sink); err != nil {
		t.Fatal(err)
	}
	if overlaps != 0 {
		t.Errorf("sink was entered concurrently %d times", overlaps)
	}
}

func TestStart_PerStreamOrderPreserved(t *testing.T) {
	path := writeScript(t, `i=0
while [ $i -lt 20 ]; do
  echo "out $i"
  echo "err $i" >&2
  i=$((i+1))
done`)

	r := newTestRunner(path)
	rec := newRecorder("")
	if err := r.Start(context.Background(), testOpts, rec.sink); err != nil {
		t.Fatal(err)
	}

	var out, errs []string
	for _, ev := range rec.snapshot() {
		l, ok := ev.(event.LogEvent)
		if !ok {
			continue
		}
		switch l.Level {
		case event.LevelInfo:
			out = append(out, l.Line)
		case event.LevelWarn:
			errs = append(errs, l.Line)
		}
	}
	if len(out) != 20 || len(errs) != 20 {
		t.Fatalf("got %d stdout and %d stderr lines, want 20 each", len(out), len(errs))
	}
	for i := 0; i < 20; i++ {
		if out[i] != "out "+strconv.Itoa(i) || errs[i] != "err "+strconv.Itoa(i) {
			t.Fatalf("line %d out of order: %q / %q", i, out[i], errs[i])
		}
	}
}
