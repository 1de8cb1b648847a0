package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/rsync"
	"github.com/Iron-Ham/rsyncsync/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run <source> <dest>",
	Short: "Run one sync without the UI",
	Long: `Run one sync without the UI and print its progress.

Options not given on the command line fall back to the defaults saved in
the settings file. Ctrl+C stops rsync (SIGTERM, then SIGKILL after the
configured grace period).

The exit status is 0 when rsync succeeds, rsync's own exit code when it
fails, and 130 when the run is canceled.

Examples:
  rsyncsync run ~/Photos /Volumes/Backup/Photos
  rsyncsync run --dry-run --delete ~/Music /Volumes/Backup/Music
  rsyncsync run --json ~/src /mnt/mirror | jq .`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

var (
	runDelete   bool
	runDryRun   bool
	runChecksum bool
	runJSON     bool
	runVerbose  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDelete, "delete", false, "delete files in dest that are not in source")
	runCmd.Flags().BoolVarP(&runDryRun, "dry-run", "n", false, "show what would change without changing anything")
	runCmd.Flags().BoolVar(&runChecksum, "checksum", false, "compare files by checksum instead of size and time")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print every event as a JSON line")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print all rsync output, not only errors")
}

// ExitError carries the process exit status of a run that did not succeed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	defaults := a.store.Get()
	opts := rsync.Options{
		Source:   args[0],
		Dest:     args[1],
		Delete:   flagOr(cmd, "delete", runDelete, defaults.DefaultDelete),
		DryRun:   flagOr(cmd, "dry-run", runDryRun, defaults.DefaultDryRun),
		Checksum: flagOr(cmd, "checksum", runChecksum, defaults.DefaultChecksum),
	}

	p := newRunPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), runJSON, runVerbose)
	id := a.bus.SubscribeAll(p.handle)
	defer a.bus.Unsubscribe(id)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.runner.Start(ctx, opts, a.bus.Publish); err != nil {
		return err
	}

	if p.fin == nil {
		return errors.New("rsync finished without a result")
	}
	if !runJSON {
		p.printSummary()
	}
	return exitStatus(*p.fin)
}

// flagOr returns the flag value when it was given, otherwise fallback.
func flagOr(cmd *cobra.Command, name string, value, fallback bool) bool {
	if cmd.Flags().Changed(name) {
		return value
	}
	return fallback
}

// exitStatus maps a finished run to the command's exit status.
func exitStatus(fin event.FinishedEvent) error {
	switch fin.Stage {
	case event.StageDone:
		return nil
	case event.StageCanceled:
		return &ExitError{Code: 130, Err: errors.ErrCanceled}
	default:
		code := fin.ExitCode
		if code <= 0 {
			code = 1
		}
		return &ExitError{Code: code, Err: fmt.Errorf("rsync exited with code %d", fin.ExitCode)}
	}
}

// runPrinter renders run events for a terminal or a pipe.
type runPrinter struct {
	out     io.Writer
	errOut  io.Writer
	enc     *json.Encoder
	verbose bool
	tty     bool
	width   int

	percent int
	inline  bool // a carriage-return progress line is on screen
	fin     *event.FinishedEvent
}

func newRunPrinter(out, errOut io.Writer, asJSON, verbose bool) *runPrinter {
	p := &runPrinter{out: out, errOut: errOut, verbose: verbose, percent: -1}
	if asJSON {
		p.enc = json.NewEncoder(out)
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = w
		}
	}
	return p
}

func (p *runPrinter) handle(ev event.Event) {
	if fin, ok := ev.(event.FinishedEvent); ok {
		p.fin = &fin
	}
	if p.enc != nil {
		_ = p.enc.Encode(ev)
		return
	}

	switch e := ev.(type) {
	case event.StageEvent:
		p.endInline()
		line := fmt.Sprintf("[%s] %s", e.Stage, e.Detail)
		if p.tty && p.width > 0 {
			line = util.Fit(line, p.width)
		}
		fmt.Fprintln(p.out, line)

	case event.ProgressEvent:
		if e.Percent <= p.percent {
			return
		}
		p.percent = e.Percent
		line := formatProgress(e)
		if p.tty {
			if p.width > 1 {
				line = util.Fit(line, p.width-1)
			}
			fmt.Fprintf(p.out, "\r%-*s", max(p.width-1, 0), line)
			p.inline = true
		} else {
			fmt.Fprintln(p.out, line)
		}

	case event.LogEvent:
		if e.Level == event.LevelInfo && !p.verbose {
			return
		}
		p.endInline()
		w := p.out
		if e.Level != event.LevelInfo {
			w = p.errOut
		}
		fmt.Fprintln(w, e.Line)

	case event.FinishedEvent:
		p.endInline()
	}
}

func (p *runPrinter) endInline() {
	if p.inline {
		fmt.Fprintln(p.out)
		p.inline = false
	}
}

func formatProgress(e event.ProgressEvent) string {
	parts := []string{fmt.Sprintf("%3d%%", e.Percent)}
	if e.Speed != "" {
		parts = append(parts, e.Speed)
	}
	if e.ETA != "" {
		parts = append(parts, "eta "+e.ETA)
	}
	return strings.Join(parts, "  ")
}

// resultLabel is the one-line outcome shown above the summary.
func resultLabel(fin event.FinishedEvent) string {
	switch {
	case fin.Stage == event.StageDone && fin.DryRun:
		return "dry run complete (no files changed)"
	case fin.Stage == event.StageDone:
		return "sync complete"
	case fin.Stage == event.StageCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

func (p *runPrinter) printSummary() {
	fin := p.fin

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	if !p.tty {
		t.SetStyle(table.StyleLight)
	}
	t.SetTitle("Summary")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	if p.width > 0 {
		t.SetAllowedRowLength(p.width)
	}

	result := resultLabel(*fin)
	if p.tty {
		result = text.Bold.Sprint(result)
	}
	t.AppendRow(table.Row{"Result", result})
	t.AppendRow(table.Row{"Exit code", fin.ExitCode})
	if fields := fin.Summary.Fields(); len(fields) > 0 {
		t.AppendSeparator()
		for _, f := range fields {
			t.AppendRow(table.Row{f.Label, f.Value})
		}
	}
	t.Render()
}
