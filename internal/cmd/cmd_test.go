package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/logging"
	"github.com/Iron-Ham/rsyncsync/internal/picker"
	"github.com/Iron-Ham/rsyncsync/internal/rsync/parse"
)

// executeCommand runs the root command with args and returns captured output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// setupTestEnvironment points the config directory at a temp dir and clears
// state left behind by earlier commands.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	viper.Reset()
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	resetFlags(rootCmd)
	return filepath.Join(dir, "rsyncsync")
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// installFakeRsync writes a shell script named rsync into a bundle dir and
// points the configuration at it.
func installFakeRsync(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for rsync")
	}
	bundle := filepath.Join(t.TempDir(), "vendor", "rsync")
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "rsync"), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RSYNCSYNC_RSYNC_BUNDLE_DIR", bundle)
	return bundle
}

const successScript = `printf 'sending incremental file list\n'
printf '      1,024  10%%    1.00MB/s    0:00:09 (xfr#1, to-chk=9/10)\r'
printf '      1,024   5%%    1.00MB/s    0:00:09\r'
printf '     10,240  50%%    2.00MB/s    0:00:05\r'
printf '     20,480 100%%    2.00MB/s    0:00:00 (xfr#10, to-chk=0/10)\n'
printf '\nNumber of files: 10 (reg: 10)\n'
printf 'Number of regular files transferred: 10\n'
printf 'Total file size: 20.48K bytes\n'`

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "rsyncsync" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "rsyncsync")
	}

	expectedCmds := []string{"tui", "run", "config", "settings", "pick", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestRunCommand_Success(t *testing.T) {
	setupTestEnvironment(t)
	installFakeRsync(t, successScript)

	output, err := executeCommand(t, "run", "/src", "/dst")
	if err != nil {
		t.Fatalf("run failed: %v\nOutput: %s", err, output)
	}

	for _, want := range []string{"[scan] scanning…", " 10%", " 50%", "100%", "sync complete", "Number of files", "20.48K bytes"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "  5%") {
		t.Errorf("a lower percent should not be printed:\n%s", output)
	}
	if strings.Contains(output, "sending incremental file list") {
		t.Error("rsync stdout should only be printed with --verbose")
	}
}

func TestRunCommand_Failure(t *testing.T) {
	setupTestEnvironment(t)
	installFakeRsync(t, `echo 'rsync: link_stat "/src" failed: No such file or directory (2)' >&2
exit 23`)

	output, err := executeCommand(t, "run", "/src", "/dst")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("run error = %v, want ExitError", err)
	}
	if exitErr.Code != 23 {
		t.Errorf("exit code = %d, want 23", exitErr.Code)
	}
	if !strings.Contains(output, "link_stat") {
		t.Errorf("rsync errors should always be printed:\n%s", output)
	}
	if !strings.Contains(output, "failed") {
		t.Errorf("summary should report failure:\n%s", output)
	}
}

func TestRunCommand_JSON(t *testing.T) {
	setupTestEnvironment(t)
	installFakeRsync(t, successScript)

	output, err := executeCommand(t, "run", "--json", "--dry-run", "/src", "/dst")
	if err != nil {
		t.Fatalf("run failed: %v\nOutput: %s", err, output)
	}

	var events []event.Event
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		ev, err := event.Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("line %q is not an event: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) < 3 {
		t.Fatalf("got %d events", len(events))
	}

	if first, ok := events[0].(event.StageEvent); !ok || first.Stage != event.StageScan {
		t.Errorf("first event = %#v, want scan stage", events[0])
	}
	fin, ok := events[len(events)-1].(event.FinishedEvent)
	if !ok {
		t.Fatalf("last event = %#v, want finished", events[len(events)-1])
	}
	if !fin.OK || !fin.DryRun || fin.Summary.FilesTotal == nil || *fin.Summary.FilesTotal != "10 (reg: 10)" {
		t.Errorf("finished = %+v", fin)
	}
}

func TestRunCommand_FlagsFallBackToSettings(t *testing.T) {
	setupTestEnvironment(t)
	argsFile := filepath.Join(t.TempDir(), "args")
	installFakeRsync(t, `echo "$@" > '`+argsFile+`'`)

	tests := []struct {
		name       string
		args       []string
		wantDelete bool
	}{
		{"settings default", []string{"run", "/src", "/dst"}, true},
		{"flag overrides", []string{"run", "--delete=false", "/src", "/dst"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			if output, err := executeCommand(t, tt.args...); err != nil {
				t.Fatalf("run failed: %v\nOutput: %s", err, output)
			}
			data, err := os.ReadFile(argsFile)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(string(data), "--delete"); got != tt.wantDelete {
				t.Errorf("args %q: --delete present = %v, want %v", data, got, tt.wantDelete)
			}
		})
	}
}

func TestRunCommand_MissingRsync(t *testing.T) {
	setupTestEnvironment(t)
	dir := t.TempDir()
	t.Setenv("RSYNCSYNC_RSYNC_BUNDLE_DIR", filepath.Join(dir, "none"))
	t.Setenv("RSYNCSYNC_RSYNC_FALLBACK_PATH", filepath.Join(dir, "rsync"))

	_, err := executeCommand(t, "run", "/src", "/dst")
	if !errors.Is(err, errors.ErrExecutableNotFound) {
		t.Errorf("run error = %v, want ErrExecutableNotFound", err)
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		fin      event.FinishedEvent
		wantCode int
	}{
		{"done", event.NewFinishedEvent(event.StageDone, 0, parse.Summary{}), 0},
		{"canceled", event.NewFinishedEvent(event.StageCanceled, -1, parse.Summary{}), 130},
		{"rsync error code", event.NewFinishedEvent(event.StageError, 23, parse.Summary{}), 23},
		{"killed", event.NewFinishedEvent(event.StageError, -1, parse.Summary{}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitStatus(tt.fin)
			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("exitStatus() = %v, want nil", err)
				}
				return
			}
			var exitErr *ExitError
			if !errors.As(err, &exitErr) || exitErr.Code != tt.wantCode {
				t.Errorf("exitStatus() = %v, want code %d", err, tt.wantCode)
			}
		})
	}
}

func TestConfigCommand(t *testing.T) {
	configDir := setupTestEnvironment(t)

	output, err := executeCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(output, filepath.Join(configDir, "config.yaml")) {
		t.Errorf("config path output = %q", output)
	}

	output, err = executeCommand(t, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v\nOutput: %s", err, output)
	}
	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	for _, want := range []string{"# rsyncsync configuration", "grace_period: 1.5s", "max_log_lines: 2000", "# Wait after SIGTERM"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config file missing %q:\n%s", want, data)
		}
	}

	if _, err := executeCommand(t, "config", "init"); err == nil {
		t.Error("config init should refuse to overwrite an existing file")
	}

	output, err = executeCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(output, "fallback_path: /opt/homebrew/bin/rsync") {
		t.Errorf("config show output:\n%s", output)
	}
}

func TestConfigSetCommand(t *testing.T) {
	configDir := setupTestEnvironment(t)

	output, err := executeCommand(t, "config", "set", "rsync.grace_period", "3s")
	if err != nil {
		t.Fatalf("config set failed: %v\nOutput: %s", err, output)
	}
	if got := viper.GetDuration("rsync.grace_period").String(); got != "3s" {
		t.Errorf("grace_period = %s, want 3s", got)
	}
	if _, err := os.Stat(filepath.Join(configDir, "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "nope.key", "1"}},
		{"bad bool", []string{"config", "set", "logging.enabled", "maybe"}},
		{"bad duration", []string{"config", "set", "rsync.grace_period", "soon"}},
		{"fails validation", []string{"config", "set", "logging.level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if got := viper.GetString("logging.level"); got != "info" {
		t.Errorf("rejected value was kept: logging.level = %q", got)
	}
}

func TestSettingsCommand(t *testing.T) {
	configDir := setupTestEnvironment(t)

	output, err := executeCommand(t, "settings", "path")
	if err != nil {
		t.Fatalf("settings path failed: %v", err)
	}
	if strings.TrimSpace(output) != filepath.Join(configDir, "settings.json") {
		t.Errorf("settings path = %q", output)
	}

	if output, err := executeCommand(t, "settings", "set", "theme", "dark"); err != nil {
		t.Fatalf("settings set failed: %v\nOutput: %s", err, output)
	}
	if output, err := executeCommand(t, "settings", "set", "defaultDryRun", "true"); err != nil {
		t.Fatalf("settings set failed: %v\nOutput: %s", err, output)
	}

	output, err = executeCommand(t, "settings", "show", "--json")
	if err != nil {
		t.Fatalf("settings show failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(output), &got); err != nil {
		t.Fatalf("settings show --json output is not JSON: %v\n%s", err, output)
	}
	if got["theme"] != "dark" || got["defaultDryRun"] != true || got["defaultDelete"] != true {
		t.Errorf("settings = %v", got)
	}

	resetFlags(rootCmd)
	output, err = executeCommand(t, "settings")
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if !strings.Contains(output, "defaultChecksum") || !strings.Contains(output, "dark") {
		t.Errorf("settings table:\n%s", output)
	}

	for _, args := range [][]string{
		{"settings", "set", "theme", "blue"},
		{"settings", "set", "colour", "red"},
	} {
		if _, err := executeCommand(t, args...); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("%v: error = %v, want ErrInvalidInput", args, err)
		}
	}
}

type fakePicker struct {
	path    string
	err     error
	initial string
}

func (f *fakePicker) SelectDirectory(_ context.Context, initial string) (string, error) {
	f.initial = initial
	return f.path, f.err
}

func (f *fakePicker) SaveText(context.Context, string, string) (string, error) {
	return "", errors.ErrUnsupported
}

func TestPickDirCommand(t *testing.T) {
	setupTestEnvironment(t)

	tests := []struct {
		name    string
		picker  *fakePicker
		args    []string
		want    string
		wantErr error
	}{
		{"chosen", &fakePicker{path: "/Volumes/Backup"}, []string{"pick", "dir", "/Volumes"}, "/Volumes/Backup\n", nil},
		{"dismissed", &fakePicker{}, []string{"pick", "dir"}, "", nil},
		{"unsupported", &fakePicker{err: errors.ErrUnsupported}, []string{"pick", "dir"}, "", errors.ErrUnsupported},
	}

	original := newPicker
	t.Cleanup(func() { newPicker = original })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newPicker = func() picker.Picker { return tt.picker }
			output, err := executeCommand(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if output != tt.want {
				t.Errorf("output = %q, want %q", output, tt.want)
			}
			if len(tt.args) == 3 && tt.picker.initial != tt.args[2] {
				t.Errorf("initial = %q", tt.picker.initial)
			}
		})
	}
}

func TestLogsCommand(t *testing.T) {
	configDir := setupTestEnvironment(t)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}

	records := strings.Join([]string{
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"rsync started","run_id":"aaaa1111-0000","pid":42}`,
		`{"time":"2026-01-02T10:00:01Z","level":"WARN","msg":"rsync output","run_id":"aaaa1111-0000","stream":"stderr","line":"vanished file"}`,
		`{"time":"2026-01-02T10:05:00Z","level":"INFO","msg":"rsync started","run_id":"bbbb2222-0000","pid":43}`,
		`not json at all`,
	}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(configDir, logging.LogFileName), []byte(records), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "all",
			args: []string{"logs", "-n", "0"},
			want: []string{"pid=42", "pid=43", "not json at all", "run=aaaa1111"},
		},
		{
			name:    "one run",
			args:    []string{"logs", "--run", "bbbb"},
			want:    []string{"pid=43"},
			notWant: []string{"pid=42", "not json at all"},
		},
		{
			name:    "level",
			args:    []string{"logs", "--level", "warn"},
			want:    []string{"vanished file", "stream=stderr"},
			notWant: []string{"pid=42"},
		},
		{
			name:    "grep",
			args:    []string{"logs", "--grep", "vanished"},
			want:    []string{"rsync output"},
			notWant: []string{"rsync started"},
		},
		{
			name:    "tail",
			args:    []string{"logs", "-n", "1"},
			want:    []string{"not json at all"},
			notWant: []string{"pid=43"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			output, err := executeCommand(t, tt.args...)
			if err != nil {
				t.Fatalf("logs failed: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(output, w) {
					t.Errorf("output missing %q:\n%s", w, output)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(output, w) {
					t.Errorf("output should not contain %q:\n%s", w, output)
				}
			}
		})
	}
}

func TestAuditLog(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.Options{Writer: &buf, Level: "debug"})
	if err != nil {
		t.Fatal(err)
	}

	files := "3"
	bus := event.NewBus(logger)
	bus.SubscribeAll(auditLog(logger))
	bus.Publish(event.NewStageEvent(event.StageScan, "scanning…"))
	bus.Publish(event.NewProgressEvent(event.StageTransfer, 40, "", "1.00MB/s", "0:00:03"))
	bus.Publish(event.NewLogEvent("sending incremental file list", event.LevelInfo))
	bus.Publish(event.NewFinishedEvent(event.StageDone, 0, parse.Summary{FilesTotal: &files}))

	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("record %q: %v", line, err)
		}
		msgs = append(msgs, rec["msg"].(string))
	}

	want := []string{"stage", "progress", "rsync output", "finished"}
	if strings.Join(msgs, ",") != strings.Join(want, ",") {
		t.Errorf("records = %v, want %v", msgs, want)
	}
	if !strings.Contains(buf.String(), `"summary":"Number of files: 3"`) {
		t.Errorf("finished record should carry the summary:\n%s", buf.String())
	}
}
