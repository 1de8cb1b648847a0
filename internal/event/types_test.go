package event

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Iron-Ham/rsyncsync/internal/rsync/parse"
)

func TestStage_IsTerminal(t *testing.T) {
	terminal := map[Stage]bool{StageDone: true, StageError: true, StageCanceled: true}
	for _, s := range Stages() {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestStage_UnmarshalText(t *testing.T) {
	var s Stage
	if err := json.Unmarshal([]byte(`"transfer"`), &s); err != nil || s != StageTransfer {
		t.Errorf("Unmarshal(transfer) = %q, %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"paused"`), &s); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestEventJSON(t *testing.T) {
	files := "120"
	tests := []struct {
		name  string
		event Event
		want  []string
		not   []string
	}{
		{
			name:  "stage",
			event: NewStageEvent(StageScan, "scanning…"),
			want:  []string{`"type":"stage"`, `"stage":"scan"`, `"detail":"scanning…"`, `"timestamp":`},
		},
		{
			name:  "progress without optional fields",
			event: NewProgressEvent(StageTransfer, 42, "line", "", ""),
			want:  []string{`"type":"progress"`, `"percent":42`},
			not:   []string{`"speed"`, `"eta"`},
		},
		{
			name:  "log",
			event: NewLogEvent("rsync: warning", LevelWarn),
			want:  []string{`"type":"log"`, `"line":"rsync: warning"`, `"level":"warn"`},
		},
		{
			name:  "finished",
			event: NewFinishedEvent(StageError, 23, parse.Summary{FilesTotal: &files}),
			want:  []string{`"type":"finished"`, `"ok":false`, `"exitCode":23`, `"stage":"error"`, `"summary":{"filesTotal":"120"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			s := string(data)
			for _, w := range tt.want {
				if !strings.Contains(s, w) {
					t.Errorf("json %s missing %s", s, w)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(s, n) {
					t.Errorf("json %s should not contain %s", s, n)
				}
			}
		})
	}
}

func TestDecode(t *testing.T) {
	in := NewProgressEvent(StageTransfer, 10, "  1,024  10%  1.00MB/s  0:00:09", "1.00MB/s", "0:00:09")
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got, ok := out.(ProgressEvent)
	if !ok {
		t.Fatalf("Decode() = %T, want ProgressEvent", out)
	}
	if got.Percent != 10 || got.Speed != "1.00MB/s" || got.ETA != "0:00:09" || got.EventType() != TypeProgress {
		t.Errorf("Decode() = %+v", got)
	}
	if !got.Timestamp().Equal(in.Timestamp()) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp(), in.Timestamp())
	}

	if _, err := Decode([]byte(`{"type":"bogus"}`)); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestNewFinishedEvent_OKOnlyWhenDone(t *testing.T) {
	for _, s := range []Stage{StageDone, StageError, StageCanceled} {
		if got := NewFinishedEvent(s, 0, parse.Summary{}).OK; got != (s == StageDone) {
			t.Errorf("OK for %s = %v", s, got)
		}
	}
}
