package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"jobmedic/internal/failure"
	"jobmedic/internal/slurm"
)

func sampleRecord(name string) slurm.Record {
	return slurm.Record{
		TimeOfFailure:     time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Group:             name,
		Name:              name,
		JobID:             "1001",
		Node:              "s21n42",
		FailureType:       failure.Timeout,
		ExitCode:          "0:15",
		AllocatedMemory:   4 << 30,
		UsedMemory:        1 << 30,
		AllocatedWalltime: "01:00:00",
		UsedWalltime:      "01:00:02",
	}
}

func TestTSVFileSink_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "failed.tsv")

	for _, name := range []string{"align", "sort"} {
		s, err := NewTSVFileSink(path)
		if err != nil {
			t.Fatalf("NewTSVFileSink error: %v", err)
		}
		if err := s.Write(Event{Type: EventRunStarted}); err != nil {
			t.Fatalf("Write(event) error: %v", err)
		}
		if err := s.Write(sampleRecord(name)); err != nil {
			t.Fatalf("Write(record) error: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close error: %v", err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header + 2 rows, got %d lines:\n%s", len(lines), raw)
	}
	if lines[0] != strings.Join(slurm.Header(), "\t") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	cols := strings.Split(lines[2], "\t")
	if len(cols) != len(slurm.Header()) {
		t.Fatalf("want %d columns, got %d", len(slurm.Header()), len(cols))
	}
	if cols[0] != "2024-03-01T12:30:00Z" || cols[1] != "sort" || cols[3] != "Timeout" || cols[5] != "4.0 GiB" {
		t.Fatalf("unexpected row %q", cols)
	}
}

func TestTSVFileSink_RequiresPath(t *testing.T) {
	if _, err := NewTSVFileSink(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestTableSink_Layout(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	s, err := NewTableSink(&buf)
	if err != nil {
		t.Fatalf("NewTableSink error: %v", err)
	}
	_ = s.Write(sampleRecord("align"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("want 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "+-") || !strings.HasPrefix(lines[2], "+=") || lines[4] != lines[0] {
		t.Fatalf("unexpected borders:\n%s", buf.String())
	}
	for _, l := range lines {
		if len(l) != len(lines[0]) {
			t.Fatalf("ragged table:\n%s", buf.String())
		}
	}
	if !strings.HasPrefix(lines[1], "| TimeOfFailure ") {
		t.Fatalf("header not left-aligned: %q", lines[1])
	}
	// Group column is right-aligned under its wider header.
	if !strings.Contains(lines[3], "| 2024-03-01T12:30:00Z | align |") {
		t.Fatalf("unexpected data row %q", lines[3])
	}
	if !strings.Contains(lines[1], "| Group |") {
		t.Fatalf("unexpected header row %q", lines[1])
	}
}

func TestTableSink_EmptyDrawsHeaderOnly(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	s, _ := NewTableSink(&buf)
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 4 {
		t.Fatalf("want 4 lines, got %d:\n%s", n, buf.String())
	}
}

func TestEmitSink_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink error: %v", err)
	}
	_ = s.Write(Event{Type: EventRunStarted, RunID: "r1", Targets: 4})
	_ = s.Write(sampleRecord("align"))
	_ = s.Write("ignored")
	_ = s.Write(Event{Type: EventRunFinished, RunID: "r1", Failed: 1, ExitCode: 1})
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	var events []Event
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	if len(events) != 3 {
		t.Fatalf("want 3 events, got %d", len(events))
	}
	if events[1].Type != EventTargetFailed || events[1].Target != "align" || events[1].Record == nil {
		t.Fatalf("unexpected record event %+v", events[1])
	}
	if events[1].Record.FailureType != failure.Timeout {
		t.Fatalf("failure type lost in round trip: %v", events[1].Record.FailureType)
	}
}

func TestEmitSink_JSONAggregatesRecords(t *testing.T) {
	var buf bytes.Buffer
	s, _ := NewEmitSink(&buf, "json")
	_ = s.Write(Event{Type: EventRunStarted})
	_ = s.Write(sampleRecord("align"))
	_ = s.Write(sampleRecord("sort"))
	if buf.Len() != 0 {
		t.Fatalf("json mode must not write before Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[1]["name"] != "sort" || got[0]["failure_type"] != "Timeout" {
		t.Fatalf("unexpected aggregate %v", got)
	}
}

func TestEmitSink_RejectsUnknownFormat(t *testing.T) {
	if _, err := NewEmitSink(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatalf("expected error")
	}
}
