package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Fatalf("run ids must differ")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", a, err)
	}
}

func TestForRun(t *testing.T) {
	var buf bytes.Buffer
	l := ForRun(slog.New(slog.NewTextHandler(&buf, nil)), "abc")
	l.Info("hello")
	if !strings.Contains(buf.String(), "run_id=abc") {
		t.Fatalf("missing run_id attr: %q", buf.String())
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	if Setup(true) == nil {
		t.Fatalf("Setup returned nil logger")
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("discard logger must be disabled")
	}
}
