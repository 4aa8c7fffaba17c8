package logging

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"
)

// Setup installs the colored default logger. Debug output is enabled when
// verbose is set.
func Setup(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	return slog.Default()
}

// NewRunID returns a fresh identifier for one diagnose run.
func NewRunID() string {
	return uuid.NewString()
}

// ForRun tags every line logged through the returned logger with the run id.
func ForRun(l *slog.Logger, runID string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("run_id", runID)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
