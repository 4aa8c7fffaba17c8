package slurm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"jobmedic/internal/failure"
	"jobmedic/internal/workflow"
)

// Accounting diagnoses failed targets from scheduler accounting and logs.
type Accounting struct {
	Runner Runner

	// Fields are the sacct columns requested. They must include every
	// column DefaultFields lists.
	Fields []string

	// LogsDir holds "<target>.stderr" for every submitted target.
	LogsDir string

	// TrackedJobs maps target name to scheduler job id.
	TrackedJobs map[string]string

	// TailLines is the number of stderr lines inspected per target.
	TailLines int

	// OnLogError, when set, is called for every stderr log that could not
	// be read.
	OnLogError func(name string, err error)

	Logger *slog.Logger
}

// StderrPath is the log file the backend writes a target's stderr to.
func (a *Accounting) StderrPath(name string) string {
	return filepath.Join(a.LogsDir, name+".stderr")
}

// Fetch returns one record per failed target among targets, sorted by target
// name, and the failure type of each.
//
// Targets without a tracked job are skipped. A failing accounting query
// aborts the fetch. An unreadable stderr log only degrades that target's
// classification to Unknown.
func (a *Accounting) Fetch(ctx context.Context, targets map[string]*workflow.Target) ([]Record, map[string]failure.Type, error) {
	if a == nil || a.Runner == nil {
		return nil, nil, errors.New("accounting runner is nil")
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fields := a.Fields
	if len(fields) == 0 {
		fields = DefaultFields()
	}
	tailLines := a.TailLines
	if tailLines <= 0 {
		tailLines = failure.DefaultTailLines
	}

	jobs := make(map[string]*workflow.Target)
	for name, t := range targets {
		id, ok := a.TrackedJobs[name]
		if !ok || id == "" {
			continue
		}
		jobs[id] = t
	}
	if len(jobs) == 0 {
		logger.Debug("No tracked jobs for workflow targets")
		return nil, map[string]failure.Type{}, nil
	}

	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	logger.Debug("Querying accounting", "jobs", len(ids))
	out, err := a.Runner.Query(ctx, ids, fields)
	if err != nil {
		return nil, nil, err
	}
	rows, err := ParseAccounting(out, DefaultFields())
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]Record)
	for _, row := range rows {
		t, ok := jobs[row[FieldJobID]]
		if !ok {
			// Job steps (1234.batch, 1234.extern) and foreign jobs.
			continue
		}
		state := row[FieldState]
		if !IsFailedState(state) {
			continue
		}

		rec, err := a.record(t, row, tailLines, logger)
		if err != nil {
			return nil, nil, err
		}
		byName[t.Name] = rec
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	failures := make(map[string]failure.Type, len(names))
	for _, n := range names {
		records = append(records, byName[n])
		failures[n] = byName[n].FailureType
	}
	return records, failures, nil
}

func (a *Accounting) record(t *workflow.Target, row map[string]string, tailLines int, logger *slog.Logger) (Record, error) {
	logPath := a.StderrPath(t.Name)
	state := row[FieldState]

	ft, err := failure.ClassifyLog(logPath, state, tailLines)
	if err != nil {
		logger.Warn("Could not read stderr log; classification degraded", "target", t.Name, "path", logPath, "error", err)
		if a.OnLogError != nil {
			a.OnLogError(t.Name, err)
		}
	}

	tof, err := statusChangeTime(logPath)
	if err != nil {
		logger.Debug("No time of failure for target", "target", t.Name, "error", err)
	}

	allocated, err := ParseMemory(row[FieldReqMem], row[FieldNCPUS], row[FieldNNodes])
	if err != nil {
		return Record{}, &AccountingQueryError{Msg: fmt.Sprintf("job %s", row[FieldJobID]), Err: err}
	}
	used, err := ParseMemory(row[FieldMaxRSS], row[FieldNCPUS], row[FieldNNodes])
	if err != nil {
		return Record{}, &AccountingQueryError{Msg: fmt.Sprintf("job %s", row[FieldJobID]), Err: err}
	}

	return Record{
		TimeOfFailure:     tof,
		Group:             t.GroupName(),
		Name:              t.Name,
		JobID:             row[FieldJobID],
		Node:              row[FieldNodeList],
		FailureType:       ft,
		ExitCode:          row[FieldExitCode],
		AllocatedMemory:   allocated,
		UsedMemory:        used,
		AllocatedWalltime: row[FieldTimelimit],
		UsedWalltime:      row[FieldElapsed],
	}, nil
}
