package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Accounting columns read for every job. Required columns must be present in
// the sacct header.
const (
	FieldJobID     = "JobID"
	FieldNodeList  = "NodeList"
	FieldNNodes    = "NNodes"
	FieldNCPUS     = "NCPUS"
	FieldReqMem    = "ReqMem"
	FieldMaxRSS    = "MaxRSS"
	FieldTimelimit = "Timelimit"
	FieldElapsed   = "Elapsed"
	FieldState     = "State"
	FieldExitCode  = "ExitCode"
)

var defaultFields = [...]string{
	FieldJobID,
	FieldNodeList,
	FieldNNodes,
	FieldNCPUS,
	FieldReqMem,
	FieldMaxRSS,
	FieldTimelimit,
	FieldElapsed,
	FieldState,
	FieldExitCode,
}

// DefaultFields returns a fresh copy of the accounting fields jobmedic needs.
func DefaultFields() []string {
	out := make([]string, len(defaultFields))
	copy(out, defaultFields[:])
	return out
}

// AccountingQueryError reports a failed or unparsable accounting query.
type AccountingQueryError struct {
	Msg    string
	Stderr string
	Err    error
}

func (e *AccountingQueryError) Error() string {
	var b strings.Builder
	b.WriteString("accounting query failed")
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(" (stderr: ")
		b.WriteString(s)
		b.WriteString(")")
	}
	return b.String()
}

func (e *AccountingQueryError) Unwrap() error { return e.Err }

// Runner queries the scheduler's accounting database.
type Runner interface {
	Query(ctx context.Context, jobIDs []string, fields []string) ([]byte, error)
}

// SacctRunner runs the sacct binary.
type SacctRunner struct {
	// Binary defaults to "sacct" resolved through PATH.
	Binary string
}

func (r SacctRunner) Query(ctx context.Context, jobIDs []string, fields []string) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "sacct"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, &AccountingQueryError{Msg: "sacct not found", Err: err}
	}

	args := []string{
		"--jobs", strings.Join(jobIDs, ","),
		"--format=" + strings.Join(fields, ","),
		"--parsable2",
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &AccountingQueryError{Msg: fmt.Sprintf("%s exited", bin), Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// ParseAccounting decodes pipe-delimited sacct output with a header row into
// one column map per row. Every field in required must appear in the header.
func ParseAccounting(out []byte, required []string) ([]map[string]string, error) {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, &AccountingQueryError{Msg: "empty output"}
	}
	lines := strings.Split(text, "\n")

	header := strings.Split(strings.TrimSpace(lines[0]), "|")
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, f := range required {
		if _, ok := present[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &AccountingQueryError{Msg: fmt.Sprintf("missing columns: %s", strings.Join(missing, ", "))}
	}

	rows := make([]map[string]string, 0, len(lines)-1)
	for i, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) != len(header) {
			return nil, &AccountingQueryError{Msg: fmt.Sprintf("row %d has %d columns, header has %d", i+1, len(cols), len(header))}
		}
		row := make(map[string]string, len(header))
		for j, h := range header {
			row[h] = cols[j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var failedStates = map[string]bool{
	"FAILED":        true,
	"TIMEOUT":       true,
	"OUT_OF_MEMORY": true,
	"CANCELLED":     true,
	"NODE_FAIL":     true,
	"BOOT_FAIL":     true,
	"DEADLINE":      true,
}

// IsFailedState reports whether a sacct State denotes abnormal termination.
// Suffixes such as "CANCELLED by 1234" or "FAILED+" are ignored.
func IsFailedState(state string) bool {
	s := strings.TrimSpace(state)
	if i := strings.IndexAny(s, " +"); i >= 0 {
		s = s[:i]
	}
	return failedStates[s]
}
