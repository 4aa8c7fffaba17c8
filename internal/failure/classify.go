package failure

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultTailLines is how many trailing stderr lines are inspected.
const DefaultTailLines = 3

// TimeoutState is the sacct State of a job killed at its time limit.
const TimeoutState = "TIMEOUT"

var (
	timeoutPattern = regexp.MustCompile(`slurmstepd: error: \*\*\* JOB [0-9]+ ON [a-zA-Z0-9_-]+ CANCELLED AT [0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2} DUE TO TIME LIMIT \*\*\*`)
	oomPattern     = regexp.MustCompile(`slurmstepd: error: Detected [0-9]+ oom_kill event in StepId=[0-9]+.batch. Some of the step tasks have been OOM Killed.`)
)

const (
	submissionMarker = "sbatch: error: Batch job submission failed"
	fileSystemMarker = "Device or resource busy"
)

// Classify maps a log tail and the scheduler's terminal state to a Type.
//
// The checks overlap at the text level, so order matters and the first
// match wins: Timeout, OutOfMemory, Submission, FileSystem, Unknown.
func Classify(tail []string, state string) Type {
	log := strings.Join(tail, "\n")

	switch {
	case state == TimeoutState || timeoutPattern.MatchString(log):
		return Timeout
	case oomPattern.MatchString(log):
		return OutOfMemory
	case strings.Contains(log, submissionMarker):
		return Submission
	case strings.Contains(log, fileSystemMarker):
		return FileSystem
	default:
		return Unknown
	}
}

// LogAccessError reports a stderr log that could not be read.
type LogAccessError struct {
	Path string
	Err  error
}

func (e *LogAccessError) Error() string {
	return fmt.Sprintf("read log %s: %v", e.Path, e.Err)
}

func (e *LogAccessError) Unwrap() error { return e.Err }

// ClassifyLog classifies the last n lines of the log at path.
//
// If the log cannot be read the result is Unknown together with a
// *LogAccessError, which callers report and then continue past.
func ClassifyLog(path, state string, n int) (Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return classifyWithoutLog(state), &LogAccessError{Path: path, Err: err}
	}
	defer f.Close()

	lines, err := Tail(f, n)
	if err != nil {
		return classifyWithoutLog(state), &LogAccessError{Path: path, Err: err}
	}
	return Classify(lines, state), nil
}

// classifyWithoutLog still honours the scheduler state when the log is gone.
func classifyWithoutLog(state string) Type {
	return Classify(nil, state)
}
