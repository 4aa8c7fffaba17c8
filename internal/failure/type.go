package failure

import (
	"fmt"
	"strings"
)

// Type classifies why a scheduled job terminated abnormally.
//
// The set is closed. Code that dispatches on a Type uses an exhaustive switch
// whose default branch panics, so adding a value without handling it fails
// loudly in tests instead of falling through silently.
type Type int

const (
	Unknown Type = iota + 1
	Timeout
	OutOfMemory
	Submission
	FileSystem
)

// Types returns every failure type in declaration order.
func Types() []Type {
	return []Type{Unknown, Timeout, OutOfMemory, Submission, FileSystem}
}

func (t Type) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case Timeout:
		return "Timeout"
	case OutOfMemory:
		return "OutOfMemory"
	case Submission:
		return "Submission"
	case FileSystem:
		return "FileSystem"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Recoverable reports whether a target that failed with t may be resubmitted.
func (t Type) Recoverable() bool {
	switch t {
	case Timeout, OutOfMemory, FileSystem:
		return true
	case Unknown, Submission:
		return false
	default:
		panic(fmt.Sprintf("failure: unhandled type %d", int(t)))
	}
}

// Description is a one-line summary of how t is detected.
func (t Type) Description() string {
	switch t {
	case Unknown:
		return "No known failure signature in the log tail"
	case Timeout:
		return "Scheduler state TIMEOUT or step cancelled due to time limit"
	case OutOfMemory:
		return "Step tasks killed by an oom_kill event"
	case Submission:
		return "sbatch reported a batch job submission failure"
	case FileSystem:
		return "Device or resource busy"
	default:
		panic(fmt.Sprintf("failure: unhandled type %d", int(t)))
	}
}

// ParseType is the inverse of Type.String. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for _, t := range Types() {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown failure type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
