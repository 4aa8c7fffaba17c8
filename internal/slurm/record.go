package slurm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"

	"jobmedic/internal/failure"
)

// Record is the accounting snapshot of one failed target. Records are never
// modified after Fetch returns them.
type Record struct {
	TimeOfFailure     time.Time    `json:"time_of_failure"`
	Group             string       `json:"group"`
	Name              string       `json:"name"`
	JobID             string       `json:"job_id"`
	Node              string       `json:"node"`
	FailureType       failure.Type `json:"failure_type"`
	ExitCode          string       `json:"exit_code"`
	AllocatedMemory   int64        `json:"allocated_memory"`
	UsedMemory        int64        `json:"used_memory"`
	AllocatedWalltime string       `json:"allocated_walltime"`
	UsedWalltime      string       `json:"used_walltime"`
}

// Header is the column header matching Row.
func Header() []string {
	return []string{
		"TimeOfFailure",
		"Group",
		"Node",
		"FailureType",
		"ExitCode",
		"AllocatedMemory",
		"UsedMemory",
		"AllocatedWalltime",
		"UsedWalltime",
	}
}

// Row renders the record for tabular output.
func (r Record) Row() []string {
	tof := ""
	if !r.TimeOfFailure.IsZero() {
		tof = r.TimeOfFailure.Format(time.RFC3339)
	}
	return []string{
		tof,
		r.Group,
		r.Node,
		r.FailureType.String(),
		r.ExitCode,
		PrettySize(r.AllocatedMemory),
		PrettySize(r.UsedMemory),
		r.AllocatedWalltime,
		r.UsedWalltime,
	}
}

// PrettySize renders a byte count with binary units, e.g. "4.0 GiB".
func PrettySize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// ParseMemory converts a Slurm memory figure to bytes.
//
// ReqMem may carry a trailing "n" (per node) or "c" (per core) qualifier,
// which is multiplied out using nodes and cores. Units follow the binary
// convention Slurm uses (K, M, G, T). An empty string is zero.
func ParseMemory(s, cores, nodes string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	factor := int64(1)
	switch {
	case strings.HasSuffix(s, "n"):
		n, err := parseCount(nodes)
		if err != nil {
			return 0, fmt.Errorf("memory %q: nodes: %w", s, err)
		}
		factor = n
		s = strings.TrimSuffix(s, "n")
	case strings.HasSuffix(s, "c"):
		c, err := parseCount(cores)
		if err != nil {
			return 0, fmt.Errorf("memory %q: cores: %w", s, err)
		}
		factor = c
		s = strings.TrimSuffix(s, "c")
	}

	b, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("memory %q: %w", s, err)
	}
	return b * factor, nil
}

func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 1, nil
	}
	return v, nil
}
