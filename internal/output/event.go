package output

import "jobmedic/internal/slurm"

// Event types streamed in NDJSON mode.
const (
	EventRunStarted       = "run.started"
	EventTargetFailed     = "target.failed"
	EventRestartSubmitted = "restart.submitted"
	EventRunFinished      = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// Failure records are streamed as "target.failed" events carrying the
// record; the other types carry run-level counters.
type Event struct {
	Type      string        `json:"type"`
	RunID     string        `json:"run_id,omitempty"`
	Target    string        `json:"target,omitempty"`
	Record    *slurm.Record `json:"record,omitempty"`
	Targets   int           `json:"targets,omitempty"`
	Failed    int           `json:"failed,omitempty"`
	Endpoints []string      `json:"endpoints,omitempty"`
	ExitCode  int           `json:"exit_code,omitempty"`
}

func eventFromRecord(r slurm.Record) Event {
	return Event{Type: EventTargetFailed, Target: r.Name, Record: &r}
}
