package slurm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TrackedJobsFile is where the gwf Slurm backend records submitted job ids,
// relative to the workflow working directory.
const TrackedJobsFile = ".gwf/slurm-backend-tracked.json"

// TrackedJobsPath returns the tracked-jobs file for a working directory.
func TrackedJobsPath(workingDir string) string {
	return filepath.Join(workingDir, filepath.FromSlash(TrackedJobsFile))
}

// TrackingStateError reports a missing or corrupt tracked-jobs file. It is
// recoverable: the accompanying map is empty and usable.
type TrackingStateError struct {
	Path string
	Err  error
}

func (e *TrackingStateError) Error() string {
	return fmt.Sprintf("tracked jobs %s: %v", e.Path, e.Err)
}

func (e *TrackingStateError) Unwrap() error { return e.Err }

// LoadTrackedJobs reads the target name -> job id map kept by the backend.
//
// It always returns a non-nil map. When the file is missing or cannot be
// decoded the map is empty and the error is a *TrackingStateError.
func LoadTrackedJobs(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return map[string]string{}, &TrackingStateError{Path: path, Err: err}
	}
	jobs := map[string]string{}
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return map[string]string{}, &TrackingStateError{Path: path, Err: err}
	}
	return jobs, nil
}
