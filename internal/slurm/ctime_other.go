//go:build !linux && !darwin

package slurm

import (
	"os"
	"time"
)

// statusChangeTime falls back to the modification time where ctime is not
// exposed.
func statusChangeTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
