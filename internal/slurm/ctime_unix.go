//go:build linux || darwin

package slurm

import (
	"time"

	"golang.org/x/sys/unix"
)

// statusChangeTime returns the inode status-change time (ctime) of path.
func statusChangeTime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, err
	}
	return time.Unix(st.Ctim.Unix()), nil
}
