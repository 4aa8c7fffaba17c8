package workflow

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Filesystem answers the file questions the graph builder and the
// submission hand-off need.
type Filesystem interface {
	Exists(path string) bool
	ModTime(path string) (time.Time, bool)
}

type statResult struct {
	exists  bool
	modTime time.Time
}

// CachedFilesystem memoizes stat calls for the lifetime of one run.
//
// It is handed to the Submitter through Caches and may be queried from the
// submitter's goroutines. Concurrent lookups of the same path share a single
// stat call.
type CachedFilesystem struct {
	// Root anchors relative paths; empty means the process working directory.
	Root string

	data  sync.Map
	group singleflight.Group
	stat  func(string) (fs.FileInfo, error)
}

func NewCachedFilesystem() *CachedFilesystem {
	return &CachedFilesystem{stat: os.Stat}
}

func (c *CachedFilesystem) Exists(path string) bool {
	return c.lookup(path).exists
}

func (c *CachedFilesystem) ModTime(path string) (time.Time, bool) {
	r := c.lookup(path)
	return r.modTime, r.exists
}

// Invalidate drops any cached result for path.
func (c *CachedFilesystem) Invalidate(path string) {
	c.data.Delete(path)
}

func (c *CachedFilesystem) lookup(path string) statResult {
	if v, ok := c.data.Load(path); ok {
		return v.(statResult)
	}
	v, _, _ := c.group.Do(path, func() (interface{}, error) {
		if v, ok := c.data.Load(path); ok {
			return v, nil
		}
		stat := c.stat
		if stat == nil {
			stat = os.Stat
		}
		var r statResult
		full := path
		if c.Root != "" && !filepath.IsAbs(path) {
			full = filepath.Join(c.Root, path)
		}
		info, err := stat(full)
		switch {
		case err == nil:
			r = statResult{exists: true, modTime: info.ModTime()}
		case errors.Is(err, fs.ErrNotExist):
			r = statResult{}
		default:
			// Unreadable paths are reported missing but not cached.
			return statResult{}, nil
		}
		c.data.Store(path, r)
		return r, nil
	})
	return v.(statResult)
}
