package workflow

// Caches are the workflow engine's per-run collaborators that a restart
// hands to submission unchanged.
type Caches struct {
	FS         Filesystem
	SpecHashes SpecHashes
}
