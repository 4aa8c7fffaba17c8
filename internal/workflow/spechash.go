package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// SpecHashes looks up the spec hash recorded for a target at its last
// successful submission.
type SpecHashes interface {
	Get(name string) (string, bool)
}

// NoopSpecHashes records nothing; every target looks changed.
type NoopSpecHashes struct{}

func (NoopSpecHashes) Get(string) (string, bool) { return "", false }

// FileSpecHashes is a read-only view of a JSON object mapping target names
// to spec hashes.
type FileSpecHashes struct {
	hashes map[string]string
}

// LoadFileSpecHashes reads the spec hash file at path. A missing file yields
// an empty set.
func LoadFileSpecHashes(path string) (*FileSpecHashes, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &FileSpecHashes{hashes: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read spec hashes: %w", err)
	}
	hashes := map[string]string{}
	if err := json.Unmarshal(raw, &hashes); err != nil {
		return nil, fmt.Errorf("parse spec hashes %s: %w", path, err)
	}
	return &FileSpecHashes{hashes: hashes}, nil
}

func (h *FileSpecHashes) Get(name string) (string, bool) {
	v, ok := h.hashes[name]
	return v, ok
}

// SpecHash is a stable identity for a target's definition: its spec, inputs,
// outputs and options. Inputs and outputs are treated as sets and options are
// sorted by key; every field is length-prefixed.
func SpecHash(t *Target) string {
	h := sha256.New()

	writeUint64 := func(n uint64) {
		h.Write([]byte{
			byte(n >> 56),
			byte(n >> 48),
			byte(n >> 40),
			byte(n >> 32),
			byte(n >> 24),
			byte(n >> 16),
			byte(n >> 8),
			byte(n),
		})
	}
	writeField := func(data []byte) {
		writeUint64(uint64(len(data)))
		h.Write(data)
	}
	writeSet := func(values []string) {
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		writeUint64(uint64(len(sorted)))
		for _, v := range sorted {
			writeField([]byte(v))
		}
	}

	writeField([]byte(t.Spec))
	writeSet(t.Inputs)
	writeSet(t.Outputs)

	keys := sortedKeys(t.Options)
	writeUint64(uint64(len(keys)))
	for _, k := range keys {
		writeField([]byte(k))
		writeField([]byte(t.Options[k]))
	}

	return hex.EncodeToString(h.Sum(nil))
}
