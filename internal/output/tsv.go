package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jobmedic/internal/slurm"
)

// TSVFileSink appends one tab-separated line per failure record. The header
// row is written only when the file is created.
type TSVFileSink struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func NewTSVFileSink(path string) (*TSVFileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	s := &TSVFileSink{path: path, file: f}
	if fresh {
		if err := s.writeLine(slurm.Header()); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return s, nil
}

func (s *TSVFileSink) Write(v any) error {
	r, ok := v.(slurm.Record)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLine(r.Row())
}

func (s *TSVFileSink) writeLine(cols []string) error {
	clean := make([]string, len(cols))
	for i, c := range cols {
		clean[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(c)
	}
	_, err := fmt.Fprintln(s.file, strings.Join(clean, "\t"))
	return err
}

func (s *TSVFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
