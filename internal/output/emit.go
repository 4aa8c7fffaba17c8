package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"jobmedic/internal/slurm"
)

// EmitSink writes an additional structured stream.
//
// Formats:
//   - json: aggregates failure records and writes a single JSON array on Close
//   - ndjson: streams Event values (one JSON object per line)
type EmitSink struct {
	writer  io.Writer
	format  string // "json" | "ndjson"
	mu      sync.Mutex
	records []slurm.Record
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format, records: []slurm.Record{}}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		r, ok := v.(slurm.Record)
		if !ok {
			// Lifecycle events are not part of the aggregate.
			return nil
		}
		s.records = append(s.records, r)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
		case slurm.Record:
			if err := encoder.Encode(eventFromRecord(t)); err != nil {
				return err
			}
		default:
			return nil
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported emit format: %s", s.format)
	}
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.records); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	return nil
}
