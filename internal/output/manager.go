package output

import (
	"errors"
	"fmt"

	"jobmedic/internal/slurm"
)

// Sink is a destination for failure records and lifecycle events.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans every value out to all registered sinks.
type Manager struct {
	sinks   []Sink
	records int
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Write delivers v to every sink, even when some of them fail.
func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if _, ok := v.(slurm.Record); ok {
		m.records++
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Records is the number of failure records written so far.
func (m *Manager) Records() int {
	if m == nil {
		return 0
	}
	return m.records
}

func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}
