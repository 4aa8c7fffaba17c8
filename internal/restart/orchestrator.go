package restart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jobmedic/internal/failure"
	"jobmedic/internal/workflow"
)

// Submitter hands endpoints to the workflow engine, which decides which of
// their ancestors must also run.
type Submitter interface {
	Submit(ctx context.Context, endpoints []*workflow.Target, graph *workflow.Graph, caches workflow.Caches) error
}

// Orchestrator restarts recoverable failed targets and their dependents.
// It holds no state between calls.
type Orchestrator struct {
	Builder    workflow.GraphBuilder
	Submitter  Submitter
	Multiplier float64
	Logger     *slog.Logger
}

// Restart scales the resources of failed targets, rebuilds the graph over
// all targets, resolves the restartable endpoints and submits them.
//
// targets is updated in place. The returned names are the endpoints that
// were submitted; an empty result means nothing was eligible.
func (o *Orchestrator) Restart(ctx context.Context, targets map[string]*workflow.Target, failures map[string]failure.Type, caches workflow.Caches) ([]string, error) {
	if o == nil {
		return nil, errors.New("orchestrator is nil")
	}
	if o.Builder == nil {
		return nil, errors.New("graph builder is nil")
	}
	if o.Submitter == nil {
		return nil, errors.New("submitter is nil")
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := AdjustTargets(targets, failures, o.Multiplier); err != nil {
		return nil, fmt.Errorf("adjust resources: %w", err)
	}

	graph, err := o.Builder.Build(targets)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	names := Resolve(graph.Dependents, failures)
	if len(names) == 0 {
		logger.Info("No restartable targets")
		return nil, nil
	}

	endpoints := make([]*workflow.Target, 0, len(names))
	for _, n := range names {
		t, ok := graph.Target(n)
		if !ok {
			return nil, fmt.Errorf("endpoint %q missing from graph", n)
		}
		endpoints = append(endpoints, t)
	}

	logger.Info("Submitting restart endpoints", "count", len(endpoints), "endpoints", names)
	if err := o.Submitter.Submit(ctx, endpoints, graph, caches); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	return names, nil
}
