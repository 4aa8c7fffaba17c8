package restart

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"jobmedic/internal/failure"
	"jobmedic/internal/resources"
	"jobmedic/internal/workflow"
)

func diamond() map[string][]string {
	return map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
	}
}

func TestResolve_RecoverableFailureIncludesDependents(t *testing.T) {
	got := Resolve(diamond(), map[string]failure.Type{"A": failure.Timeout})
	require.Equal(t, []string{"A", "B", "C", "D"}, got)
}

func TestResolve_NonRecoverableDominates(t *testing.T) {
	// B and D are reachable from the Submission failure on B and are
	// excluded even though the Timeout on A reaches them as well.
	got := Resolve(diamond(), map[string]failure.Type{
		"A": failure.Timeout,
		"B": failure.Submission,
	})
	require.Equal(t, []string{"A", "C"}, got)
	require.NotContains(t, got, "B")
	require.NotContains(t, got, "D")
}

func TestResolve_NonRecoverableUpstreamExcludesEverything(t *testing.T) {
	got := Resolve(diamond(), map[string]failure.Type{
		"A": failure.Unknown,
		"C": failure.OutOfMemory,
	})
	require.Empty(t, got)
}

func TestResolve_AllRecoverableTypes(t *testing.T) {
	for _, ft := range failure.Types() {
		got := Resolve(nil, map[string]failure.Type{"X": ft})
		if ft.Recoverable() {
			require.Equal(t, []string{"X"}, got, ft.String())
		} else {
			require.Empty(t, got, ft.String())
		}
	}
}

func TestResolve_IndependentOfIterationOrder(t *testing.T) {
	failures := map[string]failure.Type{
		"A": failure.FileSystem,
		"B": failure.Submission,
		"C": failure.OutOfMemory,
	}
	want := Resolve(diamond(), failures)
	for i := 0; i < 20; i++ {
		require.Equal(t, want, Resolve(diamond(), failures))
	}
}

func TestResolve_TerminatesOnCycle(t *testing.T) {
	cyclic := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	got := Resolve(cyclic, map[string]failure.Type{"A": failure.Timeout})
	require.Equal(t, []string{"A", "B"}, got)

	got = Resolve(cyclic, map[string]failure.Type{"A": failure.Timeout, "B": failure.Unknown})
	require.Empty(t, got)
}

func TestClosure_VisitsEachNodeOnce(t *testing.T) {
	// Dense graph with cycles: every node points at every other node.
	const n = 50
	g := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				g[fmt.Sprint(i)] = append(g[fmt.Sprint(i)], fmt.Sprint(j))
			}
		}
	}

	acc := map[string]struct{}{}
	added := Closure(g, "0", acc)
	require.Equal(t, n, added)
	require.Len(t, acc, n)

	require.Equal(t, 0, Closure(g, "7", acc))
}

func TestClosure_DeepChainDoesNotRecurse(t *testing.T) {
	const depth = 200000
	g := make(map[string][]string, depth)
	for i := 0; i < depth-1; i++ {
		g[fmt.Sprint(i)] = []string{fmt.Sprint(i + 1)}
	}
	acc := map[string]struct{}{}
	require.Equal(t, depth, Closure(g, "0", acc))
}

func TestAdjustTargets(t *testing.T) {
	targets := map[string]*workflow.Target{
		"jobX": {Name: "jobX", Options: map[string]string{"walltime": "01:00:00", "memory": "4G"}},
		"jobY": {Name: "jobY", Options: map[string]string{"walltime": "01:00:00", "memory": "4G"}},
		"jobZ": {Name: "jobZ", Options: map[string]string{"walltime": "01:00:00", "memory": "4G"}},
	}
	failures := map[string]failure.Type{
		"jobX": failure.Timeout,
		"jobY": failure.OutOfMemory,
		"jobZ": failure.FileSystem,
	}

	require.NoError(t, AdjustTargets(targets, failures, 2.0))
	require.Equal(t, map[string]string{"walltime": "02:00:00", "memory": "4G"}, targets["jobX"].Options)
	require.Equal(t, map[string]string{"walltime": "01:00:00", "memory": "8G"}, targets["jobY"].Options)
	require.Equal(t, map[string]string{"walltime": "01:00:00", "memory": "4G"}, targets["jobZ"].Options)
}

func TestAdjustTargets_MemoryMultiplier(t *testing.T) {
	targets := map[string]*workflow.Target{
		"jobY": {Name: "jobY", Options: map[string]string{"memory": "4G"}},
	}
	require.NoError(t, AdjustTargets(targets, map[string]failure.Type{"jobY": failure.OutOfMemory}, 1.5))
	require.Equal(t, "6G", targets["jobY"].Options["memory"])
}

func TestAdjustTargets_ParseErrorLeavesTargetsUntouched(t *testing.T) {
	targets := map[string]*workflow.Target{
		"a": {Name: "a", Options: map[string]string{"walltime": "01:00:00"}},
		"b": {Name: "b", Options: map[string]string{"memory": "lots"}},
	}
	failures := map[string]failure.Type{"a": failure.Timeout, "b": failure.OutOfMemory}

	err := AdjustTargets(targets, failures, 2)
	var pe *resources.ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "01:00:00", targets["a"].Options["walltime"])
	require.Equal(t, "lots", targets["b"].Options["memory"])
}

func TestAdjustTargets_MissingOption(t *testing.T) {
	targets := map[string]*workflow.Target{"a": {Name: "a"}}
	err := AdjustTargets(targets, map[string]failure.Type{"a": failure.Timeout}, 2)
	var pe *resources.ParseError
	require.True(t, errors.As(err, &pe))
}

func TestAdjustTargets_UnknownTarget(t *testing.T) {
	err := AdjustTargets(map[string]*workflow.Target{}, map[string]failure.Type{"ghost": failure.Timeout}, 2)
	require.Error(t, err)
}

type staticBuilder struct {
	dependents map[string][]string
	seen       map[string]string
}

func (b *staticBuilder) Build(targets map[string]*workflow.Target) (*workflow.Graph, error) {
	b.seen = map[string]string{}
	for n, t := range targets {
		b.seen[n] = t.Options["walltime"]
	}
	return &workflow.Graph{Targets: targets, Dependents: b.dependents}, nil
}

type recordingSubmitter struct {
	endpoints []string
	caches    workflow.Caches
	err       error
}

func (s *recordingSubmitter) Submit(_ context.Context, endpoints []*workflow.Target, _ *workflow.Graph, caches workflow.Caches) error {
	for _, e := range endpoints {
		s.endpoints = append(s.endpoints, e.Name)
	}
	s.caches = caches
	return s.err
}

func diamondTargets() map[string]*workflow.Target {
	out := map[string]*workflow.Target{}
	for _, n := range []string{"A", "B", "C", "D"} {
		out[n] = &workflow.Target{Name: n, Options: map[string]string{"walltime": "01:00:00", "memory": "4G"}}
	}
	return out
}

func TestOrchestrator_Restart(t *testing.T) {
	builder := &staticBuilder{dependents: diamond()}
	sub := &recordingSubmitter{}
	o := &Orchestrator{Builder: builder, Submitter: sub, Multiplier: 2}

	targets := diamondTargets()
	caches := workflow.Caches{SpecHashes: workflow.NoopSpecHashes{}}
	got, err := o.Restart(context.Background(), targets, map[string]failure.Type{
		"A": failure.Timeout,
		"B": failure.Submission,
	}, caches)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, got)
	require.Equal(t, []string{"A", "C"}, sub.endpoints)
	require.Equal(t, caches, sub.caches)

	// The graph was rebuilt over the adjusted targets.
	require.Equal(t, "02:00:00", builder.seen["A"])
	require.Equal(t, "01:00:00", builder.seen["B"])
}

func TestOrchestrator_NothingEligibleSkipsSubmit(t *testing.T) {
	sub := &recordingSubmitter{}
	o := &Orchestrator{Builder: &staticBuilder{dependents: diamond()}, Submitter: sub, Multiplier: 2}

	got, err := o.Restart(context.Background(), diamondTargets(), map[string]failure.Type{"A": failure.Unknown}, workflow.Caches{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Nil(t, sub.endpoints)
}

func TestOrchestrator_ParseErrorAbortsBeforeSubmit(t *testing.T) {
	sub := &recordingSubmitter{}
	builder := &staticBuilder{dependents: diamond()}
	o := &Orchestrator{Builder: builder, Submitter: sub, Multiplier: 2}

	targets := diamondTargets()
	targets["A"].Options["walltime"] = "forever"
	_, err := o.Restart(context.Background(), targets, map[string]failure.Type{"A": failure.Timeout}, workflow.Caches{})
	var pe *resources.ParseError
	require.True(t, errors.As(err, &pe))
	require.Nil(t, builder.seen)
	require.Nil(t, sub.endpoints)
}

func TestOrchestrator_SubmitErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	o := &Orchestrator{
		Builder:    &staticBuilder{dependents: diamond()},
		Submitter:  &recordingSubmitter{err: boom},
		Multiplier: 2,
	}
	_, err := o.Restart(context.Background(), diamondTargets(), map[string]failure.Type{"D": failure.FileSystem}, workflow.Caches{})
	require.ErrorIs(t, err, boom)
}

func TestScaledOption(t *testing.T) {
	for _, ft := range failure.Types() {
		key, scale := ScaledOption(ft)
		switch ft {
		case failure.Timeout:
			require.Equal(t, "walltime", key)
			require.NotNil(t, scale)
		case failure.OutOfMemory:
			require.Equal(t, "memory", key)
			require.NotNil(t, scale)
		default:
			require.Empty(t, key)
			require.Nil(t, scale)
		}
	}
	require.Panics(t, func() { ScaledOption(failure.Type(42)) })
}
