package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is the dependency structure of a set of targets.
//
// Dependencies maps a target name to the targets it consumes outputs from.
// Dependents is the reverse view: a target name to the targets consuming its
// outputs. Both hold sorted, de-duplicated names.
type Graph struct {
	Targets      map[string]*Target
	Dependencies map[string][]string
	Dependents   map[string][]string
	Providers    map[string]string
}

// Target returns the target with the given name.
func (g *Graph) Target(name string) (*Target, bool) {
	t, ok := g.Targets[name]
	return t, ok
}

// GraphBuilder builds a Graph over a set of targets.
type GraphBuilder interface {
	Build(targets map[string]*Target) (*Graph, error)
}

// UnresolvedInputError lists inputs that no target produces and that do not
// exist on disk.
type UnresolvedInputError struct {
	Inputs map[string][]string // target name -> unresolved paths
}

func (e *UnresolvedInputError) Error() string {
	names := sortedKeys(e.Inputs)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, strings.Join(e.Inputs[n], ", ")))
	}
	return "unresolved inputs: " + strings.Join(parts, "; ")
}

// FileGraphBuilder links targets through file paths: a target that lists a
// path as input depends on the target that lists it as output.
type FileGraphBuilder struct {
	FS Filesystem
}

func NewFileGraphBuilder(fs Filesystem) *FileGraphBuilder {
	return &FileGraphBuilder{FS: fs}
}

func (b *FileGraphBuilder) Build(targets map[string]*Target) (*Graph, error) {
	if b == nil || b.FS == nil {
		return nil, fmt.Errorf("graph builder filesystem is nil")
	}

	providers := make(map[string]string)
	for _, name := range sortedKeys(targets) {
		t := targets[name]
		for _, out := range t.Outputs {
			if prev, exists := providers[out]; exists {
				return nil, fmt.Errorf("file %q is provided by both %q and %q", out, prev, name)
			}
			providers[out] = name
		}
	}

	deps := make(map[string]map[string]struct{}, len(targets))
	rdeps := make(map[string]map[string]struct{}, len(targets))
	unresolved := make(map[string][]string)

	for _, name := range sortedKeys(targets) {
		t := targets[name]
		for _, in := range t.Inputs {
			provider, ok := providers[in]
			if !ok {
				if !b.FS.Exists(in) {
					unresolved[name] = append(unresolved[name], in)
				}
				continue
			}
			if provider == name {
				return nil, fmt.Errorf("target %q depends on its own output %q", name, in)
			}
			addEdge(deps, name, provider)
			addEdge(rdeps, provider, name)
		}
	}

	if len(unresolved) > 0 {
		return nil, &UnresolvedInputError{Inputs: unresolved}
	}

	return &Graph{
		Targets:      targets,
		Dependencies: flatten(deps),
		Dependents:   flatten(rdeps),
		Providers:    providers,
	}, nil
}

func addEdge(m map[string]map[string]struct{}, from, to string) {
	set, ok := m[from]
	if !ok {
		set = make(map[string]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

func flatten(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		out[k] = names
	}
	return out
}
