package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// Target is a unit of work in the workflow's dependency graph.
//
// Options holds resource requests keyed by option name ("walltime",
// "memory", ...). It is mutated in place when a restart scales resources.
type Target struct {
	Name    string            `yaml:"name"`
	Group   string            `yaml:"group,omitempty"`
	Inputs  []string          `yaml:"inputs,omitempty"`
	Outputs []string          `yaml:"outputs,omitempty"`
	Options map[string]string `yaml:"options,omitempty"`
	Spec    string            `yaml:"spec,omitempty"`
}

// GroupName is the target's group, falling back to its name.
func (t *Target) GroupName() string {
	if t.Group != "" {
		return t.Group
	}
	return t.Name
}

// Workflow is a set of targets keyed by name.
type Workflow struct {
	Targets map[string]*Target
}

type workflowFile struct {
	Defaults map[string]string `yaml:"defaults"`
	Targets  []*Target         `yaml:"targets"`
}

// Load reads a workflow definition from a YAML file.
//
// Each target may declare options; missing keys are filled from the file's
// top-level defaults block.
func Load(path string) (*Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML workflow definition.
func Parse(raw []byte) (*Workflow, error) {
	var wf workflowFile
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}

	targets := make(map[string]*Target, len(wf.Targets))
	for i, t := range wf.Targets {
		if t == nil || t.Name == "" {
			return nil, fmt.Errorf("target #%d: name is required", i+1)
		}
		if _, exists := targets[t.Name]; exists {
			return nil, fmt.Errorf("duplicate target name: %q", t.Name)
		}
		if t.Options == nil {
			t.Options = make(map[string]string, len(wf.Defaults))
		}
		for k, v := range wf.Defaults {
			if _, ok := t.Options[k]; !ok {
				t.Options[k] = v
			}
		}
		targets[t.Name] = t
	}
	return &Workflow{Targets: targets}, nil
}

// Names returns the target names in sorted order.
func (w *Workflow) Names() []string {
	return sortedKeys(w.Targets)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
