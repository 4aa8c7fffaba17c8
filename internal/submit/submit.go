// Package submit hands restart endpoints to the workflow engine.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v2"

	"jobmedic/internal/workflow"
)

// OverridesEnv names the environment variable that points the workflow
// engine at the resource overrides file.
const OverridesEnv = "JOBMEDIC_OVERRIDES"

// OverridesFile is written next to the workflow state, relative to the
// working directory.
const OverridesFile = ".gwf/jobmedic-overrides.yaml"

// CommandSubmitter runs an external command with the endpoint names appended,
// e.g. "gwf run align sort". The adjusted options of every endpoint and
// ancestor are written to an overrides file whose path is exported as
// OverridesEnv. Scaled resources only take effect when the command reads that
// file; a stock gwf does not, so it is warned about.
type CommandSubmitter struct {
	// Command is parsed with shell quoting rules.
	Command    string
	WorkingDir string
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
}

type overrides struct {
	Targets map[string]map[string]string `yaml:"targets"`
}

func (s *CommandSubmitter) Submit(ctx context.Context, endpoints []*workflow.Target, graph *workflow.Graph, caches workflow.Caches) error {
	if len(endpoints) == 0 {
		return nil
	}
	if graph == nil {
		return errors.New("graph is nil")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	argv, err := shellwords.Parse(s.Command)
	if err != nil {
		return fmt.Errorf("parse submit command %q: %w", s.Command, err)
	}
	if len(argv) == 0 {
		return errors.New("submit command is empty")
	}

	if filepath.Base(argv[0]) == "gwf" {
		logger.Warn("gwf does not read resource overrides; restarted targets keep their options unless the workflow applies them",
			"command", s.Command, "env", OverridesEnv)
	}

	names := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		names = append(names, e.Name)
		if caches.SpecHashes != nil {
			if stored, ok := caches.SpecHashes.Get(e.Name); !ok || stored != workflow.SpecHash(e) {
				logger.Debug("Endpoint spec changed since last submission", "target", e.Name)
			}
		}
	}

	path, err := s.writeOverrides(endpoints, graph)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], names...)...)
	cmd.Dir = s.WorkingDir
	cmd.Env = append(os.Environ(), OverridesEnv+"="+path)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	logger.Debug("Running submit command", "argv", cmd.Args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("submit command %q: %w", argv[0], err)
	}
	return nil
}

// writeOverrides records the options of the endpoints and their ancestors,
// which the engine may need to rerun as well.
func (s *CommandSubmitter) writeOverrides(endpoints []*workflow.Target, graph *workflow.Graph) (string, error) {
	ov := overrides{Targets: map[string]map[string]string{}}

	seen := map[string]bool{}
	var stack []string
	for _, e := range endpoints {
		stack = append(stack, e.Name)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		if t, ok := graph.Target(n); ok && len(t.Options) > 0 {
			ov.Targets[n] = t.Options
		}
		stack = append(stack, graph.Dependencies[n]...)
	}

	raw, err := yaml.Marshal(ov)
	if err != nil {
		return "", fmt.Errorf("encode overrides: %w", err)
	}
	path := filepath.Join(s.WorkingDir, filepath.FromSlash(OverridesFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create overrides directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write overrides file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// DryRunSubmitter prints what would be submitted and submits nothing.
type DryRunSubmitter struct {
	Out io.Writer
}

func (s *DryRunSubmitter) Submit(_ context.Context, endpoints []*workflow.Target, _ *workflow.Graph, _ workflow.Caches) error {
	w := s.Out
	if w == nil {
		w = os.Stdout
	}
	for _, e := range endpoints {
		keys := make([]string, 0, len(e.Options))
		for k := range e.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if _, err := fmt.Fprintf(w, "would restart %s", e.Name); err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, " %s=%s", k, e.Options[k]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
