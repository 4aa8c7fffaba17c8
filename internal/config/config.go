package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect a
	// diagnose run, keep these in sync:
	// - CLI flags in internal/cli/diagnose.go (and applyFlagOverrides)
	// - the YAML keys listed in .jobmedic.example.yaml
	Workflow   Workflow   `yaml:"workflow"`
	Accounting Accounting `yaml:"accounting"`
	Restart    Restart    `yaml:"restart"`
	Output     Output     `yaml:"output"`
	Runtime    Runtime    `yaml:"runtime"`
}

type Workflow struct {
	// WorkingDir is the workflow root; every relative path below is resolved
	// against it (see --working-dir).
	WorkingDir string `yaml:"working_dir"`

	// File is the workflow definition (see --workflow).
	File string `yaml:"file"`

	// LogsDir holds the per-target stderr logs written by the backend.
	LogsDir string `yaml:"logs_dir"`

	// SpecHashesFile stores the last submitted spec hash of every target.
	SpecHashesFile string `yaml:"spec_hashes_file"`
}

type Accounting struct {
	// SacctBinary is the accounting command, looked up on PATH.
	SacctBinary string `yaml:"sacct_binary"`

	// TailLines is the number of stderr lines inspected per failed target.
	// Must be >= 1.
	TailLines int `yaml:"tail_lines"`
}

type Restart struct {
	// Enabled restarts recoverable failed targets and their dependents (see --restart).
	Enabled bool `yaml:"enabled"`

	// Multiplier scales walltime on Timeout and memory on OutOfMemory (see --multiplier).
	// Must be a finite number > 0.
	Multiplier float64 `yaml:"multiplier"`

	// DryRun prints the restart endpoints without submitting (see --dry-run).
	DryRun bool `yaml:"dry_run"`

	// SubmitCommand hands endpoints to the workflow engine (see --submit-command).
	// Scaled resources are passed only through the file named by
	// JOBMEDIC_OVERRIDES; the command or the workflow must read it.
	SubmitCommand string `yaml:"submit_command"`
}

type Output struct {
	// LogPath appends TSV records to this file instead of printing a table (see --log-path).
	LogPath string `yaml:"log_path"`

	// Emit writes an additional structured stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit string `yaml:"emit"`

	// NoConsole suppresses the table sink (see --no-console).
	NoConsole bool `yaml:"no_console"`

	// MetricsFile writes Prometheus text-format metrics of the run (see --metrics-file).
	MetricsFile string `yaml:"metrics_file"`
}

type Runtime struct {
	// Verbose enables debug logging (see --verbose).
	Verbose bool `yaml:"verbose"`
}

func New() *Config {
	return &Config{
		Workflow: Workflow{
			WorkingDir:     ".",
			File:           "workflow.yaml",
			LogsDir:        ".gwf/logs",
			SpecHashesFile: ".gwf/spec-hashes.json",
		},
		Accounting: Accounting{
			SacctBinary: "sacct",
			TailLines:   3,
		},
		Restart: Restart{
			Multiplier:    2.0,
			SubmitCommand: "gwf run",
		},
	}
}

func (c *Config) Validate() error {
	c.Workflow.WorkingDir = strings.TrimSpace(c.Workflow.WorkingDir)
	if c.Workflow.WorkingDir == "" {
		c.Workflow.WorkingDir = "."
	}
	if strings.TrimSpace(c.Workflow.File) == "" {
		return errors.New("--workflow must not be empty")
	}
	if strings.TrimSpace(c.Workflow.LogsDir) == "" {
		return errors.New("workflow.logs_dir must not be empty")
	}

	// Accounting validation
	if strings.TrimSpace(c.Accounting.SacctBinary) == "" {
		return errors.New("accounting.sacct_binary must not be empty")
	}
	if c.Accounting.TailLines < 1 {
		return errors.New("accounting.tail_lines must be >= 1")
	}

	// Restart validation
	m := c.Restart.Multiplier
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return fmt.Errorf("--multiplier must be a finite number > 0, got %v", m)
	}
	if c.Restart.DryRun && !c.Restart.Enabled {
		return errors.New("--dry-run requires --restart")
	}
	if c.Restart.Enabled && !c.Restart.DryRun && strings.TrimSpace(c.Restart.SubmitCommand) == "" {
		return errors.New("--submit-command must not be empty when restarting")
	}

	// Output validation
	c.Output.Emit = normalizeEnumValue(c.Output.Emit)
	if c.Output.Emit != "" && c.Output.Emit != "json" && c.Output.Emit != "ndjson" {
		return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", c.Output.Emit)
	}

	return nil
}

// Path resolves p against the workflow working directory. Absolute paths and
// the empty string are returned unchanged.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Workflow.WorkingDir, p)
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
