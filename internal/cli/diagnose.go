package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"jobmedic/internal/config"
	"jobmedic/internal/engine"
	"jobmedic/internal/flags"
	"jobmedic/internal/logging"
	"jobmedic/internal/slurm"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Diagnose failed targets and optionally restart them",
	Long: `Diagnose failed targets of the workflow in the working directory.

Every target tracked by the Slurm backend is looked up with a single sacct
call. Targets whose job ended in a failed state are classified from the
scheduler state and the last lines of their stderr log:

	Timeout      state TIMEOUT or "CANCELLED ... DUE TO TIME LIMIT"
	OutOfMemory  oom_kill event in the batch step
	Submission   "sbatch: error: Batch job submission failed"
	FileSystem   "Device or resource busy"
	Unknown      anything else

Output:
	One record per failed target. By default records are printed as a table.
	With --log-path they are appended to a tab-separated file instead (the
	header is written only when the file is created).
	--emit ndjson streams lifecycle events (run.started, target.failed,
	restart.submitted, run.finished) to stdout.

Restart:
	With --restart, Timeout and OutOfMemory targets get their walltime or
	memory multiplied by --multiplier. Targets that failed with Timeout,
	OutOfMemory or FileSystem are restarted together with everything that
	depends on them, unless a target is also downstream of a Submission or
	Unknown failure. Endpoints are handed to --submit-command with their
	names appended. Scaled resources are written to a YAML overrides file
	whose path is exported as JOBMEDIC_OVERRIDES; a stock "gwf run" does not
	read it, so the workflow (or a wrapper command) must apply it.

Exit codes:
	0 = no failed targets
	1 = failed targets diagnosed
	2 = restart failed
	3 = fatal error (diagnosis did not run)

Examples:
  jobmedic diagnose
  jobmedic diagnose -f failed.tsv
  jobmedic diagnose --restart --dry-run
  jobmedic diagnose -r -m 1.5 --no-console --emit ndjson
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		runID := logging.NewRunID()
		logger := logging.ForRun(logging.Setup(cfg.Runtime.Verbose), runID)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng := engine.NewEngine(slurm.SacctRunner{Binary: cfg.Accounting.SacctBinary})
		eng.Logger = logger
		eng.RunID = runID
		code := eng.Run(ctx, cfg)
		stop()
		os.Exit(code)
	},
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	required := cmd.Flags().Changed(flags.FlagConfig)
	cfg, err := config.Load(cfgPath, required)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd.Flags(), cfg, flagCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(fs *pflag.FlagSet, dst, src *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set(flags.FlagWorkingDir, func() { dst.Workflow.WorkingDir = src.Workflow.WorkingDir })
	set(flags.FlagVerbose, func() { dst.Runtime.Verbose = src.Runtime.Verbose })
	set(flags.FlagWorkflow, func() { dst.Workflow.File = src.Workflow.File })
	set(flags.FlagRestart, func() { dst.Restart.Enabled = src.Restart.Enabled })
	set(flags.FlagMultiplier, func() { dst.Restart.Multiplier = src.Restart.Multiplier })
	set(flags.FlagDryRun, func() { dst.Restart.DryRun = src.Restart.DryRun })
	set(flags.FlagSubmitCommand, func() { dst.Restart.SubmitCommand = src.Restart.SubmitCommand })
	set(flags.FlagLogPath, func() { dst.Output.LogPath = src.Output.LogPath })
	set(flags.FlagEmit, func() { dst.Output.Emit = src.Output.Emit })
	set(flags.FlagNoConsole, func() { dst.Output.NoConsole = src.Output.NoConsole })
	set(flags.FlagMetricsFile, func() { dst.Output.MetricsFile = src.Output.MetricsFile })
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)

	// MAINTAINER NOTE: every flag added here needs a line in applyFlagOverrides.

	// Workflow
	diagnoseCmd.Flags().StringVar(&flagCfg.Workflow.File, flags.FlagWorkflow, flagCfg.Workflow.File, "Workflow definition file, relative to --working-dir")

	// Restart
	diagnoseCmd.Flags().BoolVarP(&flagCfg.Restart.Enabled, flags.FlagRestart, "r", false, "Restart failed targets and their dependents (only Timeout, OutOfMemory and FileSystem failures)")
	diagnoseCmd.Flags().Float64VarP(&flagCfg.Restart.Multiplier, flags.FlagMultiplier, "m", flagCfg.Restart.Multiplier, "Factor applied to walltime (Timeout) and memory (OutOfMemory) of failed targets")
	diagnoseCmd.Flags().BoolVar(&flagCfg.Restart.DryRun, flags.FlagDryRun, false, "With --restart, print the endpoints instead of submitting them")
	diagnoseCmd.Flags().StringVar(&flagCfg.Restart.SubmitCommand, flags.FlagSubmitCommand, flagCfg.Restart.SubmitCommand, "Command that submits endpoints; target names are appended")

	// Output
	diagnoseCmd.Flags().StringVarP(&flagCfg.Output.LogPath, flags.FlagLogPath, "f", "", "Append records to this tab-separated file instead of printing a table")
	diagnoseCmd.Flags().StringVar(&flagCfg.Output.Emit, flags.FlagEmit, "", "Emit an additional structured stream to stdout: json|ndjson")
	diagnoseCmd.Flags().BoolVar(&flagCfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress the table (use with --emit)")
	diagnoseCmd.Flags().StringVar(&flagCfg.Output.MetricsFile, flags.FlagMetricsFile, "", "Write Prometheus text-format metrics of the run to this file")
}
