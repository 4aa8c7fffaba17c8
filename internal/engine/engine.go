package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"jobmedic/internal/config"
	"jobmedic/internal/failure"
	"jobmedic/internal/metrics"
	"jobmedic/internal/output"
	"jobmedic/internal/restart"
	"jobmedic/internal/slurm"
	"jobmedic/internal/submit"
	"jobmedic/internal/workflow"
)

func exitCodeForRun(fatal, restartFailed, failed bool) int {
	// Exit code contract:
	// 0 = no failed targets
	// 1 = failed targets diagnosed
	// 2 = diagnosis succeeded but the restart failed
	// 3 = fatal error (diagnosis did not run)
	if fatal {
		return 3
	}
	if restartFailed {
		return 2
	}
	if failed {
		return 1
	}
	return 0
}

type Engine struct {
	Runner slurm.Runner

	// Stdout receives the table, the emit stream and dry-run output.
	Stdout io.Writer
	Logger *slog.Logger
	RunID  string

	// newSubmitter is a test seam. If nil, the submitter is built from cfg.
	newSubmitter func(cfg *config.Config) restart.Submitter
}

func NewEngine(runner slurm.Runner) *Engine {
	return &Engine{Runner: runner}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// outputs splits sinks by lifetime. Records holds the table or TSV file and is
// closed once diagnosis is done, so the table is drawn before any restart
// output. Events holds the emit stream and lives for the whole run.
type outputs struct {
	Records *output.Manager
	Events  *output.Manager
}

// Write sends v to both managers.
func (o *outputs) Write(v any) error {
	return errors.Join(o.Records.Write(v), o.Events.Write(v))
}

func (o *outputs) Close() error {
	return errors.Join(o.Records.Close(), o.Events.Close())
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*outputs, error) {
	out := &outputs{Records: output.NewManager(), Events: output.NewManager()}

	// File sink replaces the table, as the two are alternative renderings
	// of the same records.
	if cfg.Output.LogPath != "" {
		fs, err := output.NewTSVFileSink(cfg.Path(cfg.Output.LogPath))
		if err != nil {
			out.Close()
			return nil, err
		}
		if err := out.Records.AddSink(fs); err != nil {
			out.Close()
			return nil, err
		}
	} else if !cfg.Output.NoConsole {
		ts, err := output.NewTableSink(stdout)
		if err != nil {
			out.Close()
			return nil, err
		}
		if err := out.Records.AddSink(ts); err != nil {
			out.Close()
			return nil, err
		}
	}

	if cfg.Output.Emit != "" {
		es, err := output.NewEmitSink(stdout, cfg.Output.Emit)
		if err != nil {
			out.Close()
			return nil, err
		}
		if err := out.Events.AddSink(es); err != nil {
			out.Close()
			return nil, err
		}
	}

	return out, nil
}

func (e *Engine) submitter(cfg *config.Config) restart.Submitter {
	if e.newSubmitter != nil {
		return e.newSubmitter(cfg)
	}
	if cfg.Restart.DryRun {
		return &submit.DryRunSubmitter{Out: e.stdout()}
	}
	return &submit.CommandSubmitter{
		Command:    cfg.Restart.SubmitCommand,
		WorkingDir: cfg.Workflow.WorkingDir,
		Stdout:     os.Stderr,
		Stderr:     os.Stderr,
		Logger:     e.logger(),
	}
}

func loadTrackedJobs(cfg *config.Config, logger *slog.Logger) map[string]string {
	jobs, err := slurm.LoadTrackedJobs(slurm.TrackedJobsPath(cfg.Workflow.WorkingDir))
	var tse *slurm.TrackingStateError
	if errors.As(err, &tse) {
		logger.Warn("No usable tracked jobs; assuming nothing was submitted", "path", tse.Path, "error", tse.Err)
	}
	return jobs
}

// diagnose fetches and records every failed target. It returns the failure
// map or a fatal error.
func (e *Engine) diagnose(ctx context.Context, cfg *config.Config, wf *workflow.Workflow, outMgr *outputs) (map[string]failure.Type, error) {
	logger := e.logger()
	acct := &slurm.Accounting{
		Runner:      e.Runner,
		LogsDir:     cfg.Path(cfg.Workflow.LogsDir),
		TrackedJobs: loadTrackedJobs(cfg, logger),
		TailLines:   cfg.Accounting.TailLines,
		OnLogError:  func(string, error) { metrics.LogReadErrors.Inc() },
		Logger:      logger,
	}

	records, failures, err := acct.Fetch(ctx, wf.Targets)
	if err != nil {
		metrics.AccountingQueries.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AccountingQueries.WithLabelValues("ok").Inc()

	for _, r := range records {
		metrics.FailedTargets.WithLabelValues(r.FailureType.String()).Inc()
		logger.Debug("Failed target", "target", r.Name, "job", r.JobID, "failure_type", r.FailureType)
		if err := outMgr.Write(r); err != nil {
			logger.Error("Failed to write record", "target", r.Name, "error", err)
		}
	}
	return failures, nil
}

// restartTargets runs the orchestrator and reports the submitted endpoints.
func (e *Engine) restartTargets(ctx context.Context, cfg *config.Config, wf *workflow.Workflow, failures map[string]failure.Type, outMgr *output.Manager) error {
	logger := e.logger()

	hashes, err := workflow.LoadFileSpecHashes(cfg.Path(cfg.Workflow.SpecHashesFile))
	if err != nil {
		return err
	}
	fs := workflow.NewCachedFilesystem()
	fs.Root = cfg.Workflow.WorkingDir

	orch := &restart.Orchestrator{
		Builder:    workflow.NewFileGraphBuilder(fs),
		Submitter:  e.submitter(cfg),
		Multiplier: cfg.Restart.Multiplier,
		Logger:     logger,
	}
	endpoints, err := orch.Restart(ctx, wf.Targets, failures, workflow.Caches{FS: fs, SpecHashes: hashes})
	if err != nil {
		return err
	}

	metrics.RestartEndpoints.Set(float64(len(endpoints)))
	if len(endpoints) > 0 {
		_ = outMgr.Write(output.Event{Type: output.EventRestartSubmitted, RunID: e.RunID, Endpoints: endpoints})
	}
	return nil
}

func (e *Engine) writeMetrics(cfg *config.Config, start time.Time) {
	if cfg.Output.MetricsFile == "" {
		return
	}
	metrics.ObserveRun(start)
	if err := metrics.WriteTextfile(cfg.Path(cfg.Output.MetricsFile)); err != nil {
		e.logger().Warn("Failed to write metrics", "error", err)
	}
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	start := time.Now()
	logger := e.logger()
	defer e.writeMetrics(cfg, start)

	if e.Runner == nil {
		logger.Error("No accounting runner configured")
		return exitCodeForRun(true, false, false)
	}

	wfPath := cfg.Path(cfg.Workflow.File)
	wf, err := workflow.Load(wfPath)
	if err != nil {
		logger.Error("Failed to load workflow", "path", wfPath, "error", err)
		return exitCodeForRun(true, false, false)
	}
	logger.Debug("Loaded workflow", "path", wfPath, "targets", len(wf.Targets))

	outMgr, err := setupOutputManager(cfg, e.stdout())
	if err != nil {
		logger.Error("Failed to create output sinks", "error", err)
		return exitCodeForRun(true, false, false)
	}

	_ = outMgr.Write(output.Event{Type: output.EventRunStarted, RunID: e.RunID, Targets: len(wf.Targets)})

	failures, err := e.diagnose(ctx, cfg, wf, outMgr)
	if err != nil {
		logger.Error("Failed to fetch accounting", "error", err)
		code := exitCodeForRun(true, false, false)
		_ = outMgr.Write(output.Event{Type: output.EventRunFinished, RunID: e.RunID, ExitCode: code})
		if cerr := outMgr.Close(); cerr != nil {
			logger.Error("Failed to close output sinks", "error", cerr)
		}
		return code
	}
	logger.Info("Diagnosed failed targets", "count", len(failures))

	if err := outMgr.Records.Close(); err != nil {
		logger.Error("Failed to close output sinks", "error", err)
		code := exitCodeForRun(true, false, false)
		_ = outMgr.Events.Write(output.Event{Type: output.EventRunFinished, RunID: e.RunID, Failed: len(failures), ExitCode: code})
		_ = outMgr.Events.Close()
		return code
	}

	restartFailed := false
	if cfg.Restart.Enabled && len(failures) > 0 {
		if err := e.restartTargets(ctx, cfg, wf, failures, outMgr.Events); err != nil {
			metrics.RestartsTotal.WithLabelValues("error").Inc()
			logger.Error("Restart failed", "error", err)
			restartFailed = true
		} else {
			metrics.RestartsTotal.WithLabelValues("ok").Inc()
		}
	}

	code := exitCodeForRun(false, restartFailed, len(failures) > 0)
	_ = outMgr.Events.Write(output.Event{Type: output.EventRunFinished, RunID: e.RunID, Failed: len(failures), ExitCode: code})
	if err := outMgr.Events.Close(); err != nil {
		logger.Error("Failed to close output sinks", "error", err)
		return exitCodeForRun(true, false, false)
	}
	return code
}
