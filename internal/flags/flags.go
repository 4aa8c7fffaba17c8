package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants avoids drift between Cobra flag wiring and the
// code that decides whether a flag overrides the config file.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVarP(&cfg.Output.LogPath, flags.FlagLogPath, "f", "", "...")
//	arg := "--" + flags.FlagLogPath
const (
	// Root
	FlagConfig     = "config"
	FlagWorkingDir = "working-dir"
	FlagVerbose    = "verbose"

	// Workflow
	FlagWorkflow = "workflow"

	// Restart
	FlagRestart       = "restart"
	FlagMultiplier    = "multiplier"
	FlagDryRun        = "dry-run"
	FlagSubmitCommand = "submit-command"

	// Output
	FlagLogPath     = "log-path"
	FlagEmit        = "emit"
	FlagNoConsole   = "no-console"
	FlagMetricsFile = "metrics-file"
)
