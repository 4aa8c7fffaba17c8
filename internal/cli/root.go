package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jobmedic/internal/config"
	"jobmedic/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// flagCfg receives flag values. Only flags the user set override the config
// file (see applyFlagOverrides).
var flagCfg = config.New()

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "jobmedic",
	Short: "Diagnose failed Slurm jobs of a workflow and restart the recoverable ones",
	Long: `JobMedic inspects a workflow running on a Slurm cluster, explains why its
failed jobs failed, and optionally resubmits the ones that are safe to restart
with scaled-up resources.

Examples:
	# Show available commands and global flags
	jobmedic --help

	# Diagnose failed targets and print a table
	jobmedic diagnose

	# Append records to a log and restart recoverable targets
	jobmedic diagnose -f failed.tsv --restart --multiplier 1.5

	# List failure types
	jobmedic failures list

	# Print build info
	jobmedic version

Configuration:
	Settings are read from .jobmedic.yaml (see --config) and a .env file in the
	current directory, if present. Flags override the config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is the common case.
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, flags.FlagConfig, config.DefaultFile, "Config file (optional unless set explicitly)")
	rootCmd.PersistentFlags().StringVar(&flagCfg.Workflow.WorkingDir, flags.FlagWorkingDir, ".", "Workflow working directory")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable debug logging")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
