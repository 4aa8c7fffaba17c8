package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jobmedic/internal/failure"
	"jobmedic/internal/restart"
)

var failuresListQuiet bool

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Describe failure types",
	Long: `Describe the failure types jobmedic assigns to failed targets.

Examples:
  # List all failure types
  jobmedic failures list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var failuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List failure types",
	Long: `List every failure type in classification order.

Examples:
  jobmedic failures list

Output:
  A vertical list of failure types:
    ----------------------------------------
    TYPE: {NAME}
    ----------------------------------------
    {DESCRIPTION}
    Restartable: yes|no
    Scales:      {OPTION}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, t := range failure.Types() {
			if failuresListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			} else {
				printFailureType(cmd.OutOrStdout(), t)
			}
		}
		return nil
	},
}

var failuresShowCmd = &cobra.Command{
	Use:   "show [type]",
	Short: "Show details of a failure type",
	Long: `Show details of a failure type by name (case-insensitive).

Examples:
  jobmedic failures show timeout
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := failure.ParseType(args[0])
		if err != nil {
			return err
		}
		printFailureType(cmd.OutOrStdout(), t)
		return nil
	},
}

func printFailureType(w io.Writer, t failure.Type) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "TYPE: %s\n", t)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, t.Description())

	restartable := "no"
	if t.Recoverable() {
		restartable = "yes"
	}
	fmt.Fprintf(w, "Restartable: %s\n", restartable)
	if key, scale := restart.ScaledOption(t); scale != nil {
		fmt.Fprintf(w, "Scales:      %s\n", key)
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(failuresCmd)
	failuresCmd.AddCommand(failuresListCmd)
	failuresListCmd.Flags().BoolVarP(&failuresListQuiet, "quiet", "q", false, "Only print type names")
	failuresCmd.AddCommand(failuresShowCmd)
}
