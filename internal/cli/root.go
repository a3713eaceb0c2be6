package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the recicleai command tree. Without a subcommand it runs
// the classifier.
func NewRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "recicleai",
		Short:        "RecicleAI - real-time waste classification driving a sorting actuator",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassifier(cmd.Context(), envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file with configuration overrides")

	cmd.AddCommand(runCmd(&envFile))
	cmd.AddCommand(historyCmd(&envFile))
	cmd.AddCommand(classesCmd(&envFile))
	cmd.AddCommand(MigrateCmd(&envFile))
	return cmd
}
