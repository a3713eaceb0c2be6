package cli

import (
	"context"

	"github.com/spf13/cobra"

	"recicleai/internal/app"
	"recicleai/internal/config"
	"recicleai/internal/logger"
)

func runCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Classify frames and actuate the sorter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassifier(cmd.Context(), *envFile)
		},
	}
}

func runClassifier(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return err
	}
	defer log.Close()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("Startup failed: %v", err)
		return err
	}

	return application.Run(ctx)
}
