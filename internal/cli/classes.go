package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"recicleai/internal/config"
)

func classesCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the class names the model was trained on",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}

			names, err := config.LoadClassNames(cfg.DataYAML)
			if err != nil {
				return err
			}

			fmt.Printf("Classes from %s:\n", cfg.DataYAML)
			for i, name := range names {
				fmt.Printf("  %2d  %s\n", i, name)
			}
			return nil
		},
	}
}
