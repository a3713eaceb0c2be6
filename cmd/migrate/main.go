package main

import (
	"os"

	"recicleai/internal/cli"
)

func main() {
	envFile := ".env"
	cmd := cli.MigrateCmd(&envFile)
	cmd.PersistentFlags().StringVar(&envFile, "env-file", envFile, "optional .env file with configuration overrides")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
