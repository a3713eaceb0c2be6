package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"recicleai/internal/config"
	"recicleai/internal/repository/sqlite"
)

// MigrateCmd creates or updates the history database schema.
func MigrateCmd(envFile *string) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the history database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			if dbPath == "" {
				cfg, err := config.Load(*envFile)
				if err != nil {
					return err
				}
				dbPath = cfg.DatabasePath
			}

			fmt.Printf("Migrating database %s\n", dbPath)

			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}

			db, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := db.Counts()
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(counts))
			for table := range counts {
				tables = append(tables, table)
			}
			sort.Strings(tables)

			fmt.Printf("✅ Schema is up to date\n\n📊 Database Statistics:\n")
			for _, table := range tables {
				fmt.Printf("   %s: %d rows\n", table, counts[table])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (defaults to DB_PATH)")
	return cmd
}
