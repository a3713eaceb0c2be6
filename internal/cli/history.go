package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"recicleai/internal/config"
	"recicleai/internal/model"
	"recicleai/internal/repository/sqlite"
)

func historyCmd(envFile *string) *cobra.Command {
	var (
		limit   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent confirmations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.DatabasePath); err != nil {
				return fmt.Errorf("no history database at %s: %w", cfg.DatabasePath, err)
			}

			db, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := sqlite.NewConfirmationRepository(db)

			var confirmations []model.Confirmation
			if session != "" {
				confirmations, err = repo.BySession(session, limit)
			} else {
				confirmations, err = repo.Recent(limit)
			}
			if err != nil {
				return err
			}

			if len(confirmations) == 0 {
				fmt.Println("(no confirmations recorded)")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tLABEL\tSENT\tSESSION\tSNAPSHOT")
			for _, c := range confirmations {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
					c.ConfirmedAt.Format("2006-01-02 15:04:05"), c.Label, c.Sent, shortID(c.SessionID), c.Snapshot)
			}
			w.Flush()

			counts, err := repo.CountByLabel()
			if err != nil {
				return err
			}
			labels := make([]string, 0, len(counts))
			for label := range counts {
				labels = append(labels, string(label))
			}
			sort.Strings(labels)

			fmt.Println("\nTotals:")
			for _, label := range labels {
				fmt.Printf("  %-12s %d\n", label, counts[model.Label(label)])
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of confirmations to show")
	cmd.Flags().StringVar(&session, "session", "", "only show confirmations of this session")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
