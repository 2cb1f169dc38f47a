package cli

import (
	"fmt"

	"crashscraper/internal/infra/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the sources and articles tables",
		Long: `Migrate creates the tables and indexes for the configured store.
It is safe to run repeatedly. With --down the tables are dropped instead,
deleting every stored article.`,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if down {
				if err := db.MigrateDown(cmd.Context(), a.db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "tables dropped")
				return nil
			}
			if err := db.MigrateUp(cmd.Context(), a.db, a.dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.dialect)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&down, "down", false, "drop the tables")
	return cmd
}
