package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"crashscraper/internal/usecase/source"

	"github.com/spf13/cobra"
)

func newSourcesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source catalogue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Upsert the configured sources and deactivate removed ones",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			cfg, err := opts.loadSources()
			if err != nil {
				return err
			}
			res, err := (&source.Service{Repo: a.repos.Sources}).Sync(cmd.Context(), cfg.Sources)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d sources\n", res.Upserted)
			if len(res.Deactivated) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "deactivated: %s\n", strings.Join(res.Deactivated, ", "))
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sources",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			sources, err := (&source.Service{Repo: a.repos.Sources}).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tACTIVE\tLAST CRAWLED\tBASE URL")
			for _, s := range sources {
				crawled := "-"
				if s.LastCrawledAt != nil {
					crawled = s.LastCrawledAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%s\n", s.ID, s.Name, s.Kind, s.Active, crawled, s.BaseURL)
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(newSourcesCheckCmd(opts))
	return cmd
}
