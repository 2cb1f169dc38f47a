package cli

import (
	"fmt"
	"text/tabwriter"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/usecase/article"

	"github.com/spf13/cobra"
)

func newDedupeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate articles, keeping the oldest row per URL",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			n, err := (&article.Service{Repo: a.repos.Articles}).Dedupe(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate articles\n", n)
			return nil
		}),
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show article counts per label and per source",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			svc := &article.Service{Repo: a.repos.Articles, Sources: a.repos.Sources}
			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "total: %d\n\n", stats.Total)

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tARTICLES")
			for _, l := range []entity.Label{entity.LabelAccident, entity.LabelNotAccident, entity.LabelUnclassified} {
				fmt.Fprintf(tw, "%s\t%d\n", l, stats.ByLabel[l])
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "SOURCE\tARTICLES")
			for _, s := range stats.BySource {
				fmt.Fprintf(tw, "%s\t%d\n", s.Name, s.Count)
			}
			return tw.Flush()
		}),
	}
}
