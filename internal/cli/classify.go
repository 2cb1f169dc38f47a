package cli

import (
	"context"
	"fmt"
	"log/slog"

	"crashscraper/internal/classifier"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/usecase/classify"

	"github.com/spf13/cobra"
)

type classifyOptions struct {
	preset     string
	thresholds []string
	batchSize  int
	workers    int
}

func (co *classifyOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&co.preset, "preset", "default", fmt.Sprintf("threshold preset %v", classifier.PresetNames()))
	cmd.Flags().StringArrayVar(&co.thresholds, "threshold", nil, "override one threshold, e.g. --threshold stem=3 (keys: literal, stem, lemma, weighted)")
	cmd.Flags().IntVar(&co.batchSize, "batch-size", classify.DefaultBatchSize, "articles read and written per batch")
	cmd.Flags().IntVar(&co.workers, "workers", 4, "concurrent classifications per batch")
}

// resolve builds the thresholds from the preset and the overrides.
func (co *classifyOptions) resolve() (classifier.Thresholds, error) {
	th, err := classifier.Preset(co.preset)
	if err != nil {
		return classifier.Thresholds{}, err
	}
	return th.WithOverrides(co.thresholds)
}

func newClassifyCmd(opts *options) *cobra.Command {
	co := &classifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify articles that have not been classified yet",
		Example: `  crashscraper classify
  crashscraper classify --preset lenient --threshold weighted=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, co, (*classify.Service).ClassifyPending)
		},
	}
	co.register(cmd)
	return cmd
}

func newReclassifyCmd(opts *options) *cobra.Command {
	co := &classifyOptions{}
	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Classify every stored article again",
		Long: `Reclassify overwrites the votes and label of every stored article.
Use it after changing the vocabulary or the thresholds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, co, (*classify.Service).ReclassifyAll)
		},
	}
	co.register(cmd)
	return cmd
}

type classifyFunc func(*classify.Service, context.Context, classifier.Thresholds) (int, error)

func runClassify(cmd *cobra.Command, opts *options, co *classifyOptions, run classifyFunc) error {
	// フラグの誤りはDB接続前に検出する
	th, err := co.resolve()
	if err != nil {
		return err
	}
	ensemble, err := opts.newEnsemble()
	if err != nil {
		return err
	}

	return withApp(func(cmd *cobra.Command, a *app) error {
		svc, err := classify.NewService(a.repos.Articles, ensemble, nil, classify.Options{
			BatchSize: co.batchSize,
			Workers:   co.workers,
		})
		if err != nil {
			return err
		}

		logging.FromContext(cmd.Context()).Info("classifying",
			slog.String("command", cmd.Name()),
			slog.String("thresholds", th.String()))

		n, err := run(svc, cmd.Context(), th)
		fmt.Fprintf(cmd.OutOrStdout(), "classified %d articles (%s)\n", n, th)
		return err
	})(cmd, nil)
}
