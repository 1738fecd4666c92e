package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/pipeline"
)

func (a *app) labelsCmd() *cobra.Command {
	var (
		minBoth int
		store   bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "labels <games.csv> <cards.csv> <labels.csv>",
		Short: "Aggregate game data and write synergy labels",
		Long: `Count every game of a 17Lands game data export and write one label row per
card pair seen together in at least --min-both games.

With --watch the job reruns from scratch whenever the games file changes.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pipeline.LabelJobConfig{
				GamesPath:      args[0],
				CardsPath:      args[1],
				LabelsPath:     args[2],
				MinBothPresent: uint64(a.cfg.Labels.MinBothPresent),
				MaxGameCards:   a.cfg.Labels.MaxGameCards,
			}
			if cmd.Flags().Changed("min-both") {
				if minBoth < 1 {
					return fmt.Errorf("--min-both must be at least 1, got %d", minBoth)
				}
				cfg.MinBothPresent = uint64(minBoth)
			}

			opts, closeStore, err := a.jobOptions(store)
			if err != nil {
				return err
			}
			defer closeStore()

			job := pipeline.NewLabelJob(cfg, opts...)
			run := func(ctx context.Context) error {
				res, err := job.Run(ctx)
				if err != nil {
					return err
				}
				a.flushMetrics()
				printf(cmd, "%d games, %d pairs, %d labels written to %s\n",
					res.Processed, res.Stats.CardPairs, res.Labels, cfg.LabelsPath)
				if d := res.Declined.Total(); d > 0 {
					printf(cmd, "%d pairs declined (invalid %d, negative %d, mismatch %d)\n",
						d, res.Declined.InvalidStats, res.Declined.NegativeBucket, res.Declined.BucketMismatch)
				}
				return nil
			}

			if watch {
				return pipeline.Watch(cmd.Context(), cfg.GamesPath, a.cfg.DebounceDuration(), run)
			}
			return run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&minBoth, "min-both", 0, "games with both cards required to label a pair (default from config)")
	cmd.Flags().BoolVar(&store, "store", false, "record the run and its labels in the history database")
	cmd.Flags().BoolVar(&watch, "watch", false, "rerun whenever the games file changes")
	return cmd
}
