package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/pipeline"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/models"
)

func (a *app) runsCmd() *cobra.Command {
	var (
		limit       int
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1, got %d", limit)
			}
			store, err := pipeline.OpenStore(a.cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var runs []*models.TrainingRun
			if fingerprint != "" {
				runs, err = store.Training.ByFingerprint(cmd.Context(), fingerprint)
			} else {
				runs, err = store.Training.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printf(cmd, "no training runs recorded\n")
				return nil
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%-36s  %-20s  %7s  %6s  %10s  %20s  %-12s  %s\n",
				"id", "created", "samples", "cards", "mse", "seed", "labels", "model")
			for _, r := range runs {
				_, _ = fmt.Fprintf(w, "%-36s  %-20s  %7d  %6d  %10.6f  %20d  %-12s  %s\n",
					r.ID, r.CreatedAt.UTC().Format(time.DateTime), r.Samples, r.Cards, r.FinalMSE,
					uint64(r.Seed), shortFingerprint(r.LabelsFingerprint), r.ModelPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().StringVar(&fingerprint, "labels-fingerprint", "", "only runs trained on this label file fingerprint")
	return cmd
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
