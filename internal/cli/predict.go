package cli

import (
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/pipeline"
)

func (a *app) predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict <model.bin> <cards.csv> <card A> <card B>",
		Short: "Score the synergy of two cards",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.LoadPredictor(args[0], args[1])
			if err != nil {
				return err
			}
			pred, err := p.Predict(args[2], args[3])
			if err != nil {
				return err
			}

			printf(cmd, "%s (%d) + %s (%d)\n", pred.CardA.Name, pred.CardA.ID, pred.CardB.Name, pred.CardB.ID)
			printf(cmd, "synergy score: %+.6f\n", pred.Score)
			printf(cmd, "interpretation: %s\n", pred.Interpretation())
			for _, id := range pred.Unseen {
				printf(cmd, "note: card %d was not in the training labels; score is the global bias\n", id)
			}
			return nil
		},
	}
}
