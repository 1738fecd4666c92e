package cli

import (
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/embedding"
	"github.com/ramonehamilton/mtga-synergy/internal/pipeline"
)

func (a *app) trainCmd() *cobra.Command {
	var (
		lr     float64
		reg    float64
		epochs int
		seed   uint64
		chart  string
		store  bool
	)

	cmd := &cobra.Command{
		Use:   "train <labels.csv> <model.bin>",
		Short: "Fit an embedding model to a label file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := embedding.TrainConfig{
				LearningRate: a.cfg.Training.LearningRate,
				L2Reg:        a.cfg.Training.L2Reg,
				Epochs:       a.cfg.Training.Epochs,
				Seed:         a.cfg.Training.Seed,
			}
			flags := cmd.Flags()
			if flags.Changed("lr") {
				tc.LearningRate = lr
			}
			if flags.Changed("reg") {
				tc.L2Reg = reg
			}
			if flags.Changed("epochs") {
				tc.Epochs = epochs
			}
			if flags.Changed("seed") {
				tc.Seed = seed
			}

			opts, closeStore, err := a.jobOptions(store)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := pipeline.NewTrainJob(pipeline.TrainJobConfig{
				LabelsPath: args[0],
				ModelPath:  args[1],
				EmbedDim:   a.cfg.Training.EmbedDim,
				Train:      tc,
				ChartPath:  chart,
			}, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}
			a.flushMetrics()

			printf(cmd, "trained %d cards on %d samples, final mse %.6f\n", res.Cards, res.Samples, res.FinalMSE)
			printf(cmd, "model written to %s (seed %d)\n", args[1], res.Seed)
			if res.RunID != "" {
				printf(cmd, "run %s\n", res.RunID)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&lr, "lr", embedding.DefaultLearningRate, "learning rate")
	flags.Float64Var(&reg, "reg", embedding.DefaultL2Reg, "L2 regularization")
	flags.IntVar(&epochs, "epochs", embedding.DefaultEpochs, "training epochs")
	flags.Uint64Var(&seed, "seed", 0, "random seed, 0 for a random one")
	flags.StringVar(&chart, "chart", "", "write an HTML loss chart to this file")
	flags.BoolVar(&store, "store", false, "record the run in the history database")
	return cmd
}
