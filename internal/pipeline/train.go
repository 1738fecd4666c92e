package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ramonehamilton/mtga-synergy/internal/charts"
	"github.com/ramonehamilton/mtga-synergy/internal/embedding"
	"github.com/ramonehamilton/mtga-synergy/internal/logging"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/models"
)

// epochLogInterval is how often training progress is logged.
const epochLogInterval = 10

// TrainJobConfig describes one training run.
type TrainJobConfig struct {
	LabelsPath string
	ModelPath  string
	EmbedDim   int // default embedding.DefaultEmbedDim

	Train embedding.TrainConfig

	// ChartPath, if set, receives an HTML chart of the per-epoch loss.
	ChartPath string
}

// TrainResult summarizes a finished training run.
type TrainResult struct {
	Samples     int
	Cards       int
	FinalMSE    float64
	History     []float64 // MSE per epoch
	Seed        uint64    // seed actually used, never zero
	Fingerprint string
	Duration    time.Duration

	// RunID is the stored run, or empty when no store is configured.
	RunID string
}

// TrainJob fits an embedding model to a label file and saves it.
type TrainJob struct {
	cfg  TrainJobConfig
	opts jobOptions
}

// NewTrainJob creates a training job.
func NewTrainJob(cfg TrainJobConfig, opts ...JobOption) *TrainJob {
	if cfg.EmbedDim == 0 {
		cfg.EmbedDim = embedding.DefaultEmbedDim
	}
	return &TrainJob{cfg: cfg, opts: newJobOptions(opts)}
}

// Run loads the samples, trains, and writes the model file.
func (j *TrainJob) Run(ctx context.Context) (*TrainResult, error) {
	start := time.Now()
	log := logging.With("trainer")
	m := j.opts.metrics

	if err := j.cfg.Train.Validate(); err != nil {
		return nil, err
	}

	samples, err := embedding.LoadSamples(j.cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	m.TrainingSamples.Set(float64(len(samples)))

	res := &TrainResult{Samples: len(samples)}
	tc := j.cfg.Train
	userHook := tc.OnEpoch
	tc.OnEpoch = func(s embedding.EpochStats) {
		res.History = append(res.History, s.MSE)
		m.ObserveEpoch(s.Duration, s.MSE)
		if s.Epoch%epochLogInterval == 0 || s.Epoch == s.Epochs {
			log.Info().Msgf("epoch %d/%d  mse=%.6f", s.Epoch, s.Epochs, s.MSE)
		}
		if userHook != nil {
			userHook(s)
		}
	}

	// One resolved seed drives initialization and shuffling.
	trainer := embedding.NewTrainer(tc)
	res.Seed = trainer.Seed()

	model, err := embedding.NewModel(j.cfg.EmbedDim, embedding.WithSeed(res.Seed))
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("samples", len(samples)).
		Int("dim", j.cfg.EmbedDim).
		Float64("lr", tc.LearningRate).
		Float64("reg", tc.L2Reg).
		Int("epochs", tc.Epochs).
		Uint64("seed", res.Seed).
		Msg("training")

	res.FinalMSE, err = trainer.Train(ctx, model, samples)
	if err != nil {
		return nil, err
	}
	res.Cards = model.Len()
	m.ModelCards.Set(float64(res.Cards))

	if err := embedding.SaveFile(j.cfg.ModelPath, model); err != nil {
		return nil, err
	}
	log.Info().Int("cards", res.Cards).Float64("mse", res.FinalMSE).Msgf("saved model to %s", j.cfg.ModelPath)

	if j.cfg.ChartPath != "" {
		cfg := charts.DefaultChartConfig()
		cfg.Title = "Training loss"
		cfg.Subtitle = fmt.Sprintf("%d samples, %d cards", res.Samples, res.Cards)
		if err := charts.RenderFile(charts.LossChart(res.History, cfg), j.cfg.ChartPath); err != nil {
			return nil, err
		}
	}

	if res.Fingerprint, err = Fingerprint(j.cfg.LabelsPath); err != nil {
		return nil, err
	}
	if j.opts.training != nil {
		run := &models.TrainingRun{
			LabelsPath:        j.cfg.LabelsPath,
			LabelsFingerprint: res.Fingerprint,
			ModelPath:         j.cfg.ModelPath,
			EmbedDim:          j.cfg.EmbedDim,
			LearningRate:      tc.LearningRate,
			L2Reg:             tc.L2Reg,
			Epochs:            tc.Epochs,
			Seed:              int64(res.Seed),
			Samples:           res.Samples,
			Cards:             res.Cards,
			FinalMSE:          res.FinalMSE,
		}
		if err := j.opts.training.Create(ctx, run); err != nil {
			return nil, err
		}
		res.RunID = run.ID
	}

	res.Duration = time.Since(start)
	m.JobDone("train", res.Duration)

	sum := m.Epochs()
	log.Debug().
		Int("epochs", sum.Count).
		Float64("mean_ms", sum.Mean).
		Float64("p95_ms", sum.P95).
		Float64("max_ms", sum.Max).
		Msg("epoch timings")
	return res, nil
}
