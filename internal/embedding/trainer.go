package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Default training hyperparameters.
const (
	DefaultLearningRate = 0.01
	DefaultL2Reg        = 0.001
	DefaultEpochs       = 50
)

// ErrNoSamples is returned when training is asked to fit nothing.
var ErrNoSamples = errors.New("no training samples")

// EpochStats describes one finished epoch.
type EpochStats struct {
	Epoch    int // 1-based
	Epochs   int
	MSE      float64
	Duration time.Duration
}

// TrainConfig holds the SGD hyperparameters.
type TrainConfig struct {
	LearningRate float64
	L2Reg        float64
	Epochs       int

	// Seed drives the per-epoch shuffle. Zero picks a random seed.
	Seed uint64

	// OnEpoch, if set, is called after every epoch.
	OnEpoch func(EpochStats)
}

// DefaultTrainConfig returns the default hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: DefaultLearningRate,
		L2Reg:        DefaultL2Reg,
		Epochs:       DefaultEpochs,
	}
}

// Validate checks the hyperparameters.
func (c TrainConfig) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.L2Reg < 0 {
		return fmt.Errorf("l2 regularization must not be negative, got %g", c.L2Reg)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be at least 1, got %d", c.Epochs)
	}
	return nil
}

// Trainer fits a Model to synergy samples with full-pass weighted SGD.
type Trainer struct {
	cfg  TrainConfig
	seed uint64
	rng  *rand.Rand
}

// NewTrainer creates a trainer. A zero cfg.Seed is replaced by a random
// non-zero one, reported by Seed.
func NewTrainer(cfg TrainConfig) *Trainer {
	seed := cfg.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}
	return &Trainer{
		cfg:  cfg,
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Seed returns the shuffle seed in use. Passing it back as TrainConfig.Seed
// reproduces the run.
func (t *Trainer) Seed() uint64 {
	return t.seed
}

// Train runs the configured number of epochs over samples and returns the
// weighted MSE of the last epoch. Every card referenced by a sample gets
// parameters in m. Cancellation is checked between epochs; a canceled run
// returns the MSE of the last finished epoch along with the context error.
func (t *Trainer) Train(ctx context.Context, m *Model, samples []Sample) (float64, error) {
	if err := t.cfg.Validate(); err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	var totalWeight float64
	for _, s := range samples {
		m.GetOrCreate(s.CardA)
		m.GetOrCreate(s.CardB)
		totalWeight += s.Weight
	}
	if totalWeight <= 0 {
		return 0, fmt.Errorf("total sample weight must be positive, got %g", totalWeight)
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	lr := float32(t.cfg.LearningRate)
	reg := float32(t.cfg.L2Reg)
	tw := float32(totalWeight)

	var mse float64
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return mse, fmt.Errorf("training stopped before epoch %d: %w", epoch, err)
		}
		start := time.Now()
		t.shuffle(order)

		var loss, weight float64
		for _, i := range order {
			s := samples[i]
			ca, _ := m.Card(s.CardA)
			cb, _ := m.Card(s.CardB)

			w := float32(s.Weight)
			e := m.predict(ca, cb) - float32(s.SynDelta)
			loss += float64(e * e * w)
			weight += s.Weight

			g := 2 * e * w / tw
			step(m, ca, cb, g, lr, reg)
		}
		mse = loss / weight

		if t.cfg.OnEpoch != nil {
			t.cfg.OnEpoch(EpochStats{
				Epoch:    epoch,
				Epochs:   t.cfg.Epochs,
				MSE:      mse,
				Duration: time.Since(start),
			})
		}
	}
	return mse, nil
}

// step applies one SGD update. Both embedding gradients read the values from
// before the update.
func step(m *Model, ca, cb *CardModel, g, lr, reg float32) {
	ca.Bias -= lr * (g + reg*ca.Bias)
	cb.Bias -= lr * (g + reg*cb.Bias)
	m.GlobalBias -= lr * g

	for j := 0; j < m.EmbedDim; j++ {
		ea, eb := ca.Embedding[j], cb.Embedding[j]
		ca.Embedding[j] = ea - lr*(g*eb+reg*ea)
		cb.Embedding[j] = eb - lr*(g*ea+reg*eb)
	}
}

// shuffle is a Fisher-Yates shuffle driven by the trainer's source.
func (t *Trainer) shuffle(order []int) {
	for i := len(order) - 1; i > 0; i-- {
		j := t.rng.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
}
