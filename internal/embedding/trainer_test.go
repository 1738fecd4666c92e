package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrain_ConvergesOnSingleSample(t *testing.T) {
	m, err := NewModel(DefaultEmbedDim, WithSeed(7))
	require.NoError(t, err)

	cfg := DefaultTrainConfig()
	cfg.Epochs = 1000
	cfg.Seed = 3
	samples := []Sample{{CardA: 1, CardB: 2, SynDelta: 0.1, Weight: 1}}

	mse, err := NewTrainer(cfg).Train(context.Background(), m, samples)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, m.Predict(1, 2), 1e-3)
	assert.Less(t, mse, 1e-6)
	assert.Equal(t, 2, m.Len())
}

func TestTrain_MSENonIncreasingWithSmallRate(t *testing.T) {
	m, _ := NewModel(DefaultEmbedDim, WithSeed(11))

	var history []float64
	cfg := TrainConfig{
		LearningRate: 0.01,
		Epochs:       100,
		Seed:         5,
		OnEpoch: func(s EpochStats) {
			history = append(history, s.MSE)
		},
	}
	samples := []Sample{{CardA: 3, CardB: 4, SynDelta: -0.05, Weight: 10}}

	final, err := NewTrainer(cfg).Train(context.Background(), m, samples)
	require.NoError(t, err)
	require.Len(t, history, 100)
	assert.Equal(t, history[len(history)-1], final)

	for i := 1; i < len(history); i++ {
		assert.LessOrEqual(t, history[i], history[i-1], "epoch %d", i+1)
	}
}

func TestTrain_EpochStats(t *testing.T) {
	m, _ := NewModel(4, WithSeed(1))

	var got []EpochStats
	cfg := DefaultTrainConfig()
	cfg.Epochs = 3
	cfg.Seed = 1
	cfg.OnEpoch = func(s EpochStats) { got = append(got, s) }

	_, err := NewTrainer(cfg).Train(context.Background(), m, []Sample{
		{CardA: 1, CardB: 2, SynDelta: 0.02, Weight: 5},
		{CardA: 2, CardB: 3, SynDelta: -0.01, Weight: 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i+1, s.Epoch)
		assert.Equal(t, 3, s.Epochs)
		assert.False(t, math.IsNaN(s.MSE))
	}
	assert.Equal(t, 3, m.Len())
}

func TestTrain_Deterministic(t *testing.T) {
	samples := []Sample{
		{CardA: 1, CardB: 2, SynDelta: 0.03, Weight: 100},
		{CardA: 1, CardB: 3, SynDelta: -0.02, Weight: 40},
		{CardA: 2, CardB: 3, SynDelta: 0.01, Weight: 1},
		{CardA: 3, CardB: 4, SynDelta: 0.00, Weight: 7},
	}
	run := func() *Model {
		m, _ := NewModel(DefaultEmbedDim, WithSeed(21))
		cfg := DefaultTrainConfig()
		cfg.Seed = 8
		_, err := NewTrainer(cfg).Train(context.Background(), m, samples)
		require.NoError(t, err)
		return m
	}

	m1, m2 := run(), run()
	assert.Equal(t, math.Float32bits(m1.Predict(1, 3)), math.Float32bits(m2.Predict(1, 3)))
	assert.Equal(t, m1.GlobalBias, m2.GlobalBias)
}

func TestTrain_Errors(t *testing.T) {
	m, _ := NewModel(2, WithSeed(1))

	_, err := NewTrainer(DefaultTrainConfig()).Train(context.Background(), m, nil)
	require.ErrorIs(t, err, ErrNoSamples)

	bad := DefaultTrainConfig()
	bad.Epochs = 0
	_, err = NewTrainer(bad).Train(context.Background(), m, []Sample{{CardA: 1, CardB: 2, Weight: 1}})
	require.Error(t, err)

	_, err = NewTrainer(DefaultTrainConfig()).Train(context.Background(), m, []Sample{{CardA: 1, CardB: 2, Weight: 0}})
	require.Error(t, err)
}

func TestTrain_CanceledBetweenEpochs(t *testing.T) {
	m, _ := NewModel(2, WithSeed(1))
	ctx, cancel := context.WithCancel(context.Background())

	epochs := 0
	cfg := DefaultTrainConfig()
	cfg.Seed = 1
	cfg.OnEpoch = func(EpochStats) {
		epochs++
		if epochs == 2 {
			cancel()
		}
	}

	mse, err := NewTrainer(cfg).Train(ctx, m, []Sample{{CardA: 1, CardB: 2, SynDelta: 0.1, Weight: 1}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, epochs)
	assert.Positive(t, mse)
}

func TestStep_UsesPreUpdateEmbeddings(t *testing.T) {
	m, _ := NewModel(1, WithSeed(1))
	a := m.GetOrCreate(1)
	b := m.GetOrCreate(2)
	a.Embedding[0], b.Embedding[0] = 1, 2

	step(m, a, b, 1, 0.5, 0)

	// grad_a = g*e_b = 2, grad_b = g*e_a = 1, both from the old values.
	assert.Equal(t, float32(0), a.Embedding[0])
	assert.Equal(t, float32(1.5), b.Embedding[0])
	assert.Equal(t, float32(-0.5), a.Bias)
	assert.Equal(t, float32(-0.5), m.GlobalBias)
}

func TestShuffle_IsPermutation(t *testing.T) {
	tr := NewTrainer(TrainConfig{Seed: 4})
	order := []int{0, 1, 2, 3, 4, 5, 6, 7}
	tr.shuffle(order)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
}

func TestTrainer_SeedIsResolved(t *testing.T) {
	assert.Equal(t, uint64(4), NewTrainer(TrainConfig{Seed: 4}).Seed())

	random := NewTrainer(TrainConfig{}).Seed()
	assert.NotZero(t, random)

	order := func(seed uint64) []int {
		o := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		NewTrainer(TrainConfig{Seed: seed}).shuffle(o)
		return o
	}
	assert.Equal(t, order(random), order(random))
}
