package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtga-synergy/internal/catalog"
	"github.com/ramonehamilton/mtga-synergy/internal/embedding"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		score float32
		want  Interpretation
	}{
		{0.05, StrongPositive},
		{0.021, StrongPositive},
		{0.02, ModeratePositive},
		{0.01, ModeratePositive},
		{0.005, Neutral},
		{0, Neutral},
		{-0.004, Neutral},
		{-0.005, ModerateNegative},
		{-0.02, StrongNegative},
		{-0.5, StrongNegative},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Interpret(tt.score), "score %v", tt.score)
	}
}

func testPredictor(t *testing.T) *Predictor {
	t.Helper()
	m, err := embedding.NewModel(2, embedding.WithSeed(1))
	require.NoError(t, err)
	m.GlobalBias = 0.01

	a := m.GetOrCreate(1)
	a.Bias = 0.01
	a.Embedding = [embedding.MaxEmbedDim]float32{0.1, 0.2}
	b := m.GetOrCreate(2)
	b.Bias = 0.02
	b.Embedding = [embedding.MaxEmbedDim]float32{0.3, 0.1}

	cat := catalog.New()
	cat.Add(catalog.Card{ID: 1, Name: "Alpha"})
	cat.Add(catalog.Card{ID: 2, Name: "Beta"})
	cat.Add(catalog.Card{ID: 3, Name: "Gamma"})
	return NewPredictor(m, cat)
}

func TestPredictor_Predict(t *testing.T) {
	p := testPredictor(t)

	pred, err := p.Predict("  alpha ", "BETA")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", pred.CardA.Name)
	assert.Equal(t, "Beta", pred.CardB.Name)
	// 0.01 + 0.01 + 0.02 + (0.03 + 0.02)
	assert.InDelta(t, 0.09, pred.Score, 1e-6)
	assert.Equal(t, StrongPositive, pred.Interpretation())
	assert.Empty(t, pred.Unseen)
}

func TestPredictor_UnseenCard(t *testing.T) {
	p := testPredictor(t)

	pred, err := p.Predict("Alpha", "Gamma")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, pred.Unseen)
	assert.InDelta(t, 0.01, pred.Score, 1e-6)
}

func TestPredictor_UnknownCard(t *testing.T) {
	p := testPredictor(t)

	_, err := p.Predict("Alpha", "Nope")
	require.ErrorIs(t, err, ErrUnknownCard)
}

func TestLoadPredictor_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := NewLabelJob(f.labelConfig()).Run(ctx)
	require.NoError(t, err)
	_, err = NewTrainJob(f.trainConfig(3)).Run(ctx)
	require.NoError(t, err)

	p, err := LoadPredictor(f.model, f.cards)
	require.NoError(t, err)

	ab, err := p.Predict("Alpha", "Beta")
	require.NoError(t, err)
	ba, err := p.Predict("Beta", "Alpha")
	require.NoError(t, err)
	assert.InDelta(t, ab.Score, ba.Score, 1e-6)
}
