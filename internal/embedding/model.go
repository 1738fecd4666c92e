// Package embedding implements the bilinear card synergy model: a per-card
// bias and embedding vector plus a global bias. The predicted synergy of two
// cards is
//
//	dot(e_a, e_b) + bias_a + bias_b + globalBias
package embedding

import (
	"fmt"
	"iter"
	"math/rand/v2"
)

const (
	// MaxEmbedDim is the largest embedding dimension a model may use.
	MaxEmbedDim = 16

	// DefaultEmbedDim is the dimension of new models.
	DefaultEmbedDim = MaxEmbedDim

	// initScale bounds the uniform initialization of new embeddings.
	initScale = 0.05
)

// CardModel holds the learned parameters of one card. Only the first
// EmbedDim entries of Embedding are used; the rest stay zero.
type CardModel struct {
	ID        uint64
	Bias      float32
	Embedding [MaxEmbedDim]float32
}

// Model is a collection of card parameters. Cards are created lazily and
// never removed.
type Model struct {
	GlobalBias float32
	EmbedDim   int

	cards []*CardModel
	index map[uint64]int
	rng   *rand.Rand
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithSeed makes embedding initialization deterministic.
func WithSeed(seed uint64) ModelOption {
	return func(m *Model) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewModel creates an empty model with the given embedding dimension.
func NewModel(dim int, opts ...ModelOption) (*Model, error) {
	if dim < 1 || dim > MaxEmbedDim {
		return nil, fmt.Errorf("embedding dimension %d out of range [1, %d]", dim, MaxEmbedDim)
	}
	m := &Model{
		EmbedDim: dim,
		index:    make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m, nil
}

// GetOrCreate returns the parameters for id, creating them with a zero bias
// and a small random embedding on first use.
func (m *Model) GetOrCreate(id uint64) *CardModel {
	if i, ok := m.index[id]; ok {
		return m.cards[i]
	}
	c := &CardModel{ID: id}
	for j := 0; j < m.EmbedDim; j++ {
		c.Embedding[j] = float32((m.rng.Float64()*2 - 1) * initScale)
	}
	m.add(c)
	return c
}

func (m *Model) add(c *CardModel) {
	m.index[c.ID] = len(m.cards)
	m.cards = append(m.cards, c)
}

// Card returns the parameters for id without creating them.
func (m *Model) Card(id uint64) (*CardModel, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return m.cards[i], true
}

// Len returns the number of cards.
func (m *Model) Len() int {
	return len(m.cards)
}

// Cards yields cards in creation order.
func (m *Model) Cards() iter.Seq[*CardModel] {
	return func(yield func(*CardModel) bool) {
		for _, c := range m.cards {
			if !yield(c) {
				return
			}
		}
	}
}

// Predict returns the synergy score of a and b. Unknown cards fall back to
// the global bias.
func (m *Model) Predict(a, b uint64) float32 {
	ca, okA := m.Card(a)
	cb, okB := m.Card(b)
	if !okA || !okB {
		return m.GlobalBias
	}
	return m.predict(ca, cb)
}

func (m *Model) predict(ca, cb *CardModel) float32 {
	var dot float32
	for j := 0; j < m.EmbedDim; j++ {
		dot += ca.Embedding[j] * cb.Embedding[j]
	}
	return dot + ca.Bias + cb.Bias + m.GlobalBias
}
