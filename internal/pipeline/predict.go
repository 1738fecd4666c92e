package pipeline

import (
	"errors"
	"fmt"

	"github.com/ramonehamilton/mtga-synergy/internal/catalog"
	"github.com/ramonehamilton/mtga-synergy/internal/embedding"
)

// ErrUnknownCard is returned when a card name is not in the catalog.
var ErrUnknownCard = errors.New("unknown card")

// Interpretation buckets a predicted synergy score.
type Interpretation string

const (
	StrongPositive   Interpretation = "strong positive synergy"
	ModeratePositive Interpretation = "moderate positive synergy"
	Neutral          Interpretation = "neutral"
	ModerateNegative Interpretation = "moderate negative synergy"
	StrongNegative   Interpretation = "strong negative synergy"
)

// Interpret buckets a score. Scores are win-rate deltas, so 0.02 is two
// percentage points.
func Interpret(score float32) Interpretation {
	switch {
	case score > 0.02:
		return StrongPositive
	case score > 0.005:
		return ModeratePositive
	case score > -0.005:
		return Neutral
	case score > -0.02:
		return ModerateNegative
	default:
		return StrongNegative
	}
}

// Prediction is a scored card pair.
type Prediction struct {
	CardA catalog.Card
	CardB catalog.Card
	Score float32

	// Unseen lists cards the model has no parameters for. When it is not
	// empty the score is the global bias.
	Unseen []uint64
}

// Interpretation returns the bucket of the score.
func (p *Prediction) Interpretation() Interpretation {
	return Interpret(p.Score)
}

// Predictor scores card pairs by name.
type Predictor struct {
	model   *embedding.Model
	catalog *catalog.Catalog
}

// NewPredictor wraps a loaded model and catalog.
func NewPredictor(model *embedding.Model, cat *catalog.Catalog) *Predictor {
	return &Predictor{model: model, catalog: cat}
}

// LoadPredictor reads a model file and a card catalog.
func LoadPredictor(modelPath, cardsPath string) (*Predictor, error) {
	model, err := embedding.LoadFile(modelPath)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cardsPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(model, cat), nil
}

// Predict scores the pair named a and b.
func (p *Predictor) Predict(a, b string) (*Prediction, error) {
	ca, err := p.resolve(a)
	if err != nil {
		return nil, err
	}
	cb, err := p.resolve(b)
	if err != nil {
		return nil, err
	}

	pred := &Prediction{CardA: ca, CardB: cb, Score: p.model.Predict(ca.ID, cb.ID)}
	for _, c := range []catalog.Card{ca, cb} {
		if _, ok := p.model.Card(c.ID); !ok {
			pred.Unseen = append(pred.Unseen, c.ID)
		}
	}
	return pred, nil
}

func (p *Predictor) resolve(name string) (catalog.Card, error) {
	id, ok := p.catalog.ResolveID(name)
	if !ok {
		return catalog.Card{}, fmt.Errorf("%w: %q", ErrUnknownCard, name)
	}
	canonical, _ := p.catalog.ResolveName(id)
	return catalog.Card{ID: id, Name: canonical}, nil
}
