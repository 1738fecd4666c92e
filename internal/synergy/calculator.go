package synergy

import (
	"errors"
	"fmt"
	"iter"

	"github.com/ramonehamilton/mtga-synergy/internal/counting"
	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

// DefaultMinBothPresent is the minimum number of games with both cards
// present before a pair is labeled.
const DefaultMinBothPresent = 500

var (
	// ErrNotEligible means a pair lacks statistics or support.
	ErrNotEligible = errors.New("pair not eligible")

	// ErrInvalidStats means wins exceed games somewhere.
	ErrInvalidStats = errors.New("invalid statistics")

	// ErrNegativeBucket means the marginal and joint counts are inconsistent.
	ErrNegativeBucket = errors.New("negative contingency bucket")

	// ErrBucketMismatch means the buckets do not sum to the totals.
	ErrBucketMismatch = errors.New("contingency buckets do not sum to totals")
)

// Declined counts pairs that passed the support gate but failed a
// statistical check.
type Declined struct {
	InvalidStats   int
	NegativeBucket int
	BucketMismatch int
}

// Total returns the sum of all decline counts.
func (d Declined) Total() int {
	return d.InvalidStats + d.NegativeBucket + d.BucketMismatch
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithMinBothPresent sets the support gate.
func WithMinBothPresent(n uint64) CalculatorOption {
	return func(c *Calculator) { c.minBoth = n }
}

// WithPrior sets the Beta prior used for smoothing.
func WithPrior(alpha, beta float64) CalculatorOption {
	return func(c *Calculator) {
		c.alpha = alpha
		c.beta = beta
	}
}

// Calculator derives label records from an Aggregator. It only reads the
// aggregator and may be rebuilt at any time.
type Calculator struct {
	agg     *Aggregator
	minBoth uint64
	alpha   float64
	beta    float64

	declined Declined
	belowMin int
}

// NewCalculator creates a calculator over agg.
func NewCalculator(agg *Aggregator, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		agg:     agg,
		minBoth: DefaultMinBothPresent,
		alpha:   1,
		beta:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinBothPresent returns the support gate in use.
func (c *Calculator) MinBothPresent() uint64 {
	return c.minBoth
}

// ComputePair builds the label record for cards a and b. Errors other than
// ErrNotEligible indicate inconsistent counts.
func (c *Calculator) ComputePair(a, b uint64) (LabelRecord, error) {
	sa, okA := c.agg.items.Lookup(a)
	sb, okB := c.agg.items.Lookup(b)
	sab, okAB := c.agg.pairs.Lookup(counting.PairKey(a, b))
	if !okA || !okB || !okAB {
		return LabelRecord{}, ErrNotEligible
	}
	if sab.Count < c.minBoth {
		return LabelRecord{}, fmt.Errorf("%w: %d games together, need %d", ErrNotEligible, sab.Count, c.minBoth)
	}

	total, totalWins := c.agg.totalGames, c.agg.totalWins
	if totalWins > total || sa.Wins > sa.Count || sb.Wins > sb.Count || sab.Wins > sab.Count {
		return LabelRecord{}, fmt.Errorf("%w: cards %d/%d", ErrInvalidStats, a, b)
	}

	// Signed arithmetic so that inconsistent inputs show up as negatives.
	n11, w11 := int64(sab.Count), int64(sab.Wins)
	n10, w10 := int64(sa.Count)-n11, int64(sa.Wins)-w11
	n01, w01 := int64(sb.Count)-n11, int64(sb.Wins)-w11
	n00 := int64(total) - int64(sa.Count) - int64(sb.Count) + n11
	w00 := int64(totalWins) - int64(sa.Wins) - int64(sb.Wins) + w11

	if n10 < 0 || w10 < 0 || n01 < 0 || w01 < 0 || n00 < 0 || w00 < 0 {
		return LabelRecord{}, fmt.Errorf("%w: cards %d/%d (n10=%d n01=%d n00=%d w10=%d w01=%d w00=%d)",
			ErrNegativeBucket, a, b, n10, n01, n00, w10, w01, w00)
	}
	if uint64(n11+n10+n01+n00) != total || uint64(w11+w10+w01+w00) != totalWins {
		return LabelRecord{}, fmt.Errorf("%w: cards %d/%d", ErrBucketMismatch, a, b)
	}

	rec := LabelRecord{
		CardA: a,
		CardB: b,
		N11:   uint64(n11),
		W11:   uint64(w11),
		N10:   uint64(n10),
		W10:   uint64(w10),
		N01:   uint64(n01),
		W01:   uint64(w01),
		N00:   uint64(n00),
		W00:   uint64(w00),
	}
	rec.P11 = smoothed(rec.W11, rec.N11, c.alpha, c.beta)
	rec.P10 = smoothed(rec.W10, rec.N10, c.alpha, c.beta)
	rec.P01 = smoothed(rec.W01, rec.N01, c.alpha, c.beta)
	rec.P00 = smoothed(rec.W00, rec.N00, c.alpha, c.beta)
	rec.SynDelta = rec.P11 - rec.P10 - rec.P01 + rec.P00
	return rec, nil
}

// EligiblePairs yields a record for every pair that passes the support gate
// and the statistical checks, in hash-table order. Pairs failing a check are
// logged and counted in Declined.
func (c *Calculator) EligiblePairs() iter.Seq[LabelRecord] {
	return func(yield func(LabelRecord) bool) {
		log := logging.With("synergy")

		for key := range c.agg.pairs.All() {
			a, b := counting.DecodePairKey(key)
			rec, err := c.ComputePair(a, b)
			switch {
			case err == nil:
				if !yield(rec) {
					return
				}
			case errors.Is(err, ErrNotEligible):
				c.belowMin++
			default:
				c.countDecline(err)
				log.Warn().Err(err).Uint64("card_a", a).Uint64("card_b", b).Msg("pair declined")
			}
		}
	}
}

func (c *Calculator) countDecline(err error) {
	switch {
	case errors.Is(err, ErrInvalidStats):
		c.declined.InvalidStats++
	case errors.Is(err, ErrNegativeBucket):
		c.declined.NegativeBucket++
	case errors.Is(err, ErrBucketMismatch):
		c.declined.BucketMismatch++
	}
}

// Declined returns how many pairs EligiblePairs has declined so far.
func (c *Calculator) Declined() Declined {
	return c.declined
}

// BelowSupport returns how many pairs EligiblePairs skipped for lacking
// support.
func (c *Calculator) BelowSupport() int {
	return c.belowMin
}
