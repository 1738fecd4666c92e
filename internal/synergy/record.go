// Package synergy aggregates per-card and per-pair game statistics and turns
// them into pairwise synergy labels.
//
// For cards A and B the 2x2 present/absent table is recovered from three
// lookups: n(A), n(B) and n(A,B). A and B are synergistic when the smoothed
// win rate with both present beats what each contributes alone:
//
//	synDelta = p11 - p10 - p01 + p00
package synergy

// LabelRecord is the contingency table and smoothed win rates of one pair.
// Suffixes read as (A present, B present): 11 both, 10 A only, 01 B only,
// 00 neither. The n buckets sum to the total games and the w buckets to the
// total wins.
type LabelRecord struct {
	CardA uint64
	CardB uint64

	N11, W11 uint64
	N10, W10 uint64
	N01, W01 uint64
	N00, W00 uint64

	P11, P10, P01, P00 float64
	SynDelta           float64
}

// Games returns n11+n10+n01+n00.
func (r LabelRecord) Games() uint64 {
	return r.N11 + r.N10 + r.N01 + r.N00
}

// Wins returns w11+w10+w01+w00.
func (r LabelRecord) Wins() uint64 {
	return r.W11 + r.W10 + r.W01 + r.W00
}

// SmoothedProb is the Beta(1,1) posterior mean win rate (w+1)/(n+2).
// With no games it is 0.5.
func SmoothedProb(wins, games uint64) float64 {
	return smoothed(wins, games, 1, 1)
}

func smoothed(wins, games uint64, alpha, beta float64) float64 {
	return (float64(wins) + alpha) / (float64(games) + alpha + beta)
}
