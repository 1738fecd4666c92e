package synergy

import (
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/ramonehamilton/mtga-synergy/internal/counting"
	"github.com/ramonehamilton/mtga-synergy/internal/gamedata"
	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

const (
	// DefaultMaxGameCards bounds the distinct cards counted per game.
	DefaultMaxGameCards = 100

	// Initial store sizes; both grow on demand.
	DefaultItemCapacity = 4096
	DefaultPairCapacity = 65536

	progressInterval = 100000
)

// ErrInvalidCard marks a game whose card ids cannot be counted. The game is
// skipped as a malformed record.
var ErrInvalidCard = errors.New("card id collides with a reserved key")

// AggregateStats summarizes what an Aggregator has seen.
type AggregateStats struct {
	TotalGames     uint64
	TotalWins      uint64
	UniqueCards    int
	CardPairs      int
	SkippedRecords int
	TruncatedGames int
	// OversizedIDs counts card occurrences whose id needs more than 32 bits;
	// their pair keys alias with other ids.
	OversizedIDs int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*aggregatorOptions)

type aggregatorOptions struct {
	maxGameCards int
	itemCapacity int
	pairCapacity int
	storeOpts    []counting.Option
}

// WithMaxGameCards sets how many distinct cards of one game are counted.
func WithMaxGameCards(n int) AggregatorOption {
	return func(o *aggregatorOptions) { o.maxGameCards = n }
}

// WithCapacity sets the initial item and pair store capacities.
func WithCapacity(items, pairs int) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.itemCapacity = items
		o.pairCapacity = pairs
	}
}

// WithStoreOptions passes options to both counting stores.
func WithStoreOptions(opts ...counting.Option) AggregatorOption {
	return func(o *aggregatorOptions) { o.storeOpts = append(o.storeOpts, opts...) }
}

// Aggregator accumulates per-card and per-pair game and win counts.
// It is not safe for concurrent use.
type Aggregator struct {
	items *counting.Store
	pairs *counting.Store

	totalGames uint64
	totalWins  uint64

	maxGameCards int
	skipped      int
	truncated    int
	oversized    int
	warnedWide   bool

	seen map[uint64]struct{}
	buf  []uint64
	log  zerolog.Logger
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...AggregatorOption) (*Aggregator, error) {
	o := aggregatorOptions{
		maxGameCards: DefaultMaxGameCards,
		itemCapacity: DefaultItemCapacity,
		pairCapacity: DefaultPairCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxGameCards < 1 {
		return nil, fmt.Errorf("max game cards must be positive, got %d", o.maxGameCards)
	}

	items, err := counting.New(o.itemCapacity, o.storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create card store: %w", err)
	}
	pairs, err := counting.New(o.pairCapacity, o.storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create pair store: %w", err)
	}

	return &Aggregator{
		items:        items,
		pairs:        pairs,
		maxGameCards: o.maxGameCards,
		seen:         make(map[uint64]struct{}, o.maxGameCards),
		buf:          make([]uint64, 0, o.maxGameCards),
		log:          logging.With("aggregator"),
	}, nil
}

// ProcessGame counts one game. Totals are updated even when no cards are
// present. Duplicate ids and id 0 are ignored; distinct cards beyond the
// per-game limit are dropped and the game is counted as truncated.
//
// A game holding a card id or pair key equal to a store sentinel is rejected
// with ErrInvalidCard before anything is counted. On a store growth failure
// the error is returned and the counts of this game are partially applied;
// the stores themselves remain valid.
func (a *Aggregator) ProcessGame(cards []uint64, won bool) error {
	unique, dropped := a.dedupe(cards)
	if err := checkReserved(unique); err != nil {
		return err
	}

	a.totalGames++
	if won {
		a.totalWins++
	}
	if dropped {
		a.truncated++
		a.log.Warn().
			Uint64("game", a.totalGames).
			Int("limit", a.maxGameCards).
			Msg("game has too many distinct cards; extra cards ignored")
	}

	for _, id := range unique {
		if !counting.FitsPairKey(id) {
			a.oversized++
			if !a.warnedWide {
				a.warnedWide = true
				a.log.Warn().
					Uint64("card", id).
					Msg("card id exceeds 32 bits; pair keys will alias")
			}
		}
		if err := a.items.Increment(id, won); err != nil {
			return fmt.Errorf("count card %d: %w", id, err)
		}
	}

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			if err := a.pairs.Increment(counting.PairKey(unique[i], unique[j]), won); err != nil {
				return fmt.Errorf("count pair %d/%d: %w", unique[i], unique[j], err)
			}
		}
	}
	return nil
}

// checkReserved rejects ids, and pairs of ids truncated by PairKey, that
// land on a store sentinel.
func checkReserved(unique []uint64) error {
	for i, a := range unique {
		if counting.IsReserved(a) {
			return fmt.Errorf("%w: card %d", ErrInvalidCard, a)
		}
		for _, b := range unique[i+1:] {
			if counting.IsReserved(counting.PairKey(a, b)) {
				return fmt.Errorf("%w: pair %d/%d", ErrInvalidCard, a, b)
			}
		}
	}
	return nil
}

// dedupe returns the distinct non-zero ids of cards in first-seen order,
// truncated to the per-game limit, and whether any card was dropped. The
// result aliases an internal buffer.
func (a *Aggregator) dedupe(cards []uint64) ([]uint64, bool) {
	clear(a.seen)
	a.buf = a.buf[:0]
	dropped := false

	for _, id := range cards {
		if id == 0 {
			continue
		}
		if _, dup := a.seen[id]; dup {
			continue
		}
		if len(a.buf) == a.maxGameCards {
			dropped = true
			continue
		}
		a.seen[id] = struct{}{}
		a.buf = append(a.buf, id)
	}
	return a.buf, dropped
}

// ProcessGames consumes games until the sequence ends. Games yielded with an
// error, and games rejected with ErrInvalidCard, are skipped and counted. It returns the number of games processed;
// a counting store failure stops processing.
func (a *Aggregator) ProcessGames(games iter.Seq2[gamedata.Game, error]) (int, error) {
	processed := 0

	for game, err := range games {
		if err != nil {
			a.skipped++
			a.log.Debug().Err(err).Msg("skipping game record")
			continue
		}
		if err := a.ProcessGame(game.Cards, game.Won); err != nil {
			if errors.Is(err, ErrInvalidCard) {
				a.skipped++
				a.log.Warn().Int("line", game.Line).Err(err).Msg("skipping game record")
				continue
			}
			return processed, fmt.Errorf("line %d: %w", game.Line, err)
		}
		processed++
		if processed%progressInterval == 0 {
			a.log.Info().
				Int("games", processed).
				Int("cards", a.items.Len()).
				Int("pairs", a.pairs.Len()).
				Msg("processing games")
		}
	}
	return processed, nil
}

// CardStats returns the games and wins of one card.
func (a *Aggregator) CardStats(id uint64) (counting.Entry, bool) {
	return a.items.Lookup(id)
}

// PairStats returns the games and wins where both cards were present.
func (a *Aggregator) PairStats(x, y uint64) (counting.Entry, bool) {
	return a.pairs.Lookup(counting.PairKey(x, y))
}

// Stats returns a snapshot of the totals.
func (a *Aggregator) Stats() AggregateStats {
	return AggregateStats{
		TotalGames:     a.totalGames,
		TotalWins:      a.totalWins,
		UniqueCards:    a.items.Len(),
		CardPairs:      a.pairs.Len(),
		SkippedRecords: a.skipped,
		TruncatedGames: a.truncated,
		OversizedIDs:   a.oversized,
	}
}
