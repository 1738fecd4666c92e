package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/ramonehamilton/mtga-synergy/internal/catalog"
	"github.com/ramonehamilton/mtga-synergy/internal/gamedata"
	"github.com/ramonehamilton/mtga-synergy/internal/labelfile"
	"github.com/ramonehamilton/mtga-synergy/internal/logging"
	"github.com/ramonehamilton/mtga-synergy/internal/metrics"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/models"
	"github.com/ramonehamilton/mtga-synergy/internal/synergy"
)

// LabelJobConfig describes one label generation run.
type LabelJobConfig struct {
	GamesPath  string
	CardsPath  string
	LabelsPath string

	MinBothPresent uint64 // default synergy.DefaultMinBothPresent
	MaxGameCards   int    // default synergy.DefaultMaxGameCards
}

// LabelResult summarizes a finished label run.
type LabelResult struct {
	Stats        synergy.AggregateStats
	Processed    int
	Labels       int
	Declined     synergy.Declined
	BelowSupport int
	Fingerprint  string
	Duration     time.Duration

	// RunID is the stored run, or 0 when no store is configured.
	RunID int64
}

// LabelJob aggregates a game data file and writes the label file.
type LabelJob struct {
	cfg  LabelJobConfig
	opts jobOptions
}

// NewLabelJob creates a label job.
func NewLabelJob(cfg LabelJobConfig, opts ...JobOption) *LabelJob {
	if cfg.MinBothPresent == 0 {
		cfg.MinBothPresent = synergy.DefaultMinBothPresent
	}
	if cfg.MaxGameCards == 0 {
		cfg.MaxGameCards = synergy.DefaultMaxGameCards
	}
	return &LabelJob{cfg: cfg, opts: newJobOptions(opts)}
}

// Run executes the job from scratch. Every run builds a fresh aggregator.
func (j *LabelJob) Run(ctx context.Context) (*LabelResult, error) {
	start := time.Now()
	log := logging.With("labels")
	m := j.opts.metrics

	cat, err := catalog.Load(j.cfg.CardsPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("cards", cat.Len()).Str("path", j.cfg.CardsPath).Msg("loaded card catalog")

	reader, err := gamedata.Open(j.cfg.GamesPath, cat)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	agg, err := synergy.NewAggregator(synergy.WithMaxGameCards(j.cfg.MaxGameCards))
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", j.cfg.GamesPath).Stringer("mode", reader.Mode()).Msg("processing games")
	processed, err := agg.ProcessGames(untilDone(ctx, reader.Games()))
	if err != nil {
		return nil, fmt.Errorf("aggregate games: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("label job canceled: %w", err)
	}

	stats := agg.Stats()
	m.GamesProcessed.Add(float64(processed))
	m.RecordsSkipped.Add(float64(stats.SkippedRecords))
	m.GamesTruncated.Add(float64(stats.TruncatedGames))
	m.CardPairs.Set(float64(stats.CardPairs))
	log.Info().
		Int("games", processed).
		Uint64("wins", stats.TotalWins).
		Int("cards", stats.UniqueCards).
		Int("pairs", stats.CardPairs).
		Int("skipped", stats.SkippedRecords).
		Msg("aggregated games")

	calc := synergy.NewCalculator(agg, synergy.WithMinBothPresent(j.cfg.MinBothPresent))
	stored, err := j.writeLabels(calc)
	if err != nil {
		return nil, err
	}

	declined := calc.Declined()
	m.LabelsWritten.Add(float64(len(stored)))
	m.PairsDeclined.WithLabelValues(metrics.ReasonInvalidStats).Add(float64(declined.InvalidStats))
	m.PairsDeclined.WithLabelValues(metrics.ReasonNegativeBucket).Add(float64(declined.NegativeBucket))
	m.PairsDeclined.WithLabelValues(metrics.ReasonBucketMismatch).Add(float64(declined.BucketMismatch))

	fingerprint, err := Fingerprint(j.cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	res := &LabelResult{
		Stats:        stats,
		Processed:    processed,
		Labels:       len(stored),
		Declined:     declined,
		BelowSupport: calc.BelowSupport(),
		Fingerprint:  fingerprint,
	}

	if j.opts.labels != nil {
		if res.RunID, err = j.store(ctx, res, stored); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	m.JobDone("labels", res.Duration)
	log.Info().
		Int("labels", res.Labels).
		Int("declined", declined.Total()).
		Int("below_support", res.BelowSupport).
		Str("fingerprint", fingerprint[:16]).
		Dur("elapsed", res.Duration).
		Msgf("wrote %s", j.cfg.LabelsPath)
	return res, nil
}

// writeLabels writes every eligible pair and returns them for storage.
func (j *LabelJob) writeLabels(calc *synergy.Calculator) ([]*models.SynergyLabel, error) {
	w, err := labelfile.Create(j.cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	var labels []*models.SynergyLabel
	for rec := range calc.EligiblePairs() {
		if err := w.Write(rec); err != nil {
			_ = w.Close()
			return nil, err
		}
		labels = append(labels, toModel(rec))
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return labels, nil
}

func (j *LabelJob) store(ctx context.Context, res *LabelResult, labels []*models.SynergyLabel) (int64, error) {
	run := &models.LabelRun{
		GamesPath:         j.cfg.GamesPath,
		LabelsPath:        j.cfg.LabelsPath,
		LabelsFingerprint: res.Fingerprint,
		TotalGames:        int64(res.Stats.TotalGames),
		TotalWins:         int64(res.Stats.TotalWins),
		UniqueCards:       res.Stats.UniqueCards,
		CardPairs:         res.Stats.CardPairs,
		SkippedRecords:    res.Stats.SkippedRecords,
		LabelsWritten:     res.Labels,
		MinBothPresent:    int64(j.cfg.MinBothPresent),
	}
	if err := j.opts.labels.CreateRun(ctx, run); err != nil {
		return 0, err
	}
	if err := j.opts.labels.InsertLabels(ctx, run.ID, labels); err != nil {
		return 0, err
	}
	return run.ID, nil
}

func toModel(rec synergy.LabelRecord) *models.SynergyLabel {
	return &models.SynergyLabel{
		CardA:    int64(rec.CardA),
		CardB:    int64(rec.CardB),
		N11:      int64(rec.N11),
		W11:      int64(rec.W11),
		N10:      int64(rec.N10),
		W10:      int64(rec.W10),
		N01:      int64(rec.N01),
		W01:      int64(rec.W01),
		N00:      int64(rec.N00),
		W00:      int64(rec.W00),
		P11:      rec.P11,
		P10:      rec.P10,
		P01:      rec.P01,
		P00:      rec.P00,
		SynDelta: rec.SynDelta,
	}
}

// untilDone stops a game sequence once ctx is done.
func untilDone(ctx context.Context, games iter.Seq2[gamedata.Game, error]) iter.Seq2[gamedata.Game, error] {
	return func(yield func(gamedata.Game, error) bool) {
		for g, err := range games {
			if ctx.Err() != nil {
				return
			}
			if !yield(g, err) {
				return
			}
		}
	}
}
