package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ramonehamilton/mtga-synergy/internal/storage"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/models"
)

// LabelRepository stores label runs and their synergy labels.
type LabelRepository interface {
	// CreateRun inserts a label run and sets its ID and CreatedAt.
	CreateRun(ctx context.Context, run *models.LabelRun) error

	// InsertLabels stores the labels of a run in one transaction.
	InsertLabels(ctx context.Context, runID int64, labels []*models.SynergyLabel) error

	// LatestRun returns the most recent run, or nil if there is none.
	LatestRun(ctx context.Context) (*models.LabelRun, error)

	// TopSynergies returns the labels of the latest run involving card,
	// highest synergy first.
	TopSynergies(ctx context.Context, card int64, limit int) ([]*models.SynergyLabel, error)

	// CountLabels returns how many labels a run stored.
	CountLabels(ctx context.Context, runID int64) (int, error)
}

type labelRepo struct {
	db *sql.DB
}

// NewLabelRepository creates a new label repository.
func NewLabelRepository(db *sql.DB) LabelRepository {
	return &labelRepo{db: db}
}

func (r *labelRepo) CreateRun(ctx context.Context, run *models.LabelRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO label_runs (
			games_path, labels_path, labels_fingerprint, total_games, total_wins,
			unique_cards, card_pairs, skipped_records, labels_written, min_both_present, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		run.GamesPath, run.LabelsPath, run.LabelsFingerprint, run.TotalGames, run.TotalWins,
		run.UniqueCards, run.CardPairs, run.SkippedRecords, run.LabelsWritten, run.MinBothPresent, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create label run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get label run id: %w", err)
	}
	run.ID = id
	return nil
}

func (r *labelRepo) InsertLabels(ctx context.Context, runID int64, labels []*models.SynergyLabel) error {
	return storage.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO synergy_labels (
				run_id, card_a, card_b, n11, w11, n10, w10, n01, w01, n00, w00,
				p11, p10, p01, p00, syn_delta
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare label insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, l := range labels {
			_, err := stmt.ExecContext(ctx,
				runID, l.CardA, l.CardB, l.N11, l.W11, l.N10, l.W10, l.N01, l.W01, l.N00, l.W00,
				l.P11, l.P10, l.P01, l.P00, l.SynDelta,
			)
			if err != nil {
				return fmt.Errorf("failed to insert label %d/%d: %w", l.CardA, l.CardB, err)
			}
			l.RunID = runID
		}
		return nil
	})
}

func (r *labelRepo) LatestRun(ctx context.Context) (*models.LabelRun, error) {
	query := `
		SELECT id, games_path, labels_path, labels_fingerprint, total_games, total_wins,
			unique_cards, card_pairs, skipped_records, labels_written, min_both_present, created_at
		FROM label_runs
		ORDER BY id DESC
		LIMIT 1
	`

	var run models.LabelRun
	err := r.db.QueryRowContext(ctx, query).Scan(
		&run.ID, &run.GamesPath, &run.LabelsPath, &run.LabelsFingerprint, &run.TotalGames, &run.TotalWins,
		&run.UniqueCards, &run.CardPairs, &run.SkippedRecords, &run.LabelsWritten, &run.MinBothPresent, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest label run: %w", err)
	}
	return &run, nil
}

func (r *labelRepo) TopSynergies(ctx context.Context, card int64, limit int) ([]*models.SynergyLabel, error) {
	query := `
		SELECT run_id, card_a, card_b, n11, w11, n10, w10, n01, w01, n00, w00,
			p11, p10, p01, p00, syn_delta
		FROM synergy_labels
		WHERE run_id = (SELECT MAX(id) FROM label_runs)
			AND (card_a = ? OR card_b = ?)
		ORDER BY syn_delta DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, card, card, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query synergies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []*models.SynergyLabel
	for rows.Next() {
		var l models.SynergyLabel
		if err := rows.Scan(
			&l.RunID, &l.CardA, &l.CardB, &l.N11, &l.W11, &l.N10, &l.W10, &l.N01, &l.W01, &l.N00, &l.W00,
			&l.P11, &l.P10, &l.P01, &l.P00, &l.SynDelta,
		); err != nil {
			return nil, fmt.Errorf("failed to scan synergy label: %w", err)
		}
		labels = append(labels, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read synergy labels: %w", err)
	}
	return labels, nil
}

func (r *labelRepo) CountLabels(ctx context.Context, runID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM synergy_labels WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count labels: %w", err)
	}
	return n, nil
}
