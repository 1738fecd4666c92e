package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/mtga-synergy/internal/storage/models"
)

// TrainingRunRepository stores training run history.
type TrainingRunRepository interface {
	// Create inserts a run, assigning a UUID when ID is empty.
	Create(ctx context.Context, run *models.TrainingRun) error

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*models.TrainingRun, error)

	// ByFingerprint returns the runs trained on a given label file.
	ByFingerprint(ctx context.Context, fingerprint string) ([]*models.TrainingRun, error)
}

type trainingRunRepo struct {
	db *sql.DB
}

// NewTrainingRunRepository creates a new training run repository.
func NewTrainingRunRepository(db *sql.DB) TrainingRunRepository {
	return &trainingRunRepo{db: db}
}

const trainingRunColumns = `
	id, labels_path, labels_fingerprint, model_path, embed_dim, learning_rate, l2_reg,
	epochs, seed, samples, cards, final_mse, created_at`

func (r *trainingRunRepo) Create(ctx context.Context, run *models.TrainingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO training_runs (` + trainingRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.LabelsPath, run.LabelsFingerprint, run.ModelPath, run.EmbedDim, run.LearningRate, run.L2Reg,
		run.Epochs, run.Seed, run.Samples, run.Cards, run.FinalMSE, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create training run: %w", err)
	}
	return nil
}

func (r *trainingRunRepo) List(ctx context.Context, limit int) ([]*models.TrainingRun, error) {
	query := `SELECT ` + trainingRunColumns + ` FROM training_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`
	return r.query(ctx, query, limit)
}

func (r *trainingRunRepo) ByFingerprint(ctx context.Context, fingerprint string) ([]*models.TrainingRun, error) {
	query := `SELECT ` + trainingRunColumns + ` FROM training_runs WHERE labels_fingerprint = ? ORDER BY created_at DESC, rowid DESC`
	return r.query(ctx, query, fingerprint)
}

func (r *trainingRunRepo) query(ctx context.Context, query string, args ...any) ([]*models.TrainingRun, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*models.TrainingRun
	for rows.Next() {
		var run models.TrainingRun
		if err := rows.Scan(
			&run.ID, &run.LabelsPath, &run.LabelsFingerprint, &run.ModelPath, &run.EmbedDim, &run.LearningRate, &run.L2Reg,
			&run.Epochs, &run.Seed, &run.Samples, &run.Cards, &run.FinalMSE, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read training runs: %w", err)
	}
	return runs, nil
}
