package pipeline

import (
	"fmt"

	"github.com/ramonehamilton/mtga-synergy/internal/storage"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/repository"
)

// Store bundles the run history database and its repositories.
type Store struct {
	db       *storage.DB
	Labels   repository.LabelRepository
	Training repository.TrainingRunRepository
}

// OpenStore opens (and migrates) the history database at path.
func OpenStore(path string) (*Store, error) {
	cfg := storage.DefaultConfig(path)
	cfg.AutoMigrate = true

	db, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{
		db:       db,
		Labels:   repository.NewLabelRepository(db.Conn()),
		Training: repository.NewTrainingRunRepository(db.Conn()),
	}, nil
}

// JobOption returns the option that records runs in this store.
func (s *Store) JobOption() JobOption {
	return WithStore(s.Labels, s.Training)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
