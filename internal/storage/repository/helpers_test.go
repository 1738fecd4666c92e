package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtga-synergy/internal/storage"
)

// setupMigratedDB opens a temporary database with the full schema.
func setupMigratedDB(t *testing.T) *storage.DB {
	t.Helper()

	cfg := storage.DefaultConfig(filepath.Join(t.TempDir(), "synergy.db"))
	cfg.AutoMigrate = true

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
