package storage

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations to one database file.
type Migrator struct {
	m    *migrate.Migrate
	path string
}

// NewMigrator prepares migrations for the SQLite file at dbPath. The file is
// created on first use.
func NewMigrator(dbPath string) (*Migrator, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, sqliteURL(dbPath))
	if err != nil {
		return nil, fmt.Errorf("init migrations for %s: %w", dbPath, err)
	}
	return &Migrator{m: m, path: dbPath}, nil
}

// sqliteURL turns a file path into a sqlite:// URL. Windows paths need
// forward slashes and a leading slash.
func sqliteURL(path string) string {
	p := filepath.ToSlash(path)
	if filepath.IsAbs(path) && p[0] != '/' {
		p = "/" + p
	}
	return "sqlite://" + p
}

// Up applies pending migrations. It is a no-op on an up-to-date schema.
func (mg *Migrator) Up() error {
	before, _, _ := mg.Version()
	if err := ignoreNoChange(mg.m.Up()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	after, _, _ := mg.Version()
	if after != before {
		log := logging.With("storage")
		log.Debug().
			Str("path", mg.path).
			Uint("from", before).
			Uint("to", after).
			Msg("schema migrated")
	}
	return nil
}

// Down reverts every migration, dropping the synergy tables.
func (mg *Migrator) Down() error {
	if err := ignoreNoChange(mg.m.Down()); err != nil {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

// Version reports the applied schema version; 0 means none.
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Migrate brings the database at dbPath to the latest schema.
func Migrate(dbPath string) (err error) {
	mg, err := NewMigrator(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := mg.Close(); err == nil {
			err = closeErr
		}
	}()
	return mg.Up()
}
