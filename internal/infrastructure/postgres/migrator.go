package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

// Migrator applies the schema in migrations/ with golang-migrate.
type Migrator struct {
	sourceURL   string
	databaseURL string
	logger      zerolog.Logger
}

// NewMigrator creates a Migrator. migrationsPath may be a bare directory or a file:// URL.
func NewMigrator(databaseURL, migrationsPath string, logger zerolog.Logger) *Migrator {
	return &Migrator{
		sourceURL:   sourceURL(migrationsPath),
		databaseURL: databaseURL,
		logger:      logger,
	}
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info().Msg("database migrations: no change")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logVersion(mg, "database migrations: applied")
	return nil
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(steps int) error {
	if steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}

	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Steps(-steps); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	m.logVersion(mg, "database migrations: rolled back")
	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	mg, err := migrate.New(m.sourceURL, m.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mg, nil
}

func (m *Migrator) logVersion(mg *migrate.Migrate, msg string) {
	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		m.logger.Warn().Err(err).Msg("could not read migration version")
		return
	}
	m.logger.Info().Uint("version", version).Bool("dirty", dirty).Msg(msg)
}

func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}
