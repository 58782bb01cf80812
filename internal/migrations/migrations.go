// Package migrations contains the versioned database schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
)

//go:embed mysql/*.sql postgres/*.sql
var embedded embed.FS

// Files returns the migration files for the given database driver.
func Files(driverName string) (fs.FS, goose.Dialect, error) {
	switch driverName {
	case config.DriverMySQL:
		sub, err := fs.Sub(embedded, "mysql")
		return sub, goose.DialectMySQL, err
	case config.DriverPostgres:
		sub, err := fs.Sub(embedded, "postgres")
		return sub, goose.DialectPostgres, err
	default:
		return nil, "", fmt.Errorf("no migrations for driver %q", driverName)
	}
}

// Migrator applies the migrations of one driver to a database.
type Migrator struct {
	provider *goose.Provider
	log      logrus.FieldLogger
}

// New creates a migrator for the database handle opened with driverName.
func New(db *sql.DB, driverName string, log logrus.FieldLogger) (*Migrator, error) {
	files, dialect, err := Files(driverName)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, files)
	if err != nil {
		return nil, fmt.Errorf("migration provider: %w", err)
	}
	return &Migrator{provider: provider, log: log}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, result := range results {
		m.log.WithFields(logrus.Fields{
			"version":  result.Source.Version,
			"duration": result.Duration.String(),
		}).Info("migration applied")
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	m.log.WithField("version", result.Source.Version).Info("migration rolled back")
	return nil
}

// Status logs the state of every known migration.
func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	for _, status := range statuses {
		m.log.WithFields(logrus.Fields{
			"version": status.Source.Version,
			"file":    status.Source.Path,
			"state":   string(status.State),
		}).Info("migration status")
	}
	return nil
}
