package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// MigrationStatus describes how far the schema is from the migrations on disk
type MigrationStatus struct {
	Version int64
	Latest  int64
	Pending int
}

// RunMigrations applies every migration in dir newer than the recorded
// schema version and logs the version range it moved through.
func RunMigrations(db *sql.DB, dir string, logger *zap.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	from, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		logger.Error("Schema migration failed",
			zap.String("dir", dir),
			zap.Int64("from_version", from),
			zap.Error(err),
		)
		return fmt.Errorf("failed to run migrations from %s: %w", dir, err)
	}

	to, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	applied, err := goose.CollectMigrations(dir, from, to)
	if err != nil {
		return fmt.Errorf("failed to collect migrations: %w", err)
	}

	logger.Info("Schema is up to date",
		zap.String("dir", dir),
		zap.Int64("from_version", from),
		zap.Int64("version", to),
		zap.Int("applied", len(applied)),
	)
	return nil
}

// GetMigrationStatus compares the recorded schema version with the
// migrations found in dir
func GetMigrationStatus(db *sql.DB, dir string) (MigrationStatus, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	status := MigrationStatus{Version: version, Latest: version}
	pending, err := goose.CollectMigrations(dir, version, goose.MaxVersion)
	if err != nil {
		return status, fmt.Errorf("failed to collect migrations: %w", err)
	}
	status.Pending = len(pending)
	if last, err := pending.Last(); err == nil {
		status.Latest = last.Version
	}
	return status, nil
}
