package repository

import (
	"testing"

	"inventory-ledger/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMigrationStatusAfterStartup(t *testing.T) {
	status, err := database.GetMigrationStatus(testDB, migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, int64(5), status.Version)
	assert.Equal(t, int64(5), status.Latest)
	assert.Zero(t, status.Pending)
}

func TestRunMigrationsTwiceAppliesNothing(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	require.NoError(t, database.RunMigrations(testDB, migrationsDir, zap.New(core)))

	entries := logs.FilterMessage("Schema is up to date").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, migrationsDir, fields["dir"])
	assert.Equal(t, int64(5), fields["from_version"])
	assert.Equal(t, int64(5), fields["version"])
	assert.Equal(t, int64(0), fields["applied"])
}
