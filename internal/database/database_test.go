package database

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLite_FileAndSetup(t *testing.T) {
	var logs bytes.Buffer
	m := NewManager(zerolog.New(&logs))

	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, m.ConnectSQLite(path))
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Setup())

	for _, mdl := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(mdl), "%T table missing", mdl)
	}
	assert.Contains(t, logs.String(), "Using local SQLite DB")
	assert.Contains(t, logs.String(), "Database setup complete")
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.ErrorIs(t, m.Setup(), ErrNotConnected)
	assert.NoError(t, m.Close())
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host:     "db",
		Port:     "5433",
		Username: "replayer",
		Password: "secret",
		Database: "matches",
	})
	assert.Equal(t, "host=db port=5433 user=replayer password=secret dbname=matches sslmode=disable", dsn)
}
