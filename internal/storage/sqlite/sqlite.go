// Package sqlitestorage journals playback into a local SQLite file through
// the GORM backend.
package sqlitestorage

import (
	"log/slog"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/database"
	gormstorage "github.com/rictusempra/replayer/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// New creates a GORM backend that opens and migrates cfg.Path on Init.
// An empty path journals into an in-memory database.
func New(cfg config.SQLiteConfig, dbLog zerolog.Logger, logger *slog.Logger) *gormstorage.Backend {
	m := database.NewManager(dbLog)
	return gormstorage.New(gormstorage.Dependencies{
		Connect: func() (*gorm.DB, error) {
			if err := m.ConnectSQLite(cfg.Path); err != nil {
				return nil, err
			}
			if err := m.Setup(); err != nil {
				return nil, err
			}
			return m.DB, nil
		},
		Disconnect: m.Close,
		Logger:     logger,
	})
}
