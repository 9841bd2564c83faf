// Package postgres journals playback into PostgreSQL through the GORM backend.
package postgres

import (
	"log/slog"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/database"
	gormstorage "github.com/rictusempra/replayer/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// New creates a GORM backend that connects to cfg and migrates on Init.
func New(cfg config.DBConfig, dbLog zerolog.Logger, logger *slog.Logger) *gormstorage.Backend {
	m := database.NewManager(dbLog)
	return gormstorage.New(gormstorage.Dependencies{
		Connect: func() (*gorm.DB, error) {
			if err := m.ConnectPostgres(cfg); err != nil {
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
