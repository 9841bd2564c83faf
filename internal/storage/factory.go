// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rictusempra/replayer/internal/config"
	influxstorage "github.com/rictusempra/replayer/internal/storage/influx"
	"github.com/rictusempra/replayer/internal/storage/memory"
	"github.com/rictusempra/replayer/internal/storage/postgres"
	sqlitestorage "github.com/rictusempra/replayer/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Dependencies carries what backends need beyond the storage section.
type Dependencies struct {
	Logger           *slog.Logger
	DBLogger         zerolog.Logger
	DB               config.DBConfig
	Influx           config.InfluxConfig
	InfluxBackupPath string
}

// NewBackend creates the backends named in cfg.Type. Several types may be
// given separated by commas; they are combined with NewMulti.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	var backends []Backend
	for _, typ := range strings.Split(cfg.Type, ",") {
		b, err := newSingle(strings.TrimSpace(strings.ToLower(typ)), cfg, deps)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMulti(backends...), nil
}

func newSingle(typ string, cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch typ {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, deps.DBLogger, deps.Logger), nil
	case "postgres":
		return postgres.New(deps.DB, deps.DBLogger, deps.Logger), nil
	case "influx":
		return influxstorage.New(deps.Influx, deps.DBLogger, deps.InfluxBackupPath), nil
	case "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %q", typ)
	}
}
