package database

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotConnected is returned by Setup before a successful Connect
var ErrNotConnected = errors.New("database not connected")

// memoryDSN is a shared-cache in-memory SQLite database
const memoryDSN = "file::memory:?cache=shared"

// Manager handles database connections and schema setup.
type Manager struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// ConnectSQLite opens the SQLite database at path. An empty path opens an
// in-memory database.
func (m *Manager) ConnectSQLite(path string) error {
	dsn := path
	if dsn == "" {
		dsn = memoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if path == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	m.DB = db
	return nil
}

// ConnectPostgres opens and pings the Postgres database described by cfg.
func (m *Manager) ConnectPostgres(cfg config.DBConfig) error {
	m.Logger.Debug().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open Postgres DB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	m.Logger.Info().Msg("Connected to database")
	m.DB = db
	return nil
}

// PostgresDSN builds a key=value connection string.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// Setup migrates the playback journal schema.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return ErrNotConnected
	}

	m.Logger.Info().Str("dialect", m.DB.Dialector.Name()).Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
