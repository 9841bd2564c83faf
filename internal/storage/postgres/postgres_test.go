package postgres

import (
	"log/slog"
	"testing"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBackend_InitFailsWithoutServer(t *testing.T) {
	b := New(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "replayer",
	}, zerolog.Nop(), slog.Default())

	err := b.Init()
	assert.Error(t, err)
	assert.Nil(t, b.DB())
}
