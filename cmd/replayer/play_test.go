package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rictusempra/replayer/internal/database"
	"github.com/rictusempra/replayer/internal/model"
	"github.com/rictusempra/replayer/internal/playback"
	"github.com/rictusempra/replayer/internal/scene"
	gormstorage "github.com/rictusempra/replayer/internal/storage/gorm"
	"github.com/rictusempra/replayer/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for concurrent log handlers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

func TestFrameLogger_NoDriverYet(t *testing.T) {
	var buf syncBuffer
	logger := frameLogger(slog.New(slog.NewTextHandler(&buf, nil)), func() *playback.Driver { return nil })

	logger.Info("before playback")
	assert.True(t, buf.Contains("before playback"))
	assert.False(t, buf.Contains("frame="))
}

func TestFrameLogger_CarriesPosition(t *testing.T) {
	var buf syncBuffer
	var driver *playback.Driver
	logger := frameLogger(slog.New(slog.NewTextHandler(&buf, nil)), func() *playback.Driver { return driver })

	driver, err := playback.New(scene.New(scene.NewRegistry(nil), logger), logger)
	require.NoError(t, err)

	driver.Reset(core.NewReplay(make([]core.Frame, 3)))
	driver.Advance()
	driver.Advance()
	logger.Info("tick")

	assert.True(t, buf.Contains("frame=2"))
}

// A journal that keeps failing logs from its writer goroutine while the
// main goroutine advances. Run with -race.
func TestFrameLogger_FailingJournalWhileAdvancing(t *testing.T) {
	var buf syncBuffer
	var driver *playback.Driver
	logger := frameLogger(slog.New(slog.NewTextHandler(&buf, nil)), func() *playback.Driver { return driver })

	driver, err := playback.New(scene.New(scene.NewRegistry(nil), logger), logger)
	require.NoError(t, err)

	// only the session table exists, so every flush of frame rows fails
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSQLite(filepath.Join(t.TempDir(), "journal.db")))
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.DB.AutoMigrate(&model.PlaybackSession{}))

	backend := gormstorage.New(gormstorage.Dependencies{
		DB:            m.DB,
		Logger:        logger,
		FlushInterval: time.Millisecond,
	})
	require.NoError(t, backend.Init())
	t.Cleanup(func() { _ = backend.Close() })

	require.NoError(t, backend.StartSession(&core.Session{
		ID:        uuid.NewString(),
		Source:    "race.json",
		StartedAt: time.Now(),
	}))

	replay := core.NewReplay(make([]core.Frame, 1000))
	driver.Reset(replay)
	require.NoError(t, backend.RecordFrame(driver.Advance()))

	deadline := time.Now().Add(5 * time.Second)
	for !buf.Contains("DB writer failed") {
		require.True(t, time.Now().Before(deadline), "writer never reported a failed flush")
		if driver.Advance() == nil {
			driver.Reset(replay)
		}
	}
}
