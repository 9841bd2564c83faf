// Package influxstorage writes one playback_frame point per applied frame
// to InfluxDB.
package influxstorage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/influx"
	"github.com/rictusempra/replayer/pkg/core"
	"github.com/rs/zerolog"
)

// ErrNoSession is returned when recording outside StartSession/EndSession
var ErrNoSession = errors.New("no playback session started")

// Backend records frame metrics through an influx.Manager.
type Backend struct {
	manager *influx.Manager

	mu        sync.Mutex
	sessionID string
	started   time.Time
	now       func() time.Time
}

// New creates a backend for cfg. backupPath receives gzip line protocol
// when the server cannot be reached.
func New(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Backend {
	return &Backend{
		manager: influx.NewManager(cfg, log, backupPath),
		now:     time.Now,
	}
}

func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.manager.Connect(ctx)
}

func (b *Backend) Close() error {
	return b.manager.Close()
}

func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionID = s.ID
	b.started = b.now()
	return nil
}

// RecordFrame writes the frame's point. Points are stamped with the wall
// clock start of the session offset by the frame's replay time, so a
// session keeps the recording's spacing whatever the tick rate.
func (b *Backend) RecordFrame(f *core.AppliedFrame) error {
	b.mu.Lock()
	id, started := b.sessionID, b.started
	b.mu.Unlock()

	if id == "" {
		return ErrNoSession
	}

	at := started.Add(time.Duration(f.Time * float64(time.Second)))
	return b.manager.WritePoint(influx.FramePoint(id, f, at))
}

func (b *Backend) EndSession() error {
	b.mu.Lock()
	open := b.sessionID != ""
	b.sessionID = ""
	b.mu.Unlock()

	if !open {
		return ErrNoSession
	}
	return b.manager.Flush()
}
