// Package gormstorage implements the playback journal on top of GORM.
// Frame rows are queued and written in batches by a background writer; the
// sqlite and postgres backends only differ in how they connect.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rictusempra/replayer/internal/model"
	"github.com/rictusempra/replayer/internal/model/convert"
	"github.com/rictusempra/replayer/internal/queue"
	"github.com/rictusempra/replayer/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is zero
const DefaultFlushInterval = 2 * time.Second

var (
	// ErrNoSession is returned when recording outside StartSession/EndSession
	ErrNoSession = errors.New("no playback session started")
	// ErrNoDatabase is returned by Init when neither DB nor Connect is set
	ErrNoDatabase = errors.New("no database configured")
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as is when set. Otherwise Init calls Connect.
	DB      *gorm.DB
	Connect func() (*gorm.DB, error)
	// Disconnect, if set, is called by Close.
	Disconnect func() error

	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps Dependencies
	db   *gorm.DB

	// mu guards the queues and session state
	mu         sync.Mutex
	session    *model.PlaybackSession
	frames     *queue.Queue[model.FrameRecord]
	transforms *queue.Queue[model.ActorTransform]
	tracks     *convert.TrackBuilder
	applied    int
	anomalies  int

	// writeMu serializes flushes from the writer goroutine and EndSession
	writeMu sync.Mutex

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:       deps,
		frames:     queue.New[model.FrameRecord](),
		transforms: queue.New[model.ActorTransform](),
		tracks:     convert.NewTrackBuilder(),
	}
}

// Init connects if needed and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.db = b.deps.DB
	if b.db == nil {
		if b.deps.Connect == nil {
			return ErrNoDatabase
		}
		db, err := b.deps.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		b.db = db
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer, writes what is still queued and disconnects.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil

	err := b.flush()
	if b.deps.Disconnect != nil {
		err = errors.Join(err, b.deps.Disconnect())
	}
	return err
}

// DB returns the connection used by the backend. It is nil before Init.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// StartSession inserts the session row synchronously.
func (b *Backend) StartSession(s *core.Session) error {
	if b.db == nil {
		return ErrNoDatabase
	}

	row, err := convert.CoreToSession(*s)
	if err != nil {
		return err
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert playback session: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = &row
	b.tracks = convert.NewTrackBuilder()
	b.applied = 0
	b.anomalies = 0
	return nil
}

// RecordFrame converts f and queues its rows.
func (b *Backend) RecordFrame(f *core.AppliedFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}

	rec, err := convert.FrameToRecord(b.session.ID, f)
	if err != nil {
		return err
	}
	b.frames.Push(rec)
	b.transforms.Push(convert.FrameToTransforms(b.session.ID, f)...)
	b.tracks.Add(f)
	b.applied++
	b.anomalies += len(f.Anomalies)
	return nil
}

// EndSession writes queued rows, actor tracks and the closing session fields.
func (b *Backend) EndSession() error {
	if err := b.flush(); err != nil {
		return err
	}

	b.mu.Lock()
	session := b.session
	if session == nil {
		b.mu.Unlock()
		return ErrNoSession
	}
	tracks := b.tracks.Tracks(session.ID)
	convert.EndSession(session, b.applied, b.anomalies, time.Now())
	b.session = nil
	b.mu.Unlock()

	if len(tracks) > 0 {
		if err := b.db.Create(&tracks).Error; err != nil {
			return fmt.Errorf("failed to insert actor tracks: %w", err)
		}
	}
	if err := b.db.Save(session).Error; err != nil {
		return fmt.Errorf("failed to update playback session: %w", err)
	}

	b.deps.Logger.Info("Playback session journaled",
		"session", session.ID.String(),
		"frames", session.Applied,
		"anomalies", session.Anomalies,
		"tracks", len(tracks))
	return nil
}

// Pending returns the number of queued frame and transform rows.
func (b *Backend) Pending() (frames, transforms int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames.Len(), b.transforms.Len()
}

// flush writes every queued row in one transaction. On failure the rows
// are queued again.
func (b *Backend) flush() error {
	if b.db == nil {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	frames := b.frames.Drain()
	transforms := b.transforms.Drain()
	b.mu.Unlock()

	if len(frames) == 0 && len(transforms) == 0 {
		return nil
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if len(frames) > 0 {
			if err := tx.Create(&frames).Error; err != nil {
				return fmt.Errorf("error creating frame records: %w", err)
			}
		}
		if len(transforms) > 0 {
			if err := tx.Create(&transforms).Error; err != nil {
				return fmt.Errorf("error creating actor transforms: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		// ids assigned inside the rolled back transaction are not valid
		for i := range frames {
			frames[i].ID = 0
		}
		for i := range transforms {
			transforms[i].ID = 0
		}
		b.mu.Lock()
		b.frames.Push(frames...)
		b.transforms.Push(transforms...)
		b.mu.Unlock()
		return err
	}
	return nil
}

// writer periodically drains the queues into the DB.
func (b *Backend) writer() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				frames, transforms := b.Pending()
				b.deps.Logger.Error("DB writer failed", "error", err,
					"pendingFrames", frames, "pendingTransforms", transforms)
			}
		}
	}
}
