// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/pkg/core"
)

// ErrNoSession is returned when recording outside StartSession/EndSession
var ErrNoSession = errors.New("no playback session started")

// Backend keeps a session's applied frames in memory and exports them to
// JSON when the session ends
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	frames  []core.AppliedFrame

	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
		now: time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, dropping any unexported one
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	session := *s
	b.session = &session
	b.frames = make([]core.AppliedFrame, 0, s.FrameCount)
	return nil
}

// RecordFrame appends a copy of f
func (b *Backend) RecordFrame(f *core.AppliedFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.frames = append(b.frames, *f)
	return nil
}

// EndSession exports the session and forgets it
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.session = nil
	b.frames = nil
	return nil
}

// Frames returns the frames recorded in the open session
func (b *Backend) Frames() []core.AppliedFrame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.AppliedFrame, len(b.frames))
	copy(out, b.frames)
	return out
}

// LastExportPath returns the file written by the last EndSession
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
