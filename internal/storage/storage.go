// internal/storage/storage.go
package storage

import "github.com/rictusempra/replayer/pkg/core"

// Backend is the interface all playback journal implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	EndSession() error

	// Frame recording
	RecordFrame(frame *core.AppliedFrame) error
}

// Exporter is an optional interface for backends that write a file per
// session.
type Exporter interface {
	LastExportPath() string
}

// Discard is a Backend that records nothing.
type Discard struct{}

func (Discard) Init() error {
	return nil
}

func (Discard) Close() error {
	return nil
}

func (Discard) StartSession(*core.Session) error {
	return nil
}

func (Discard) EndSession() error {
	return nil
}

func (Discard) RecordFrame(*core.AppliedFrame) error {
	return nil
}
