package storage

import (
	"errors"

	"github.com/rictusempra/replayer/pkg/core"
)

// Multi fans every call out to a list of backends. Every backend is called
// even when an earlier one fails; errors are joined. Backends that fail Init
// are removed.
type Multi struct {
	backends []Backend
}

// NewMulti combines backends. Nil entries are dropped.
func NewMulti(backends ...Backend) *Multi {
	valid := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			valid = append(valid, b)
		}
	}
	return &Multi{backends: valid}
}

// Backends returns the combined backends.
func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Init initializes every backend. Backends that fail are closed and dropped,
// so the rest keep journaling; their errors are joined.
func (m *Multi) Init() error {
	var errs []error
	kept := m.backends[:0]
	for _, b := range m.backends {
		if err := b.Init(); err != nil {
			errs = append(errs, err)
			if cerr := b.Close(); cerr != nil {
				errs = append(errs, cerr)
			}
			continue
		}
		kept = append(kept, b)
	}
	m.backends = kept
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	return m.each(Backend.Close)
}

func (m *Multi) StartSession(s *core.Session) error {
	return m.each(func(b Backend) error { return b.StartSession(s) })
}

func (m *Multi) EndSession() error {
	return m.each(Backend.EndSession)
}

func (m *Multi) RecordFrame(f *core.AppliedFrame) error {
	return m.each(func(b Backend) error { return b.RecordFrame(f) })
}

// LastExportPath returns the export path of the first backend that wrote one.
func (m *Multi) LastExportPath() string {
	for _, b := range m.backends {
		if e, ok := b.(Exporter); ok {
			if p := e.LastExportPath(); p != "" {
				return p
			}
		}
	}
	return ""
}
