// Package scene is a headless playback host. It keeps the state an engine
// would render so playback can run and be inspected without one.
package scene

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/rictusempra/replayer/internal/playback"
	"github.com/rictusempra/replayer/pkg/core"
)

// Object is one instantiated actor.
type Object struct {
	ID        uint64
	Archetype Archetype
	ClassName string
	Position  core.Vector3
	Rotation  core.Vector3
	Updates   int
}

// Scene implements playback.Host on top of an archetype Registry.
type Scene struct {
	registry *Registry
	logger   *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	objects map[uint64]*Object
	reports []string
}

var _ playback.Host = (*Scene)(nil)

func New(registry *Registry, logger *slog.Logger) *Scene {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scene{
		registry: registry,
		logger:   logger,
		objects:  make(map[uint64]*Object),
	}
}

// Spawn instantiates the archetype registered for className at position.
func (s *Scene) Spawn(className string, position core.Vector3) (playback.Handle, error) {
	archetype, ok := s.registry.Resolve(className)
	if !ok {
		return nil, &playback.ResolutionError{ClassName: className}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	obj := &Object{
		ID:        s.nextID,
		Archetype: archetype,
		ClassName: className,
		Position:  position,
	}
	s.objects[obj.ID] = obj
	return obj, nil
}

// SetTransform moves the object behind h. Unknown or destroyed handles are ignored.
func (s *Scene) SetTransform(h playback.Handle, position, eulerDegrees core.Vector3) {
	obj, ok := h.(*Object)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, live := s.objects[obj.ID]; !live {
		return
	}
	obj.Position = position
	obj.Rotation = eulerDegrees
	obj.Updates++
}

// Destroy removes the object behind h from the scene.
func (s *Scene) Destroy(h playback.Handle) {
	obj, ok := h.(*Object)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, obj.ID)
}

// Report logs a playback anomaly and keeps it for later inspection.
func (s *Scene) Report(message string) {
	s.logger.Warn(message)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, message)
}

// Reports returns every message passed to Report, oldest first.
func (s *Scene) Reports() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reports)
}

// Len returns the number of live objects.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Snapshot returns copies of the live objects ordered by id.
func (s *Scene) Snapshot() []Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Object, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, *obj)
	}
	slices.SortFunc(out, func(a, b Object) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (o Object) String() string {
	return fmt.Sprintf("%s#%d(%s) at (%.2f, %.2f, %.2f)",
		o.Archetype, o.ID, o.ClassName, o.Position.X, o.Position.Y, o.Position.Z)
}
