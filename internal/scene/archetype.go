package scene

import (
	"maps"
	"slices"
	"sync"
)

// Archetype names the prefab a recorded class is instantiated from.
type Archetype string

const (
	ArchetypeBall Archetype = "ball"
	ArchetypeCar  Archetype = "car"
)

// DefaultArchetypes maps the class names found in every match recording.
var DefaultArchetypes = map[string]Archetype{
	"TAGame.Ball_TA": ArchetypeBall,
	"TAGame.Car_TA":  ArchetypeCar,
}

// Registry resolves recorded class names to archetypes.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Archetype
}

// NewRegistry creates a registry holding the defaults overlaid with extra.
// Entries with an empty archetype are ignored.
func NewRegistry(extra map[string]string) *Registry {
	r := &Registry{classes: maps.Clone(DefaultArchetypes)}
	for className, archetype := range extra {
		r.Register(className, Archetype(archetype))
	}
	return r
}

// Register adds or replaces the archetype for className.
func (r *Registry) Register(className string, archetype Archetype) {
	if className == "" || archetype == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[className] = archetype
}

// Resolve looks up the archetype for className. Lookups are exact.
func (r *Registry) Resolve(className string) (Archetype, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.classes[className]
	return a, ok
}

// Classes returns every registered class name, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.classes))
}
