package cache

import (
	"slices"
	"sync"
)

// entry is one registered actor. Resolved is false when the host could not
// produce a handle for the actor's class.
type entry[H any] struct {
	handle   H
	resolved bool
}

// ActorCache maps recorded actor ids to the handles the host returned for them.
// Ids stay registered after a failed resolution so that a repeated spawn of the
// same id is still recognized as a duplicate.
type ActorCache[H any] struct {
	m      sync.Mutex
	actors map[int]entry[H]
}

func NewActorCache[H any]() *ActorCache[H] {
	return &ActorCache[H]{
		actors: make(map[int]entry[H]),
	}
}

// Reset forgets every registered actor. Handles are not released.
func (c *ActorCache[H]) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.actors = make(map[int]entry[H])
}

// Has reports whether id is registered, resolved or not.
func (c *ActorCache[H]) Has(id int) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.actors[id]
	return ok
}

// Get returns the handle for id. ok is false when id is unknown or was
// registered without a handle.
func (c *ActorCache[H]) Get(id int) (h H, ok bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, found := c.actors[id]
	if !found || !e.resolved {
		return h, false
	}
	return e.handle, true
}

// Add registers id with a live handle.
func (c *ActorCache[H]) Add(id int, h H) {
	c.m.Lock()
	defer c.m.Unlock()
	c.actors[id] = entry[H]{handle: h, resolved: true}
}

// AddUnresolved registers id without a handle.
func (c *ActorCache[H]) AddUnresolved(id int) {
	c.m.Lock()
	defer c.m.Unlock()
	c.actors[id] = entry[H]{}
}

// Remove drops id and returns its handle if it had one.
func (c *ActorCache[H]) Remove(id int) (h H, ok bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, found := c.actors[id]
	if !found {
		return h, false
	}
	delete(c.actors, id)
	return e.handle, e.resolved
}

// Len returns the number of registered ids.
func (c *ActorCache[H]) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.actors)
}

// IDs returns the registered ids in ascending order.
func (c *ActorCache[H]) IDs() []int {
	c.m.Lock()
	defer c.m.Unlock()
	ids := make([]int, 0, len(c.actors))
	for id := range c.actors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
