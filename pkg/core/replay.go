// pkg/core/replay.go
package core

import "slices"

// SpawnEvent introduces an actor. Bias is recorded but unused by playback.
type SpawnEvent struct {
	Type      string  `json:"type"`
	ActorID   int     `json:"actorId"`
	ClassName string  `json:"className"`
	LocX      float64 `json:"locX"`
	LocY      float64 `json:"locY"`
	LocZ      float64 `json:"locZ"`
	Bias      float64 `json:"bias"`
}

// Location returns the raw spawn position in recording units.
func (s SpawnEvent) Location() Vector3 {
	return Vector3{X: s.LocX, Y: s.LocY, Z: s.LocZ}
}

// ComponentUpdate is one transform sample for an actor.
// RotLimit is the value of a full turn in the recording's angular unit.
type ComponentUpdate struct {
	ID        int     `json:"id"`
	ClassName string  `json:"className"`
	NewLocX   float64 `json:"newLocX"`
	NewLocY   float64 `json:"newLocY"`
	NewLocZ   float64 `json:"newLocZ"`
	NewRotX   float64 `json:"newRotX"`
	NewRotY   float64 `json:"newRotY"`
	NewRotZ   float64 `json:"newRotZ"`
	Bias      float64 `json:"bias"`
	RotLimit  float64 `json:"rotLimit"`
}

// Location returns the raw position in recording units.
func (c ComponentUpdate) Location() Vector3 {
	return Vector3{X: c.NewLocX, Y: c.NewLocY, Z: c.NewLocZ}
}

// Rotation returns the raw rotation in recording units.
func (c ComponentUpdate) Rotation() Vector3 {
	return Vector3{X: c.NewRotX, Y: c.NewRotY, Z: c.NewRotZ}
}

// UpdateEvent carries transform samples for one actor.
type UpdateEvent struct {
	Type       string            `json:"type"`
	ActorID    int               `json:"actorId"`
	Components []ComponentUpdate `json:"components"`
}

// DestroyEvent removes an actor.
type DestroyEvent struct {
	Type    string `json:"type"`
	ActorID int    `json:"actorId"`
}

// Frame is one timestamped batch of events. Spawns are applied before
// updates, updates before destroys.
type Frame struct {
	Time      float64        `json:"time"`
	Delta     float64        `json:"delta"`
	Spawned   []SpawnEvent   `json:"spawned"`
	Updated   []UpdateEvent  `json:"updated"`
	Destroyed []DestroyEvent `json:"destroyed"`
}

// Replay is an immutable, chronologically ordered sequence of frames.
// It is safe to share between sessions.
type Replay struct {
	frames []Frame
}

// NewReplay wraps frames in a Replay. The slice is copied.
func NewReplay(frames []Frame) *Replay {
	return &Replay{frames: slices.Clone(frames)}
}

// Len returns the number of frames.
func (r *Replay) Len() int {
	return len(r.frames)
}

// Frames returns a copy of the frame sequence.
func (r *Replay) Frames() []Frame {
	return slices.Clone(r.frames)
}

// HasSpawns reports whether any frame spawns an actor.
func (r *Replay) HasSpawns() bool {
	return slices.ContainsFunc(r.frames, func(f Frame) bool {
		return len(f.Spawned) > 0
	})
}

// Summary describes a replay without playing it.
type Summary struct {
	Frames     int            `json:"frames"`
	Spawns     int            `json:"spawns"`
	Updates    int            `json:"updates"`
	Components int            `json:"components"`
	Destroys   int            `json:"destroys"`
	StartTime  float64        `json:"startTime"`
	EndTime    float64        `json:"endTime"`
	Duration   float64        `json:"duration"`
	Classes    map[string]int `json:"classes"`
}

// Summarize counts events per kind and spawns per class name.
func (r *Replay) Summarize() Summary {
	s := Summary{
		Frames:  len(r.frames),
		Classes: make(map[string]int),
	}
	if len(r.frames) == 0 {
		return s
	}

	s.StartTime = r.frames[0].Time
	s.EndTime = r.frames[len(r.frames)-1].Time
	s.Duration = s.EndTime - s.StartTime

	for _, f := range r.frames {
		s.Spawns += len(f.Spawned)
		s.Updates += len(f.Updated)
		s.Destroys += len(f.Destroyed)
		for _, sp := range f.Spawned {
			s.Classes[sp.ClassName]++
		}
		for _, u := range f.Updated {
			s.Components += len(u.Components)
		}
	}
	return s
}
