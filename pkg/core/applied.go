// pkg/core/applied.go
package core

import "time"

// AnomalyKind classifies a non-fatal playback problem.
type AnomalyKind string

const (
	AnomalyUnresolvedClass AnomalyKind = "unresolved_class"
	AnomalyUnknownActor    AnomalyKind = "unknown_actor"
	AnomalyNoHandle        AnomalyKind = "no_handle"
)

// Anomaly is a reported, non-fatal problem met while applying a frame.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	ActorID   int         `json:"actorId"`
	ClassName string      `json:"className,omitempty"`
	Message   string      `json:"message"`
}

// SpawnResult records the outcome of one spawn event.
// Skipped is set when the actor id was already registered.
type SpawnResult struct {
	ActorID   int     `json:"actorId"`
	ClassName string  `json:"className"`
	Position  Vector3 `json:"position"`
	Resolved  bool    `json:"resolved"`
	Skipped   bool    `json:"skipped,omitempty"`
}

// TransformResult records one transform pushed to the host.
type TransformResult struct {
	ActorID  int     `json:"actorId"`
	Position Vector3 `json:"position"`
	Rotation Vector3 `json:"rotation"`
}

// AppliedFrame describes everything a single advance did.
type AppliedFrame struct {
	Index      int               `json:"index"`
	Time       float64           `json:"time"`
	Delta      float64           `json:"delta"`
	Spawned    []SpawnResult     `json:"spawned"`
	Transforms []TransformResult `json:"transforms"`
	Destroyed  []int             `json:"destroyed"`
	Anomalies  []Anomaly         `json:"anomalies"`
}

// Session identifies one playback run for journaling.
type Session struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	FrameCount int       `json:"frameCount"`
	StartedAt  time.Time `json:"startedAt"`
}

// ResolvedSpawns counts the spawns that produced a live actor. Skipped and
// unresolved spawns are excluded.
func (f *AppliedFrame) ResolvedSpawns() int {
	n := 0
	for _, s := range f.Spawned {
		if s.Resolved && !s.Skipped {
			n++
		}
	}
	return n
}
