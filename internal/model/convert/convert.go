// Package convert provides functions to convert core playback types to GORM models
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rictusempra/replayer/internal/geo"
	"github.com/rictusempra/replayer/internal/model"
	"github.com/rictusempra/replayer/pkg/core"
	"gorm.io/datatypes"
)

// frameDetail is the JSON body stored in FrameRecord.Detail
type frameDetail struct {
	Spawned   []core.SpawnResult `json:"spawned"`
	Destroyed []int              `json:"destroyed"`
	Anomalies []core.Anomaly     `json:"anomalies"`
}

// CoreToSession converts a core.Session to a GORM model.PlaybackSession.
func CoreToSession(s core.Session) (model.PlaybackSession, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return model.PlaybackSession{}, fmt.Errorf("invalid session id %q: %w", s.ID, err)
	}
	return model.PlaybackSession{
		ID:         id,
		Source:     s.Source,
		FrameCount: s.FrameCount,
		StartedAt:  s.StartedAt,
	}, nil
}

// FrameToRecord converts an applied frame to its journal row.
func FrameToRecord(sessionID uuid.UUID, f *core.AppliedFrame) (model.FrameRecord, error) {
	detail, err := json.Marshal(frameDetail{
		Spawned:   nonNil(f.Spawned),
		Destroyed: nonNil(f.Destroyed),
		Anomalies: nonNil(f.Anomalies),
	})
	if err != nil {
		return model.FrameRecord{}, fmt.Errorf("failed to encode frame %d detail: %w", f.Index, err)
	}

	return model.FrameRecord{
		SessionID:      sessionID,
		FrameIndex:     f.Index,
		Time:           f.Time,
		Delta:          f.Delta,
		SpawnCount:     len(f.Spawned),
		TransformCount: len(f.Transforms),
		DestroyCount:   len(f.Destroyed),
		AnomalyCount:   len(f.Anomalies),
		Detail:         datatypes.JSON(detail),
	}, nil
}

// FrameToTransforms converts every transform of an applied frame.
func FrameToTransforms(sessionID uuid.UUID, f *core.AppliedFrame) []model.ActorTransform {
	out := make([]model.ActorTransform, 0, len(f.Transforms))
	for _, t := range f.Transforms {
		out = append(out, model.ActorTransform{
			SessionID:  sessionID,
			ActorID:    t.ActorID,
			FrameIndex: f.Index,
			Position:   geo.Point(t.Position),
			RotationX:  t.Rotation.X,
			RotationY:  t.Rotation.Y,
			RotationZ:  t.Rotation.Z,
		})
	}
	return out
}

// TransformToCore converts a stored transform back to a core.TransformResult.
func TransformToCore(t model.ActorTransform) core.TransformResult {
	return core.TransformResult{
		ActorID:  t.ActorID,
		Position: geo.Vector(t.Position),
		Rotation: core.Vector3{X: t.RotationX, Y: t.RotationY, Z: t.RotationZ},
	}
}

// TrackBuilder accumulates actor positions over a session.
type TrackBuilder struct {
	tracks map[int]*trackSamples
	order  []int
}

type trackSamples struct {
	first, last int
	points      []core.Vector3
}

func NewTrackBuilder() *TrackBuilder {
	return &TrackBuilder{tracks: make(map[int]*trackSamples)}
}

// Add records the spawn positions and transforms of f.
func (b *TrackBuilder) Add(f *core.AppliedFrame) {
	for _, s := range f.Spawned {
		if s.Resolved {
			b.sample(s.ActorID, f.Index, s.Position)
		}
	}
	for _, t := range f.Transforms {
		b.sample(t.ActorID, f.Index, t.Position)
	}
}

func (b *TrackBuilder) sample(actorID, frame int, p core.Vector3) {
	ts, ok := b.tracks[actorID]
	if !ok {
		ts = &trackSamples{first: frame}
		b.tracks[actorID] = ts
		b.order = append(b.order, actorID)
	}
	ts.last = frame
	ts.points = append(ts.points, p)
}

// Tracks returns one row per actor that moved, in first-seen order.
// Actors that never left a single point have no track.
func (b *TrackBuilder) Tracks(sessionID uuid.UUID) []model.ActorTrack {
	out := make([]model.ActorTrack, 0, len(b.order))
	for _, id := range b.order {
		ts := b.tracks[id]
		path, err := geo.Track(ts.points)
		if err != nil {
			continue
		}
		out = append(out, model.ActorTrack{
			SessionID:  sessionID,
			ActorID:    id,
			FirstFrame: ts.first,
			LastFrame:  ts.last,
			Samples:    len(ts.points),
			Path:       path,
		})
	}
	return out
}

// EndSession fills in the closing fields of a session row.
func EndSession(s *model.PlaybackSession, applied, anomalies int, at time.Time) {
	s.Applied = applied
	s.Anomalies = anomalies
	s.EndedAt = &at
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
