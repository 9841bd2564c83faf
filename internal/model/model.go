package model

import (
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&PlaybackSession{},
	&FrameRecord{},
	&ActorTransform{},
	&ActorTrack{},
}

// PlaybackSession is one run of a replay through the playback driver
type PlaybackSession struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey"`
	Source     string     `json:"source" gorm:"size:255"`
	FrameCount int        `json:"frameCount"`
	StartedAt  time.Time  `json:"startedAt" gorm:"index:idx_session_started_at"`
	EndedAt    *time.Time `json:"endedAt"`
	Applied    int        `json:"applied"`   // frames actually advanced
	Anomalies  int        `json:"anomalies"` // non-fatal anomalies over the session
}

func (*PlaybackSession) TableName() string {
	return "playback_sessions"
}

// FrameRecord is the journal entry for one applied frame
type FrameRecord struct {
	ID             uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID      uuid.UUID      `json:"sessionId" gorm:"index:idx_frame_session_index,priority:1"`
	FrameIndex     int            `json:"frameIndex" gorm:"index:idx_frame_session_index,priority:2"`
	Time           float64        `json:"time"`
	Delta          float64        `json:"delta"`
	SpawnCount     int            `json:"spawnCount"`
	TransformCount int            `json:"transformCount"`
	DestroyCount   int            `json:"destroyCount"`
	AnomalyCount   int            `json:"anomalyCount"`
	Detail         datatypes.JSON `json:"detail"` // spawns, destroys and anomalies of the frame
}

func (*FrameRecord) TableName() string {
	return "frame_records"
}

// ActorTransform is one transform applied to an actor, in engine space
type ActorTransform struct {
	ID         uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID  uuid.UUID  `json:"sessionId" gorm:"index:idx_transform_session_actor,priority:1"`
	ActorID    int        `json:"actorId" gorm:"index:idx_transform_session_actor,priority:2"`
	FrameIndex int        `json:"frameIndex"`
	Position   geom.Point `json:"position"`
	RotationX  float64    `json:"rotationX"` // degrees
	RotationY  float64    `json:"rotationY"`
	RotationZ  float64    `json:"rotationZ"`
}

func (*ActorTransform) TableName() string {
	return "actor_transforms"
}

// ActorTrack is the path an actor followed over a session
type ActorTrack struct {
	ID         uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID  uuid.UUID       `json:"sessionId" gorm:"index:idx_track_session"`
	ActorID    int             `json:"actorId"`
	FirstFrame int             `json:"firstFrame"`
	LastFrame  int             `json:"lastFrame"`
	Samples    int             `json:"samples"`
	Path       geom.LineString `json:"path"`
}

func (*ActorTrack) TableName() string {
	return "actor_tracks"
}
