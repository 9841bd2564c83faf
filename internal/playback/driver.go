package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rictusempra/replayer/internal/cache"
	"github.com/rictusempra/replayer/internal/geo"
	"github.com/rictusempra/replayer/internal/queue"
	"github.com/rictusempra/replayer/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrTickSourceClosed is returned by Run when the tick channel closes before
// the replay is exhausted
var ErrTickSourceClosed = errors.New("tick source closed")

// Driver plays a replay back one frame per Advance call.
// A Driver belongs to a single session and must not be shared between
// goroutines; only Position may be called concurrently.
type Driver struct {
	host   Host
	logger *slog.Logger

	frames *queue.Queue[core.Frame]
	actors *cache.ActorCache[Handle]

	// position mirrors frames.Consumed for readers on other goroutines,
	// such as log handlers
	position atomic.Int64

	// actor ids already reported as unknown, so a missing actor that is
	// updated every frame is reported once
	reported map[int]struct{}

	// OTEL metrics
	framesAdvanced metric.Int64Counter
	spawned        metric.Int64Counter
	destroyed      metric.Int64Counter
	anomalies      metric.Int64Counter
}

// New creates a Driver that applies frames to host.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(host Host, logger *slog.Logger) (*Driver, error) {
	if host == nil {
		return nil, errors.New("playback host is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Driver{
		host:     host,
		logger:   logger,
		frames:   queue.New[core.Frame](),
		actors:   cache.NewActorCache[Handle](),
		reported: make(map[int]struct{}),
	}

	m := meter()

	var err error

	d.framesAdvanced, err = m.Int64Counter(
		"playback.frames.advanced",
		metric.WithDescription("Total replay frames applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	d.spawned, err = m.Int64Counter(
		"playback.actors.spawned",
		metric.WithDescription("Total actors spawned on the host"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawned counter: %w", err)
	}

	d.destroyed, err = m.Int64Counter(
		"playback.actors.destroyed",
		metric.WithDescription("Total actors destroyed on the host"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating destroyed counter: %w", err)
	}

	d.anomalies, err = m.Int64Counter(
		"playback.anomalies",
		metric.WithDescription("Total non-fatal playback anomalies"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating anomalies counter: %w", err)
	}

	return d, nil
}

// Reset restarts playback of replay from its first frame. The live actor map
// is discarded; handles it held are not destroyed.
func (d *Driver) Reset(replay *core.Replay) {
	var frames []core.Frame
	if replay != nil {
		frames = replay.Frames()
	}

	d.frames.Reset(frames...)
	d.position.Store(0)
	d.actors.Reset()
	d.reported = make(map[int]struct{})

	d.logger.Info(fmt.Sprintf("Replay loaded. %d frames.", len(frames)))
}

// Advance applies the next frame and describes what it did.
// It returns nil, without touching any state, once every frame has been applied.
func (d *Driver) Advance() *core.AppliedFrame {
	index := d.frames.Consumed()
	frame, ok := d.frames.Pop()
	if !ok {
		return nil
	}
	d.position.Store(int64(d.frames.Consumed()))

	applied := &core.AppliedFrame{
		Index:      index,
		Time:       frame.Time,
		Delta:      frame.Delta,
		Spawned:    make([]core.SpawnResult, 0, len(frame.Spawned)),
		Transforms: make([]core.TransformResult, 0),
		Destroyed:  make([]int, 0, len(frame.Destroyed)),
		Anomalies:  make([]core.Anomaly, 0),
	}

	d.applySpawns(applied, frame.Spawned)
	d.applyUpdates(applied, frame.Updated)
	d.applyDestroys(applied, frame.Destroyed)

	d.framesAdvanced.Add(context.Background(), 1)

	if len(applied.Destroyed) > 0 {
		d.logger.Debug("Frame destroyed actors", "frame", index, "actorIds", applied.Destroyed)
	}

	return applied
}

func (d *Driver) applySpawns(applied *core.AppliedFrame, spawns []core.SpawnEvent) {
	for _, s := range spawns {
		position := geo.Remap(s.Location())
		result := core.SpawnResult{
			ActorID:   s.ActorID,
			ClassName: s.ClassName,
			Position:  position,
		}

		if d.actors.Has(s.ActorID) {
			result.Skipped = true
			applied.Spawned = append(applied.Spawned, result)
			continue
		}

		h, err := d.host.Spawn(s.ClassName, position)
		if err == nil && h == nil {
			err = &ResolutionError{ClassName: s.ClassName}
		}

		if err != nil {
			d.actors.AddUnresolved(s.ActorID)
			d.anomaly(applied, core.Anomaly{
				Kind:      core.AnomalyUnresolvedClass,
				ActorID:   s.ActorID,
				ClassName: s.ClassName,
				Message:   err.Error(),
			}, true)
		} else {
			d.actors.Add(s.ActorID, h)
			result.Resolved = true
			d.spawned.Add(context.Background(), 1)
		}

		applied.Spawned = append(applied.Spawned, result)
		d.logger.Debug(fmt.Sprintf("Spawned: %d", s.ActorID), "className", s.ClassName, "resolved", result.Resolved)
	}
}

func (d *Driver) applyUpdates(applied *core.AppliedFrame, updates []core.UpdateEvent) {
	for _, u := range updates {
		h, ok := d.actors.Get(u.ActorID)
		if !ok {
			d.missingActor(applied, u.ActorID, "update")
			continue
		}

		for _, c := range u.Components {
			position := geo.Remap(c.Location())
			rotation := geo.NormalizeRotation(c.Rotation(), c.RotLimit)
			d.host.SetTransform(h, position, rotation)

			applied.Transforms = append(applied.Transforms, core.TransformResult{
				ActorID:  u.ActorID,
				Position: position,
				Rotation: rotation,
			})
		}
	}
}

func (d *Driver) applyDestroys(applied *core.AppliedFrame, destroys []core.DestroyEvent) {
	for _, dr := range destroys {
		h, ok := d.actors.Get(dr.ActorID)
		if !ok {
			d.missingActor(applied, dr.ActorID, "destroy")
			continue
		}

		d.actors.Remove(dr.ActorID)
		d.host.Destroy(h)
		d.destroyed.Add(context.Background(), 1)

		applied.Destroyed = append(applied.Destroyed, dr.ActorID)
		d.logger.Debug(fmt.Sprintf("Destroyed: %d", dr.ActorID))
	}
}

// missingActor records a reference to an actor without a live handle.
// The host hears about each id once per session.
func (d *Driver) missingActor(applied *core.AppliedFrame, actorID int, op string) {
	kind := core.AnomalyUnknownActor
	msg := fmt.Sprintf("%s for unknown actor: %d", op, actorID)
	if d.actors.Has(actorID) {
		kind = core.AnomalyNoHandle
		msg = fmt.Sprintf("%s for unresolved actor: %d", op, actorID)
	}

	_, seen := d.reported[actorID]
	d.reported[actorID] = struct{}{}

	d.anomaly(applied, core.Anomaly{
		Kind:    kind,
		ActorID: actorID,
		Message: msg,
	}, !seen)
}

func (d *Driver) anomaly(applied *core.AppliedFrame, a core.Anomaly, report bool) {
	applied.Anomalies = append(applied.Anomalies, a)
	d.anomalies.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", string(a.Kind))))

	if report {
		d.host.Report(a.Message)
	}
}

// Exhausted reports whether every frame has been applied.
func (d *Driver) Exhausted() bool {
	return d.frames.Empty()
}

// Remaining returns the number of frames not yet applied.
func (d *Driver) Remaining() int {
	return d.frames.Len()
}

// Position returns the number of frames applied since the last Reset.
// It is safe to call from any goroutine.
func (d *Driver) Position() int {
	return int(d.position.Load())
}

// LiveActors returns every registered actor id in ascending order, including
// ids whose class could not be resolved.
func (d *Driver) LiveActors() []int {
	return d.actors.IDs()
}

// Handle returns the host handle for actorID.
func (d *Driver) Handle(actorID int) (Handle, bool) {
	return d.actors.Get(actorID)
}

// Run calls Advance once per tick until the replay is exhausted or ctx is done.
// onFrame, if set, receives every applied frame; its errors are logged and do
// not stop playback.
func (d *Driver) Run(ctx context.Context, ticks <-chan time.Time, onFrame func(*core.AppliedFrame) error) error {
	for !d.Exhausted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return ErrTickSourceClosed
			}

			applied := d.Advance()
			if applied == nil {
				return nil
			}
			if onFrame == nil {
				continue
			}
			if err := onFrame(applied); err != nil {
				d.logger.Error("Frame handler failed", "frame", applied.Index, "error", err)
			}
		}
	}
	return nil
}
