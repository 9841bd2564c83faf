package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rictusempra/replayer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeActor is the handle type returned by fakeHost
type fakeActor struct {
	id        int
	className string
	position  core.Vector3
	rotation  core.Vector3
}

type transformCall struct {
	actor    *fakeActor
	position core.Vector3
	rotation core.Vector3
}

type spawnCall struct {
	className string
	position  core.Vector3
}

// fakeHost records every call and resolves only known classes
type fakeHost struct {
	known      map[string]bool
	nextID     int
	spawns     []spawnCall
	transforms []transformCall
	destroys   []*fakeActor
	reports    []string
}

func newFakeHost(classes ...string) *fakeHost {
	h := &fakeHost{known: make(map[string]bool)}
	for _, c := range classes {
		h.known[c] = true
	}
	return h
}

func (h *fakeHost) Spawn(className string, position core.Vector3) (Handle, error) {
	h.spawns = append(h.spawns, spawnCall{className: className, position: position})
	if !h.known[className] {
		return nil, &ResolutionError{ClassName: className}
	}
	h.nextID++
	return &fakeActor{id: h.nextID, className: className, position: position}, nil
}

func (h *fakeHost) SetTransform(handle Handle, position, eulerDegrees core.Vector3) {
	a := handle.(*fakeActor)
	a.position = position
	a.rotation = eulerDegrees
	h.transforms = append(h.transforms, transformCall{actor: a, position: position, rotation: eulerDegrees})
}

func (h *fakeHost) Destroy(handle Handle) {
	h.destroys = append(h.destroys, handle.(*fakeActor))
}

func (h *fakeHost) Report(message string) {
	h.reports = append(h.reports, message)
}

func newTestDriver(t *testing.T, host Host) *Driver {
	t.Helper()
	d, err := New(host, slog.Default())
	require.NoError(t, err)
	return d
}

func spawn(id int, class string, x, y, z float64) core.SpawnEvent {
	return core.SpawnEvent{Type: "spawn", ActorID: id, ClassName: class, LocX: x, LocY: y, LocZ: z}
}

func update(id int, comps ...core.ComponentUpdate) core.UpdateEvent {
	return core.UpdateEvent{Type: "update", ActorID: id, Components: comps}
}

func component(x, y, z, rx, ry, rz float64) core.ComponentUpdate {
	return core.ComponentUpdate{
		NewLocX: x, NewLocY: y, NewLocZ: z,
		NewRotX: rx, NewRotY: ry, NewRotZ: rz,
		RotLimit: 32768,
	}
}

func destroy(id int) core.DestroyEvent {
	return core.DestroyEvent{Type: "destroy", ActorID: id}
}

func TestNew_RequiresHost(t *testing.T) {
	_, err := New(nil, slog.Default())
	require.Error(t, err)
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	d, err := New(newFakeHost(), nil)
	require.NoError(t, err)
	assert.NotNil(t, d.logger)
}

func TestAdvance_BeforeReset(t *testing.T) {
	d := newTestDriver(t, newFakeHost())
	assert.Nil(t, d.Advance())
	assert.True(t, d.Exhausted())
}

func TestAdvance_BallScenario(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)

	d.Reset(core.NewReplay([]core.Frame{
		{Time: 0, Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 0.1, Delta: 0.1, Updated: []core.UpdateEvent{update(1, component(0, 4096, 0, 0, 0, 0))}},
		{Time: 0.2, Delta: 0.1, Destroyed: []core.DestroyEvent{destroy(1)}},
	}))

	first := d.Advance()
	require.NotNil(t, first)
	require.Len(t, host.spawns, 1)
	assert.Equal(t, "Ball", host.spawns[0].className)
	assert.Equal(t, core.Vector3{}, host.spawns[0].position)
	assert.Equal(t, []int{1}, d.LiveActors())

	second := d.Advance()
	require.NotNil(t, second)
	require.Len(t, host.transforms, 1)
	assert.Equal(t, core.Vector3{X: 0, Y: 0, Z: 10}, host.transforms[0].position)
	assert.Equal(t, core.Vector3{}, host.transforms[0].rotation)

	third := d.Advance()
	require.NotNil(t, third)
	require.Len(t, host.destroys, 1)
	assert.Equal(t, "Ball", host.destroys[0].className)
	assert.Empty(t, d.LiveActors())
	assert.Equal(t, []int{1}, third.Destroyed)

	assert.Nil(t, d.Advance())
	assert.Empty(t, host.reports)
}

func TestAdvance_ConsumesEveryFrameInOrder(t *testing.T) {
	d := newTestDriver(t, newFakeHost("Ball"))

	frames := []core.Frame{
		{Time: 0, Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 1, Delta: 1},
		{Time: 2, Delta: 1},
		{Time: 3, Delta: 1},
	}
	d.Reset(core.NewReplay(frames))

	for i, f := range frames {
		applied := d.Advance()
		require.NotNil(t, applied, "frame %d", i)
		assert.Equal(t, i, applied.Index)
		assert.Equal(t, f.Time, applied.Time)
		assert.Equal(t, f.Delta, applied.Delta)
		assert.Equal(t, len(frames)-i-1, d.Remaining())
	}

	assert.Nil(t, d.Advance())
	assert.Equal(t, len(frames), d.Position())
}

func TestAdvance_ExhaustionDoesNotMutate(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0), spawn(2, "Ball", 1, 1, 1)}},
	}))
	require.NotNil(t, d.Advance())

	before := d.LiveActors()
	for i := 0; i < 5; i++ {
		assert.Nil(t, d.Advance())
	}

	assert.Equal(t, before, d.LiveActors())
	assert.Len(t, host.spawns, 2)
	assert.Empty(t, host.destroys)
}

func TestAdvance_SpawnRemapsPosition(t *testing.T) {
	host := newFakeHost("Car")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(5, "Car", 4096, 0, 4096)}},
	}))

	applied := d.Advance()

	require.Len(t, host.spawns, 1)
	assert.Equal(t, core.Vector3{X: 10, Y: 10, Z: 0}, host.spawns[0].position)
	require.Len(t, applied.Spawned, 1)
	assert.True(t, applied.Spawned[0].Resolved)
	assert.Equal(t, core.Vector3{X: 10, Y: 10, Z: 0}, applied.Spawned[0].Position)
}

func TestAdvance_DuplicateSpawnSkipped(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 100, 100, 100)}},
	}))

	d.Advance()
	applied := d.Advance()

	assert.Len(t, host.spawns, 1, "second spawn of a live id must not reach the host")
	require.Len(t, applied.Spawned, 1)
	assert.True(t, applied.Spawned[0].Skipped)
	assert.Empty(t, applied.Anomalies)
}

func TestAdvance_UnresolvedClassIsReportedAndRegistered(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(9, "TAGame.Boost_TA", 0, 0, 0)}},
		{Spawned: []core.SpawnEvent{spawn(9, "TAGame.Boost_TA", 0, 0, 0)}},
	}))

	applied := d.Advance()

	require.Len(t, host.spawns, 1, "lookup attempt reaches the host")
	require.Len(t, host.reports, 1)
	assert.Contains(t, host.reports[0], "TAGame.Boost_TA")
	require.Len(t, applied.Anomalies, 1)
	assert.Equal(t, core.AnomalyUnresolvedClass, applied.Anomalies[0].Kind)
	assert.Equal(t, 9, applied.Anomalies[0].ActorID)
	assert.False(t, applied.Spawned[0].Resolved)

	// id stays registered even though it has no handle
	assert.Equal(t, []int{9}, d.LiveActors())
	_, ok := d.Handle(9)
	assert.False(t, ok)

	// so a later spawn of the same id is treated as a duplicate
	second := d.Advance()
	assert.Len(t, host.spawns, 1)
	assert.True(t, second.Spawned[0].Skipped)
}

func TestAdvance_UpdateForNeverSpawnedActor(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Updated: []core.UpdateEvent{update(42, component(1, 2, 3, 0, 0, 0))}},
		{Updated: []core.UpdateEvent{update(42, component(4, 5, 6, 0, 0, 0))}},
	}))

	d.Advance()
	applied := d.Advance()
	require.NotNil(t, applied)

	assert.Empty(t, host.transforms)
	assert.Empty(t, applied.Transforms)
	require.Len(t, applied.Anomalies, 1)
	assert.Equal(t, core.AnomalyUnknownActor, applied.Anomalies[0].Kind)
	require.Len(t, host.reports, 1)

	// repeated references are recorded but reported once
	again := d.Advance()
	assert.Len(t, again.Anomalies, 1)
	assert.Len(t, host.reports, 1)
}

func TestAdvance_UpdateForUnresolvedActor(t *testing.T) {
	host := newFakeHost()
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(3, "Mystery", 0, 0, 0)}},
		{Updated: []core.UpdateEvent{update(3, component(1, 2, 3, 0, 0, 0))}},
	}))

	d.Advance()
	applied := d.Advance()

	assert.Empty(t, host.transforms)
	require.Len(t, applied.Anomalies, 1)
	assert.Equal(t, core.AnomalyNoHandle, applied.Anomalies[0].Kind)
}

func TestAdvance_LastComponentWins(t *testing.T) {
	host := newFakeHost("Car")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(2, "Car", 0, 0, 0)}},
		{Updated: []core.UpdateEvent{update(2,
			component(4096, 0, 0, 0, 0, 0),
			component(8192, 0, 0, 16384, 0, 8192),
		)}},
	}))

	d.Advance()
	applied := d.Advance()

	require.Len(t, host.transforms, 2)
	require.Len(t, applied.Transforms, 2)
	h, ok := d.Handle(2)
	require.True(t, ok)
	actor := h.(*fakeActor)
	assert.Equal(t, core.Vector3{X: 20}, actor.position)
	assert.Equal(t, core.Vector3{X: 180, Z: 90}, actor.rotation)
}

func TestAdvance_EventOrderWithinFrame(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)

	// spawn, update and destroy of the same id in one frame
	d.Reset(core.NewReplay([]core.Frame{
		{
			Spawned:   []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)},
			Updated:   []core.UpdateEvent{update(1, component(4096, 0, 0, 0, 0, 0))},
			Destroyed: []core.DestroyEvent{destroy(1)},
		},
	}))

	applied := d.Advance()

	assert.Len(t, host.spawns, 1)
	assert.Len(t, host.transforms, 1)
	assert.Len(t, host.destroys, 1)
	assert.Empty(t, applied.Anomalies)
	assert.Empty(t, d.LiveActors())
}

func TestAdvance_SpawnThenDestroy(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0), spawn(2, "Ball", 0, 0, 0)}},
		{Destroyed: []core.DestroyEvent{destroy(1)}},
	}))

	d.Advance()
	d.Advance()

	assert.Len(t, host.destroys, 1)
	assert.Equal(t, []int{2}, d.LiveActors())
	_, ok := d.Handle(1)
	assert.False(t, ok)
}

func TestAdvance_DestroyUnknownIgnored(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Destroyed: []core.DestroyEvent{destroy(77), destroy(1), destroy(1)}},
	}))

	d.Advance()
	applied := d.Advance()

	assert.Len(t, host.destroys, 1, "only the live actor is destroyed, once")
	assert.Equal(t, []int{1}, applied.Destroyed)
	assert.Len(t, applied.Anomalies, 2)
}

func TestAdvance_DestroyUnresolvedKeepsRegistration(t *testing.T) {
	host := newFakeHost()
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(4, "Mystery", 0, 0, 0)}},
		{Destroyed: []core.DestroyEvent{destroy(4)}},
	}))

	d.Advance()
	d.Advance()

	assert.Empty(t, host.destroys)
	assert.Equal(t, []int{4}, d.LiveActors())
}

func TestAdvance_NilHandleTreatedAsUnresolved(t *testing.T) {
	host := &nilHost{}
	d := newTestDriver(t, host)
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
	}))

	applied := d.Advance()
	require.Len(t, applied.Anomalies, 1)
	assert.Equal(t, core.AnomalyUnresolvedClass, applied.Anomalies[0].Kind)
}

// nilHost returns neither a handle nor an error
type nilHost struct{ fakeHost }

func (h *nilHost) Spawn(string, core.Vector3) (Handle, error) { return nil, nil }

func TestReset_RestartsFromFrameZero(t *testing.T) {
	host := newFakeHost("Ball")
	d := newTestDriver(t, host)
	replay := core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 1},
	})

	d.Reset(replay)
	d.Advance()
	d.Advance()
	require.True(t, d.Exhausted())

	d.Reset(replay)

	assert.False(t, d.Exhausted())
	assert.Equal(t, 2, d.Remaining())
	assert.Empty(t, d.LiveActors(), "live map is discarded")

	applied := d.Advance()
	assert.Equal(t, 0, applied.Index)
	assert.Len(t, host.spawns, 2, "actor 1 is spawned again after a restart")
	assert.Empty(t, host.destroys, "restart does not release old handles")
}

func TestReset_Nil(t *testing.T) {
	d := newTestDriver(t, newFakeHost())
	d.Reset(nil)
	assert.True(t, d.Exhausted())
	assert.Nil(t, d.Advance())
}

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{ClassName: "TAGame.Boost_TA"}
	assert.Equal(t, "attempted to spawn unknown class: TAGame.Boost_TA", err.Error())
	assert.True(t, errors.Is(err, ErrUnresolvedClass))
}

func TestRun_PlaysToCompletion(t *testing.T) {
	d := newTestDriver(t, newFakeHost("Ball"))
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 1},
		{Time: 2},
	}))

	ticks := make(chan time.Time, 3)
	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}

	var seen []int
	err := d.Run(context.Background(), ticks, func(f *core.AppliedFrame) error {
		seen = append(seen, f.Index)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.True(t, d.Exhausted())
}

func TestRun_CallbackErrorsDoNotStopPlayback(t *testing.T) {
	d := newTestDriver(t, newFakeHost("Ball"))
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 1},
	}))

	ticks := make(chan time.Time, 2)
	ticks <- time.Now()
	ticks <- time.Now()

	calls := 0
	err := d.Run(context.Background(), ticks, func(*core.AppliedFrame) error {
		calls++
		return errors.New("journal unavailable")
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRun_ContextCancelled(t *testing.T) {
	d := newTestDriver(t, newFakeHost("Ball"))
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 1},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, make(chan time.Time), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, d.Remaining(), "no frame applied without a tick")
}

func TestRun_TickSourceClosed(t *testing.T) {
	d := newTestDriver(t, newFakeHost("Ball"))
	d.Reset(core.NewReplay([]core.Frame{
		{Spawned: []core.SpawnEvent{spawn(1, "Ball", 0, 0, 0)}},
		{Time: 1},
	}))

	ticks := make(chan time.Time, 1)
	ticks <- time.Now()
	close(ticks)

	err := d.Run(context.Background(), ticks, nil)
	assert.ErrorIs(t, err, ErrTickSourceClosed)
	assert.Equal(t, 1, d.Remaining())
}

func TestRun_AlreadyExhausted(t *testing.T) {
	d := newTestDriver(t, newFakeHost())
	err := d.Run(context.Background(), nil, nil)
	assert.NoError(t, err)
}

func TestPosition_ReadableFromOtherGoroutines(t *testing.T) {
	d := newTestDriver(t, newFakeHost())
	d.Reset(core.NewReplay(make([]core.Frame, 200)))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0
		for {
			select {
			case <-stop:
				return
			default:
				p := d.Position()
				assert.GreaterOrEqual(t, p, last)
				last = p
			}
		}
	}()

	for d.Advance() != nil {
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 200, d.Position())
	d.Reset(nil)
	assert.Equal(t, 0, d.Position())
}
