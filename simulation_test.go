package splitworld

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/session"
	"github.com/gekko3d/splitworld/world"
)

type fakeSession struct {
	id        uuid.UUID
	role      session.Role
	exchanges int
	shutdown  bool
}

func (f *fakeSession) ID() uuid.UUID        { return f.id }
func (f *fakeSession) Role() session.Role   { return f.role }
func (f *fakeSession) State() session.State { return session.Synchronized }
func (f *fakeSession) PeerID() int {
	if f.role == session.RoleWorker {
		return 1
	}
	return 0
}
func (f *fakeSession) NumPeers() int  { return 2 }
func (f *fakeSession) Status() string { return "fake " + f.role.String() }
func (f *fakeSession) Exchange()      { f.exchanges++ }
func (f *fakeSession) Shutdown()      { f.shutdown = true }

func fakeFactories(sim *Simulation) (hosts, workers *[]*fakeSession) {
	hosts, workers = &[]*fakeSession{}, &[]*fakeSession{}
	sim.newHost = func(context.Context, *world.World, session.Options) (session.Session, error) {
		s := &fakeSession{id: uuid.New(), role: session.RoleHost}
		*hosts = append(*hosts, s)
		return s, nil
	}
	sim.newWorker = func(context.Context, *world.World, session.Options) (session.Session, error) {
		s := &fakeSession{id: uuid.New(), role: session.RoleWorker}
		*workers = append(*workers, s)
		return s, nil
	}
	return hosts, workers
}

func TestSimulation_BoxFalls(t *testing.T) {
	sim := NewBuilder().WithThreads(2).Build()
	defer sim.Close()

	box := sim.World().AddBox(mgl64.Vec2{0, 10}, 1, geom.White)
	for i := 0; i < 30; i++ {
		sim.Step()
	}

	assert.Less(t, box.Position().Y(), 10.0)
	assert.Less(t, box.Velocity().Y(), 0.0)
	assert.Equal(t, uint64(30), sim.Time().Ticks())
	assert.Equal(t, ModeStandalone, sim.Mode())
	assert.Equal(t, "standalone", sim.Status())
	assert.Equal(t, 1, sim.NumPeers())
	assert.Equal(t, 0, sim.PeerID())

	_, ok := sim.SessionState()
	assert.False(t, ok)
}

func TestSimulation_ApplyConfigOnNextTick(t *testing.T) {
	sim := NewBuilder().WithThreads(1).Build()
	defer sim.Close()

	box := sim.World().AddBox(mgl64.Vec2{0, 10}, 1, geom.White)

	cfg := DefaultConfig()
	cfg.Gravity = 0
	sim.ApplyConfig(cfg)
	assert.Equal(t, -9.81, sim.World().Params().Gravity.Y())

	sim.Step()
	assert.Equal(t, 0.0, sim.World().Params().Gravity.Y())
	assert.Equal(t, cfg, sim.Config())
	assert.Equal(t, mgl64.Vec2{0, 10}, box.Position())
}

func TestSimulation_SwitchesModes(t *testing.T) {
	sim := NewBuilder().WithThreads(1).Build()
	defer sim.Close()
	hosts, workers := fakeFactories(sim)

	sim.CreateSession()
	assert.Equal(t, ModeStandalone, sim.Mode())
	sim.Step()
	require.Len(t, *hosts, 1)
	assert.Equal(t, ModeSessionHost, sim.Mode())
	assert.Equal(t, 1, (*hosts)[0].exchanges)
	assert.Equal(t, "fake host", sim.Status())
	assert.Equal(t, 2, sim.NumPeers())

	state, ok := sim.SessionState()
	assert.True(t, ok)
	assert.Equal(t, session.Synchronized, state)

	sim.JoinSession()
	sim.Step()
	assert.True(t, (*hosts)[0].shutdown)
	require.Len(t, *workers, 1)
	assert.Equal(t, ModeSessionWorker, sim.Mode())
	assert.Equal(t, 1, sim.PeerID())

	sim.TerminateSession()
	sim.Step()
	assert.True(t, (*workers)[0].shutdown)
	assert.Equal(t, ModeStandalone, sim.Mode())
	assert.Equal(t, "standalone", sim.Status())
	assert.Equal(t, 0, sim.PeerID())
}

func TestSimulation_FailedSessionFallsBack(t *testing.T) {
	sim := NewBuilder().WithThreads(1).Build()
	defer sim.Close()
	sim.newHost = func(context.Context, *world.World, session.Options) (session.Session, error) {
		return nil, errors.New("address in use")
	}

	sim.CreateSession()
	sim.Step()
	assert.Equal(t, ModeStandalone, sim.Mode())
	assert.Contains(t, sim.Status(), "address in use")

	// the failed request does not retry every tick
	sim.Step()
	assert.Equal(t, ModeStandalone, sim.Mode())
}

func TestSimulation_CloseEndsSession(t *testing.T) {
	sim := NewBuilder().WithThreads(2).Build()
	hosts, _ := fakeFactories(sim)

	sim.CreateSession()
	sim.Step()
	sim.Close()

	require.Len(t, *hosts, 1)
	assert.True(t, (*hosts)[0].shutdown)
	assert.Equal(t, ModeStandalone, sim.Mode())
}

func TestSimulation_RunStopsWithContext(t *testing.T) {
	sim := NewBuilder().WithThreads(2).WithTickRate(500).Build()
	sim.World().AddBox(mgl64.Vec2{0, 10}, 1, geom.White)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	require.Eventually(t, func() bool { return sim.Time().Ticks() > 5 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestBuilder_RejectsInvalidSettings(t *testing.T) {
	assert.Panics(t, func() { NewBuilder().WithThreads(0) })
	assert.Panics(t, func() { NewBuilder().WithTickRate(0) })
	assert.NotPanics(t, func() { NewBuilder().WithThreads(1).WithTickRate(30) })
}

func TestBuilder_AppliesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Friction = 0.5
	sim := NewBuilder().WithConfig(cfg).WithThreads(1).WithTickRate(120).Build()
	defer sim.Close()

	assert.Equal(t, 0.5, sim.World().Params().Friction)
	assert.Equal(t, 1, sim.Threads())
	assert.InDelta(t, 1.0/120, sim.Dt(), 1e-12)
}

func TestSceneModule(t *testing.T) {
	sim := NewBuilder().
		WithThreads(2).
		UseModule(SceneModule{Boxes: 10, Triangles: 5, Blobby: true}).
		Build()
	defer sim.Close()

	assert.Equal(t, 15, sim.World().NumObjects())
	sim.Step()
	assert.Equal(t, 15+1+physics.BlobbyParts, sim.World().NumObjects())

	var boxes, triangles int
	for _, o := range sim.World().Objects().All() {
		switch o.Kind() {
		case physics.KindBox:
			boxes++
			assert.Less(t, o.Position().X(), 0.0)
		case physics.KindTriangle:
			triangles++
			assert.Greater(t, o.Position().X(), 0.0)
		}
	}
	assert.Equal(t, 10, boxes)
	assert.Equal(t, 5, triangles)
}

func TestPresetModule(t *testing.T) {
	src := world.New(physics.DefaultParams(), nil)
	src.AddBox(mgl64.Vec2{1, 2}, 3, geom.White)
	path := t.TempDir() + "/scene.json"
	require.NoError(t, SavePreset(src, path))

	sim := NewBuilder().WithThreads(1).UseModule(PresetModule{Path: path}).Build()
	defer sim.Close()
	require.Equal(t, 1, sim.World().NumObjects())
	assert.Equal(t, mgl64.Vec2{1, 2}, sim.World().Object(0).Position())

	missing := NewBuilder().WithThreads(1).UseModule(PresetModule{Path: path + ".missing"}).Build()
	defer missing.Close()
	assert.Zero(t, missing.World().NumObjects())
}
