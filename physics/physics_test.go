package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splitworld/geom"
)

const dt = 1.0 / 60.0

func TestIntegrate_FreeFall(t *testing.T) {
	table := NewTable()
	box := table.AddBox(1, geom.White, 0)
	box.SetPosition(mgl64.Vec2{0, 10})

	p := DefaultParams()
	for i := 0; i < 60; i++ {
		box.Integrate(dt, &p)
	}

	assert.InDelta(t, 10-0.5*9.81, box.Position().Y(), 1e-9)
	assert.InDelta(t, -9.81, box.Velocity().Y(), 1e-9)
	assert.Equal(t, 0.0, box.Position().X())
}

func TestSolve_BoxSettlesOnFloor(t *testing.T) {
	table := NewTable()
	box := table.AddBox(1, geom.White, 0)
	box.SetPosition(mgl64.Vec2{0, 10})

	p := DefaultParams()
	for i := 0; i < 1800; i++ {
		box.Integrate(dt, &p)
		box.Solve(&p)
	}

	assert.InDelta(t, p.Bounds.Min.Y()+0.5, box.Position().Y(), 1e-2)
	assert.Less(t, box.Velocity().Len(), 1e-3)
	assert.Empty(t, box.Contacts())
}

func TestSolve_SideWallPushesBack(t *testing.T) {
	table := NewTable()
	box := table.AddBox(1, geom.White, 0)
	box.SetState(State{Position: mgl64.Vec2{-19.8, 5}, Velocity: mgl64.Vec2{-5, 0}})

	p := DefaultParams()
	p.Gravity = mgl64.Vec2{}
	box.Solve(&p)

	assert.Greater(t, box.Velocity().X(), 0.0)
	assert.Greater(t, box.Position().X(), -19.8)
}

func TestSolve_DynamicContactConservesMomentum(t *testing.T) {
	table := NewTable()
	a := table.AddBox(1, geom.White, 0)
	b := table.AddBox(3, geom.White, 1)
	a.SetState(State{Position: mgl64.Vec2{-0.45, 10}, Velocity: mgl64.Vec2{4, 0}})
	b.SetState(State{Position: mgl64.Vec2{0.45, 10}, Velocity: mgl64.Vec2{-2, 0}})

	before := a.Velocity().Mul(a.Mass()).Add(b.Velocity().Mul(b.Mass()))

	ca, ok := Collide(a, b)
	require.True(t, ok)
	cb, ok := Collide(b, a)
	require.True(t, ok)
	a.AddContact(ca)
	b.AddContact(cb)

	p := DefaultParams()
	p.Friction = 0
	a.Solve(&p)
	b.Solve(&p)

	after := a.Velocity().Mul(a.Mass()).Add(b.Velocity().Mul(b.Mass()))
	assert.InDelta(t, before.X(), after.X(), 1e-9)
	assert.Less(t, a.Velocity().X(), 0.0)
	assert.Greater(t, b.Velocity().X(), 0.0)
}

func TestCollide_Symmetry(t *testing.T) {
	table := NewTable()
	box := table.AddBox(2, geom.White, 0)
	tri := table.AddTriangle(1, geom.White, 0)
	core := table.AddBlobby(mgl64.Vec2{5, 5}, BlobbyColor, 0)
	part := table.Get(core.ChildIDs()[0])

	box.SetPosition(mgl64.Vec2{0, 1})
	tri.SetPosition(mgl64.Vec2{0.3, 1.8})

	ab, ok := Collide(box, tri)
	require.True(t, ok)
	ba, ok := Collide(tri, box)
	require.True(t, ok)
	assert.Equal(t, ab.Reverse(), ba)

	part.SetPosition(mgl64.Vec2{0.2, 1.45})
	bp, ok := Collide(box, part)
	require.True(t, ok)
	pb, ok := Collide(part, box)
	require.True(t, ok)
	assert.Equal(t, bp.Reverse(), pb)
	assert.Equal(t, bp, pb.Reverse())
	assert.Equal(t, mgl64.Vec2{0, 1}, pb.Normal)

	_, ok = Collide(part, table.Get(core.ChildIDs()[1]))
	assert.False(t, ok)
	_, ok = Collide(core, box)
	assert.False(t, ok)
}

func TestAddContact_Bounded(t *testing.T) {
	table := NewTable()
	box := table.AddBox(1, geom.White, 0)

	for i := 0; i < MaxContacts; i++ {
		require.True(t, box.AddContact(geom.Contact{Normal: mgl64.Vec2{0, 1}}))
	}
	assert.False(t, box.AddContact(geom.Contact{}))
	assert.Len(t, box.Contacts(), MaxContacts)
}

func TestBlobby_Structure(t *testing.T) {
	table := NewTable()
	table.AddBox(1, geom.White, 0)
	core := table.AddBlobby(mgl64.Vec2{0, 10}, BlobbyColor, 4)

	require.Equal(t, 2+BlobbyParts, table.Len())
	assert.Equal(t, ID(1), core.ID())
	assert.True(t, core.CanMigrate())

	for i, id := range core.ChildIDs() {
		part := table.Get(id)
		assert.Equal(t, ID(2+i), id)
		assert.Equal(t, KindBlobbyPart, part.Kind())
		assert.False(t, part.CanMigrate())
		assert.Same(t, core, part.Root())
		assert.InDelta(t, BlobbyRadius, part.Position().Sub(core.Position()).Len(), 1e-9)
	}

	// one spring to the core plus one per other part
	part := table.Get(core.ChildIDs()[3])
	assert.Len(t, part.Constraints(), BlobbyParts)
	assert.Len(t, core.Constraints(), BlobbyParts)
}

func TestBlobby_SetPositionTranslatesParts(t *testing.T) {
	table := NewTable()
	core := table.AddBlobby(mgl64.Vec2{0, 10}, BlobbyColor, 0)

	offsets := map[ID]mgl64.Vec2{}
	for _, part := range core.Children() {
		offsets[part.ID()] = part.Position().Sub(core.Position())
	}

	core.SetPosition(mgl64.Vec2{3, 40})
	for _, part := range core.Children() {
		got := part.Position().Sub(core.Position())
		assert.InDelta(t, offsets[part.ID()].X(), got.X(), 1e-9)
		assert.InDelta(t, offsets[part.ID()].Y(), got.Y(), 1e-9)
	}
}

func TestBlobby_OwnerCascades(t *testing.T) {
	table := NewTable()
	core := table.AddBlobby(mgl64.Vec2{0, 10}, BlobbyColor, 0)

	core.SetOwner(1)
	for _, part := range core.Children() {
		assert.Equal(t, 1, part.Owner())
	}
}

func TestBlobby_HoldsShapeUnderGravity(t *testing.T) {
	table := NewTable()
	core := table.AddBlobby(mgl64.Vec2{0, 5}, BlobbyColor, 0)

	p := DefaultParams()
	for i := 0; i < 600; i++ {
		for _, o := range table.All() {
			o.Integrate(dt, &p)
		}
		for _, o := range table.All() {
			o.Solve(&p)
		}
	}

	for _, part := range core.Children() {
		d := part.Position().Sub(core.Position()).Len()
		assert.False(t, math.IsNaN(d))
		assert.Less(t, d, 3*BlobbyRadius)
		assert.GreaterOrEqual(t, part.Position().Y(), p.Bounds.Min.Y()-0.1)
	}
}

func TestFixedEndSpring_PullsTowardsAnchor(t *testing.T) {
	table := NewTable()
	box := table.AddBox(2, geom.White, 0)
	box.SetPosition(mgl64.Vec2{0, 5})

	spring := &FixedEndSpring{K: 1000, Damping: 100, Fixed: mgl64.Vec2{1, 5}}
	box.AddConstraint(spring)

	acc := spring.Acceleration(box, box.State())
	assert.InDelta(t, 500, acc.X(), 1e-9)
	assert.InDelta(t, 0, acc.Y(), 1e-9)

	box.RemoveConstraint(spring)
	assert.Empty(t, box.Constraints())
}

func TestLengthSpring_RestAndStretch(t *testing.T) {
	table := NewTable()
	a := table.AddBox(1, geom.White, 0)
	b := table.AddBox(1, geom.White, 1)
	a.SetPosition(mgl64.Vec2{0, 5})
	b.SetPosition(mgl64.Vec2{2, 5})

	s := NewLengthSpring(a, b, 10, 0)
	assert.InDelta(t, 2, s.Rest, 1e-12)
	assert.Equal(t, mgl64.Vec2{}, s.Acceleration(a, a.State()))

	b.SetPosition(mgl64.Vec2{3, 5})
	assert.InDelta(t, 10, s.Acceleration(a, a.State()).X(), 1e-9)
	assert.InDelta(t, -10, s.Acceleration(b, b.State()).X(), 1e-9)
}

func TestReloadLastKnownPosition_Idempotent(t *testing.T) {
	table := NewTable()
	box := table.AddBox(1, geom.White, 0)
	box.SetState(State{Position: mgl64.Vec2{1, 2}, Velocity: mgl64.Vec2{3, 4}})
	table.SnapshotLastKnown()

	p := DefaultParams()
	box.Integrate(dt, &p)
	require.NotEqual(t, mgl64.Vec2{1, 2}, box.Position())

	table.ReloadLastKnownPositions()
	once := box.State()
	table.ReloadLastKnownPositions()

	assert.Equal(t, once, box.State())
	assert.Equal(t, State{Position: mgl64.Vec2{1, 2}, Velocity: mgl64.Vec2{3, 4}}, once)
	assert.Equal(t, once, box.Committed())
}

type recordingWriter struct {
	quads     map[int]geom.Quad
	triangles map[int]geom.Triangle
}

func (w *recordingWriter) UpdateQuad(i int, q geom.Quad)         { w.quads[i] = q }
func (w *recordingWriter) UpdateTriangle(i int, t geom.Triangle) { w.triangles[i] = t }
func (w *recordingWriter) ObjectColor(o *Object) geom.Color      { return o.Color() }

func TestUpdateShape(t *testing.T) {
	table := NewTable()
	box := table.AddBox(1, geom.RGB(1, 0, 0), 0)
	box.SetPosition(mgl64.Vec2{1, 2})
	core := table.AddBlobby(mgl64.Vec2{0, 10}, BlobbyColor, 3)

	w := &recordingWriter{quads: map[int]geom.Quad{}, triangles: map[int]geom.Triangle{}}
	for _, o := range table.All() {
		o.UpdateShape(w)
	}

	require.Len(t, w.quads, 1)
	assert.Equal(t, geom.Vec2f(1, 2), w.quads[0].Position)
	assert.Equal(t, geom.RGB(1, 0, 0), w.quads[0].Color)

	assert.Len(t, w.triangles, BlobbyParts)
	assert.Equal(t, geom.Vec2f(0, 10), w.triangles[3].Points[0])
	assert.Equal(t, core.Color(), w.triangles[3+BlobbyParts-1].Color)
}
