package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

const (
	BlobbyParts  = 16
	BlobbyRadius = 2.0

	blobbyCoreMass = 1.0
	blobbyPartMass = 0.5
	blobbySpringK  = 60.0
	blobbyDamping  = 2.0
)

var BlobbyColor = geom.RGB(0.2, 0.5, 1.0)

// AddBlobby creates a soft body centred on center: a core object followed by
// BlobbyParts consecutive part objects on a circle, every pair of them joined
// by a shared LengthSpring. triangles is the first of BlobbyParts triangle
// records used to draw it.
func (t *Table) AddBlobby(center mgl64.Vec2, color geom.Color, triangles int) *Object {
	core := t.add(newObject(KindBlobby, blobbyCoreMass, color, triangles))
	core.state.Position = center
	core.committed = core.state

	parts := make([]*Object, 0, BlobbyParts)
	for i := 0; i < BlobbyParts; i++ {
		angle := 2 * math.Pi * float64(i) / BlobbyParts
		offset := mgl64.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(BlobbyRadius)

		part := t.add(newObject(KindBlobbyPart, blobbyPartMass, color, -1))
		part.parent = core.id
		part.state.Position = center.Add(offset)
		part.committed = part.state

		core.children = append(core.children, part.id)
		parts = append(parts, part)
	}

	link := func(a, b *Object) {
		s := NewLengthSpring(a, b, blobbySpringK, blobbyDamping)
		a.AddConstraint(s)
		b.AddConstraint(s)
	}
	for i, part := range parts {
		link(core, part)
		for _, other := range parts[i+1:] {
			link(part, other)
		}
	}

	return core
}
