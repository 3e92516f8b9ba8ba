package physics

import (
	"cmp"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

// halfExtent of the collision box per kind. Points have none.
func (o *Object) halfExtent() float64 {
	switch o.kind {
	case KindBox, KindTriangle:
		return 0.5
	}
	return 0
}

// addBoundaryContacts adds static contacts against the floor and the side
// walls. The world is open at the top.
func (o *Object) addBoundaryContacts(bounds geom.AABB) {
	h := o.halfExtent()
	pos := o.state.Position

	wall := func(normal mgl64.Vec2, pen float64) {
		o.AddContact(geom.Contact{
			Normal:      normal,
			Penetration: pen,
			Static:      true,
			VelocityA:   o.state.Velocity,
			MassA:       o.mass,
			MassB:       math.Inf(1),
		})
	}

	if d := bounds.Min.Y() - (pos.Y() - h); d > 0 {
		wall(mgl64.Vec2{0, 1}, d)
	}
	if d := bounds.Min.X() - (pos.X() - h); d > 0 {
		wall(mgl64.Vec2{1, 0}, d)
	}
	if d := (pos.X() + h) - bounds.Max.X(); d > 0 {
		wall(mgl64.Vec2{-1, 0}, d)
	}
}

// Solve resolves and clears the contacts gathered this tick, then publishes
// the result as the committed state.
func (o *Object) Solve(p *Params) {
	o.addBoundaryContacts(p.Bounds)

	// Lower contacts first so a stacked object settles on what is below it
	// before reacting to what rests on it.
	slices.SortStableFunc(o.contacts, func(a, b geom.Contact) int {
		return cmp.Compare(a.Normal.Y(), b.Normal.Y())
	})

	for _, c := range o.contacts {
		o.resolve(c, p)
	}

	o.ClearContacts()
	o.committed = o.state
}

func (o *Object) resolve(c geom.Contact, p *Params) {
	n := c.Normal
	tangent := geom.Perp(n)

	rel := o.state.Velocity.Sub(c.VelocityB)
	vt := rel.Dot(tangent)
	o.state.Velocity = o.state.Velocity.Sub(tangent.Mul(vt * p.Friction))

	rel = o.state.Velocity.Sub(c.VelocityB)
	vn := rel.Dot(n)
	if vn < 0 {
		e := p.Elasticity
		if -vn < RestingSpeed {
			e = 0
		}

		share := 1.0
		if !c.Static && !math.IsInf(c.MassB, 1) {
			share = c.MassB / (c.MassA + c.MassB)
		}
		o.state.Velocity = o.state.Velocity.Sub(n.Mul(vn * (1 + e) * share))
	}

	correction := 1.0 / 3.0
	if n.Y() > 0 {
		correction = 2.0 / 3.0
	}
	o.state.Position = o.state.Position.Add(n.Mul(c.Penetration * correction))
}

// ShapeWriter receives render records after the solve.
type ShapeWriter interface {
	UpdateQuad(index int, q geom.Quad)
	UpdateTriangle(index int, t geom.Triangle)
	ObjectColor(o *Object) geom.Color
}

func (o *Object) UpdateShape(w ShapeWriter) {
	if o.shape < 0 {
		return
	}
	color := w.ObjectColor(o)
	pos := o.state.Position

	switch o.kind {
	case KindBox:
		w.UpdateQuad(o.shape, geom.Quad{
			Position: geom.Vec2f(pos.X(), pos.Y()),
			Size:     geom.Vec2f(1, 1),
			Color:    color,
		})
	case KindTriangle:
		w.UpdateTriangle(o.shape, geom.Triangle{
			Points: [3]mgl32.Vec2{
				geom.Vec2f(pos.X()-0.5, pos.Y()-0.5),
				geom.Vec2f(pos.X()+0.5, pos.Y()-0.5),
				geom.Vec2f(pos.X(), pos.Y()+0.5),
			},
			Color: color,
		})
	case KindBlobby:
		parts := o.Children()
		for i, part := range parts {
			next := parts[(i+1)%len(parts)]
			w.UpdateTriangle(o.shape+i, geom.Triangle{
				Points: [3]mgl32.Vec2{
					geom.Vec2f(pos.X(), pos.Y()),
					geom.Vec2f(part.Position().X(), part.Position().Y()),
					geom.Vec2f(next.Position().X(), next.Position().Y()),
				},
				Color: color,
			})
		}
	}
}
