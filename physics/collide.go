package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

type collideFn func(a, b *Object) (geom.Contact, bool)

var unitSize = mgl64.Vec2{1, 1}

// collisionTable is indexed [a.kind][b.kind]. Nil entries never collide.
var collisionTable [kindCount][kindCount]collideFn

func init() {
	collisionTable[KindBox][KindBox] = boxVsBox
	collisionTable[KindBox][KindTriangle] = boxVsBox
	collisionTable[KindTriangle][KindBox] = boxVsBox
	collisionTable[KindTriangle][KindTriangle] = boxVsBox

	collisionTable[KindBox][KindBlobbyPart] = boxVsPoint
	collisionTable[KindTriangle][KindBlobbyPart] = boxVsPoint
	collisionTable[KindBlobbyPart][KindBox] = pointVsBox
	collisionTable[KindBlobbyPart][KindTriangle] = pointVsBox
}

// Collide tests a against b and returns the contact as seen from a.
func Collide(a, b *Object) (geom.Contact, bool) {
	fn := collisionTable[a.kind][b.kind]
	if fn == nil {
		return geom.Contact{}, false
	}
	return fn(a, b)
}

func (o *Object) bounds() geom.AABB {
	switch o.kind {
	case KindBox, KindTriangle:
		return geom.CenteredAABB(o.state.Position, unitSize)
	}
	return geom.AABB{Min: o.state.Position, Max: o.state.Position}
}

func contactBetween(a, b *Object, ab, bb geom.AABB) (geom.Contact, bool) {
	pen, normal, ok := ab.Intersects(bb)
	if !ok {
		return geom.Contact{}, false
	}
	return geom.Contact{
		Normal:      normal,
		Penetration: pen,
		VelocityA:   a.state.Velocity,
		VelocityB:   b.state.Velocity,
		MassA:       a.mass,
		MassB:       b.mass,
	}, true
}

func boxVsBox(a, b *Object) (geom.Contact, bool) {
	return contactBetween(a, b, a.bounds(), b.bounds())
}

func boxVsPoint(a, b *Object) (geom.Contact, bool) {
	return contactBetween(a, b, a.bounds(), b.bounds())
}

func pointVsBox(a, b *Object) (geom.Contact, bool) {
	c, ok := boxVsPoint(b, a)
	if !ok {
		return c, false
	}
	return c.Reverse(), true
}
