package physics

import "github.com/go-gl/mathgl/mgl64"

// Constraint contributes an acceleration to an object given a trial state of
// that object. Objects reference constraints, they do not own them, and one
// instance may be shared by both ends.
type Constraint interface {
	Acceleration(self *Object, s State) mgl64.Vec2
}

// FixedEndSpring pulls a point on the object towards a fixed world point.
type FixedEndSpring struct {
	K       float64
	Damping float64
	// Fixed is the world space anchor.
	Fixed mgl64.Vec2
	// Attach is the object space point the spring holds.
	Attach mgl64.Vec2
}

func (s *FixedEndSpring) Acceleration(self *Object, st State) mgl64.Vec2 {
	point := st.Position.Add(s.Attach)
	force := s.Fixed.Sub(point).Mul(s.K).Sub(st.Velocity.Mul(s.Damping))
	return force.Mul(1 / self.mass)
}

// LengthSpring keeps two objects at a rest distance.
type LengthSpring struct {
	A, B    ID
	Rest    float64
	K       float64
	Damping float64
}

func NewLengthSpring(a, b *Object, k, damping float64) *LengthSpring {
	return &LengthSpring{
		A:       a.id,
		B:       b.id,
		Rest:    b.Position().Sub(a.Position()).Len(),
		K:       k,
		Damping: damping,
	}
}

func (s *LengthSpring) Acceleration(self *Object, st State) mgl64.Vec2 {
	otherID := s.B
	if self.id == s.B {
		otherID = s.A
	}
	if self.table == nil {
		return mgl64.Vec2{}
	}
	other := self.table.Get(otherID)
	if other == nil {
		return mgl64.Vec2{}
	}

	far := other.committed
	delta := far.Position.Sub(st.Position)
	length := delta.Len()
	if length == 0 {
		return mgl64.Vec2{}
	}
	dir := delta.Mul(1 / length)

	closing := far.Velocity.Sub(st.Velocity).Dot(dir)
	force := dir.Mul((length-s.Rest)*s.K + closing*s.Damping)
	return force.Mul(1 / self.mass)
}
