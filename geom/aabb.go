package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon keeps clamped points strictly inside half-open ranges.
const Epsilon = 0.00001

type AABB struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

func NewAABB(min, max mgl64.Vec2) AABB {
	return AABB{Min: min, Max: max}
}

// CenteredAABB returns a box of the given size centred on p.
func CenteredAABB(p mgl64.Vec2, size mgl64.Vec2) AABB {
	half := size.Mul(0.5)
	return AABB{Min: p.Sub(half), Max: p.Add(half)}
}

func (a AABB) Midpoint() mgl64.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Size() mgl64.Vec2 {
	return a.Max.Sub(a.Min)
}

func (a AABB) Contains(p mgl64.Vec2) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y()
}

// Intersects tests a against b. The returned normal is axis aligned and
// points from b towards a, and the penetration is half of the overlap along
// that axis since each side of a pair corrects its own half.
func (a AABB) Intersects(b AABB) (penetration float64, normal mgl64.Vec2, ok bool) {
	dist := a.Midpoint().Sub(b.Midpoint())
	if dist.Len() == 0 {
		return 0, mgl64.Vec2{}, false
	}

	sa, sb := a.Size(), b.Size()
	minSize := mgl64.Vec2{(sa.X() + sb.X()) / 2, (sa.Y() + sb.Y()) / 2}

	if math.Abs(dist.X()) >= minSize.X() || math.Abs(dist.Y()) >= minSize.Y() {
		return 0, mgl64.Vec2{}, false
	}

	if math.Abs(dist.X()) < math.Abs(dist.Y()) {
		normal = mgl64.Vec2{0, math.Copysign(1, dist.Y())}
		penetration = (minSize.Y() - math.Abs(dist.Y())) / 2
	} else {
		normal = mgl64.Vec2{math.Copysign(1, dist.X()), 0}
		penetration = (minSize.X() - math.Abs(dist.X())) / 2
	}

	return penetration, normal, true
}

// IntersectsPoint is Intersects against a zero-size box at p.
func (a AABB) IntersectsPoint(p mgl64.Vec2) (float64, mgl64.Vec2, bool) {
	return a.Intersects(AABB{Min: p, Max: p})
}

// Clamp limits p to [Min, Max).
func (a AABB) Clamp(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{
		Clamp(p.X(), a.Min.X(), a.Max.X()-Epsilon),
		Clamp(p.Y(), a.Min.Y(), a.Max.Y()-Epsilon),
	}
}

// Clamp maps NaN to lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Perp returns v rotated by 90 degrees counter-clockwise.
func Perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v.Y(), v.X()}
}
