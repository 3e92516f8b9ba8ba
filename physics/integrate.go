package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

// RestingSpeed is the approach speed below which contacts stop bouncing.
const RestingSpeed = 1.0

type Params struct {
	Gravity    mgl64.Vec2
	Friction   float64
	Elasticity float64
	Bounds     geom.AABB
}

func DefaultParams() Params {
	return Params{
		Gravity:    mgl64.Vec2{0, -9.81},
		Friction:   0.05,
		Elasticity: 0.8,
		Bounds:     geom.NewAABB(mgl64.Vec2{-20, 0}, mgl64.Vec2{20, 20}),
	}
}

type derivative struct {
	dx mgl64.Vec2
	dv mgl64.Vec2
}

func (o *Object) acceleration(s State, p *Params) mgl64.Vec2 {
	acc := p.Gravity
	for _, c := range o.constraints {
		acc = acc.Add(c.Acceleration(o, s))
	}
	return acc
}

func (o *Object) evaluate(initial State, dt float64, d derivative, p *Params) derivative {
	s := State{
		Position: initial.Position.Add(d.dx.Mul(dt)),
		Velocity: initial.Velocity.Add(d.dv.Mul(dt)),
	}
	return derivative{dx: s.Velocity, dv: o.acceleration(s, p)}
}

// Integrate advances the object by dt with fourth order Runge-Kutta. It must
// run once per object per tick, between the previous solve and the next
// detection.
func (o *Object) Integrate(dt float64, p *Params) {
	a := o.evaluate(o.state, 0, derivative{}, p)
	b := o.evaluate(o.state, dt*0.5, a, p)
	c := o.evaluate(o.state, dt*0.5, b, p)
	d := o.evaluate(o.state, dt, c, p)

	dxdt := a.dx.Add(b.dx.Add(c.dx).Mul(2)).Add(d.dx).Mul(1.0 / 6.0)
	dvdt := a.dv.Add(b.dv.Add(c.dv).Mul(2)).Add(d.dv).Mul(1.0 / 6.0)

	o.state.Position = o.state.Position.Add(dxdt.Mul(dt))
	o.state.Velocity = o.state.Velocity.Add(dvdt.Mul(dt))
}
