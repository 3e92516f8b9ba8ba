package geom

import "github.com/go-gl/mathgl/mgl64"

// Contact is one detected overlap as seen from object A. It carries copies of
// B's velocity and mass so the solver never reads another object's state.
type Contact struct {
	Normal      mgl64.Vec2
	Penetration float64
	// Static contacts are against an immovable world boundary.
	Static    bool
	VelocityA mgl64.Vec2
	VelocityB mgl64.Vec2
	MassA     float64
	MassB     float64
}

// Reverse returns the same contact as seen from B.
func (c Contact) Reverse() Contact {
	return Contact{
		Normal:      c.Normal.Mul(-1),
		Penetration: c.Penetration,
		Static:      c.Static,
		VelocityA:   c.VelocityB,
		VelocityB:   c.VelocityA,
		MassA:       c.MassB,
		MassB:       c.MassA,
	}
}
