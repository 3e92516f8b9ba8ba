package world

import (
	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
)

type ColorMode int32

const (
	ColorIntrinsic ColorMode = iota
	ColorOwnership
	ColorMass
	ColorMotion
)

func (m ColorMode) String() string {
	switch m {
	case ColorIntrinsic:
		return "intrinsic"
	case ColorOwnership:
		return "ownership"
	case ColorMass:
		return "mass"
	case ColorMotion:
		return "motion"
	}
	return "unknown"
}

var (
	Peer0Color = geom.RGB(0, 1, 0.4)
	Peer1Color = geom.RGB(1, 0.4, 0)
)

func PeerColor(peer int) geom.Color {
	switch peer {
	case 0:
		return Peer0Color
	case 1:
		return Peer1Color
	}
	return geom.White
}

func (w *World) SetColorMode(m ColorMode) {
	w.colorMode.Store(int32(m))
}

func (w *World) ColorMode() ColorMode {
	return ColorMode(w.colorMode.Load())
}

// ObjectColor picks the display colour of o for the current mode.
func (w *World) ObjectColor(o *physics.Object) geom.Color {
	switch w.ColorMode() {
	case ColorOwnership:
		if o.Owner() == 0 || o.Owner() == 1 {
			return PeerColor(o.Owner())
		}
	case ColorMass:
		m := float32(0.3 + 0.7*(1-geom.Clamp(o.Mass()/5, 0, 1)))
		return geom.RGB(m, m, m)
	case ColorMotion:
		m := float32(0.3 + 0.7*geom.Clamp(o.Velocity().Len()/30, 0, 1))
		return geom.RGB(m, m, m)
	}
	return o.Color()
}
