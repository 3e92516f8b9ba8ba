package geom

import "github.com/go-gl/mathgl/mgl32"

// Color is packed RGBA, red in the low byte.
type Color uint32

const White Color = 0xFFFFFFFF

func RGBA8(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// RGBA packs float channels in [0,1]; out of range values are clamped.
func RGBA(r, g, b, a float32) Color {
	return RGBA8(toByte(r), toByte(g), toByte(b), toByte(a))
}

func RGB(r, g, b float32) Color {
	return RGBA(r, g, b, 1)
}

func toByte(c float32) uint8 {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return uint8(c * 255)
}

func (c Color) R() uint8 { return uint8(c) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c >> 16) }
func (c Color) A() uint8 { return uint8(c >> 24) }

func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{
		float32(c.R()) / 255,
		float32(c.G()) / 255,
		float32(c.B()) / 255,
		float32(c.A()) / 255,
	}
}
