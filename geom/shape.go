package geom

import "github.com/go-gl/mathgl/mgl32"

// Quad is the render record of an axis aligned box.
type Quad struct {
	Position mgl32.Vec2
	Size     mgl32.Vec2
	Color    Color
}

type Triangle struct {
	Points [3]mgl32.Vec2
	Color  Color
}

type Line struct {
	Points [2]mgl32.Vec2
	Color  Color
}

func Vec2f(x, y float64) mgl32.Vec2 {
	return mgl32.Vec2{float32(x), float32(y)}
}
