package splitworld

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

// SceneModule fills the world with stacks of boxes on the left and triangles
// on the right, optionally dropping the blobby from the sky.
type SceneModule struct {
	Boxes     int
	Triangles int
	Blobby    bool
}

const stackHeight = 8

func (m SceneModule) Install(sim *Simulation) {
	w := sim.World()
	b := w.Bounds()

	for i := 0; i < m.Boxes; i++ {
		col, row := i/stackHeight, i%stackHeight
		pos := mgl64.Vec2{b.Min.X() + 2 + float64(col)*1.5, b.Min.Y() + 0.5 + float64(row)*1.01}
		w.AddBox(pos, 1, geom.RGB(0.9, 0.2, 0.2))
	}
	for i := 0; i < m.Triangles; i++ {
		col, row := i/stackHeight, i%stackHeight
		pos := mgl64.Vec2{b.Max.X() - 2 - float64(col)*1.5, b.Min.Y() + 0.5 + float64(row)*1.01}
		w.AddTriangle(pos, 1, geom.RGB(0.9, 0.8, 0.2))
	}
	if m.Blobby {
		w.ResetBlobby()
	}

	sim.Log().Infof("scene: %d boxes, %d triangles, blobby %v", m.Boxes, m.Triangles, m.Blobby)
}

// PresetModule loads a preset saved with SavePreset.
type PresetModule struct {
	Path string
}

func (m PresetModule) Install(sim *Simulation) {
	n, err := LoadPreset(sim.World(), m.Path)
	if err != nil {
		sim.Log().Errorf("load preset: %v", err)
		return
	}
	sim.Log().Infof("loaded %d objects from %s", n, m.Path)
}
