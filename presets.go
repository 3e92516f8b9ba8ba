package splitworld

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/world"
)

// ObjectData is one top level object of a preset. Blobby parts are not
// stored; a blobby is rebuilt around its core.
type ObjectData struct {
	Type     string     `json:"type"`
	Position mgl64.Vec2 `json:"position"`
	Velocity mgl64.Vec2 `json:"velocity"`
	Color    geom.Color `json:"color"`
	Mass     float64    `json:"mass"`
}

type PresetData struct {
	Objects []ObjectData `json:"objects"`
}

func SavePreset(w *world.World, filename string) error {
	var preset PresetData
	for _, o := range w.Objects().All() {
		if !o.CanMigrate() {
			continue
		}
		preset.Objects = append(preset.Objects, ObjectData{
			Type:     o.Kind().String(),
			Position: o.Position(),
			Velocity: o.Velocity(),
			Color:    o.Color(),
			Mass:     o.Mass(),
		})
	}

	bytes, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0644)
}

// LoadPreset adds the objects stored in filename to w and returns how many
// top level objects were created.
func LoadPreset(w *world.World, filename string) (int, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}

	var preset PresetData
	if err := json.Unmarshal(bytes, &preset); err != nil {
		return 0, fmt.Errorf("%s: %w", filename, err)
	}

	// validate everything before touching the world
	kinds := make([]physics.Kind, len(preset.Objects))
	for i, data := range preset.Objects {
		kind, ok := physics.ParseKind(data.Type)
		if !ok || kind == physics.KindBlobbyPart {
			return 0, fmt.Errorf("%s: object %d has unsupported type %q", filename, i, data.Type)
		}
		if kind != physics.KindBlobby && !(data.Mass > 0) {
			return 0, fmt.Errorf("%s: object %d has mass %v", filename, i, data.Mass)
		}
		kinds[i] = kind
	}

	for i, data := range preset.Objects {
		var o *physics.Object
		switch kinds[i] {
		case physics.KindBox:
			o = w.AddBox(data.Position, data.Mass, data.Color)
		case physics.KindTriangle:
			o = w.AddTriangle(data.Position, data.Mass, data.Color)
		case physics.KindBlobby:
			o = w.AddBlobby(data.Position)
		}
		o.SetVelocity(data.Velocity)
	}
	return len(preset.Objects), nil
}
