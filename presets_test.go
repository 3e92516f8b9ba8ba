package splitworld

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/world"
)

func TestPresetSerialization(t *testing.T) {
	w := world.New(physics.DefaultParams(), nil)
	w.AddBox(mgl64.Vec2{-4, 0.5}, 2, geom.RGB(1, 0, 0))
	w.AddTriangle(mgl64.Vec2{3, 1.5}, 1.5, geom.RGB(0, 0, 1))
	w.AddBlobby(mgl64.Vec2{0, 10}).SetVelocity(mgl64.Vec2{1, 0})

	testFile := filepath.Join(t.TempDir(), "preset.json")
	require.NoError(t, SavePreset(w, testFile))

	jsonContent, err := os.ReadFile(testFile)
	require.NoError(t, err)
	t.Logf("Saved JSON:\n%s", jsonContent)
	assert.NotContains(t, string(jsonContent), physics.KindBlobbyPart.String())

	w2 := world.New(physics.DefaultParams(), nil)
	n, err := LoadPreset(w2, testFile)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Equal(t, w.NumObjects(), w2.NumObjects())

	for _, o := range w.Objects().All() {
		got := w2.Object(o.ID())
		assert.Equal(t, o.Kind(), got.Kind())
		assert.Equal(t, o.Velocity(), got.Velocity())
		if o.CanMigrate() {
			assert.Equal(t, o.Position(), got.Position())
			assert.Equal(t, o.Color(), got.Color())
			assert.Equal(t, o.Mass(), got.Mass())
		}
	}
}

func TestLoadPreset_RejectsBadObjects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown type", `{"objects":[{"type":"circle","mass":1}]}`},
		{"part", `{"objects":[{"type":"blobby-part","mass":1}]}`},
		{"massless box", `{"objects":[{"type":"box","mass":0}]}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))

			w := world.New(physics.DefaultParams(), nil)
			_, err := LoadPreset(w, path)
			assert.Error(t, err)
			assert.Zero(t, w.NumObjects())
		})
	}
}
