package splitworld

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splitworld/physics"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Gravity:       -9.81,
		Friction:      0.05,
		Elasticity:    0.8,
		ListenPort:    1234,
		BroadcastPort: 7777,
	}, cfg)
}

func TestParseConfig_OverridesKnownKeys(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
gravity = -3.5
elasticity = 0.25
listen_port = 4000
`))
	require.NoError(t, err)
	assert.Equal(t, -3.5, cfg.Gravity)
	assert.Equal(t, 0.25, cfg.Elasticity)
	assert.Equal(t, 0.05, cfg.Friction)
	assert.Equal(t, 4000, cfg.ListenPort)
	assert.Equal(t, 7777, cfg.BroadcastPort)
}

func TestParseConfig_UnknownKeyFails(t *testing.T) {
	_, err := ParseConfig([]byte("gravity = -9.81\nspeed_of_light = 3e8\n"))
	require.ErrorIs(t, err, ErrUnknownConfigKey)
	assert.Contains(t, err.Error(), "speed_of_light")
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"friction", "friction = 1.5"},
		{"elasticity", "elasticity = -0.1"},
		{"port", "listen_port = 70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := ParseConfig([]byte("gravity = "))
	assert.Error(t, err)
}

func TestConfig_PhysicsParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = -1
	bounds := physics.DefaultParams().Bounds

	p := cfg.PhysicsParams(bounds)
	assert.Equal(t, mgl64.Vec2{0, -1}, p.Gravity)
	assert.Equal(t, bounds, p.Bounds)

	opts := cfg.SessionOptions(nil)
	assert.Equal(t, 1234, opts.ListenPort)
	assert.Equal(t, 7777, opts.BroadcastPort)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitworld.toml")
	require.NoError(t, os.WriteFile(path, []byte("friction = 0.2\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Friction)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestWatchConfig_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitworld.toml")
	require.NoError(t, os.WriteFile(path, []byte("gravity = -9.81\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 8)
	require.NoError(t, WatchConfig(ctx, path, nil, func(c Config) { got <- c }))

	require.NoError(t, os.WriteFile(path, []byte("gravity = -2\n"), 0644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Gravity == -2 {
				return
			}
		case <-deadline:
			t.Fatal("config change was not picked up")
		}
	}
}
