package splitworld

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/session"
)

var (
	ErrUnknownConfigKey = errors.New("unknown config key")
	ErrInvalidConfig    = errors.New("invalid config")
)

// Config holds the settings read from a TOML file. Keys missing from the
// file keep their defaults.
type Config struct {
	Gravity       float64 `toml:"gravity"`
	Friction      float64 `toml:"friction"`
	Elasticity    float64 `toml:"elasticity"`
	ListenPort    int     `toml:"listen_port"`
	BroadcastPort int     `toml:"broadcast_port"`
}

func DefaultConfig() Config {
	p := physics.DefaultParams()
	return Config{
		Gravity:       p.Gravity.Y(),
		Friction:      p.Friction,
		Elasticity:    p.Elasticity,
		ListenPort:    session.DefaultListenPort,
		BroadcastPort: session.DefaultBroadcastPort,
	}
}

// ParseConfig decodes data on top of the defaults. Any key the Config does
// not know fails with ErrUnknownConfigKey.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, e := range strict.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return Config{}, fmt.Errorf("%w: %s", ErrUnknownConfigKey, strings.Join(keys, ", "))
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Friction < 0 || c.Friction > 1:
		return fmt.Errorf("%w: friction %v outside [0, 1]", ErrInvalidConfig, c.Friction)
	case c.Elasticity < 0 || c.Elasticity > 1:
		return fmt.Errorf("%w: elasticity %v outside [0, 1]", ErrInvalidConfig, c.Elasticity)
	case c.ListenPort < 0 || c.ListenPort > 65535:
		return fmt.Errorf("%w: listen_port %d", ErrInvalidConfig, c.ListenPort)
	case c.BroadcastPort < 0 || c.BroadcastPort > 65535:
		return fmt.Errorf("%w: broadcast_port %d", ErrInvalidConfig, c.BroadcastPort)
	}
	return nil
}

// PhysicsParams turns the config into solver parameters for a world spanning
// bounds.
func (c Config) PhysicsParams(bounds geom.AABB) physics.Params {
	return physics.Params{
		Gravity:    mgl64.Vec2{0, c.Gravity},
		Friction:   c.Friction,
		Elasticity: c.Elasticity,
		Bounds:     bounds,
	}
}

func (c Config) SessionOptions(log logging.Logger) session.Options {
	opts := session.DefaultOptions()
	opts.ListenPort = c.ListenPort
	opts.BroadcastPort = c.BroadcastPort
	opts.Log = log
	return opts
}

// WatchConfig calls apply with the new config every time the file at path is
// written, until ctx is done. Files that fail to parse are logged and
// skipped.
func WatchConfig(ctx context.Context, path string, log logging.Logger, apply func(Config)) error {
	log = logging.OrNop(log)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config: %w", err)
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfig(path)
				if err != nil {
					log.Warnf("config reload: %v", err)
					continue
				}
				log.Infof("config reloaded from %s", path)
				apply(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("config watcher: %v", err)
			}
		}
	}()
	return nil
}
