package splitworld

import (
	"fmt"
	"runtime"

	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/world"
)

// Module sets up part of a simulation, typically by populating its world.
type Module interface {
	Install(sim *Simulation)
}

type Builder struct {
	config   Config
	threads  int
	tickRate float64
	log      logging.Logger
	modules  []Module
}

func NewBuilder() *Builder {
	return &Builder{
		config:   DefaultConfig(),
		threads:  runtime.NumCPU(),
		tickRate: DefaultTickRate,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithThreads sets the size of the team, the calling goroutine included.
func (b *Builder) WithThreads(n int) *Builder {
	if n < 1 {
		panic(fmt.Sprintf("simulation needs at least one thread, got %d", n))
	}
	b.threads = n
	return b
}

func (b *Builder) WithTickRate(hz float64) *Builder {
	if !(hz > 0) {
		panic(fmt.Sprintf("tick rate must be positive, got %v", hz))
	}
	b.tickRate = hz
	return b
}

func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.log = l
	return b
}

func (b *Builder) UseModule(modules ...Module) *Builder {
	b.modules = append(b.modules, modules...)
	return b
}

func (b *Builder) Build() *Simulation {
	log := logging.OrNop(b.log)
	params := b.config.PhysicsParams(physics.DefaultParams().Bounds)
	w := world.New(params, logging.Sub(log, "world"))

	sim := newSimulation(w, b.config, b.threads, b.tickRate, log)
	for _, m := range b.modules {
		m.Install(sim)
	}
	return sim
}
