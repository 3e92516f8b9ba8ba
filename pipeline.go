package splitworld

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/world"
)

type Stage int

const (
	StageIntegrate Stage = iota
	StageBroadPhase
	StageDetect
	StageSolve

	numStages
)

func (s Stage) String() string {
	switch s {
	case StageIntegrate:
		return "integrate"
	case StageBroadPhase:
		return "broad-phase"
	case StageDetect:
		return "detect"
	case StageSolve:
		return "solve"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Range returns the inclusive slice [start, end] of count items handled by
// participant id out of n. The last participant takes the remainder. When
// there are fewer items than participants, the surplus ones get an empty
// range (end < start).
func Range(id, n, count int) (start, end int) {
	if count < n {
		if id < count {
			return id, id
		}
		return 0, -1
	}

	per := count / n
	start = per * id
	if id == n-1 {
		return start, count - 1
	}
	return start, per*(id+1) - 1
}

type worker struct {
	id    int
	begin [numStages]*event
	done  [numStages]*event
}

func newWorker(id int) *worker {
	wk := &worker{id: id}
	for s := Stage(0); s < numStages; s++ {
		wk.begin[s] = newEvent()
		wk.done[s] = newEvent()
	}
	return wk
}

// Pipeline runs the four stages of a tick on a fixed team: the calling
// goroutine (participant 0) plus threads-1 workers. Every stage finishes on
// all participants before the next one begins.
type Pipeline struct {
	world   *world.World
	log     logging.Logger
	threads int

	workers []*worker
	halt    atomic.Bool
	running bool
	wg      sync.WaitGroup

	// written by the boss before a stage is released
	dt float64
}

func NewPipeline(w *world.World, threads int, log logging.Logger) *Pipeline {
	if threads < 1 {
		panic(fmt.Sprintf("pipeline needs at least one thread, got %d", threads))
	}
	return &Pipeline{
		world:   w,
		log:     logging.OrNop(log),
		threads: threads,
	}
}

func (p *Pipeline) Threads() int {
	return p.threads
}

// Start spawns the workers. Step starts them on first use.
func (p *Pipeline) Start() {
	if p.running {
		return
	}
	p.running = true
	p.halt.Store(false)
	p.workers = p.workers[:0]
	for id := 1; id < p.threads; id++ {
		wk := newWorker(id)
		p.workers = append(p.workers, wk)
		p.wg.Add(1)
		go p.work(wk)
	}
	p.log.Debugf("started %d workers", len(p.workers))
}

// Stop flags the workers and releases the stage they wait on so that each
// one observes the flag and returns.
func (p *Pipeline) Stop() {
	if !p.running {
		return
	}
	p.halt.Store(true)
	for _, wk := range p.workers {
		for s := Stage(0); s < numStages; s++ {
			wk.begin[s].Raise()
		}
	}
	p.wg.Wait()
	p.running = false
	p.log.Debugf("stopped %d workers", len(p.workers))
}

func (p *Pipeline) work(wk *worker) {
	defer p.wg.Done()
	for {
		for s := Stage(0); s < numStages; s++ {
			wk.begin[s].Wait()
			if p.halt.Load() {
				return
			}
			p.runStage(s, wk.id)
			wk.done[s].Raise()
		}
	}
}

// Step advances the world by dt seconds.
func (p *Pipeline) Step(dt float64) {
	p.Start()
	p.dt = dt

	for s := Stage(0); s < numStages; s++ {
		for _, wk := range p.workers {
			wk.begin[s].Raise()
		}
		p.runStage(s, 0)
		for _, wk := range p.workers {
			wk.done[s].Wait()
		}
	}
	p.world.UpdateCompositeShapes()
}

func (p *Pipeline) runStage(s Stage, id int) {
	switch s {
	case StageIntegrate:
		start, end := Range(id, p.threads, p.world.NumObjects())
		p.world.IntegrateRange(start, end, p.dt)
	case StageBroadPhase:
		if start, end := Range(id, p.threads, world.BucketsWide); start <= end {
			p.world.BroadPhase(start, end)
		}
	case StageDetect:
		if start, end := Range(id, p.threads, world.BucketsWide); start <= end {
			p.world.DetectCollisions(start, end)
		}
	case StageSolve:
		start, end := Range(id, p.threads, p.world.NumObjects())
		p.world.SolveRange(start, end)
	}
}
