// Package splitworld runs a 2D rigid body world on a team of goroutines and
// can share it with a second instance over the local network.
package splitworld

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/session"
	"github.com/gekko3d/splitworld/world"
)

type Mode int

const (
	ModeStandalone Mode = iota
	ModeSessionHost
	ModeSessionWorker
)

func (m Mode) String() string {
	switch m {
	case ModeStandalone:
		return "standalone"
	case ModeSessionHost:
		return "host"
	case ModeSessionWorker:
		return "worker"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

const DefaultTickRate = 60.0

// Simulation is the boss goroutine: it owns the world between ticks, drives
// the pipeline and performs the network exchange. Requests from other
// goroutines (session changes, config) are queued and applied at the start of
// the next tick.
type Simulation struct {
	id       uuid.UUID
	log      logging.Logger
	world    *world.World
	pipeline *Pipeline
	time     *Time
	tickRate float64

	newHost   func(ctx context.Context, w *world.World, opts session.Options) (session.Session, error)
	newWorker func(ctx context.Context, w *world.World, opts session.Options) (session.Session, error)

	ctlMu         deadlock.Mutex
	ctx           context.Context
	mode          Mode
	nextMode      Mode
	session       session.Session
	config        Config
	pendingConfig *Config
	status        string
}

func newSimulation(w *world.World, cfg Config, threads int, tickRate float64, log logging.Logger) *Simulation {
	id := uuid.New()
	log = logging.OrNop(log)
	return &Simulation{
		id:       id,
		log:      log,
		world:    w,
		pipeline: NewPipeline(w, threads, logging.Sub(log, "pipeline")),
		time:     NewTime(),
		tickRate: tickRate,
		newHost: func(ctx context.Context, w *world.World, opts session.Options) (session.Session, error) {
			h, err := session.NewHost(ctx, w, opts)
			if err != nil {
				return nil, err
			}
			return h, nil
		},
		newWorker: func(ctx context.Context, w *world.World, opts session.Options) (session.Session, error) {
			wk, err := session.NewWorker(ctx, w, opts)
			if err != nil {
				return nil, err
			}
			return wk, nil
		},
		ctx:    context.Background(),
		config: cfg,
		status: "standalone",
	}
}

// InstanceID identifies this process in logs and spectator frames.
func (s *Simulation) InstanceID() uuid.UUID {
	return s.id
}

func (s *Simulation) World() *world.World {
	return s.world
}

func (s *Simulation) Time() *Time {
	return s.time
}

func (s *Simulation) Log() logging.Logger {
	return s.log
}

func (s *Simulation) Threads() int {
	return s.pipeline.Threads()
}

// Dt is the fixed simulation step in seconds.
func (s *Simulation) Dt() float64 {
	return 1 / s.tickRate
}

func (s *Simulation) Mode() Mode {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.mode
}

func (s *Simulation) Config() Config {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.config
}

// CreateSession makes this instance a host from the next tick on.
func (s *Simulation) CreateSession() {
	s.requestMode(ModeSessionHost)
}

// JoinSession makes this instance look for a host from the next tick on.
func (s *Simulation) JoinSession() {
	s.requestMode(ModeSessionWorker)
}

func (s *Simulation) TerminateSession() {
	s.requestMode(ModeStandalone)
}

func (s *Simulation) requestMode(m Mode) {
	s.ctlMu.Lock()
	s.nextMode = m
	s.ctlMu.Unlock()
}

// ApplyConfig queues cfg. Physics settings take effect on the next tick,
// ports on the next session.
func (s *Simulation) ApplyConfig(cfg Config) {
	s.ctlMu.Lock()
	s.pendingConfig = &cfg
	s.ctlMu.Unlock()
}

// Status is a one line description of the network side.
func (s *Simulation) Status() string {
	s.ctlMu.Lock()
	sess, status := s.session, s.status
	s.ctlMu.Unlock()
	if sess != nil {
		return sess.Status()
	}
	return status
}

func (s *Simulation) SessionState() (session.State, bool) {
	s.ctlMu.Lock()
	sess := s.session
	s.ctlMu.Unlock()
	if sess == nil {
		return 0, false
	}
	return sess.State(), true
}

func (s *Simulation) PeerID() int {
	s.ctlMu.Lock()
	sess := s.session
	s.ctlMu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.PeerID()
}

func (s *Simulation) NumPeers() int {
	s.ctlMu.Lock()
	sess := s.session
	s.ctlMu.Unlock()
	if sess == nil {
		return 1
	}
	return sess.NumPeers()
}

// Step runs one tick.
func (s *Simulation) Step() {
	s.applyRequests()

	s.world.HandleUserInteraction()
	s.pipeline.Step(s.Dt())

	if err := s.world.SanityCheck(); err != nil {
		s.log.Warnf("sanity check: %v", err)
	}

	if s.session != nil {
		s.session.Exchange()
	}

	s.world.SwapWriteState()
	s.time.Tick()
}

func (s *Simulation) applyRequests() {
	s.ctlMu.Lock()
	cfg := s.pendingConfig
	s.pendingConfig = nil
	if cfg != nil {
		s.config = *cfg
	}
	next, current, ctx := s.nextMode, s.mode, s.ctx
	s.ctlMu.Unlock()

	if cfg != nil {
		s.world.SetParams(cfg.PhysicsParams(s.world.Bounds()))
		s.log.Infof("physics: gravity %v, friction %v, elasticity %v", cfg.Gravity, cfg.Friction, cfg.Elasticity)
	}
	if next != current {
		s.switchMode(ctx, next)
	}
}

func (s *Simulation) switchMode(ctx context.Context, next Mode) {
	s.closeSession()

	var (
		sess session.Session
		err  error
	)
	opts := s.Config().SessionOptions(logging.Sub(s.log, "session"))
	switch next {
	case ModeSessionHost:
		sess, err = s.newHost(ctx, s.world, opts)
	case ModeSessionWorker:
		sess, err = s.newWorker(ctx, s.world, opts)
	}

	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	if err != nil {
		sess = nil
		s.log.Errorf("start %s session: %v", next, err)
		s.status = fmt.Sprintf("could not start %s session: %v", next, err)
		next = ModeStandalone
		s.nextMode = ModeStandalone
	}
	s.session = sess
	s.mode = next
	if sess != nil {
		s.log.Infof("session %s started as %s", sess.ID(), next)
	}
}

func (s *Simulation) closeSession() {
	s.ctlMu.Lock()
	sess := s.session
	s.session = nil
	s.status = "standalone"
	s.ctlMu.Unlock()

	if sess != nil {
		sess.Shutdown()
		s.log.Infof("session %s closed", sess.ID())
	}
}

// Run ticks at the configured rate until ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	s.ctlMu.Lock()
	s.ctx = ctx
	s.ctlMu.Unlock()

	s.pipeline.Start()
	defer s.Close()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.tickRate))
	defer ticker.Stop()

	s.log.Infof("instance %s running %d threads at %.0f Hz", s.id, s.Threads(), s.tickRate)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

// Close ends any session and stops the workers.
func (s *Simulation) Close() {
	s.closeSession()
	s.ctlMu.Lock()
	s.mode = ModeStandalone
	s.nextMode = ModeStandalone
	s.ctlMu.Unlock()
	s.pipeline.Stop()
}

// TicksPerSecond is the measured tick rate.
func (s *Simulation) TicksPerSecond() float64 {
	return s.time.TicksPerSecond()
}
