// Package session shares one world between two peers. A host listens for a
// worker, streams it the object table and from then on both sides exchange
// the state of the objects they own and negotiate ownership migrations.
//
// Every session runs a network goroutine that owns the sockets. The
// simulation goroutine only calls Exchange once per tick, which swaps small
// buffers under the exchange lock and never touches the network.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/wire"
	"github.com/gekko3d/splitworld/world"
)

type Role int

const (
	RoleHost Role = iota
	RoleWorker
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "worker"
}

const (
	DefaultListenPort    = 1234
	DefaultBroadcastPort = 7777
	DefaultBroadcastAddr = "255.255.255.255"
)

type Options struct {
	// ListenPort is the TCP port a host accepts on. 0 picks a free port.
	ListenPort int
	// BroadcastPort is where hosts wait for discovery requests.
	BroadcastPort int
	// BroadcastAddr is where workers send discovery requests.
	BroadcastAddr string

	DiscoveryInterval time.Duration
	PeerTimeout       time.Duration
	DialTimeout       time.Duration
	TickInterval      time.Duration

	Log logging.Logger
}

func DefaultOptions() Options {
	return Options{
		ListenPort:    DefaultListenPort,
		BroadcastPort: DefaultBroadcastPort,
		BroadcastAddr: DefaultBroadcastAddr,
	}
}

func (o Options) withDefaults() Options {
	if o.BroadcastAddr == "" {
		o.BroadcastAddr = DefaultBroadcastAddr
	}
	if o.DiscoveryInterval <= 0 {
		o.DiscoveryInterval = 250 * time.Millisecond
	}
	if o.PeerTimeout <= 0 {
		o.PeerTimeout = 5 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 2 * time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Millisecond
	}
	o.Log = logging.OrNop(o.Log)
	return o
}

// Session is the part of a host or worker the simulation talks to.
type Session interface {
	ID() uuid.UUID
	Role() Role
	State() State
	PeerID() int
	NumPeers() int
	Status() string
	Exchange()
	Shutdown()
}

// peer holds what hosts and workers have in common.
type peer struct {
	id    uuid.UUID
	role  Role
	opts  Options
	log   logging.Logger
	world *world.World
	rep   *Replicator
	m     *machine
	idle  State

	// network goroutine only
	conn      *wire.Conn
	lastHeard time.Time
	updates   *wire.UpdatesReader

	// simulation goroutine only
	exchange func(State)
	snapshot bool

	mu         deadlock.Mutex
	status     string
	inFrame    *wire.UpdateFrame
	inMig      []wire.Migration
	outUpdates [][]byte
	outMig     [][]byte

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped sync.Once
	closers []func() error
}

func newPeer(role Role, w *world.World, opts Options, idle State, peerID int) *peer {
	id := uuid.New()
	log := logging.Sub(opts.Log, fmt.Sprintf("%s %s", role, id.String()[:8]))
	p := &peer{
		id:      id,
		role:    role,
		opts:    opts,
		log:     log,
		world:   w,
		rep:     NewReplicator(w, peerID, log),
		m:       newMachine(idle),
		idle:    idle,
		updates: wire.NewUpdatesReader(),
	}
	p.m.onChange = func(from, to State) {
		p.log.Debugf("%s -> %s", from, to)
	}
	p.m.on(Synchronized, execute, func() { p.pump(true) })
	p.m.on(Dropping, enter, p.unlink)
	return p
}

func (p *peer) ID() uuid.UUID {
	return p.id
}

func (p *peer) Role() Role {
	return p.role
}

func (p *peer) State() State {
	return p.m.current()
}

func (p *peer) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *peer) setStatus(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.mu.Lock()
	p.status = msg
	p.mu.Unlock()
	p.log.Infof("%s", msg)
}

func (p *peer) start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run(ctx)
}

func (p *peer) run(ctx context.Context) {
	defer p.wg.Done()

	p.m.start()
	t := time.NewTicker(p.opts.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			p.m.stop()
			p.closeConn()
			return
		case <-t.C:
			p.m.tick()
		}
	}
}

// Shutdown stops the network goroutine, closes every socket and rolls the
// world back to the last state both peers agreed on. It must be called from
// the simulation goroutine.
func (p *peer) Shutdown() {
	p.stopped.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		for _, c := range p.closers {
			if err := c(); err != nil {
				p.log.Debugf("close: %v", err)
			}
		}
		p.rollback()
		p.setStatus("session closed")
	})
}

// Exchange hands the latest local state to the network goroutine and applies
// what arrived from the peer. It is called once per tick after the solve
// stage.
func (p *peer) Exchange() {
	state, settled := p.m.settled()
	if !settled {
		return
	}

	switch state {
	case Synchronized:
		p.exchangeSynchronized()
	case Dropping:
		p.rollback()
		p.m.changeStateFrom(Dropping, p.idle)
	default:
		if p.exchange != nil {
			p.exchange(state)
		}
	}
}

func (p *peer) exchangeSynchronized() {
	p.mu.Lock()
	frame, migs := p.inFrame, p.inMig
	p.inFrame, p.inMig = nil, nil
	p.mu.Unlock()

	if frame != nil {
		p.rep.ApplyUpdates(frame)
	}
	replies := p.rep.HandleMigrations(migs)
	replies = append(replies, p.rep.RequestMigrations()...)

	updates := wire.EncodeUpdates(p.rep.BuildUpdates())
	migrations := wire.EncodeMigrations(replies)

	p.mu.Lock()
	p.outUpdates = updates
	p.outMig = append(p.outMig, migrations...)
	p.mu.Unlock()
}

// rollback returns the world to what it was before the peer joined, as far
// as ownership goes, and to the last state received from it.
func (p *peer) rollback() {
	if p.snapshot {
		p.world.ReloadLastKnownPositions()
		p.snapshot = false
	}
	p.world.Objects().SetAllOwners(0)
	p.world.SetOtherPeerID(-1)
	p.rep.Reset()
}

// link marks the world as shared with the other peer. From here on the
// object table must not change locally until rollback.
func (p *peer) link() {
	p.world.SetOtherPeerID(p.rep.Other())
}

// drop abandons the connection. The simulation goroutine finishes the job on
// its next Exchange.
func (p *peer) drop(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.log.Warnf("dropping peer: %s", msg)
	p.mu.Lock()
	p.status = "connection lost: " + msg
	p.mu.Unlock()
	p.m.changeState(Dropping)
}

func (p *peer) unlink() {
	p.closeConn()
	p.updates.Reset()

	p.mu.Lock()
	p.inFrame, p.inMig = nil, nil
	p.outUpdates, p.outMig = nil, nil
	p.mu.Unlock()
}

func (p *peer) closeConn() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Close(); err != nil {
		p.log.Debugf("close connection: %v", err)
	}
	p.conn = nil
}

// connected takes over a freshly established connection.
func (p *peer) connected(c *wire.Conn) {
	p.closeConn()
	p.conn = c
	p.lastHeard = time.Now()
	p.updates.Reset()
}

// receive reads whatever arrived. It returns false once the peer is gone.
func (p *peer) receive() ([][]byte, bool) {
	if p.conn == nil {
		p.drop("no connection")
		return nil, false
	}
	frames, err := p.conn.Receive()
	if err != nil {
		p.drop("receive: %v", err)
		return nil, false
	}
	if len(frames) > 0 {
		p.lastHeard = time.Now()
	} else if time.Since(p.lastHeard) > p.opts.PeerTimeout {
		p.drop("peer timed out")
		return nil, false
	}
	return frames, true
}

// pump runs one round of the synchronised exchange on the network side.
func (p *peer) pump(send bool) {
	if send && p.conn != nil {
		p.mu.Lock()
		out := make([][]byte, 0, len(p.outMig)+len(p.outUpdates))
		out = append(out, p.outMig...)
		out = append(out, p.outUpdates...)
		p.outMig, p.outUpdates = nil, nil
		p.mu.Unlock()

		if err := p.conn.Send(out...); err != nil {
			p.drop("send: %v", err)
			return
		}
	}

	frames, ok := p.receive()
	if !ok {
		return
	}
	for _, f := range frames {
		if err := p.dispatch(f); err != nil {
			p.drop("protocol fault: %v", err)
			return
		}
	}
}

func (p *peer) dispatch(frame []byte) error {
	m, kind, err := wire.ParseMessage(frame)
	if err != nil {
		return err
	}

	switch kind {
	case wire.KindObjectUpdates:
		f, err := p.updates.Add(m)
		if err != nil {
			return fmt.Errorf("object updates: %w", err)
		}
		if f != nil {
			p.mu.Lock()
			p.inFrame = f
			p.mu.Unlock()
		}
	case wire.KindObjectMigration:
		recs, err := wire.DecodeMigrations(m)
		if err != nil {
			return fmt.Errorf("object migration: %w", err)
		}
		p.mu.Lock()
		p.inMig = append(p.inMig, recs...)
		p.mu.Unlock()
	default:
		return fmt.Errorf("%w: unexpected %s message", wire.ErrMalformed, kind)
	}
	return nil
}
