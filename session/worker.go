package session

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/wire"
	"github.com/gekko3d/splitworld/world"
)

// Worker joins a host found by broadcast and takes over part of its world.
type Worker struct {
	*peer

	udp       *net.UDPConn
	broadcast *net.UDPAddr
	buf       []byte
	lastProbe time.Time
	init      *wire.InitReader

	// guarded by peer.mu
	initIn []wire.ObjectRecord
}

func NewWorker(ctx context.Context, w *world.World, opts Options) (*Worker, error) {
	opts = opts.withDefaults()

	target := net.JoinHostPort(opts.BroadcastAddr, strconv.Itoa(opts.BroadcastPort))
	broadcast, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	udp, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}

	wk := &Worker{
		peer:      newPeer(RoleWorker, w, opts, FindingHost, 1),
		udp:       udp,
		broadcast: broadcast,
		buf:       make([]byte, wire.MaxMessageSize),
		init:      wire.NewInitReader(),
	}
	wk.closers = append(wk.closers, udp.Close)
	wk.exchange = wk.build

	wk.m.on(FindingHost, enter, func() {
		wk.setStatus("looking for a host on %s", wk.broadcast)
	})
	wk.m.on(FindingHost, execute, wk.findHost)
	wk.m.on(ReceivingInit, enter, wk.init.Reset)
	wk.m.on(ReceivingInit, execute, wk.receiveInit)
	// keep the connection drained while the simulation rebuilds the world
	wk.m.on(ReceivedInit, execute, func() { wk.pump(false) })

	wk.start(ctx)
	return wk, nil
}

func (wk *Worker) PeerID() int {
	if wk.State() == Synchronized {
		return 1
	}
	return 0
}

func (wk *Worker) NumPeers() int {
	if wk.State() == Synchronized {
		return 2
	}
	return 1
}

func (wk *Worker) findHost() {
	now := time.Now()
	if now.Sub(wk.lastProbe) >= wk.opts.DiscoveryInterval {
		wk.lastProbe = now
		if _, err := wk.udp.WriteToUDP(wire.DiscoveryRequest(), wk.broadcast); err != nil {
			wk.log.Debugf("discovery broadcast: %v", err)
		}
	}

	if err := wk.udp.SetReadDeadline(now.Add(time.Millisecond)); err != nil {
		return
	}
	n, from, err := wk.udp.ReadFromUDP(wk.buf)
	if err != nil {
		return
	}
	port, ok := wire.ParseDiscoveryReply(wk.buf[:n])
	if !ok {
		wk.log.Debugf("ignoring discovery reply from %s", from)
		return
	}

	addr := (&net.TCPAddr{IP: from.IP, Port: int(port)}).String()
	wk.log.Infof("attempting to connect to %s", addr)
	c, err := net.DialTimeout("tcp", addr, wk.opts.DialTimeout)
	if err != nil {
		wk.setStatus("connection to %s failed: %v", addr, err)
		return
	}

	wk.connected(wire.NewConn(c))
	wk.setStatus("connected to %s, awaiting initialization", addr)
	wk.m.changeState(ReceivingInit)
}

func (wk *Worker) receiveInit() {
	frames, ok := wk.receive()
	if !ok {
		return
	}

	done := false
	for _, f := range frames {
		if done {
			// the host is synchronized already
			if err := wk.dispatch(f); err != nil {
				wk.drop("protocol fault: %v", err)
				return
			}
			continue
		}

		m, kind, err := wire.ParseMessage(f)
		if err != nil {
			wk.drop("init: %v", err)
			return
		}
		if kind != wire.KindInit {
			wk.drop("unexpected %s message during init", kind)
			return
		}
		records, err := wk.init.Add(m)
		if err != nil {
			wk.drop("init: %v", err)
			return
		}
		if records == nil {
			continue
		}

		wk.log.Infof("received %d objects", len(records))
		wk.mu.Lock()
		wk.initIn = records
		wk.mu.Unlock()
		wk.m.changeState(ReceivedInit)
		done = true
	}
}

// build replaces the local world with the one received from the host. It
// runs on the simulation goroutine.
func (wk *Worker) build(state State) {
	if state != ReceivedInit {
		return
	}

	wk.mu.Lock()
	records := wk.initIn
	wk.initIn = nil
	wk.mu.Unlock()

	if err := validateInit(records); err != nil {
		wk.log.Warnf("rejecting object table: %v", err)
		wk.m.changeStateFrom(ReceivedInit, Dropping)
		return
	}
	rebuildWorld(wk.world, records)
	wk.snapshot = true
	wk.link()

	if wk.m.changeStateFrom(ReceivedInit, Synchronized) {
		wk.setStatus("synchronized, %d objects", wk.world.NumObjects())
	}
}

// validateInit checks that every blobby is followed by all of its parts and
// nothing else refers to a composite.
func validateInit(records []wire.ObjectRecord) error {
	for i := 0; i < len(records); i++ {
		r := records[i]
		if !(r.Mass > 0) {
			return fmt.Errorf("%w: object %d has mass %v", wire.ErrMalformed, i, r.Mass)
		}

		switch physics.Kind(r.Type) {
		case physics.KindBox, physics.KindTriangle:
		case physics.KindBlobby:
			if i+physics.BlobbyParts >= len(records) {
				return fmt.Errorf("%w: blobby %d is missing parts", wire.ErrMalformed, i)
			}
			for j := 1; j <= physics.BlobbyParts; j++ {
				if physics.Kind(records[i+j].Type) != physics.KindBlobbyPart {
					return fmt.Errorf("%w: object %d is not a part of blobby %d", wire.ErrMalformed, i+j, i)
				}
			}
			i += physics.BlobbyParts
		default:
			return fmt.Errorf("%w: object %d has type %d", wire.ErrMalformed, i, r.Type)
		}
	}
	return nil
}

// rebuildWorld recreates the objects in order so that ids match the host's.
func rebuildWorld(w *world.World, records []wire.ObjectRecord) {
	w.ClearObjects()

	apply := func(o *physics.Object, r wire.ObjectRecord) {
		o.SetState(physics.State{Position: r.Position, Velocity: r.Velocity})
		o.SetMass(r.Mass)
		o.SetColor(r.Color)
	}

	for i := 0; i < len(records); i++ {
		r := records[i]
		switch physics.Kind(r.Type) {
		case physics.KindBox:
			apply(w.AddBox(r.Position, r.Mass, r.Color), r)
		case physics.KindTriangle:
			apply(w.AddTriangle(r.Position, r.Mass, r.Color), r)
		case physics.KindBlobby:
			o := w.AddBlobby(r.Position)
			for j, part := range o.Children() {
				apply(part, records[i+1+j])
			}
			apply(o, r)
			i += physics.BlobbyParts
		}
	}
	w.Objects().SnapshotLastKnown()
}
