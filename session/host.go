package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gekko3d/splitworld/wire"
	"github.com/gekko3d/splitworld/world"
)

// Host owns the world at the start of a session. It answers discovery
// broadcasts, accepts a single worker and streams it the object table.
type Host struct {
	*peer

	ln    *net.TCPListener
	udp   *net.UDPConn
	reply []byte
	buf   []byte

	// guarded by peer.mu
	initOut [][]byte
}

// NewHost binds the listen and discovery sockets and starts the network
// goroutine. The session ends with Shutdown or when ctx is done.
func NewHost(ctx context.Context, w *world.World, opts Options) (*Host, error) {
	opts = opts.withDefaults()

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: opts.ListenPort})
	if err != nil {
		return nil, fmt.Errorf("listen on %d: %w", opts.ListenPort, err)
	}
	udp, err := net.ListenUDP("udp4", &net.UDPAddr{Port: opts.BroadcastPort})
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("bind discovery port %d: %w", opts.BroadcastPort, err)
	}

	h := &Host{
		peer:  newPeer(RoleHost, w, opts, Listening, 0),
		ln:    ln,
		udp:   udp,
		reply: wire.DiscoveryReply(uint16(ln.Addr().(*net.TCPAddr).Port)),
		buf:   make([]byte, wire.MaxMessageSize),
	}
	h.closers = append(h.closers, ln.Close, udp.Close)
	h.exchange = h.gather

	h.m.on(Listening, enter, func() {
		h.setStatus("listening on %s", h.ln.Addr())
	})
	h.m.on(Listening, execute, h.listen)
	h.m.on(AcceptingClient, execute, h.sendInit)

	h.start(ctx)
	return h, nil
}

// Addr is the address workers connect to.
func (h *Host) Addr() net.Addr {
	return h.ln.Addr()
}

// DiscoveryAddr is where the host answers discovery requests.
func (h *Host) DiscoveryAddr() net.Addr {
	return h.udp.LocalAddr()
}

func (h *Host) PeerID() int {
	return 0
}

func (h *Host) NumPeers() int {
	switch h.State() {
	case AwaitInitGather, AcceptingClient, Synchronized:
		return 2
	}
	return 1
}

func (h *Host) listen() {
	h.answerDiscovery()

	if err := h.ln.SetDeadline(time.Now().Add(time.Millisecond)); err != nil {
		h.log.Errorf("accept deadline: %v", err)
		return
	}
	c, err := h.ln.Accept()
	if err != nil {
		if !wire.IsTimeout(err) {
			h.log.Warnf("accept: %v", err)
		}
		return
	}

	h.connected(wire.NewConn(c))
	h.link()
	h.setStatus("client connected from %s", c.RemoteAddr())
	h.m.changeState(AwaitInitGather)
}

func (h *Host) answerDiscovery() {
	for {
		if err := h.udp.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return
		}
		n, addr, err := h.udp.ReadFromUDP(h.buf)
		if err != nil {
			return
		}
		if !wire.IsDiscoveryRequest(h.buf[:n]) {
			continue
		}
		if _, err := h.udp.WriteToUDP(h.reply, addr); err != nil {
			h.log.Debugf("discovery reply to %s: %v", addr, err)
		}
	}
}

// gather snapshots the object table for the new worker. It runs on the
// simulation goroutine.
func (h *Host) gather(state State) {
	if state != AwaitInitGather {
		return
	}

	objects := h.world.Objects().All()
	records := make([]wire.ObjectRecord, len(objects))
	for i, o := range objects {
		st := o.State()
		records[i] = wire.ObjectRecord{
			Type:     uint32(o.Kind()),
			Position: st.Position,
			Velocity: st.Velocity,
			Color:    o.Color(),
			Mass:     o.Mass(),
		}
	}
	frames := wire.EncodeInit(records)

	h.world.Objects().SnapshotLastKnown()
	h.snapshot = true

	h.mu.Lock()
	h.initOut = frames
	h.mu.Unlock()

	if h.m.changeStateFrom(AwaitInitGather, AcceptingClient) {
		h.log.Debugf("gathered %d objects in %d messages", len(records), len(frames))
	}
}

func (h *Host) sendInit() {
	h.mu.Lock()
	frames := h.initOut
	h.initOut = nil
	h.mu.Unlock()

	if h.conn == nil {
		h.drop("no connection")
		return
	}
	if err := h.conn.Send(frames...); err != nil {
		h.drop("send init: %v", err)
		return
	}
	h.lastHeard = time.Now()
	h.setStatus("synchronized with %s", h.conn.RemoteAddr())
	h.m.changeState(Synchronized)
}
