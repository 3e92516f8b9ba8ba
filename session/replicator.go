package session

import (
	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/wire"
	"github.com/gekko3d/splitworld/world"
)

// MaxPendingMigrations caps the requests waiting for an answer.
const MaxPendingMigrations = 500

// Replicator applies the peer's authoritative state to the local world and
// negotiates who owns which object. Peer 0 claims the x<0 half of the world
// and peer 1 the x>0 half. All methods run on the simulation goroutine.
type Replicator struct {
	world   *world.World
	log     logging.Logger
	peer    int
	pending map[physics.ID]struct{}
}

func NewReplicator(w *world.World, peer int, log logging.Logger) *Replicator {
	return &Replicator{
		world:   w,
		log:     logging.OrNop(log),
		peer:    peer,
		pending: make(map[physics.ID]struct{}),
	}
}

func (r *Replicator) Peer() int {
	return r.peer
}

func (r *Replicator) Other() int {
	return 1 - r.peer
}

func (r *Replicator) Pending() int {
	return len(r.pending)
}

// Reset forgets every outstanding request.
func (r *Replicator) Reset() {
	clear(r.pending)
}

// ApplyUpdates overwrites the state of every object the peer owns and records
// the result as the last known good state.
func (r *Replicator) ApplyUpdates(f *wire.UpdateFrame) {
	for _, rec := range f.Records {
		o := r.world.Object(physics.ID(rec.ID))
		if o == nil {
			r.log.Debugf("update for unknown object %d", rec.ID)
			continue
		}
		if o.Owner() == r.peer {
			continue
		}
		o.SetState(physics.State{Position: rec.Position, Velocity: rec.Velocity})
	}
	r.world.SetPeerBounds(f.Bounds)
	r.world.Objects().SnapshotLastKnown()
}

// BuildUpdates collects the objects this peer is authoritative for.
func (r *Replicator) BuildUpdates() wire.UpdateFrame {
	f := wire.UpdateFrame{Bounds: r.world.ClientBounds()}
	for _, o := range r.world.Objects().All() {
		if o.Owner() != r.peer {
			continue
		}
		st := o.State()
		f.Records = append(f.Records, wire.UpdateRecord{
			ID:       uint32(o.ID()),
			Position: st.Position,
			Velocity: st.Velocity,
		})
	}
	return f
}

// HandleMigrations answers the peer's requests and settles the answers to our
// own. It returns the ACK and DENY records to send back.
func (r *Replicator) HandleMigrations(in []wire.Migration) []wire.Migration {
	var replies []wire.Migration
	grabbed := r.grabbedRoot()

	for _, m := range in {
		id := physics.ID(m.ID)
		o := r.world.Object(id)

		switch m.Type {
		case wire.MigrationRequest:
			reply := wire.Migration{Type: wire.MigrationDeny, ID: m.ID}
			switch {
			case o == nil:
			case o.Owner() == r.Other():
				reply.Type = wire.MigrationAck
			case o.Owner() == r.peer && o.CanMigrate() && o != grabbed:
				o.SetOwner(r.Other())
				delete(r.pending, id)
				reply.Type = wire.MigrationAck
			}
			replies = append(replies, reply)

		case wire.MigrationAck:
			if _, ok := r.pending[id]; !ok {
				continue
			}
			delete(r.pending, id)
			if o != nil {
				o.SetOwner(r.peer)
			}

		case wire.MigrationDeny:
			delete(r.pending, id)
		}
	}
	return replies
}

// RequestMigrations asks for every foreign object on our side of the world
// and for the foreign object held by the local cursor.
func (r *Replicator) RequestMigrations() []wire.Migration {
	var out []wire.Migration
	request := func(o *physics.Object) {
		if len(r.pending) >= MaxPendingMigrations {
			return
		}
		if _, ok := r.pending[o.ID()]; ok {
			return
		}
		r.pending[o.ID()] = struct{}{}
		out = append(out, wire.Migration{Type: wire.MigrationRequest, ID: uint32(o.ID())})
	}

	if sel := r.world.SelectedObject(); sel != nil && sel.Owner() != r.peer {
		request(sel)
	}
	for _, o := range r.world.Objects().All() {
		if o.Owner() == r.peer || !o.CanMigrate() || !r.onOurSide(o) {
			continue
		}
		request(o)
	}
	return out
}

func (r *Replicator) onOurSide(o *physics.Object) bool {
	x := o.Position().X()
	if r.peer == 0 {
		return x < 0
	}
	return x > 0
}

func (r *Replicator) grabbedRoot() *physics.Object {
	if o := r.world.GrabbedObject(); o != nil {
		return o.Root()
	}
	return nil
}
