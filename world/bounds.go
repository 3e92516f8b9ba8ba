package world

import "github.com/gekko3d/splitworld/geom"

// SetClientBounds records the area the local viewport shows. It is published
// to the peer with every update frame.
func (w *World) SetClientBounds(b geom.AABB) {
	w.boundsMu.Lock()
	defer w.boundsMu.Unlock()
	w.clientBounds = b
}

func (w *World) ClientBounds() geom.AABB {
	w.boundsMu.Lock()
	defer w.boundsMu.Unlock()
	return w.clientBounds
}

func (w *World) SetPeerBounds(b geom.AABB) {
	w.boundsMu.Lock()
	defer w.boundsMu.Unlock()
	w.peerBounds = b
	w.peerBoundsChanged = true
}

func (w *World) PeerBounds() geom.AABB {
	w.boundsMu.Lock()
	defer w.boundsMu.Unlock()
	return w.peerBounds
}

// PeerBoundaryLines returns the outline of the peer's viewport when it changed
// since the previous call.
func (w *World) PeerBoundaryLines() ([]geom.Line, bool) {
	w.boundsMu.Lock()
	defer w.boundsMu.Unlock()

	if !w.peerBoundsChanged {
		return nil, false
	}
	w.peerBoundsChanged = false
	return outlineOf(w.peerBounds, PeerColor(w.OtherPeerID())), true
}
