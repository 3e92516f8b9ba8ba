package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/physics"
)

// BlobbySpawn is where ResetBlobby drops the soft body.
var BlobbySpawn = mgl64.Vec2{0, 40}

// UpdateMouseInput may be called from any goroutine.
func (w *World) UpdateMouseInput(cursor mgl64.Vec2, leftButton, rightButton bool) {
	w.inputMu.Lock()
	defer w.inputMu.Unlock()

	w.cursor = cursor
	w.leftButton = leftButton
	w.rightButton = rightButton
}

// ResetBlobby asks for the blobby to be (re)spawned on the next tick.
func (w *World) ResetBlobby() {
	w.inputMu.Lock()
	w.resetBlobby = true
	w.inputMu.Unlock()
}

// HandleUserInteraction applies the input gathered since the last tick. It
// runs on the boss goroutine before the stages start.
func (w *World) HandleUserInteraction() {
	w.inputMu.Lock()
	defer w.inputMu.Unlock()

	w.cursorSpring.Fixed = w.cursor

	if w.leftButton && w.tied == nil {
		if o := w.FindObjectAtPoint(w.cursor); o != nil {
			w.cursorSpring.Attach = w.cursor.Sub(o.Position())
			o.AddConstraint(&w.cursorSpring)
			w.tied = o
			w.log.Debugf("grabbed %s %d", o.Kind(), o.ID())
		}
	}

	if !w.leftButton && w.tied != nil {
		w.tied.RemoveConstraint(&w.cursorSpring)
		w.tied = nil
	}

	// no spawning while a peer shares the table
	if w.resetBlobby && w.OtherPeerID() < 0 {
		if w.blobby == nil && len(w.composites) > 0 {
			// received from a host or loaded from a preset
			w.blobby = w.objects.Get(w.composites[0])
		}
		if w.blobby == nil {
			w.blobby = w.AddBlobby(BlobbySpawn)
		}
		w.blobby.SetPosition(BlobbySpawn)
		w.blobby.SetVelocity(mgl64.Vec2{})
		w.resetBlobby = false
	}
}

// FindObjectAtPoint searches the 3x3 buckets around p for an object whose
// unit box contains p.
func (w *World) FindObjectAtPoint(p mgl64.Vec2) *physics.Object {
	bx, by := w.BucketForPoint(p)

	for x := max(bx-1, 0); x < bx+2 && x < BucketsWide; x++ {
		for y := max(by-1, 0); y < by+2 && y < BucketsTall; y++ {
			for _, id := range w.buckets[BucketIndex(x, y)] {
				o := w.objects.Get(id)
				pos := o.Position()
				if p.X() < pos.X()+0.5 && p.X() > pos.X()-0.5 &&
					p.Y() < pos.Y()+0.5 && p.Y() > pos.Y()-0.5 {
					return o
				}
			}
		}
	}
	return nil
}

// GrabbedObject is the object held by the local cursor, if any.
func (w *World) GrabbedObject() *physics.Object {
	w.inputMu.Lock()
	defer w.inputMu.Unlock()
	return w.tied
}

// SelectedObject is the topmost parent of the grabbed object.
func (w *World) SelectedObject() *physics.Object {
	o := w.GrabbedObject()
	if o == nil {
		return nil
	}
	return o.Root()
}
