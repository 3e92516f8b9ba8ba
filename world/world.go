package world

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sasha-s/go-deadlock"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/physics"
)

var ErrBucketMismatch = errors.New("bucket occupancy does not match object count")

const (
	// Buckets are one unit square over the default world so that any two
	// overlapping unit boxes sit in the same or neighbouring buckets.
	BucketsWide = 40
	BucketsTall = 20

	bucketCapacity = 20
)

// World owns the objects, the bucket grid and the render buffers. Stage
// methods taking a range are safe to call from several goroutines as long as
// their ranges do not overlap; everything else belongs to the boss goroutine
// unless it says otherwise.
type World struct {
	log    logging.Logger
	params physics.Params

	objects    *physics.Table
	composites []physics.ID

	buckets    [][]physics.ID
	bucketSize mgl64.Vec2

	// stateMu guards the buffer rotation and buffer resizing.
	stateMu deadlock.Mutex
	buffers [3]ShapeBuffer
	draw    int
	read    int
	write   int
	free    int

	inputMu      deadlock.Mutex
	cursor       mgl64.Vec2
	leftButton   bool
	rightButton  bool
	cursorSpring physics.FixedEndSpring
	tied         *physics.Object
	resetBlobby  bool
	blobby       *physics.Object

	boundsMu          deadlock.Mutex
	clientBounds      geom.AABB
	peerBounds        geom.AABB
	peerBoundsChanged bool

	colorMode   atomic.Int32
	otherPeerID atomic.Int32
}

func New(params physics.Params, log logging.Logger) *World {
	w := &World{
		log:     logging.OrNop(log),
		params:  params,
		objects: physics.NewTable(),
		buckets: make([][]physics.ID, BucketsWide*BucketsTall),
		draw:    0,
		read:    0,
		write:   1,
		free:    2,
		cursorSpring: physics.FixedEndSpring{
			K:       1000,
			Damping: 100,
		},
		clientBounds: params.Bounds,
		peerBounds:   geom.NewAABB(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 10}),
	}
	for i := range w.buckets {
		w.buckets[i] = make([]physics.ID, 0, bucketCapacity)
	}
	w.bucketSize = params.Bounds.Size()
	w.bucketSize[0] /= BucketsWide
	w.bucketSize[1] /= BucketsTall
	w.otherPeerID.Store(-1)
	return w
}

func (w *World) Params() physics.Params {
	return w.params
}

// SetParams replaces gravity, friction and elasticity. The bounds are fixed
// for the lifetime of the world.
func (w *World) SetParams(p physics.Params) {
	p.Bounds = w.params.Bounds
	w.params = p
}

func (w *World) Bounds() geom.AABB {
	return w.params.Bounds
}

func (w *World) Objects() *physics.Table {
	return w.objects
}

func (w *World) Object(id physics.ID) *physics.Object {
	return w.objects.Get(id)
}

func (w *World) NumObjects() int {
	return w.objects.Len()
}

func (w *World) AddBox(pos mgl64.Vec2, mass float64, color geom.Color) *physics.Object {
	o := w.objects.AddBox(mass, color, w.createQuads(1))
	o.SetPosition(pos)
	return o
}

func (w *World) AddTriangle(pos mgl64.Vec2, mass float64, color geom.Color) *physics.Object {
	o := w.objects.AddTriangle(mass, color, w.createTriangles(1))
	o.SetPosition(pos)
	return o
}

func (w *World) AddBlobby(center mgl64.Vec2) *physics.Object {
	o := w.objects.AddBlobby(center, physics.BlobbyColor, w.createTriangles(physics.BlobbyParts))
	w.composites = append(w.composites, o.ID())
	return o
}

// ClearObjects drops every object and its render records.
func (w *World) ClearObjects() {
	w.inputMu.Lock()
	if w.tied != nil {
		w.tied.RemoveConstraint(&w.cursorSpring)
		w.tied = nil
	}
	w.blobby = nil
	w.inputMu.Unlock()

	w.objects.Clear()
	w.composites = w.composites[:0]
	for i := range w.buckets {
		w.buckets[i] = w.buckets[i][:0]
	}

	w.stateMu.Lock()
	for i := range w.buffers {
		w.buffers[i].Quads = w.buffers[i].Quads[:0]
		w.buffers[i].Triangles = w.buffers[i].Triangles[:0]
	}
	w.stateMu.Unlock()
}

// IntegrateRange advances objects start..end inclusive.
func (w *World) IntegrateRange(start, end int, dt float64) {
	for i := start; i <= end; i++ {
		w.objects.At(i).Integrate(dt, &w.params)
	}
}

// SolveRange resolves the contacts of objects start..end inclusive and writes
// their render records. Composite shapes depend on other objects and are
// written by UpdateCompositeShapes once every range is solved.
func (w *World) SolveRange(start, end int) {
	for i := start; i <= end; i++ {
		o := w.objects.At(i)
		o.Solve(&w.params)
		if o.Kind() != physics.KindBlobby {
			o.UpdateShape(w)
		}
	}
}

func (w *World) UpdateCompositeShapes() {
	for _, id := range w.composites {
		if o := w.objects.Get(id); o != nil {
			o.UpdateShape(w)
		}
	}
}

// SanityCheck verifies that every object landed in exactly one bucket.
func (w *World) SanityCheck() error {
	total := 0
	for _, b := range w.buckets {
		total += len(b)
	}
	if total != w.objects.Len() {
		return fmt.Errorf("%w: %d in buckets, %d objects", ErrBucketMismatch, total, w.objects.Len())
	}
	return nil
}

// ReloadLastKnownPositions rolls every object back to the last state fully
// received from or sent to the peer.
func (w *World) ReloadLastKnownPositions() {
	w.objects.ReloadLastKnownPositions()
}

func (w *World) SetOtherPeerID(id int) {
	w.otherPeerID.Store(int32(id))
	w.boundsMu.Lock()
	w.peerBoundsChanged = true
	w.boundsMu.Unlock()
}

// OtherPeerID is -1 when no peer is connected.
func (w *World) OtherPeerID() int {
	return int(w.otherPeerID.Load())
}
