package world

import "github.com/gekko3d/splitworld/geom"

// ShapeBuffer holds one tick worth of render records, indexed by the shape
// index of each object.
type ShapeBuffer struct {
	Quads     []geom.Quad
	Triangles []geom.Triangle
}

func (b *ShapeBuffer) resizeTo(other *ShapeBuffer) {
	b.Quads = resize(b.Quads, len(other.Quads))
	b.Triangles = resize(b.Triangles, len(other.Triangles))
}

func resize[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

func (w *World) createQuads(n int) int {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	buf := &w.buffers[w.write]
	first := len(buf.Quads)
	buf.Quads = append(buf.Quads, make([]geom.Quad, n)...)
	return first
}

func (w *World) createTriangles(n int) int {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	buf := &w.buffers[w.write]
	first := len(buf.Triangles)
	buf.Triangles = append(buf.Triangles, make([]geom.Triangle, n)...)
	return first
}

// UpdateQuad writes into the current write buffer.
func (w *World) UpdateQuad(index int, q geom.Quad) {
	w.buffers[w.write].Quads[index] = q
}

func (w *World) UpdateTriangle(index int, t geom.Triangle) {
	w.buffers[w.write].Triangles[index] = t
}

// SwapWriteState publishes the buffer written this tick as the readable one
// and picks a buffer the renderer is not holding for the next tick.
func (w *World) SwapWriteState() {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	w.buffers[w.free].resizeTo(&w.buffers[w.write])

	w.read = w.write
	w.write = w.free
	w.free = w.read
}

// SwapDrawState is called by the render side to take the newest published
// buffer. Safe to call from any single goroutine concurrently with the
// simulation.
func (w *World) SwapDrawState() {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.draw != w.read {
		w.buffers[w.draw].resizeTo(&w.buffers[w.write])
		w.free = w.draw
	}
	w.draw = w.read
}

// DrawBuffer is the buffer taken by the last SwapDrawState. Its contents stay
// stable until the next SwapDrawState.
func (w *World) DrawBuffer() ShapeBuffer {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.buffers[w.draw]
}
