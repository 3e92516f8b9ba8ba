package viewer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/splitworld/geom"
)

// Frame is one JSON message sent to spectators.
type Frame struct {
	Seq       uint64     `json:"seq"`
	Instance  string     `json:"instance"`
	Peer      int        `json:"peer"`
	Peers     int        `json:"peers"`
	Status    string     `json:"status"`
	TPS       float64    `json:"tps"`
	ColorMode string     `json:"colorMode"`
	Quads     []Quad     `json:"quads"`
	Triangles []Triangle `json:"triangles"`
	// Grid is only sent with the first frame.
	Grid []Line `json:"grid,omitempty"`
	// PeerBounds outlines the other peer's viewport while one is known.
	PeerBounds []Line `json:"peerBounds,omitempty"`
}

type Quad struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	W     float32 `json:"w"`
	H     float32 `json:"h"`
	Color uint32  `json:"color"`
}

type Triangle struct {
	Points [3][2]float32 `json:"points"`
	Color  uint32        `json:"color"`
}

type Line struct {
	Points [2][2]float32 `json:"points"`
	Color  uint32        `json:"color"`
}

// frameBuilder is only used from Server.Run, so it owns the draw side of the
// world's buffers.
type frameBuilder struct {
	seq       uint64
	peerLines []Line
}

func (b *frameBuilder) build(src Source) Frame {
	w := src.World()
	w.SwapDrawState()
	buf := w.DrawBuffer()

	f := Frame{
		Seq:       b.seq,
		Instance:  src.InstanceID().String(),
		Peer:      src.PeerID(),
		Peers:     src.NumPeers(),
		Status:    src.Status(),
		TPS:       src.TicksPerSecond(),
		ColorMode: w.ColorMode().String(),
		Quads:     make([]Quad, 0, len(buf.Quads)),
		Triangles: make([]Triangle, 0, len(buf.Triangles)),
	}
	for _, q := range buf.Quads {
		f.Quads = append(f.Quads, Quad{
			X: q.Position.X(), Y: q.Position.Y(),
			W: q.Size.X(), H: q.Size.Y(),
			Color: uint32(q.Color),
		})
	}
	for _, t := range buf.Triangles {
		f.Triangles = append(f.Triangles, Triangle{
			Points: [3][2]float32{point(t.Points[0]), point(t.Points[1]), point(t.Points[2])},
			Color:  uint32(t.Color),
		})
	}

	if b.seq == 0 {
		f.Grid = lines(w.GridLines())
	}
	if pl, changed := w.PeerBoundaryLines(); changed {
		b.peerLines = lines(pl)
	}
	if src.NumPeers() > 1 {
		f.PeerBounds = b.peerLines
	}

	b.seq++
	return f
}

func point(v mgl32.Vec2) [2]float32 {
	return [2]float32{v.X(), v.Y()}
}

func lines(in []geom.Line) []Line {
	out := make([]Line, len(in))
	for i, l := range in {
		out[i] = Line{
			Points: [2][2]float32{point(l.Points[0]), point(l.Points[1])},
			Color:  uint32(l.Color),
		}
	}
	return out
}
