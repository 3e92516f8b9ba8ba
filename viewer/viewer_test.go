package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/physics"
	"github.com/gekko3d/splitworld/world"
)

type fakeSource struct {
	id    uuid.UUID
	world *world.World
	peers atomic.Int32

	created, joined, terminated atomic.Int32
}

func newFakeSource() *fakeSource {
	f := &fakeSource{id: uuid.New(), world: world.New(physics.DefaultParams(), nil)}
	f.peers.Store(1)
	return f
}

func (f *fakeSource) InstanceID() uuid.UUID   { return f.id }
func (f *fakeSource) World() *world.World     { return f.world }
func (f *fakeSource) Status() string          { return "standalone" }
func (f *fakeSource) PeerID() int             { return 0 }
func (f *fakeSource) NumPeers() int           { return int(f.peers.Load()) }
func (f *fakeSource) TicksPerSecond() float64 { return 60 }
func (f *fakeSource) CreateSession()          { f.created.Add(1) }
func (f *fakeSource) JoinSession()            { f.joined.Add(1) }
func (f *fakeSource) TerminateSession()       { f.terminated.Add(1) }

// publish writes the render records of every object and hands them to the
// draw side.
func publish(w *world.World) {
	w.SolveRange(0, w.NumObjects()-1)
	w.SwapWriteState()
}

func TestFrameBuilder(t *testing.T) {
	src := newFakeSource()
	w := src.World()
	w.AddBox(mgl64.Vec2{2, 5}, 1, geom.RGB(1, 0, 0))
	w.AddTriangle(mgl64.Vec2{-3, 7}, 1, geom.White)
	publish(w)

	var b frameBuilder
	f := b.build(src)
	assert.Equal(t, uint64(0), f.Seq)
	assert.Equal(t, src.id.String(), f.Instance)
	assert.Equal(t, "intrinsic", f.ColorMode)
	assert.NotEmpty(t, f.Grid)
	assert.Empty(t, f.PeerBounds)

	require.Len(t, f.Quads, 1)
	assert.InDelta(t, 2, f.Quads[0].X, 1e-4)
	assert.InDelta(t, 5, f.Quads[0].Y, 1e-4)
	assert.Equal(t, uint32(geom.RGB(1, 0, 0)), f.Quads[0].Color)

	require.Len(t, f.Triangles, 1)
	assert.InDelta(t, 7.5, f.Triangles[0].Points[2][1], 1e-4)

	src.peers.Store(2)
	w.SetPeerBounds(geom.NewAABB(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 10}))
	f = b.build(src)
	assert.Equal(t, uint64(1), f.Seq)
	assert.Empty(t, f.Grid)
	assert.Len(t, f.PeerBounds, 4)

	// the outline stays while the bounds are unchanged
	f = b.build(src)
	assert.Len(t, f.PeerBounds, 4)
}

func TestCommand_Apply(t *testing.T) {
	src := newFakeSource()

	tests := []struct {
		name string
		cmd  command
		err  bool
	}{
		{"mouse", command{Type: "mouse", X: 1, Y: 2, Left: true}, false},
		{"reset", command{Type: "reset"}, false},
		{"host", command{Type: "session", Action: "host"}, false},
		{"join", command{Type: "session", Action: "join"}, false},
		{"leave", command{Type: "session", Action: "leave"}, false},
		{"bad session", command{Type: "session", Action: "dance"}, true},
		{"colors", command{Type: "colors", Mode: "mass"}, false},
		{"bad colors", command{Type: "colors", Mode: "sepia"}, true},
		{"viewport", command{Type: "viewport", Min: mgl64.Vec2{-5, 0}, Max: mgl64.Vec2{5, 10}}, false},
		{"unknown", command{Type: "fly"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.apply(src)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnknownCommand)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, int32(1), src.created.Load())
	assert.Equal(t, int32(1), src.joined.Load())
	assert.Equal(t, int32(1), src.terminated.Load())
	assert.Equal(t, world.ColorMass, src.World().ColorMode())
	assert.Equal(t, geom.NewAABB(mgl64.Vec2{-5, 0}, mgl64.Vec2{5, 10}), src.World().ClientBounds())
}

func TestServer_StreamsFramesAndTakesCommands(t *testing.T) {
	src := newFakeSource()
	src.World().AddBox(mgl64.Vec2{0, 5}, 1, geom.White)
	publish(src.World())

	s := NewServer(src, nil)
	s.SetFrameInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, src.id.String(), f.Instance)
	assert.Equal(t, "standalone", f.Status)
	require.Len(t, f.Quads, 1)
	assert.Equal(t, 1, s.NumClients())

	require.NoError(t, conn.WriteJSON(command{Type: "session", Action: "host"}))
	require.NoError(t, conn.WriteJSON(command{Type: "colors", Mode: "ownership"}))
	require.Eventually(t, func() bool {
		return src.created.Load() == 1 && src.World().ColorMode() == world.ColorOwnership
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(command{Type: "reset"}))

	cancel()
	require.Eventually(t, func() bool { return s.NumClients() == 0 }, 5*time.Second, 5*time.Millisecond)
}
