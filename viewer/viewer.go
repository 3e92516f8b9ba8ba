// Package viewer streams the renderer-facing shape buffer of a running
// simulation to websocket spectators and feeds their cursor back into it.
package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/world"
)

const (
	DefaultFrameInterval = 33 * time.Millisecond
	writeWait            = 2 * time.Second
	clientQueue          = 4
)

// Source is what the viewer needs from a simulation.
type Source interface {
	InstanceID() uuid.UUID
	World() *world.World
	Status() string
	PeerID() int
	NumPeers() int
	TicksPerSecond() float64
	CreateSession()
	JoinSession()
	TerminateSession()
}

type Server struct {
	src      Source
	log      logging.Logger
	upgrader websocket.Upgrader
	interval time.Duration

	frames frameBuilder

	mu      deadlock.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewServer(src Source, log logging.Logger) *Server {
	return &Server{
		src: src,
		log: logging.OrNop(log),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		interval: DefaultFrameInterval,
		clients:  make(map[*client]struct{}),
	}
}

// SetFrameInterval changes how often frames are pushed. Call before Run.
func (s *Server) SetFrameInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Handler serves the websocket feed on /ws and a liveness probe on /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) NumClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueue)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Infof("spectator %s connected", conn.RemoteAddr())

	go s.writeLoop(c)
	s.readLoop(c)

	s.remove(c)
	s.log.Infof("spectator %s left", conn.RemoteAddr())
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debugf("write to %s: %v", c.conn.RemoteAddr(), err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.log.Debugf("bad command from %s: %v", c.conn.RemoteAddr(), err)
			continue
		}
		if err := cmd.apply(s.src); err != nil {
			s.log.Debugf("command from %s: %v", c.conn.RemoteAddr(), err)
		}
	}
}

// Run pushes a frame to every spectator each interval until ctx is done,
// then disconnects them.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.NumClients() == 0 {
				continue
			}
			data, err := json.Marshal(s.frames.build(s.src))
			if err != nil {
				s.log.Errorf("encode frame: %v", err)
				continue
			}
			s.broadcast(data)
		}
	}
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// slow spectators miss frames
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}
