package server

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pixelcast/handlers"
	"pixelcast/internal/logger"
	"pixelcast/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 64 * 1024
)

var ErrServerClosed = errors.New("server: closed")

// Server accepts display connections and fans operator messages out to
// them.
type Server struct {
	// WebSocket upgrader
	upgrader websocket.Upgrader

	registry   *handlers.Registry
	pongWait   time.Duration
	pingPeriod time.Duration
	closed     atomic.Bool
	log        zerolog.Logger
}

// NewServer creates a server handing out names from pool. Connections that
// miss a pong for pongWait are dropped.
func NewServer(pool []string, pongWait time.Duration) *Server {
	if pongWait <= 0 {
		pongWait = 100 * time.Second
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // displays connect from anywhere on the LAN
			},
		},
		registry:   handlers.NewRegistry(pool),
		pongWait:   pongWait,
		pingPeriod: pongWait * 9 / 10,
		log:        logger.With("server"),
	}
}

// HandleConnections is the HTTP handler for WebSocket upgrades.
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Str("ip", r.RemoteAddr).Msg("Upgrade error")
		return
	}

	session := utils.NewWSSession(ws, writeWait)
	client, err := s.Register(session, session.RemoteAddr())
	if err != nil {
		s.log.Debug().Err(err).Str("ip", session.RemoteAddr()).Msg("Dropping late connection")
		return
	}

	stopPing := make(chan struct{})
	defer func() {
		close(stopPing)
		s.Unregister(client.ID)
		session.Close()
	}()
	go s.keepAlive(client, session, stopPing)

	ws.SetReadLimit(maxInboundSize)
	ws.SetReadDeadline(time.Now().Add(s.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	// Displays have nothing to say; drain until the connection goes away.
	for {
		messageType, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("client_id", client.ID.String()).Str("name", client.Name).Msg("Read error")
			}
			return
		}
		s.log.Debug().Str("client_id", client.ID.String()).Str("name", client.Name).
			Int("type", messageType).Int("len", len(msg)).Msg("Ignoring inbound frame")
	}
}

func (s *Server) keepAlive(client *handlers.Client, session *utils.WSSession, stop <-chan struct{}) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := session.Ping(); err != nil {
				s.log.Debug().Err(err).Str("client_id", client.ID.String()).Msg("Ping failed")
				session.Close()
				return
			}
		}
	}
}

// Register adds a connection, names it and pushes the new roster to every
// display. Once Close has started the connection is closed instead and
// ErrServerClosed is returned.
func (s *Server) Register(conn handlers.Session, ip string) (*handlers.Client, error) {
	client := handlers.NewClient(conn, ip)
	s.registry.Add(client)
	// Close flips the flag before it snapshots, so a client added after the
	// snapshot always sees it here.
	if s.closed.Load() {
		s.registry.Remove(client.ID)
		conn.Close()
		return nil, ErrServerClosed
	}
	s.log.Info().Str("client_id", client.ID.String()).Str("name", client.Name).Str("ip", ip).
		Int("clients", s.registry.Len()).Msg("Client connected")
	s.pushRoster()
	return client, nil
}

// Unregister removes a connection after it closed. It is a no-op when the
// record was already evicted.
func (s *Server) Unregister(id uuid.UUID) {
	name, ok := s.registry.Remove(id)
	if !ok {
		return
	}
	s.log.Info().Str("client_id", id.String()).Str("name", name).
		Int("clients", s.registry.Len()).Msg("Client disconnected")
	if !s.closed.Load() {
		s.pushRoster()
	}
}

// Broadcast sends payload to every registered display and returns how many
// accepted it. Displays whose send fails are evicted and the survivors get
// a fresh roster.
func (s *Server) Broadcast(payload []byte) int {
	delivered := 0
	var failed []*handlers.Client
	for _, c := range s.registry.Snapshot() {
		if err := c.Conn.WriteText(payload); err != nil {
			s.log.Warn().Err(err).Str("client_id", c.ID.String()).Str("name", c.Name).Msg("Send failed, evicting")
			failed = append(failed, c)
			continue
		}
		delivered++
	}
	if s.evict(failed) > 0 {
		s.pushRoster()
	}
	return delivered
}

// BroadcastMessage encodes msg once and broadcasts it.
func (s *Server) BroadcastMessage(msg handlers.DisplayMessage) (int, error) {
	payload, err := msg.Encode()
	if err != nil {
		return 0, err
	}
	n := s.Broadcast(payload)
	s.log.Info().Str("type", msg.Kind.String()).Int64("ttl_ms", msg.TTLMs).Int("delivered", n).Msg("Broadcast")
	return n, nil
}

// pushRoster sends every display the roster with its own name. Evictions
// change the roster, so it repeats until a round completes cleanly.
func (s *Server) pushRoster() {
	for {
		clients := s.registry.Snapshot()
		names := make([]string, len(clients))
		for i, c := range clients {
			names[i] = c.Name
		}

		var failed []*handlers.Client
		for _, c := range clients {
			if err := utils.SendMessage(c.Conn, handlers.NewRoster(c.Name, names)); err != nil {
				s.log.Warn().Err(err).Str("client_id", c.ID.String()).Str("name", c.Name).Msg("Roster send failed, evicting")
				failed = append(failed, c)
			}
		}
		if s.evict(failed) == 0 {
			return
		}
	}
}

func (s *Server) evict(clients []*handlers.Client) int {
	n := 0
	for _, c := range clients {
		if _, ok := s.registry.Remove(c.ID); !ok {
			continue
		}
		c.Conn.Close()
		n++
	}
	return n
}

// Names is the current roster in join order.
func (s *Server) Names() []string {
	return s.registry.Names()
}

func (s *Server) Len() int {
	return s.registry.Len()
}

// Close refuses new connections and closes every live one.
func (s *Server) Close() {
	if s.closed.Swap(true) {
		return
	}
	clients := s.registry.Snapshot()
	for _, c := range clients {
		s.registry.Remove(c.ID)
		c.Conn.Close()
	}
	s.log.Info().Int("closed", len(clients)).Msg("All connections closed")
}
