package utils

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pixelcast/handlers"
)

// WSSession serialises writes to one gorilla connection. gorilla allows a
// single concurrent writer; pings and close frames go through WriteControl,
// which may run alongside it.
type WSSession struct {
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewWSSession(conn *websocket.Conn, writeWait time.Duration) *WSSession {
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &WSSession{conn: conn, writeWait: writeWait}
}

// WriteText sends one text frame.
func (s *WSSession) WriteText(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *WSSession) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait))
}

// Close sends a normal close frame and closes the socket. Later calls
// return the first result.
func (s *WSSession) Close() error {
	s.closeOnce.Do(func() {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// RemoteAddr is the peer address as seen on the socket.
func (s *WSSession) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// SendMessage encodes msg and writes it to one session.
func SendMessage(s handlers.Session, msg handlers.DisplayMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	return s.WriteText(payload)
}
