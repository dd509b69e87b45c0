package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Socket adapts a gorilla connection to Conn. Writes are serialized and
// bounded by writeTimeout; reads belong to the session loop alone.
type Socket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewSocket(conn *websocket.Conn, writeTimeout time.Duration) *Socket {
	return &Socket{conn: conn, writeTimeout: writeTimeout}
}

func (s *Socket) Write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReadMessage blocks until the next data frame. Control frames are handled
// by gorilla.
func (s *Socket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
