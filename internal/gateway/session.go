package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// session is one connected player. The write pump owns the connection's
// write side; everything else enqueues onto send via enqueue, which
// arbitrates against close.
type session struct {
	id     string
	player string
	conn   *websocket.Conn
	send   chan string

	mu     sync.Mutex
	closed bool
}

func newSession(player string, conn *websocket.Conn) *session {
	return &session{
		id:     uuid.NewString(),
		player: player,
		conn:   conn,
		send:   make(chan string, sendQueueSize),
	}
}

// enqueue queues one line for the write pump. Returns false when the
// session is closed or the queue is full.
func (s *session) enqueue(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- line:
		return true
	default:
		return false
	}
}

func (s *session) writePump() {
	for line := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
	_ = s.conn.Close()
}
