package mesh

import (
	"net"
	"sync"
	"time"

	"talkmesh/internal/models"
)

type direction int

const (
	inbound direction = iota
	outbound
)

// writeTimeout bounds each write attempt so a stalled peer cannot hold a
// broadcast goroutine forever. Writes to one peer never wait on another:
// each connection has its own write lock.
const writeTimeout = 10 * time.Second

// peerConn is one bidirectional line stream to a single peer. The read
// loop runs in its own goroutine; writes from any goroutine serialize on
// the connection's writeMu.
type peerConn struct {
	conn net.Conn
	dir  direction
	key  string // configured peer key, empty for inbound connections

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newPeerConn(conn net.Conn, dir direction, key string) *peerConn {
	return &peerConn{conn: conn, dir: dir, key: key}
}

// label identifies the peer in logs: the configured key for outbound
// connections, the remote address for inbound ones.
func (p *peerConn) label() string {
	if p.key != "" {
		return p.key
	}
	return p.conn.RemoteAddr().String()
}

func (p *peerConn) sendLine(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := p.conn.Write(append([]byte(line), '\n'))
	return err
}

func (p *peerConn) send(msg *models.WireMessage) error {
	line, err := msg.Encode()
	if err != nil {
		return err
	}
	return p.sendLine(line)
}

// close is idempotent; the read loop and mesh shutdown may both reach it.
func (p *peerConn) close() {
	p.closeOnce.Do(func() {
		_ = p.conn.Close()
	})
}
