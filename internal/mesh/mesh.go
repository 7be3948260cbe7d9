// Package mesh maintains the TCP peer network linking this server process
// to the rest of the fleet: a listening socket for inbound peers, one-shot
// outbound dials to configured peers, periodic heartbeats, and fan-out of
// room broadcasts as newline-delimited JSON frames.
package mesh

import (
	"bufio"
	"log"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"talkmesh/internal/config"
	"talkmesh/internal/models"
)

// State is the mesh lifecycle: Stopped -> Starting -> Running ->
// Stopping -> Stopped.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

// shutdownGrace bounds how long Stop waits for read loops to drain after
// their sockets are closed.
const shutdownGrace = 5 * time.Second

// maxLineBytes caps one wire line; longer lines are treated as malformed
// and dropped by the scanner.
const maxLineBytes = 64 * 1024

// LocalDelivery receives inbound chat frames for delivery to local room
// members. Implementations must not feed the message back into the mesh;
// remote chat is terminal here or a multi-node mesh would amplify every
// message.
type LocalDelivery interface {
	DeliverRemote(serverName, roomName, playerName, text string)
}

// Status is a point-in-time snapshot of the mesh for operator commands.
type Status struct {
	Running        bool
	ServerID       string
	ServerName     string
	Port           int
	InboundClients int
	OutboundPeers  int
	PeerKeys       []string
}

// Mesh owns the listening socket, the inbound connection set, the
// outbound peer map and the heartbeat timer.
type Mesh struct {
	cfg      *config.Manager
	delivery LocalDelivery

	mu       sync.Mutex
	state    State
	listener net.Listener
	done     chan struct{}

	inMu sync.Mutex
	in   map[*peerConn]struct{}

	outMu sync.Mutex
	out   map[string]*peerConn

	wg sync.WaitGroup
}

func New(cfg *config.Manager, delivery LocalDelivery) *Mesh {
	return &Mesh{
		cfg:      cfg,
		delivery: delivery,
		in:       make(map[*peerConn]struct{}),
		out:      make(map[string]*peerConn),
	}
}

// Start binds the listening socket, begins accepting inbound peers, dials
// every configured peer once and starts the heartbeat timer. A bind
// failure is logged and leaves the mesh Stopped; it never takes down the
// host process.
func (m *Mesh) Start() {
	m.mu.Lock()
	if m.state != Stopped {
		m.mu.Unlock()
		return
	}
	m.state = Starting

	addr := net.JoinHostPort(m.cfg.BindIP(), strconv.Itoa(m.cfg.Port()))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("[MESH] failed to bind %s: %v", addr, err)
		m.state = Stopped
		m.mu.Unlock()
		return
	}
	m.listener = ln
	m.done = make(chan struct{})
	m.state = Running
	m.mu.Unlock()

	log.Printf("[MESH] listening on %s", ln.Addr())

	m.wg.Add(1)
	go m.acceptLoop(ln)

	m.dialConfiguredPeers()

	m.wg.Add(1)
	go m.heartbeatLoop()
}

// Stop closes the listener and every connection, then waits for in-flight
// read loops up to a bounded grace period. Remaining workers are
// abandoned after that.
func (m *Mesh) Stop() {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return
	}
	m.state = Stopping
	ln := m.listener
	m.listener = nil
	done := m.done
	m.mu.Unlock()

	log.Printf("[MESH] shutting down")
	close(done)
	if ln != nil {
		_ = ln.Close()
	}

	m.inMu.Lock()
	for pc := range m.in {
		pc.close()
	}
	m.in = make(map[*peerConn]struct{})
	m.inMu.Unlock()

	m.outMu.Lock()
	for _, pc := range m.out {
		pc.close()
	}
	m.out = make(map[string]*peerConn)
	m.outMu.Unlock()

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownGrace):
		log.Printf("[MESH] shutdown grace period elapsed, abandoning remaining workers")
	}

	m.mu.Lock()
	m.state = Stopped
	m.mu.Unlock()
	log.Printf("[MESH] stopped")
}

// Running reports whether the mesh is accepting and relaying traffic.
func (m *Mesh) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Running
}

// Addr returns the bound listener address, empty when not running.
func (m *Mesh) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *Mesh) acceptLoop(ln net.Listener) {
	defer m.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if m.Running() {
				log.Printf("[MESH] accept error: %v", err)
			}
			return
		}
		pc := newPeerConn(conn, inbound, "")
		m.inMu.Lock()
		m.in[pc] = struct{}{}
		m.inMu.Unlock()
		m.debugf("inbound peer connected: %s", pc.label())

		m.wg.Add(1)
		go m.readLoop(pc)
	}
}

// dialConfiguredPeers dials each configured peer that is not already
// connected, once, asynchronously. There is no retry; a peer that is down
// stays absent from the outbound map until a reload or restart.
func (m *Mesh) dialConfiguredPeers() {
	for key, peer := range m.cfg.Peers() {
		m.outMu.Lock()
		_, connected := m.out[key]
		m.outMu.Unlock()
		if connected {
			continue
		}
		m.wg.Add(1)
		go m.dialPeer(key, peer)
	}
}

func (m *Mesh) dialPeer(key string, peer config.PeerConfig) {
	defer m.wg.Done()

	addr := net.JoinHostPort(peer.Host, strconv.Itoa(peer.Port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Printf("[MESH] failed to connect to peer %s (%s): %v", peer.Name, addr, err)
		return
	}

	pc := newPeerConn(conn, outbound, key)
	m.outMu.Lock()
	if old, exists := m.out[key]; exists {
		old.close()
	}
	m.out[key] = pc
	m.outMu.Unlock()
	log.Printf("[MESH] connected to peer %s (%s)", peer.Name, addr)

	info := models.NewServerInfo(m.cfg.ServerID(), m.cfg.ServerName(), "connection established")
	if err := pc.send(info); err != nil {
		m.debugf("failed to announce to peer %s: %v", key, err)
	}

	m.wg.Add(1)
	go m.readLoop(pc)
}

// readLoop owns one connection: it reads lines until EOF or error, then
// removes the connection from its collection exactly once and closes the
// socket. Disconnection is normal peer departure, not an error.
func (m *Mesh) readLoop(pc *peerConn) {
	defer m.wg.Done()
	defer func() {
		m.remove(pc)
		pc.close()
		m.debugf("peer disconnected: %s", pc.label())
	}()

	scanner := bufio.NewScanner(pc.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		m.handleLine(scanner.Text(), pc)
	}
}

func (m *Mesh) remove(pc *peerConn) {
	switch pc.dir {
	case inbound:
		m.inMu.Lock()
		delete(m.in, pc)
		m.inMu.Unlock()
	case outbound:
		m.outMu.Lock()
		if current, exists := m.out[pc.key]; exists && current == pc {
			delete(m.out, pc.key)
		}
		m.outMu.Unlock()
	}
}

// handleLine decodes and dispatches one wire line. Malformed lines are
// dropped silently; unknown message types are ignored. Inbound chat is
// handed to local delivery only -- it is never re-broadcast.
func (m *Mesh) handleLine(line string, pc *peerConn) {
	msg := models.DecodeLine(line)
	if msg == nil {
		m.debugf("dropping malformed line from %s", pc.label())
		return
	}

	m.debugf("received %s", msg)

	switch msg.Type {
	case models.MsgChatMessage:
		if m.delivery != nil {
			m.delivery.DeliverRemote(msg.ServerName, msg.RoomName, msg.PlayerName, msg.Message)
		}
	case models.MsgHeartbeat:
		reply := models.NewHeartbeat(m.cfg.ServerID(), m.cfg.ServerName())
		if err := pc.send(reply); err != nil {
			m.debugf("heartbeat reply to %s failed: %v", pc.label(), err)
		}
	case models.MsgServerInfo:
		m.debugf("server info from %s (%s): %s", msg.ServerID, msg.ServerName, msg.Data)
	default:
		m.debugf("ignoring message type %s from %s", msg.Type, pc.label())
	}
}

// Broadcast fans one chat message out to every inbound client and every
// outbound peer. A write failure on one connection is logged and does not
// abort delivery to the others; teardown of a dead connection is the job
// of its own read loop.
func (m *Mesh) Broadcast(roomName, playerName, text string) {
	if !m.Running() {
		return
	}
	msg := models.NewChatMessage(m.cfg.ServerID(), m.cfg.ServerName(), roomName, playerName, text)
	line, err := msg.Encode()
	if err != nil {
		log.Printf("[MESH] broadcast encode failed: %v", err)
		return
	}

	for _, pc := range m.snapshotConns() {
		if err := pc.sendLine(line); err != nil {
			m.debugf("send to %s failed: %v", pc.label(), err)
		}
	}
	m.debugf("broadcast %s", msg)
}

// SendToPeer writes one message to a single named outbound peer.
func (m *Mesh) SendToPeer(key string, msg *models.WireMessage) {
	m.outMu.Lock()
	pc := m.out[key]
	m.outMu.Unlock()
	if pc == nil {
		return
	}
	if err := pc.send(msg); err != nil {
		m.debugf("send to peer %s failed: %v", key, err)
	}
}

func (m *Mesh) snapshotConns() []*peerConn {
	var conns []*peerConn
	m.inMu.Lock()
	for pc := range m.in {
		conns = append(conns, pc)
	}
	m.inMu.Unlock()
	m.outMu.Lock()
	for _, pc := range m.out {
		conns = append(conns, pc)
	}
	m.outMu.Unlock()
	return conns
}

func (m *Mesh) heartbeatLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.HeartbeatInterval())
	defer ticker.Stop()

	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			hb := models.NewHeartbeat(m.cfg.ServerID(), m.cfg.ServerName())
			m.outMu.Lock()
			peers := make([]*peerConn, 0, len(m.out))
			for _, pc := range m.out {
				peers = append(peers, pc)
			}
			m.outMu.Unlock()
			for _, pc := range peers {
				if err := pc.send(hb); err != nil {
					m.debugf("heartbeat to %s failed: %v", pc.label(), err)
				}
			}
		}
	}
}

// ConnectMissingPeers re-dials configured peers that are currently absent
// from the outbound map. Called on operator reload; the mesh itself never
// retries.
func (m *Mesh) ConnectMissingPeers() {
	if !m.Running() {
		return
	}
	m.dialConfiguredPeers()
}

// CurrentStatus snapshots connection counts for the status command.
func (m *Mesh) CurrentStatus() Status {
	m.inMu.Lock()
	inboundCount := len(m.in)
	m.inMu.Unlock()

	m.outMu.Lock()
	keys := make([]string, 0, len(m.out))
	for key := range m.out {
		keys = append(keys, key)
	}
	m.outMu.Unlock()
	sort.Strings(keys)

	return Status{
		Running:        m.Running(),
		ServerID:       m.cfg.ServerID(),
		ServerName:     m.cfg.ServerName(),
		Port:           m.cfg.Port(),
		InboundClients: inboundCount,
		OutboundPeers:  len(keys),
		PeerKeys:       keys,
	}
}

func (m *Mesh) debugf(format string, args ...any) {
	if m.cfg.Debug() {
		log.Printf("[MESH] "+format, args...)
	}
}
