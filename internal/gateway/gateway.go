// Package gateway is the host-runtime adapter: a websocket endpoint where
// players connect, chat and run commands. It translates connection events
// into the room service's player lifecycle calls and implements the
// service's PlayerSink for message delivery.
package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"talkmesh/internal/command"
	"talkmesh/internal/config"
	"talkmesh/internal/service"
	"talkmesh/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendQueueSize  = 64
)

type Gateway struct {
	cfg  *config.Manager
	svc  *service.Service
	cmds *command.Dispatcher

	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu       sync.Mutex
	sessions map[string]*session // keyed by player name
}

func New(cfg *config.Manager, svc *service.Service, cmds *command.Dispatcher) *Gateway {
	return &Gateway{
		cfg:  cfg,
		svc:  svc,
		cmds: cmds,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[string]*session),
	}
}

// Handler returns the HTTP handler serving the player websocket at /ws.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	return mux
}

// Start serves the gateway on the configured bind address until Stop.
func (g *Gateway) Start() {
	addr := g.cfg.GatewayBind()
	g.httpServer = &http.Server{
		Addr:              addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[GATEWAY] listening on %s", addr)
	go func() {
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[GATEWAY] serve failed: %v", err)
		}
	}()
}

// Stop shuts the HTTP server down and closes every player session.
func (g *Gateway) Stop(ctx context.Context) {
	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[GATEWAY] shutdown: %v", err)
		}
	}
	g.mu.Lock()
	for _, sess := range g.sessions {
		sess.close()
	}
	g.sessions = make(map[string]*session)
	g.mu.Unlock()
}

// SendToPlayer delivers one chat line to the named player. A full send
// queue drops the line rather than stalling room delivery.
func (g *Gateway) SendToPlayer(player, line string) {
	g.mu.Lock()
	sess := g.sessions[player]
	g.mu.Unlock()
	if sess == nil {
		return
	}
	if !sess.enqueue(line) {
		g.debugf("dropping line for %s: session closed or queue full", player)
	}
}

// IsOnline reports whether the player has an active session.
func (g *Gateway) IsOnline(player string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.sessions[player]
	return ok
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	player := strings.TrimSpace(r.URL.Query().Get("name"))
	if player == "" {
		player = "guest-" + utils.GenerateRandomID()[:6]
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GATEWAY] upgrade failed: %v", err)
		return
	}

	sess := newSession(player, conn)

	g.mu.Lock()
	if _, taken := g.sessions[player]; taken {
		g.mu.Unlock()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(g.cfg.FormatErrorMessage("name already in use: "+player)))
		_ = conn.Close()
		return
	}
	g.sessions[player] = sess
	g.mu.Unlock()

	log.Printf("[GATEWAY] player %s connected from %s (session %s)", player, conn.RemoteAddr(), sess.id)

	go sess.writePump()
	g.svc.HandlePlayerConnected(player)
	go g.readPump(sess)
}

func (g *Gateway) readPump(sess *session) {
	defer func() {
		g.unregister(sess)
		sess.close()
		g.svc.HandlePlayerDisconnected(sess.player)
		log.Printf("[GATEWAY] player %s disconnected", sess.player)
	}()

	sess.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		line := strings.TrimSpace(string(data))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			for _, reply := range g.cmds.Execute(sess.player, strings.Fields(line[1:])) {
				g.SendToPlayer(sess.player, reply)
			}
			continue
		}
		if !g.svc.HandlePlayerChat(sess.player, line) {
			g.SendToPlayer(sess.player, g.cfg.FormatErrorMessage("join a room before chatting"))
		}
	}
}

func (g *Gateway) unregister(sess *session) {
	g.mu.Lock()
	if current, ok := g.sessions[sess.player]; ok && current == sess {
		delete(g.sessions, sess.player)
	}
	g.mu.Unlock()
}

// SessionCount reports the number of connected players.
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *Gateway) debugf(format string, args ...any) {
	if g.cfg.Debug() {
		log.Printf("[GATEWAY] "+format, args...)
	}
}

var _ service.PlayerSink = (*Gateway)(nil)
