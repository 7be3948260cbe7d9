// Package service composes the room registry with the peer mesh and the
// host runtime's player delivery: the single place where a room message
// becomes both local deliveries and a mesh broadcast.
package service

import (
	"log"

	"talkmesh/internal/config"
	"talkmesh/internal/models"
	"talkmesh/internal/registry"
	"talkmesh/internal/storage"
)

// PlayerSink is the host-runtime boundary for delivering chat lines to
// online players.
type PlayerSink interface {
	SendToPlayer(player, line string)
	IsOnline(player string) bool
}

// Broadcaster is the mesh boundary for fanning a room message out to peer
// servers.
type Broadcaster interface {
	Broadcast(roomName, playerName, text string)
}

// RoomStore persists user-created room definitions. May be nil when
// persistence is disabled.
type RoomStore interface {
	SaveRoom(rec storage.RoomRecord) error
	DeleteRoom(name string) error
}

type Service struct {
	cfg   *config.Manager
	rooms *registry.Registry
	store RoomStore

	// mesh and sink are wired once during startup, before any traffic.
	mesh Broadcaster
	sink PlayerSink
}

func New(cfg *config.Manager, rooms *registry.Registry, store RoomStore) *Service {
	return &Service{cfg: cfg, rooms: rooms, store: store}
}

// SetMesh attaches the peer mesh. Must be called before traffic starts.
func (s *Service) SetMesh(mesh Broadcaster) { s.mesh = mesh }

// SetSink attaches the player delivery adapter. Must be called before
// traffic starts.
func (s *Service) SetSink(sink PlayerSink) { s.sink = sink }

// Registry exposes the underlying room registry for read operations.
func (s *Service) Registry() *registry.Registry { return s.rooms }

// SendToRoom delivers a locally originated message to every online local
// member of the room and forwards it to the mesh. This is the only path
// that performs both local delivery and mesh fan-out.
func (s *Service) SendToRoom(roomName, playerName, text string) {
	room := s.rooms.Room(roomName)
	if room == nil {
		return
	}

	formatted := s.cfg.FormatChatMessage(room.Name(), playerName, text)
	s.deliver(room, formatted)

	if s.mesh != nil {
		s.mesh.Broadcast(room.Name(), playerName, text)
	}
	s.debugf("room %q message: %s: %s", room.Name(), playerName, text)
}

// DeliverRemote delivers a chat message received from a peer server to
// local members of the named room. Unknown rooms are a silent no-op, and
// the message is never handed back to the mesh: remote chat terminates
// here, which is what keeps a mesh of more than two nodes from amplifying
// every message.
func (s *Service) DeliverRemote(serverName, roomName, playerName, text string) {
	room := s.rooms.Room(roomName)
	if room == nil {
		return
	}
	formatted := s.cfg.FormatCrossServerMessage(serverName, room.Name(), playerName, text)
	s.deliver(room, formatted)
}

func (s *Service) deliver(room *models.Room, line string) {
	if s.sink == nil {
		return
	}
	for _, member := range room.Members() {
		if s.sink.IsOnline(member) {
			s.sink.SendToPlayer(member, line)
		}
	}
}

// CreateRoom creates a player-owned room and writes it through to the
// room store.
func (s *Service) CreateRoom(name, owner string) bool {
	if !s.rooms.CreateRoom(name, owner, false) {
		return false
	}
	if s.store != nil {
		room := s.rooms.Room(name)
		rec := storage.RoomRecord{
			Name:        room.Name(),
			Owner:       room.Owner(),
			Description: room.Description(),
			MaxMembers:  room.MaxMembers(),
			CreatedAt:   room.CreatedAt().UnixMilli(),
		}
		if err := s.store.SaveRoom(rec); err != nil {
			log.Printf("[SERVICE] failed to persist room %q: %v", name, err)
		}
	}
	return true
}

// DeleteRoom deletes a room, re-homing its members, and removes it from
// the room store. admin is the caller's pre-computed administrative
// capability.
func (s *Service) DeleteRoom(name, requester string, admin bool) registry.DeleteOutcome {
	outcome := s.rooms.DeleteRoom(name, requester, admin)
	if outcome == registry.DeleteSuccess && s.store != nil {
		if err := s.store.DeleteRoom(name); err != nil {
			log.Printf("[SERVICE] failed to remove persisted room %q: %v", name, err)
		}
	}
	return outcome
}

// HandlePlayerConnected auto-joins the player into the default room and
// greets them.
func (s *Service) HandlePlayerConnected(player string) {
	defaultRoom := s.cfg.DefaultRoomName()
	if !s.rooms.Join(player, defaultRoom) {
		// Default room full or missing; the player stays roomless until
		// they join one explicitly.
		s.debugf("could not auto-join %s into %q", player, defaultRoom)
		return
	}
	if s.sink != nil {
		s.sink.SendToPlayer(player, s.cfg.FormatSystemMessage("welcome! type /help for commands"))
		s.sink.SendToPlayer(player, s.cfg.FormatSystemMessage("you joined room: "+defaultRoom))
	}
}

// HandlePlayerDisconnected removes the player from their room.
func (s *Service) HandlePlayerDisconnected(player string) {
	s.rooms.Leave(player)
}

// HandlePlayerChat routes an intercepted chat line through the player's
// current room. Returns false when the player is in no room.
func (s *Service) HandlePlayerChat(player, text string) bool {
	roomName, ok := s.rooms.PlayerRoom(player)
	if !ok {
		return false
	}
	s.SendToRoom(roomName, player, text)
	return true
}

func (s *Service) debugf(format string, args ...any) {
	if s.cfg.Debug() {
		log.Printf("[SERVICE] "+format, args...)
	}
}
