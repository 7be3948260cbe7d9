// Package registry owns room existence, membership and per-owner quotas.
// It has no dependency on networking.
package registry

import (
	"log"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"talkmesh/internal/config"
	"talkmesh/internal/models"
)

// DeleteOutcome reports why a delete succeeded or was refused.
type DeleteOutcome int

const (
	DeleteSuccess DeleteOutcome = iota
	DeleteNotFound
	DeleteNoPermission
	DeleteDefaultRoom
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteSuccess:
		return "success"
	case DeleteNotFound:
		return "room not found"
	case DeleteNoPermission:
		return "no permission"
	case DeleteDefaultRoom:
		return "cannot delete default room"
	default:
		return "unknown"
	}
}

// Registry is the authoritative mapping of rooms, members and owner
// quotas. One mutex guards all three maps so that every join, leave and
// delete updates member sets and the player index as a single step: a
// player is indexed to a room if and only if that room holds them.
type Registry struct {
	cfg *config.Manager

	mu          sync.RWMutex
	rooms       map[string]*models.Room
	playerRooms map[string]string
	ownerRooms  map[string]int
}

func New(cfg *config.Manager) *Registry {
	return &Registry{
		cfg:         cfg,
		rooms:       make(map[string]*models.Room),
		playerRooms: make(map[string]string),
		ownerRooms:  make(map[string]int),
	}
}

// CreateRoom inserts a new room. It refuses duplicates, the global room
// cap and, for player rooms, the per-owner cap. Quota accounting moves
// with the insertion under the same lock.
func (r *Registry) CreateRoom(name, owner string, isDefault bool) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[name]; exists {
		return false
	}
	if len(r.rooms) >= r.cfg.MaxRooms() {
		return false
	}
	if !isDefault {
		if r.ownerRooms[owner] >= r.cfg.MaxRoomsPerPlayer() {
			return false
		}
		r.ownerRooms[owner]++
	}

	room := models.NewRoom(name, owner, isDefault)
	room.SetMaxMembers(r.cfg.MaxMembersPerRoom())
	r.rooms[name] = room

	r.debugf("created room %q (owner: %s)", name, owner)
	return true
}

// RestoreRoom re-inserts a persisted room with its saved attributes. Same
// rules as CreateRoom.
func (r *Registry) RestoreRoom(name, owner, description string, maxMembers int) bool {
	if !r.CreateRoom(name, owner, false) {
		return false
	}
	r.mu.RLock()
	room := r.rooms[strings.TrimSpace(name)]
	r.mu.RUnlock()
	room.SetDescription(description)
	room.SetMaxMembers(maxMembers)
	return true
}

// DeleteRoom removes a room. admin is the caller's pre-computed
// administrative capability; the registry itself evaluates no permissions
// beyond ownership. Every member of the deleted room is re-homed into the
// default room in the same critical section, so no player is ever left
// indexed to a missing room.
func (r *Registry) DeleteRoom(name, requester string, admin bool) DeleteOutcome {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[name]
	if !exists {
		return DeleteNotFound
	}
	if room.IsDefault() {
		return DeleteDefaultRoom
	}
	if !room.IsOwner(requester) && !admin {
		return DeleteNoPermission
	}

	defaultName := r.cfg.DefaultRoomName()
	defaultRoom := r.rooms[defaultName]
	for _, member := range room.Members() {
		if defaultRoom != nil {
			defaultRoom.ForceAddMember(member)
			r.playerRooms[member] = defaultName
		} else {
			delete(r.playerRooms, member)
		}
	}

	if count := r.ownerRooms[room.Owner()]; count > 0 {
		r.ownerRooms[room.Owner()] = count - 1
	}
	delete(r.rooms, name)

	r.debugf("deleted room %q (requested by %s)", name, requester)
	return DeleteSuccess
}

// Join moves the player into the named room, implicitly leaving their
// current room. Joining a missing room, the room the player is already in,
// or a full room is a no-op failure. The capacity check happens before the
// implicit leave so a refused join never strands the player roomless.
func (r *Registry) Join(player, name string) bool {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[name]
	if !exists {
		return false
	}
	if r.playerRooms[player] == name {
		return false
	}
	if room.MemberCount() >= room.MaxMembers() {
		return false
	}

	if current, ok := r.playerRooms[player]; ok {
		if currentRoom := r.rooms[current]; currentRoom != nil {
			currentRoom.RemoveMember(player)
		}
	}

	room.AddMember(player)
	r.playerRooms[player] = name

	r.debugf("player %s joined room %q", player, name)
	return true
}

// Leave removes the player from their current room, if any.
func (r *Registry) Leave(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.playerRooms[player]
	if !ok {
		return false
	}
	if room := r.rooms[current]; room != nil {
		room.RemoveMember(player)
	}
	delete(r.playerRooms, player)

	r.debugf("player %s left room %q", player, current)
	return true
}

// PlayerRoom returns the name of the player's current room.
func (r *Registry) PlayerRoom(player string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.playerRooms[player]
	return name, ok
}

// Room looks up a room by trimmed name.
func (r *Registry) Room(name string) *models.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[strings.TrimSpace(name)]
}

// Rooms returns a snapshot of all rooms, sorted by name.
func (r *Registry) Rooms() []*models.Room {
	r.mu.RLock()
	rooms := make([]*models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name() < rooms[j].Name() })
	return rooms
}

// RoomNames returns a sorted snapshot of all room names.
func (r *Registry) RoomNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// MemberCount returns the member count of the named room, zero when the
// room does not exist.
func (r *Registry) MemberCount(name string) int {
	if room := r.Room(name); room != nil {
		return room.MemberCount()
	}
	return 0
}

// OwnedRooms returns the quota count currently charged to the owner.
func (r *Registry) OwnedRooms(owner string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownerRooms[owner]
}

// IsValidName checks the trimmed name against the configured length
// bounds. Internal spacing is preserved; multi-word names are valid.
func (r *Registry) IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	length := utf8.RuneCountInString(name)
	return length >= r.cfg.MinRoomNameLength() && length <= r.cfg.MaxRoomNameLength()
}

// Clear drops every room, index entry and quota count.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]*models.Room)
	r.playerRooms = make(map[string]string)
	r.ownerRooms = make(map[string]int)
}

func (r *Registry) debugf(format string, args ...any) {
	if r.cfg.Debug() {
		log.Printf("[REGISTRY] "+format, args...)
	}
}
