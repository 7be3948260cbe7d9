package models

import (
	"sort"
	"sync"
	"time"
)

// SystemOwner is the owner recorded for rooms created by the server
// itself. System rooms never count against any player's quota.
const SystemOwner = "server"

const defaultMaxMembers = 100

// Room is a named, capacity-bounded group of players. The member set is
// guarded by the room's own mutex; multi-room transitions (join, leave,
// delete) are additionally serialized by the registry.
type Room struct {
	name      string
	owner     string
	isDefault bool
	createdAt time.Time

	mu          sync.Mutex
	description string
	maxMembers  int
	members     map[string]struct{}
}

func NewRoom(name, owner string, isDefault bool) *Room {
	return &Room{
		name:       name,
		owner:      owner,
		isDefault:  isDefault,
		createdAt:  time.Now(),
		maxMembers: defaultMaxMembers,
		members:    make(map[string]struct{}),
	}
}

func (r *Room) Name() string         { return r.name }
func (r *Room) Owner() string        { return r.owner }
func (r *Room) IsDefault() bool      { return r.isDefault }
func (r *Room) CreatedAt() time.Time { return r.createdAt }

func (r *Room) IsOwner(player string) bool { return r.owner == player }

func (r *Room) Description() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.description
}

func (r *Room) SetDescription(desc string) {
	r.mu.Lock()
	r.description = desc
	r.mu.Unlock()
}

func (r *Room) MaxMembers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxMembers
}

// SetMaxMembers replaces the member cap. Non-positive values are ignored.
func (r *Room) SetMaxMembers(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.maxMembers = n
	r.mu.Unlock()
}

// AddMember inserts the player, refusing when the room is at capacity or
// the player is already a member.
func (r *Room) AddMember(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) >= r.maxMembers {
		return false
	}
	if _, exists := r.members[player]; exists {
		return false
	}
	r.members[player] = struct{}{}
	return true
}

// ForceAddMember inserts the player regardless of the member cap. Used
// when re-homing members of a deleted room into the default room, where
// leaving a player roomless is worse than briefly exceeding the cap.
func (r *Room) ForceAddMember(player string) {
	r.mu.Lock()
	r.members[player] = struct{}{}
	r.mu.Unlock()
}

func (r *Room) RemoveMember(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[player]; !exists {
		return false
	}
	delete(r.members, player)
	return true
}

func (r *Room) IsMember(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[player]
	return ok
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Members returns a sorted copy of the member set, never a live view.
func (r *Room) Members() []string {
	r.mu.Lock()
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	r.mu.Unlock()
	sort.Strings(members)
	return members
}
