package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRoom(t *testing.T) {
	room := NewRoom("Guild", "alice", false)

	require.Equal(t, "Guild", room.Name())
	require.Equal(t, "alice", room.Owner())
	require.False(t, room.IsDefault())
	require.False(t, room.CreatedAt().IsZero())
	require.True(t, room.IsOwner("alice"))
	require.False(t, room.IsOwner("bob"))
	require.Equal(t, 0, room.MemberCount())
	require.Equal(t, defaultMaxMembers, room.MaxMembers())
}

func TestAddRemoveMember(t *testing.T) {
	room := NewRoom("Guild", "alice", false)

	require.True(t, room.AddMember("bob"))
	require.False(t, room.AddMember("bob"), "duplicate add")
	require.True(t, room.IsMember("bob"))
	require.Equal(t, 1, room.MemberCount())

	require.True(t, room.RemoveMember("bob"))
	require.False(t, room.RemoveMember("bob"), "already removed")
	require.False(t, room.IsMember("bob"))
}

func TestAddMemberCapacity(t *testing.T) {
	room := NewRoom("Guild", "alice", false)
	room.SetMaxMembers(2)

	require.True(t, room.AddMember("bob"))
	require.True(t, room.AddMember("carol"))
	require.False(t, room.AddMember("dave"), "room at capacity")

	room.ForceAddMember("dave")
	require.True(t, room.IsMember("dave"))
	require.Equal(t, 3, room.MemberCount(), "force add ignores the cap")
}

func TestSetMaxMembersIgnoresNonPositive(t *testing.T) {
	room := NewRoom("Guild", "alice", false)
	room.SetMaxMembers(0)
	require.Equal(t, defaultMaxMembers, room.MaxMembers())
	room.SetMaxMembers(-5)
	require.Equal(t, defaultMaxMembers, room.MaxMembers())
	room.SetMaxMembers(7)
	require.Equal(t, 7, room.MaxMembers())
}

func TestMembersSnapshotIsSorted(t *testing.T) {
	room := NewRoom("Guild", "alice", false)
	for _, player := range []string{"zed", "amy", "mia"} {
		require.True(t, room.AddMember(player))
	}

	members := room.Members()
	require.Equal(t, []string{"amy", "mia", "zed"}, members)

	// Mutating the snapshot must not touch the room.
	members[0] = "intruder"
	require.False(t, room.IsMember("intruder"))
}

func TestDescription(t *testing.T) {
	room := NewRoom("Guild", "alice", false)
	require.Empty(t, room.Description())
	room.SetDescription("the guild hall")
	require.Equal(t, "the guild hall", room.Description())
}
