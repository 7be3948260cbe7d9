package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rooms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadRooms(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveRoom(RoomRecord{Name: "Guild", Owner: "alice", Description: "the guild hall", MaxMembers: 25, CreatedAt: 1700000000000}))
	require.NoError(t, s.SaveRoom(RoomRecord{Name: "arena", Owner: "bob", MaxMembers: 100, CreatedAt: 1700000001000}))

	records, err := s.LoadRooms()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sorted by name.
	require.Equal(t, "Guild", records[0].Name)
	require.Equal(t, "alice", records[0].Owner)
	require.Equal(t, "the guild hall", records[0].Description)
	require.Equal(t, 25, records[0].MaxMembers)
	require.Equal(t, int64(1700000000000), records[0].CreatedAt)
	require.Equal(t, "arena", records[1].Name)
	require.Empty(t, records[1].Description)
}

func TestSaveRoomReplaces(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveRoom(RoomRecord{Name: "Guild", Owner: "alice", MaxMembers: 25, CreatedAt: 1}))
	require.NoError(t, s.SaveRoom(RoomRecord{Name: "Guild", Owner: "alice", Description: "updated", MaxMembers: 30, CreatedAt: 1}))

	records, err := s.LoadRooms()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "updated", records[0].Description)
	require.Equal(t, 30, records[0].MaxMembers)
}

func TestDeleteRoom(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveRoom(RoomRecord{Name: "Guild", Owner: "alice", MaxMembers: 25, CreatedAt: 1}))
	require.NoError(t, s.DeleteRoom("Guild"))
	require.NoError(t, s.DeleteRoom("Guild"), "deleting an absent room is not an error")

	records, err := s.LoadRooms()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestReopenKeepsRooms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRoom(RoomRecord{Name: "Guild", Owner: "alice", MaxMembers: 25, CreatedAt: 1}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.LoadRooms()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Guild", records[0].Name)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store

	require.ErrorIs(t, s.SaveRoom(RoomRecord{Name: "Guild"}), ErrNotOpen)
	require.ErrorIs(t, s.DeleteRoom("Guild"), ErrNotOpen)
	_, err := s.LoadRooms()
	require.ErrorIs(t, err, ErrNotOpen)
	require.NoError(t, s.Close())
}
