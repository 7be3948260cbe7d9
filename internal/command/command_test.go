package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"talkmesh/internal/config"
	"talkmesh/internal/mesh"
	"talkmesh/internal/models"
	"talkmesh/internal/registry"
	"talkmesh/internal/service"
)

// grantAll lets anyone use, create and administer.
func grantAll(string, Capability) bool { return true }

// adminOnly grants admin only to the player named "admin".
func adminOnly(player string, cap Capability) bool {
	if cap == CapAdmin {
		return player == "admin"
	}
	return true
}

type fakeMeshControl struct {
	status    mesh.Status
	reconnect int
}

func (f *fakeMeshControl) CurrentStatus() mesh.Status { return f.status }
func (f *fakeMeshControl) ConnectMissingPeers()       { f.reconnect++ }

func newDispatcher(t *testing.T, perms PermissionFunc, meshCtl MeshControl) (*Dispatcher, *registry.Registry) {
	t.Helper()
	cfg := config.FromConfig(config.Config{
		Chatroom: config.ChatroomConfig{MaxRooms: 5, MaxRoomsPerPlayer: 2},
	})
	rooms := registry.New(cfg)
	require.True(t, rooms.CreateRoom("lobby", models.SystemOwner, true))
	svc := service.New(cfg, rooms, nil)
	return New(cfg, rooms, svc, meshCtl, perms), rooms
}

func TestHelp(t *testing.T) {
	d, _ := newDispatcher(t, grantAll, nil)

	require.Equal(t, helpLines, d.Execute("alice", nil))
	require.Equal(t, helpLines, d.Execute("alice", []string{"help"}))
	require.Equal(t, helpLines, d.Execute("alice", []string{"h"}))
}

func TestUnknownCommand(t *testing.T) {
	d, _ := newDispatcher(t, grantAll, nil)
	lines := d.Execute("alice", []string{"bogus"})
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "unknown command")
}

func TestUsePermissionGatesEverything(t *testing.T) {
	deny := func(string, Capability) bool { return false }
	d, _ := newDispatcher(t, deny, nil)

	lines := d.Execute("alice", []string{"list"})
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "permission")
}

func TestListShowsRoomsAndCurrent(t *testing.T) {
	d, rooms := newDispatcher(t, grantAll, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))
	require.True(t, rooms.Join("alice", "Guild"))

	lines := d.Execute("alice", []string{"list"})
	joined := strings.Join(lines, "\n")
	require.Contains(t, joined, "default lobby")
	require.Contains(t, joined, "Guild")
	require.Contains(t, joined, "owner alice")
	require.Contains(t, joined, "current room: Guild")

	lines = d.Execute("bob", []string{"list"})
	require.Contains(t, strings.Join(lines, "\n"), "you are not in a room")
}

func TestJoin(t *testing.T) {
	d, rooms := newDispatcher(t, grantAll, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))

	lines := d.Execute("bob", []string{"join", "Guild"})
	require.Equal(t, []string{"[talk] you joined room: Guild"}, lines)
	name, _ := rooms.PlayerRoom("bob")
	require.Equal(t, "Guild", name)

	lines = d.Execute("bob", []string{"join", "Guild"})
	require.Contains(t, lines[0], "already in room")

	lines = d.Execute("bob", []string{"join", "nowhere"})
	require.Contains(t, lines[0], "room not found")

	lines = d.Execute("bob", []string{"join"})
	require.Contains(t, lines[0], "usage")
}

func TestJoinMultiWordRoomName(t *testing.T) {
	d, rooms := newDispatcher(t, grantAll, nil)
	require.True(t, rooms.CreateRoom("war room", "alice", false))

	lines := d.Execute("bob", []string{"join", "war", "room"})
	require.Equal(t, []string{"[talk] you joined room: war room"}, lines)
}

func TestAdd(t *testing.T) {
	d, rooms := newDispatcher(t, grantAll, nil)

	lines := d.Execute("alice", []string{"add", "Guild"})
	require.Equal(t, []string{
		"[talk] room created: Guild",
		"[talk] you joined room: Guild",
	}, lines, "creator is auto-joined")
	require.NotNil(t, rooms.Room("Guild"))

	lines = d.Execute("bob", []string{"add", "Guild"})
	require.Contains(t, lines[0], "already exists")

	lines = d.Execute("bob", []string{"add", "ab"})
	require.Contains(t, lines[0], "3-20 characters")

	lines = d.Execute("bob", []string{"add"})
	require.Contains(t, lines[0], "usage")
}

func TestAddQuotaDiagnostics(t *testing.T) {
	d, _ := newDispatcher(t, grantAll, nil)

	require.Contains(t, d.Execute("alice", []string{"add", "one"})[0], "room created")
	require.Contains(t, d.Execute("alice", []string{"add", "two"})[0], "room created")
	require.Contains(t, d.Execute("alice", []string{"add", "three"})[0], "your room limit")

	// bob brings the total to the global cap of 5 (lobby + alice's two).
	require.Contains(t, d.Execute("bob", []string{"add", "four"})[0], "room created")
	require.Contains(t, d.Execute("bob", []string{"add", "five"})[0], "room created")
	require.Contains(t, d.Execute("carol", []string{"add", "six"})[0], "room limit has been reached")
}

func TestAddPermission(t *testing.T) {
	noCreate := func(_ string, cap Capability) bool { return cap != CapCreate }
	d, _ := newDispatcher(t, noCreate, nil)

	lines := d.Execute("alice", []string{"add", "Guild"})
	require.Contains(t, lines[0], "permission to create")
}

func TestDel(t *testing.T) {
	d, rooms := newDispatcher(t, adminOnly, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))

	require.Contains(t, d.Execute("bob", []string{"del", "Guild"})[0], "only the room owner")
	require.Contains(t, d.Execute("alice", []string{"del", "nowhere"})[0], "room not found")
	require.Contains(t, d.Execute("alice", []string{"del", "lobby"})[0], "default room cannot be deleted")
	require.Contains(t, d.Execute("alice", []string{"del"})[0], "usage")

	require.Equal(t, []string{"[talk] room deleted: Guild"}, d.Execute("alice", []string{"del", "Guild"}))
	require.Nil(t, rooms.Room("Guild"))
}

func TestDelAsAdmin(t *testing.T) {
	d, rooms := newDispatcher(t, adminOnly, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))

	require.Contains(t, d.Execute("admin", []string{"delete", "Guild"})[0], "room deleted")
	require.Nil(t, rooms.Room("Guild"))
}

func TestExit(t *testing.T) {
	d, rooms := newDispatcher(t, grantAll, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))

	require.Contains(t, d.Execute("bob", []string{"exit"})[0], "not in a room")

	require.True(t, rooms.Join("bob", "lobby"))
	require.Contains(t, d.Execute("bob", []string{"exit"})[0], "cannot leave the default room")

	require.True(t, rooms.Join("bob", "Guild"))
	lines := d.Execute("bob", []string{"leave"})
	require.Equal(t, []string{
		"[talk] you left room: Guild",
		"[talk] you joined room: lobby",
	}, lines)
	name, _ := rooms.PlayerRoom("bob")
	require.Equal(t, "lobby", name)
}

func TestInfo(t *testing.T) {
	d, rooms := newDispatcher(t, grantAll, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))
	rooms.Room("Guild").SetDescription("the guild hall")
	require.True(t, rooms.Join("bob", "Guild"))

	joined := strings.Join(d.Execute("bob", []string{"info"}), "\n")
	require.Contains(t, joined, "name: Guild")
	require.Contains(t, joined, "type: user room")
	require.Contains(t, joined, "owner: alice")
	require.Contains(t, joined, "members: 1/100")
	require.Contains(t, joined, "description: the guild hall")

	joined = strings.Join(d.Execute("carol", []string{"info", "lobby"}), "\n")
	require.Contains(t, joined, "type: default room")
	require.Contains(t, joined, "owner: system")

	require.Contains(t, d.Execute("carol", []string{"info"})[0], "not in a room")
	require.Contains(t, d.Execute("carol", []string{"info", "nowhere"})[0], "room not found")
}

func TestStatus(t *testing.T) {
	meshCtl := &fakeMeshControl{status: mesh.Status{
		Running:        true,
		ServerID:       "hub",
		InboundClients: 2,
		OutboundPeers:  1,
		PeerKeys:       []string{"east"},
	}}
	d, _ := newDispatcher(t, adminOnly, meshCtl)

	require.Contains(t, d.Execute("alice", []string{"status"})[0], "permission")

	joined := strings.Join(d.Execute("admin", []string{"status"}), "\n")
	require.Contains(t, joined, "rooms: 1")
	require.Contains(t, joined, "network: running")
	require.Contains(t, joined, "server id: hub")
	require.Contains(t, joined, "inbound clients: 2")
	require.Contains(t, joined, "outbound peers: 1 (east)")
}

func TestStatusWithoutMesh(t *testing.T) {
	d, _ := newDispatcher(t, adminOnly, nil)
	joined := strings.Join(d.Execute("admin", []string{"status"}), "\n")
	require.Contains(t, joined, "network: disabled")
}

func TestReload(t *testing.T) {
	meshCtl := &fakeMeshControl{}
	d, _ := newDispatcher(t, adminOnly, meshCtl)

	require.Contains(t, d.Execute("alice", []string{"reload"})[0], "permission")
	require.Zero(t, meshCtl.reconnect)

	lines := d.Execute("admin", []string{"reload"})
	require.Equal(t, []string{"[talk] configuration reloaded"}, lines)
	require.Equal(t, 1, meshCtl.reconnect)
}

func TestComplete(t *testing.T) {
	d, rooms := newDispatcher(t, adminOnly, nil)
	require.True(t, rooms.CreateRoom("Guild", "alice", false))
	require.True(t, rooms.CreateRoom("garden", "alice", false))

	require.Equal(t, []string{"join"}, d.Complete("bob", []string{"jo"}))
	require.Contains(t, d.Complete("admin", []string{""}), "status")
	require.NotContains(t, d.Complete("bob", []string{""}), "status")

	require.ElementsMatch(t, []string{"Guild", "garden"}, d.Complete("bob", []string{"join", "g"}))
	require.Equal(t, []string{"lobby"}, d.Complete("bob", []string{"info", "lo"}))
	require.Nil(t, d.Complete("bob", []string{"exit", "x"}))
}
