// Package command maps the player-facing chat commands onto registry,
// service and mesh operations. Argument parsing and permission lookups
// happen here; the core packages receive pre-validated input.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"talkmesh/internal/config"
	"talkmesh/internal/mesh"
	"talkmesh/internal/registry"
	"talkmesh/internal/service"
)

// Capability names a permission the dispatcher checks before running a
// command. The predicate is injected; the dispatcher never decides
// who holds what.
type Capability string

const (
	CapUse    Capability = "use"
	CapCreate Capability = "create"
	CapAdmin  Capability = "admin"
)

// PermissionFunc reports whether the player holds the capability.
type PermissionFunc func(player string, cap Capability) bool

// MeshControl is the slice of the mesh the status and reload commands
// need. Nil when networking is disabled.
type MeshControl interface {
	CurrentStatus() mesh.Status
	ConnectMissingPeers()
}

type Dispatcher struct {
	cfg   *config.Manager
	rooms *registry.Registry
	svc   *service.Service
	mesh  MeshControl
	perms PermissionFunc
}

func New(cfg *config.Manager, rooms *registry.Registry, svc *service.Service, meshCtl MeshControl, perms PermissionFunc) *Dispatcher {
	return &Dispatcher{cfg: cfg, rooms: rooms, svc: svc, mesh: meshCtl, perms: perms}
}

var helpLines = []string{
	"---------- talk commands ----------",
	"/list            list all rooms",
	"/join <room>     join a room",
	"/add <room>      create a room",
	"/del <room>      delete a room you own",
	"/exit            leave your room for the default room",
	"/info [room]     show room details",
	"/reload          reload configuration (admin)",
	"/status          show network status (admin)",
	"-----------------------------------",
}

// Execute runs one command for the player and returns the reply lines.
func (d *Dispatcher) Execute(player string, args []string) []string {
	if !d.perms(player, CapUse) {
		return []string{d.cfg.FormatErrorMessage("you do not have permission to use chat commands")}
	}
	if len(args) == 0 {
		return helpLines
	}

	switch strings.ToLower(args[0]) {
	case "help", "h":
		return helpLines
	case "list":
		return d.list(player)
	case "join":
		return d.join(player, args[1:])
	case "add":
		return d.add(player, args[1:])
	case "del", "delete":
		return d.del(player, args[1:])
	case "exit", "leave":
		return d.exit(player)
	case "info":
		return d.info(player, args[1:])
	case "reload":
		return d.reload(player)
	case "status":
		return d.status(player)
	default:
		return []string{d.cfg.FormatErrorMessage("unknown command, type /help for help")}
	}
}

func (d *Dispatcher) list(player string) []string {
	rooms := d.rooms.Rooms()
	if len(rooms) == 0 {
		return []string{d.cfg.FormatSystemMessage("there are no rooms")}
	}

	lines := []string{"---------- rooms ----------"}
	for _, room := range rooms {
		kind := "       "
		if room.IsDefault() {
			kind = "default"
		}
		owner := room.Owner()
		if room.IsDefault() {
			owner = "system"
		}
		lines = append(lines, fmt.Sprintf("%s %s - members %d/%d - owner %s",
			kind, room.Name(), room.MemberCount(), room.MaxMembers(), owner))
	}
	if current, ok := d.rooms.PlayerRoom(player); ok {
		lines = append(lines, "current room: "+current)
	} else {
		lines = append(lines, "you are not in a room")
	}
	lines = append(lines, "---------------------------")
	return lines
}

func (d *Dispatcher) join(player string, args []string) []string {
	if len(args) == 0 {
		return []string{d.cfg.FormatErrorMessage("usage: /join <room>")}
	}
	name := strings.TrimSpace(strings.Join(args, " "))

	if d.rooms.Room(name) == nil {
		return []string{d.cfg.FormatErrorMessage("room not found: " + name)}
	}
	if current, ok := d.rooms.PlayerRoom(player); ok && current == name {
		return []string{d.cfg.FormatErrorMessage("you are already in room: " + name)}
	}
	if !d.rooms.Join(player, name) {
		return []string{d.cfg.FormatErrorMessage("could not join room, it may be full")}
	}
	return []string{d.cfg.FormatSystemMessage("you joined room: " + name)}
}

func (d *Dispatcher) add(player string, args []string) []string {
	if !d.perms(player, CapCreate) {
		return []string{d.cfg.FormatErrorMessage("you do not have permission to create rooms")}
	}
	if len(args) == 0 {
		return []string{d.cfg.FormatErrorMessage("usage: /add <room>")}
	}
	name := strings.TrimSpace(strings.Join(args, " "))

	if !d.rooms.IsValidName(name) {
		min := strconv.Itoa(d.cfg.MinRoomNameLength())
		max := strconv.Itoa(d.cfg.MaxRoomNameLength())
		return []string{d.cfg.FormatErrorMessage("room name must be " + min + "-" + max + " characters")}
	}
	if d.rooms.Room(name) != nil {
		return []string{d.cfg.FormatErrorMessage("room already exists: " + name)}
	}
	if !d.svc.CreateRoom(name, player) {
		if d.rooms.RoomCount() >= d.cfg.MaxRooms() {
			return []string{d.cfg.FormatErrorMessage("the room limit has been reached")}
		}
		return []string{d.cfg.FormatErrorMessage("you have reached your room limit")}
	}

	lines := []string{d.cfg.FormatSystemMessage("room created: " + name)}
	if d.rooms.Join(player, name) {
		lines = append(lines, d.cfg.FormatSystemMessage("you joined room: "+name))
	}
	return lines
}

func (d *Dispatcher) del(player string, args []string) []string {
	if len(args) == 0 {
		return []string{d.cfg.FormatErrorMessage("usage: /del <room>")}
	}
	name := strings.TrimSpace(strings.Join(args, " "))

	switch d.svc.DeleteRoom(name, player, d.perms(player, CapAdmin)) {
	case registry.DeleteSuccess:
		return []string{d.cfg.FormatSystemMessage("room deleted: " + name)}
	case registry.DeleteNotFound:
		return []string{d.cfg.FormatErrorMessage("room not found: " + name)}
	case registry.DeleteNoPermission:
		return []string{d.cfg.FormatErrorMessage("only the room owner can delete it")}
	case registry.DeleteDefaultRoom:
		return []string{d.cfg.FormatErrorMessage("the default room cannot be deleted")}
	default:
		return []string{d.cfg.FormatErrorMessage("unknown error deleting room")}
	}
}

func (d *Dispatcher) exit(player string) []string {
	current, ok := d.rooms.PlayerRoom(player)
	if !ok {
		return []string{d.cfg.FormatErrorMessage("you are not in a room")}
	}

	defaultRoom := d.cfg.DefaultRoomName()
	if current == defaultRoom {
		return []string{d.cfg.FormatErrorMessage("you cannot leave the default room")}
	}
	if !d.rooms.Leave(player) {
		return []string{d.cfg.FormatErrorMessage("could not leave room")}
	}

	lines := []string{d.cfg.FormatSystemMessage("you left room: " + current)}
	if d.rooms.Join(player, defaultRoom) {
		lines = append(lines, d.cfg.FormatSystemMessage("you joined room: "+defaultRoom))
	}
	return lines
}

func (d *Dispatcher) info(player string, args []string) []string {
	var name string
	if len(args) > 0 {
		name = strings.TrimSpace(strings.Join(args, " "))
	} else {
		current, ok := d.rooms.PlayerRoom(player)
		if !ok {
			return []string{d.cfg.FormatErrorMessage("you are not in a room")}
		}
		name = current
	}

	room := d.rooms.Room(name)
	if room == nil {
		return []string{d.cfg.FormatErrorMessage("room not found: " + name)}
	}

	kind := "user room"
	owner := room.Owner()
	if room.IsDefault() {
		kind = "default room"
		owner = "system"
	}
	lines := []string{
		"---------- room info ----------",
		"name: " + room.Name(),
		"type: " + kind,
		"owner: " + owner,
		fmt.Sprintf("members: %d/%d", room.MemberCount(), room.MaxMembers()),
		"created: " + room.CreatedAt().Format("2006-01-02 15:04:05"),
	}
	if desc := room.Description(); desc != "" {
		lines = append(lines, "description: "+desc)
	}
	lines = append(lines, "-------------------------------")
	return lines
}

func (d *Dispatcher) reload(player string) []string {
	if !d.perms(player, CapAdmin) {
		return []string{d.cfg.FormatErrorMessage("you do not have permission to reload")}
	}
	if err := d.cfg.Reload(); err != nil {
		return []string{d.cfg.FormatErrorMessage("reload failed: " + err.Error())}
	}
	if d.mesh != nil {
		d.mesh.ConnectMissingPeers()
	}
	return []string{d.cfg.FormatSystemMessage("configuration reloaded")}
}

func (d *Dispatcher) status(player string) []string {
	if !d.perms(player, CapAdmin) {
		return []string{d.cfg.FormatErrorMessage("you do not have permission to view status")}
	}

	lines := []string{
		"---------- status ----------",
		fmt.Sprintf("rooms: %d", d.rooms.RoomCount()),
	}
	if d.mesh == nil {
		lines = append(lines, "network: disabled")
	} else {
		st := d.mesh.CurrentStatus()
		state := "stopped"
		if st.Running {
			state = "running"
		}
		lines = append(lines,
			"network: "+state,
			"server id: "+st.ServerID,
			fmt.Sprintf("inbound clients: %d", st.InboundClients),
			fmt.Sprintf("outbound peers: %d (%s)", st.OutboundPeers, strings.Join(st.PeerKeys, ", ")),
		)
	}
	lines = append(lines, "----------------------------")
	return lines
}

// Complete suggests completions for a partially typed command.
func (d *Dispatcher) Complete(player string, args []string) []string {
	if len(args) <= 1 {
		prefix := ""
		if len(args) == 1 {
			prefix = strings.ToLower(args[0])
		}
		subcommands := []string{"help", "list", "join", "add", "del", "exit", "info"}
		if d.perms(player, CapAdmin) {
			subcommands = append(subcommands, "reload", "status")
		}
		var out []string
		for _, sub := range subcommands {
			if strings.HasPrefix(sub, prefix) {
				out = append(out, sub)
			}
		}
		return out
	}

	switch strings.ToLower(args[0]) {
	case "join", "info", "del", "delete":
		prefix := strings.ToLower(args[1])
		var out []string
		for _, name := range d.rooms.RoomNames() {
			if strings.HasPrefix(strings.ToLower(name), prefix) {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}
