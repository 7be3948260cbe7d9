// Package models defines the data types shared by the room registry, the
// peer mesh and the player-facing adapters.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageType tags a WireMessage. The literals are part of the wire
// protocol shared by every server in the fleet and must not change.
type MessageType string

const (
	MsgChatMessage MessageType = "CHAT_MESSAGE"
	MsgRoomCreate  MessageType = "ROOM_CREATE"
	MsgRoomDelete  MessageType = "ROOM_DELETE"
	MsgPlayerJoin  MessageType = "PLAYER_JOIN"
	MsgPlayerLeave MessageType = "PLAYER_LEAVE"
	MsgHeartbeat   MessageType = "HEARTBEAT"
	MsgServerInfo  MessageType = "SERVER_INFO"
)

// HeartbeatBody is the fixed message text carried by heartbeat frames.
const HeartbeatBody = "heartbeat"

// WireMessage is one frame of the peer protocol: a single JSON object per
// line on the wire. Which fields are meaningful depends on Type; decoding
// tolerates absent optional fields.
type WireMessage struct {
	Type       MessageType `json:"type"`
	ServerID   string      `json:"serverId"`
	ServerName string      `json:"serverName"`
	RoomName   string      `json:"roomName,omitempty"`
	PlayerName string      `json:"playerName,omitempty"`
	Message    string      `json:"message,omitempty"`
	Timestamp  int64       `json:"timestamp"`
	Data       string      `json:"data,omitempty"`
}

// NewChatMessage builds a chat frame for a room broadcast.
func NewChatMessage(serverID, serverName, roomName, playerName, text string) *WireMessage {
	return &WireMessage{
		Type:       MsgChatMessage,
		ServerID:   serverID,
		ServerName: serverName,
		RoomName:   roomName,
		PlayerName: playerName,
		Message:    text,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// NewHeartbeat builds a liveness frame.
func NewHeartbeat(serverID, serverName string) *WireMessage {
	return &WireMessage{
		Type:       MsgHeartbeat,
		ServerID:   serverID,
		ServerName: serverName,
		Message:    HeartbeatBody,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// NewServerInfo builds an announcement frame with free-form data.
func NewServerInfo(serverID, serverName, data string) *WireMessage {
	return &WireMessage{
		Type:       MsgServerInfo,
		ServerID:   serverID,
		ServerName: serverName,
		Timestamp:  time.Now().UnixMilli(),
		Data:       data,
	}
}

// Encode serializes the message to a single line without the trailing
// newline. JSON string escaping guarantees the record itself never
// contains one.
func (m *WireMessage) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode wire message: %w", err)
	}
	return string(b), nil
}

// DecodeLine parses one wire line back into a message. Empty, truncated or
// otherwise invalid records yield nil; callers drop those silently.
func DecodeLine(line string) *WireMessage {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var m WireMessage
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return nil
	}
	if m.Type == "" {
		return nil
	}
	return &m
}

func (m *WireMessage) String() string {
	return fmt.Sprintf("WireMessage{type=%s, serverId=%q, serverName=%q, roomName=%q, playerName=%q, message=%q}",
		m.Type, m.ServerID, m.ServerName, m.RoomName, m.PlayerName, m.Message)
}
