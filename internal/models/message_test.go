package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatMessageRoundTrip(t *testing.T) {
	msg := NewChatMessage("s1", "alpha", "Guild", "alice", "hello there")

	line, err := msg.Encode()
	require.NoError(t, err)
	require.NotContains(t, line, "\n")

	decoded := DecodeLine(line)
	require.NotNil(t, decoded)
	require.Equal(t, MsgChatMessage, decoded.Type)
	require.Equal(t, "s1", decoded.ServerID)
	require.Equal(t, "alpha", decoded.ServerName)
	require.Equal(t, "Guild", decoded.RoomName)
	require.Equal(t, "alice", decoded.PlayerName)
	require.Equal(t, "hello there", decoded.Message)
	require.Equal(t, msg.Timestamp, decoded.Timestamp)
}

func TestHeartbeatRoundTrip(t *testing.T) {
	msg := NewHeartbeat("s1", "alpha")
	require.Equal(t, HeartbeatBody, msg.Message)
	require.Empty(t, msg.RoomName)
	require.Empty(t, msg.PlayerName)
	require.Positive(t, msg.Timestamp)

	line, err := msg.Encode()
	require.NoError(t, err)

	decoded := DecodeLine(line)
	require.NotNil(t, decoded)
	require.Equal(t, MsgHeartbeat, decoded.Type)
	require.Equal(t, HeartbeatBody, decoded.Message)
}

func TestServerInfoRoundTrip(t *testing.T) {
	msg := NewServerInfo("s2", "beta", "connection established")

	line, err := msg.Encode()
	require.NoError(t, err)

	decoded := DecodeLine(line)
	require.NotNil(t, decoded)
	require.Equal(t, MsgServerInfo, decoded.Type)
	require.Equal(t, "s2", decoded.ServerID)
	require.Equal(t, "connection established", decoded.Data)
}

func TestMessageWithNewlineInBodyStaysOneLine(t *testing.T) {
	msg := NewChatMessage("s1", "alpha", "Guild", "alice", "line one\nline two")

	line, err := msg.Encode()
	require.NoError(t, err)
	require.NotContains(t, line, "\n")

	decoded := DecodeLine(line)
	require.NotNil(t, decoded)
	require.Equal(t, "line one\nline two", decoded.Message)
}

func TestDecodeLineRejectsGarbage(t *testing.T) {
	require.Nil(t, DecodeLine(""))
	require.Nil(t, DecodeLine("   "))
	require.Nil(t, DecodeLine("not json at all"))
	require.Nil(t, DecodeLine(`{"type":"CHAT_MESSAGE","serverId":`)) // truncated
	require.Nil(t, DecodeLine(`{"serverId":"s1"}`))                  // missing type
}

func TestDecodeLineToleratesMissingOptionalFields(t *testing.T) {
	decoded := DecodeLine(`{"type":"HEARTBEAT","serverId":"s1","serverName":"alpha","timestamp":123}`)
	require.NotNil(t, decoded)
	require.Equal(t, MsgHeartbeat, decoded.Type)
	require.Empty(t, decoded.RoomName)
	require.Empty(t, decoded.PlayerName)
	require.Empty(t, decoded.Data)
}

func TestWireFieldNamesAreStable(t *testing.T) {
	msg := NewChatMessage("s1", "alpha", "Guild", "alice", "hi")
	line, err := msg.Encode()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &raw))
	for _, field := range []string{"type", "serverId", "serverName", "roomName", "playerName", "message", "timestamp"} {
		require.Contains(t, raw, field)
	}
	require.Equal(t, "CHAT_MESSAGE", raw["type"])
}

func TestReservedTypesSurviveDecode(t *testing.T) {
	for _, typ := range []MessageType{MsgRoomCreate, MsgRoomDelete, MsgPlayerJoin, MsgPlayerLeave} {
		msg := &WireMessage{Type: typ, ServerID: "s1", ServerName: "alpha", Timestamp: 1}
		line, err := msg.Encode()
		require.NoError(t, err)
		decoded := DecodeLine(line)
		require.NotNil(t, decoded)
		require.Equal(t, typ, decoded.Type)
	}
}

func TestStringOmitsPayloadNoise(t *testing.T) {
	msg := NewChatMessage("s1", "alpha", "Guild", "alice", "hi")
	require.True(t, strings.HasPrefix(msg.String(), "WireMessage{type=CHAT_MESSAGE"))
}
