// Package config loads and serves the server's yaml configuration.
package config

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// PeerConfig is one statically configured remote server.
type PeerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

type NetworkConfig struct {
	Enabled          bool                  `yaml:"enabled"`
	ServerID         string                `yaml:"server-id"`
	ServerName       string                `yaml:"server-name"`
	Port             int                   `yaml:"port"`
	BindIP           string                `yaml:"bind-ip"`
	HeartbeatSeconds int                   `yaml:"heartbeat-seconds"`
	Connections      map[string]PeerConfig `yaml:"connections"`
}

type ChatroomConfig struct {
	DefaultRoom       string `yaml:"default-room"`
	MaxRooms          int    `yaml:"max-rooms"`
	MaxRoomsPerPlayer int    `yaml:"max-rooms-per-player"`
	MaxMembers        int    `yaml:"max-members"`
	MinNameLength     int    `yaml:"min-name-length"`
	MaxNameLength     int    `yaml:"max-name-length"`
}

type MessagesConfig struct {
	SystemFormat      string `yaml:"system-format"`
	ErrorFormat       string `yaml:"error-format"`
	ChatFormat        string `yaml:"chat-format"`
	CrossServerFormat string `yaml:"cross-server-format"`
}

type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

type PluginConfig struct {
	Debug  bool     `yaml:"debug"`
	Admins []string `yaml:"admins"`
}

type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Chatroom ChatroomConfig `yaml:"chatroom"`
	Messages MessagesConfig `yaml:"messages"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Plugin   PluginConfig   `yaml:"plugin"`
}

// Default returns the built-in configuration used when no config file is
// present. The numeric defaults match the rest of the fleet.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	cfg.Network.Enabled = true
	cfg.Gateway.Enabled = true
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Network.ServerID == "" {
		cfg.Network.ServerID = "server1"
	}
	if cfg.Network.ServerName == "" {
		cfg.Network.ServerName = cfg.Network.ServerID
	}
	if cfg.Network.Port == 0 {
		cfg.Network.Port = 25580
	}
	if cfg.Network.BindIP == "" {
		cfg.Network.BindIP = "0.0.0.0"
	}
	if cfg.Network.HeartbeatSeconds <= 0 {
		cfg.Network.HeartbeatSeconds = 30
	}
	if cfg.Chatroom.DefaultRoom == "" {
		cfg.Chatroom.DefaultRoom = "lobby"
	}
	if cfg.Chatroom.MaxRooms <= 0 {
		cfg.Chatroom.MaxRooms = 50
	}
	if cfg.Chatroom.MaxRoomsPerPlayer <= 0 {
		cfg.Chatroom.MaxRoomsPerPlayer = 5
	}
	if cfg.Chatroom.MaxMembers <= 0 {
		cfg.Chatroom.MaxMembers = 100
	}
	if cfg.Chatroom.MinNameLength <= 0 {
		cfg.Chatroom.MinNameLength = 3
	}
	if cfg.Chatroom.MaxNameLength <= 0 {
		cfg.Chatroom.MaxNameLength = 20
	}
	if cfg.Messages.SystemFormat == "" {
		cfg.Messages.SystemFormat = "[talk] {message}"
	}
	if cfg.Messages.ErrorFormat == "" {
		cfg.Messages.ErrorFormat = "[talk] error: {message}"
	}
	if cfg.Messages.ChatFormat == "" {
		cfg.Messages.ChatFormat = "[{room}] {player}: {message}"
	}
	if cfg.Messages.CrossServerFormat == "" {
		cfg.Messages.CrossServerFormat = "[{server}] [{room}] {player}: {message}"
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = ":25581"
	}
}

// Manager holds the live configuration behind a read lock so that reload
// swaps it atomically under concurrent readers.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// Load reads the config file at path. A missing file is not an error: the
// manager falls back to defaults, matching the rest of the fleet's
// run-anywhere behavior.
func Load(path string) (*Manager, error) {
	m := &Manager{path: path}
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m.cfg = cfg
	return m, nil
}

// FromConfig wraps an in-memory configuration, applying defaults. Used by
// tests and embedders that do not read a file.
func FromConfig(cfg Config) *Manager {
	applyDefaults(&cfg)
	return &Manager{cfg: cfg}
}

func readFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("[CONFIG] %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg = Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	log.Printf("[CONFIG] loaded %s", path)
	return cfg, nil
}

// Reload re-reads the config file and swaps the active configuration.
func (m *Manager) Reload() error {
	cfg, err := readFile(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	log.Printf("[CONFIG] configuration reloaded")
	return nil
}

// Snapshot returns a copy of the active configuration.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) NetworkEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Network.Enabled
}

func (m *Manager) ServerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Network.ServerID
}

func (m *Manager) ServerName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Network.ServerName
}

func (m *Manager) Port() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Network.Port
}

func (m *Manager) BindIP() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Network.BindIP
}

func (m *Manager) HeartbeatInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Duration(m.cfg.Network.HeartbeatSeconds) * time.Second
}

// Peers returns a copy of the static peer list.
func (m *Manager) Peers() map[string]PeerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	peers := make(map[string]PeerConfig, len(m.cfg.Network.Connections))
	for key, peer := range m.cfg.Network.Connections {
		if peer.Name == "" {
			peer.Name = key
		}
		peers[key] = peer
	}
	return peers
}

func (m *Manager) DefaultRoomName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Chatroom.DefaultRoom
}

func (m *Manager) MaxRooms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Chatroom.MaxRooms
}

func (m *Manager) MaxRoomsPerPlayer() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Chatroom.MaxRoomsPerPlayer
}

func (m *Manager) MaxMembersPerRoom() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Chatroom.MaxMembers
}

func (m *Manager) MinRoomNameLength() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Chatroom.MinNameLength
}

func (m *Manager) MaxRoomNameLength() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Chatroom.MaxNameLength
}

func (m *Manager) GatewayEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Gateway.Enabled
}

func (m *Manager) GatewayBind() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Gateway.Bind
}

func (m *Manager) Debug() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Plugin.Debug
}

// IsAdmin reports whether the player is in the configured admin list.
func (m *Manager) IsAdmin(player string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, admin := range m.cfg.Plugin.Admins {
		if admin == player {
			return true
		}
	}
	return false
}
