package config

import "strings"

// Message formats come from config with {placeholder} substitution so
// operators can restyle chat output without a rebuild.

func (m *Manager) FormatSystemMessage(message string) string {
	m.mu.RLock()
	format := m.cfg.Messages.SystemFormat
	m.mu.RUnlock()
	return strings.ReplaceAll(format, "{message}", message)
}

func (m *Manager) FormatErrorMessage(message string) string {
	m.mu.RLock()
	format := m.cfg.Messages.ErrorFormat
	m.mu.RUnlock()
	return strings.ReplaceAll(format, "{message}", message)
}

func (m *Manager) FormatChatMessage(room, player, message string) string {
	m.mu.RLock()
	format := m.cfg.Messages.ChatFormat
	m.mu.RUnlock()
	format = strings.ReplaceAll(format, "{room}", room)
	format = strings.ReplaceAll(format, "{player}", player)
	return strings.ReplaceAll(format, "{message}", message)
}

func (m *Manager) FormatCrossServerMessage(server, room, player, message string) string {
	m.mu.RLock()
	format := m.cfg.Messages.CrossServerFormat
	m.mu.RUnlock()
	format = strings.ReplaceAll(format, "{server}", server)
	format = strings.ReplaceAll(format, "{room}", room)
	format = strings.ReplaceAll(format, "{player}", player)
	return strings.ReplaceAll(format, "{message}", message)
}
