// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements the session list, persona picker and admin gate
// overlays.
package chat

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/fishchat-tui/internal/admin"
	"github.com/morganforge/fishchat-tui/internal/ui/styles"
	"github.com/morganforge/fishchat-tui/internal/util"
)

// =============================================================================
// SESSION LIST
// =============================================================================

func (m *Model) handleSessionsKey(msg tea.KeyMsg) tea.Cmd {
	count := len(m.store.Sessions())
	switch msg.String() {
	case "esc", "q":
		m.mode = modeChat
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < count-1 {
			m.cursor++
		}
	case "enter":
		m.store.Select(m.cursor)
		m.mode = modeChat
		m.questionList.Questions = nil
		m.refreshViewport()
	case "d":
		m.store.Delete(context.Background(), m.cursor)
		if m.cursor >= len(m.store.Sessions()) {
			m.cursor = len(m.store.Sessions()) - 1
		}
	case "f":
		m.store.Select(m.cursor)
		m.store.Fork()
		m.mode = modeChat
		m.refreshViewport()
	}
	return nil
}

func (m *Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Sessions"))
	b.WriteString("\n\n")
	for i, sess := range m.store.Sessions() {
		line := fmt.Sprintf("%s (%d messages)", util.Preview(sess.Topic, 40), len(sess.Messages))
		if i == m.cursor {
			line = styles.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("enter select  d delete  f fork  esc back"))
	return m.overlay(b.String())
}

// =============================================================================
// PERSONA PICKER
// =============================================================================

func (m *Model) handleMasksKey(msg tea.KeyMsg) tea.Cmd {
	list := m.catalog.List()
	switch msg.String() {
	case "esc", "q":
		m.mode = modeChat
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(list)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(list) {
			m.store.New(list[m.cursor])
			m.mode = modeChat
			m.questionList.Questions = nil
			m.refreshViewport()
			return m.fetchDefaultQuestions()
		}
	}
	return nil
}

func (m *Model) renderMasks() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("New session with persona"))
	b.WriteString("\n\n")
	for i, mask := range m.catalog.List() {
		line := mask.Name
		if mask.Avatar != "" {
			line = mask.Avatar + " " + line
		}
		if i == m.cursor {
			line = styles.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("enter start  esc back"))
	return m.overlay(b.String())
}

// =============================================================================
// ADMIN GATE
// =============================================================================

func (m *Model) openSettings() tea.Cmd {
	if m.gate == nil || !m.gate.Enabled() {
		m.mode = modeSettings
		return nil
	}
	m.mode = modePassword
	m.password = ""
	m.secret.Reset()
	m.secret.Focus()
	return nil
}

func (m *Model) handleGateKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeChat
		m.secret.Reset()
		return nil
	case "enter":
		return m.advanceGate()
	}
	var cmd tea.Cmd
	m.secret, cmd = m.secret.Update(msg)
	return cmd
}

func (m *Model) advanceGate() tea.Cmd {
	value := m.secret.Value()
	m.secret.Reset()

	if m.mode == modePassword {
		m.password = value
		if m.gate.RequiresTOTP() {
			m.mode = modeTOTP
			return nil
		}
		return m.verifyGate("")
	}
	return m.verifyGate(value)
}

func (m *Model) verifyGate(code string) tea.Cmd {
	err := m.gate.Verify(m.password, code)
	m.password = ""
	switch {
	case err == nil:
		m.mode = modeSettings
		return nil
	case err == admin.ErrLockedOut:
		m.mode = modeChat
		return m.setNotice("Too many failed attempts, try again later")
	default:
		m.mode = modeChat
		return m.setNotice("Invalid credentials")
	}
}

func (m *Model) renderGate() string {
	var b strings.Builder
	if m.mode == modePassword {
		b.WriteString(styles.Title.Render("Admin password"))
	} else {
		b.WriteString(styles.Title.Render("One-time code"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.secret.View())
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("enter confirm  esc cancel"))
	return m.overlay(b.String())
}

// =============================================================================
// SETTINGS AND HELP
// =============================================================================

func (m *Model) renderSettings() string {
	sess := m.store.Current()
	var b strings.Builder
	b.WriteString(styles.Title.Render("Settings"))
	b.WriteString("\n\n")
	if sess != nil {
		b.WriteString(fmt.Sprintf("Persona:        %s\n", sess.Mask.Name))
		b.WriteString(fmt.Sprintf("Agent type:     %s\n", sess.Mask.AgentType))
		b.WriteString(fmt.Sprintf("Deep thinking:  %v\n", sess.DeepThinking))
		b.WriteString(fmt.Sprintf("History window: %d\n", sess.Mask.Config.HistoryMessageCount))
		b.WriteString(fmt.Sprintf("Send memory:    %v\n", sess.Mask.Config.SendMemory))
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Edit ~/.fishchat/config.toml to change defaults. esc back"))
	return m.overlay(b.String())
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")
	for _, line := range m.keyMap.HelpLines() {
		b.WriteString(line + "\n")
	}
	return m.overlay(b.String())
}

func (m *Model) overlay(content string) string {
	return styles.Overlay.Render(content)
}
