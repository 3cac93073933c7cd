// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains the rendering logic for the main chat surface.
// Layout: header (1 line) + messages (viewport) + suggestions + spinner +
// input (1 line) + status (1 line).
package chat

import (
	"strings"

	"github.com/morganforge/fishchat-tui/internal/ui/components"
	"github.com/morganforge/fishchat-tui/internal/ui/styles"
)

// View renders the complete chat view.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.mode {
	case modeSessions:
		return m.renderSessions()
	case modeMasks:
		return m.renderMasks()
	case modePassword, modeTOTP:
		return m.renderGate()
	case modeSettings:
		return m.renderSettings()
	case modeHelp:
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if q := m.questionList.View(); q != "" {
		b.WriteString(q)
		b.WriteString("\n")
	}
	if s := m.spinner.View(); s != "" {
		b.WriteString(s)
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := styles.Title.Render("fishchat")
	sess := m.store.Current()
	if sess == nil {
		return title
	}
	return title + "  " + styles.MutedText.Render(sess.Topic)
}

func (m *Model) renderStatusBar() string {
	sess := m.store.Current()
	bar := components.StatusBar{
		Width:        m.width,
		Status:       components.StatusReady,
		Notice:       m.notice,
		SessionIndex: m.store.CurrentIndex(),
		SessionCount: len(m.store.Sessions()),
	}
	if m.busy {
		bar.Status = components.StatusStreaming
	}
	if sess != nil {
		bar.Topic = sess.Topic
		bar.MaskName = sess.Mask.Name
		bar.DeepThinking = sess.DeepThinking
		bar.MessageCount = len(sess.Messages)
		if last := lastMessage(sess); last != nil && last.IsError {
			bar.Status = components.StatusError
		}
	}
	return bar.View()
}

// refreshViewport re-renders the conversation into the viewport.
func (m *Model) refreshViewport() {
	sess := m.store.Current()
	if sess == nil {
		m.viewport.SetContent(styles.MutedText.Render("No conversation."))
		return
	}
	if len(sess.Messages) == 0 {
		m.viewport.SetContent(styles.MutedText.Render(
			"Start chatting, or pick a suggestion below."))
		return
	}

	blocks := make([]string, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		if m.typingFx != nil && msg.ID == m.typingMsgID {
			// Show the typewriter prefix instead of the full reply.
			partial := *msg
			partial.Content = m.typingFx.Current()
			partial.Streaming = true
			blocks = append(blocks, m.renderer.Render(&partial))
			continue
		}
		blocks = append(blocks, m.renderer.Render(msg))
	}
	sep := "\n\n"
	if m.compact {
		sep = "\n"
	}
	m.viewport.SetContent(strings.Join(blocks, sep))

	if m.busy || m.typingFx != nil {
		m.viewport.GotoBottom()
	}
}
