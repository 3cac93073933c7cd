// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea messages exchanged between the model and
// its background commands.
package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/fishchat-tui/internal/agent"
)

// =============================================================================
// TEA MESSAGES
// =============================================================================

// storeUpdatedMsg fires whenever the conversation store mutates.
type storeUpdatedMsg struct{}

// sendFinishedMsg reports the outcome of a send or retry.
type sendFinishedMsg struct {
	err error
}

// questionsMsg delivers suggested follow-up questions.
type questionsMsg struct {
	sessionID string
	questions []agent.Question
}

// typingTickMsg drives the typewriter animation.
type typingTickMsg struct {
	at time.Time
}

// noticeExpiredMsg clears a transient status bar notice.
type noticeExpiredMsg struct {
	id int
}

// exportDoneMsg reports the outcome of a conversation export.
type exportDoneMsg struct {
	path string
	err  error
}

// waitForStoreUpdate blocks on the store notification channel.
func waitForStoreUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeUpdatedMsg{}
	}
}
