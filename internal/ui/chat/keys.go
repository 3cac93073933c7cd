// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines keyboard bindings and shortcuts for the chat interface.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Submit       key.Binding
	Abort        key.Binding
	Quit         key.Binding
	Help         key.Binding
	NewSession   key.Binding
	NextSession  key.Binding
	PrevSession  key.Binding
	Sessions     key.Binding
	Masks        key.Binding
	DeepThinking key.Binding
	Retry        key.Binding
	Export       key.Binding
	ClearContext key.Binding
	Settings     key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send message"),
		),
		Abort: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop generating"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "toggle help"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new session"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("ctrl+right"),
			key.WithHelp("C-right", "next session"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("ctrl+left"),
			key.WithHelp("C-left", "previous session"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "session list"),
		),
		Masks: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "pick persona"),
		),
		DeepThinking: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "toggle deep thinking"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "retry last message"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export conversation"),
		),
		ClearContext: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "clear context"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "settings"),
		),
	}
}

// HelpLines returns the shortcut reference shown by the help overlay.
func (k KeyMap) HelpLines() []string {
	bindings := []key.Binding{
		k.Submit, k.Abort, k.Retry,
		k.NewSession, k.NextSession, k.PrevSession, k.Sessions,
		k.Masks, k.DeepThinking, k.ClearContext,
		k.Export, k.Settings, k.Help, k.Quit,
	}
	lines := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		lines = append(lines, h.Key+"  "+h.Desc)
	}
	return lines
}
