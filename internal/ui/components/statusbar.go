// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/morganforge/fishchat-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StatusBar is the single-line bar at the bottom of the chat view.
type StatusBar struct {
	Width        int
	Status       Status
	Topic        string
	MaskName     string
	DeepThinking bool
	SessionIndex int
	SessionCount int
	MessageCount int
	Notice       string
}

// View renders the bar at the configured width.
func (b StatusBar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	gap := b.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		left = runewidth.Truncate(left, b.Width-lipgloss.Width(right)-5, "...")
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return styles.StatusBar.Width(b.Width).Render(line)
}

func (b StatusBar) renderLeft() string {
	parts := []string{styles.StatusBadge.Render(b.Status.String())}
	if b.Notice != "" {
		parts = append(parts, styles.MutedText.Render(b.Notice))
	} else if b.Topic != "" {
		parts = append(parts, b.Topic)
	}
	return strings.Join(parts, "  ")
}

func (b StatusBar) renderRight() string {
	var parts []string
	if b.MaskName != "" {
		parts = append(parts, styles.MutedText.Render(b.MaskName))
	}
	if b.DeepThinking {
		parts = append(parts, styles.DeepThinkingBadge.Render("[deep]"))
	}
	if b.SessionCount > 0 {
		parts = append(parts, styles.MutedText.Render(
			fmt.Sprintf("%d/%d", b.SessionIndex+1, b.SessionCount)))
	}
	parts = append(parts, styles.MutedText.Render(fmt.Sprintf("%d msgs", b.MessageCount)))
	return strings.Join(parts, "  ")
}
