// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the fishchat TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, user highlights, commands
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states, completed tools
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Amber - Warnings, tool-calling indicator, deep thinking badge
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Rose - Errors, failed messages
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// =============================================================================
// NEUTRALS
// =============================================================================

// Text - Primary foreground
var Text = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}

// Muted - Secondary foreground, timestamps, hints
var Muted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// Faint - Borders, separators
var Faint = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}

// Surface - Overlay backgrounds
var Surface = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// UserLabel styles the "You" prefix on user messages.
	UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// AssistantLabel styles the agent prefix on assistant messages.
	AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)

	// ErrorText styles failed message content and error banners.
	ErrorText = lipgloss.NewStyle().Foreground(Rose)

	// MutedText styles hints, timestamps and secondary info.
	MutedText = lipgloss.NewStyle().Foreground(Muted)

	// StatusBar is the bottom bar background style.
	StatusBar = lipgloss.NewStyle().Background(Surface).Foreground(Text).Padding(0, 1)

	// StatusBadge highlights a single status segment.
	StatusBadge = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// DeepThinkingBadge marks sessions with deep thinking enabled.
	DeepThinkingBadge = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	// Selected highlights the active row in list overlays.
	Selected = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// Overlay is the bordered box used by pickers and prompts.
	Overlay = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	// QuestionChip styles a suggested question entry.
	QuestionChip = lipgloss.NewStyle().Foreground(Emerald)

	// InputPrompt styles the input line prompt.
	InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
)

// Title renders a section or overlay title.
var Title = lipgloss.NewStyle().Foreground(Purple).Bold(true)
