// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the fishchat TUI.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/ui/styles"
)

// =============================================================================
// STAGE SPINNER
// =============================================================================

// StageSpinner shows what the agent is currently doing while a reply is
// pending. The label follows the message loading stage.
type StageSpinner struct {
	spinner   spinner.Model
	stage     chat.LoadingStage
	startTime time.Time
	active    bool
	showTimer bool
}

// NewStageSpinner creates a spinner with ASCII-safe frames.
func NewStageSpinner() StageSpinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = lipgloss.NewStyle().Foreground(styles.Purple)
	return StageSpinner{spinner: s, showTimer: true}
}

// Start begins animating for the given stage.
func (s *StageSpinner) Start(stage chat.LoadingStage) tea.Cmd {
	s.active = true
	s.stage = stage
	if s.startTime.IsZero() {
		s.startTime = time.Now()
	}
	return s.spinner.Tick
}

// SetStage updates the label without resetting the timer.
func (s *StageSpinner) SetStage(stage chat.LoadingStage) {
	s.stage = stage
}

// Stop halts the animation and clears the timer.
func (s *StageSpinner) Stop() {
	s.active = false
	s.startTime = time.Time{}
}

// Active reports whether the spinner is animating.
func (s *StageSpinner) Active() bool {
	return s.active
}

// Update advances the animation.
func (s *StageSpinner) Update(msg tea.Msg) tea.Cmd {
	if !s.active {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// View renders the spinner line, or "" when inactive.
func (s *StageSpinner) View() string {
	if !s.active {
		return ""
	}
	label := stageLabel(s.stage)
	if s.showTimer && !s.startTime.IsZero() {
		elapsed := time.Since(s.startTime).Round(time.Second)
		if elapsed >= time.Second {
			label = fmt.Sprintf("%s (%s)", label, elapsed)
		}
	}
	return s.spinner.View() + " " + styles.MutedText.Render(label)
}

func stageLabel(stage chat.LoadingStage) string {
	switch stage {
	case chat.StageConnecting:
		return "Connecting..."
	case chat.StageProcessing:
		return "Processing..."
	case chat.StageGenerating:
		return "Generating..."
	case chat.StageThinking:
		return "Thinking deeply..."
	case chat.StageToolCalling:
		return "Calling tools..."
	default:
		return "Working..."
	}
}
