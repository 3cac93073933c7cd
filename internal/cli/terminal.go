// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and handling for the fishchat CLI.
//
// These utilities ensure proper behavior in different environments:
// interactive terminals, piped output, and CI (respects NO_COLOR).
package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal. When false, the
// typewriter effect and colors are disabled.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width used for wrapping
	MinTerminalWidth = 40
)

// TerminalWidth returns the current terminal width, with sane bounds.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR CONTROL
// =============================================================================

var (
	profileOnce sync.Once
	profile     termenv.Profile
)

// ColorProfile returns the detected color profile, honoring NO_COLOR and
// non-TTY stdout.
func ColorProfile() termenv.Profile {
	profileOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" || !IsStdoutTTY() {
			profile = termenv.Ascii
			return
		}
		profile = termenv.ColorProfile()
	})
	return profile
}

// ColorEnabled reports whether output should be colored.
func ColorEnabled() bool {
	return ColorProfile() != termenv.Ascii
}
