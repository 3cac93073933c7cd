// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"log"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer turns chat messages into styled terminal output.
// Finalized assistant messages go through glamour for markdown; streaming
// content is shown raw so partial markdown does not flicker mid-render.
type MessageRenderer struct {
	mu       sync.Mutex
	width    int
	markdown *glamour.TermRenderer

	// Compact drops the per-message timestamp. Set before first use.
	Compact bool
}

// NewMessageRenderer creates a renderer for the given wrap width.
func NewMessageRenderer(width int) *MessageRenderer {
	r := &MessageRenderer{}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the markdown renderer for a new terminal width.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width = width
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		log.Printf("ui: markdown renderer init failed: %v", err)
		r.markdown = nil
		return
	}
	r.markdown = md
}

// Render produces the display block for one message.
func (r *MessageRenderer) Render(msg *chat.Message) string {
	var b strings.Builder

	switch msg.Role {
	case chat.RoleUser:
		b.WriteString(styles.UserLabel.Render("You"))
	case chat.RoleAssistant:
		b.WriteString(styles.AssistantLabel.Render("Agent"))
	default:
		b.WriteString(styles.MutedText.Render("System"))
	}
	if !r.Compact && !msg.Date.IsZero() {
		b.WriteString("  " + styles.MutedText.Render(msg.Date.Format("15:04")))
	}
	b.WriteString("\n")

	switch {
	case msg.IsError:
		b.WriteString(styles.ErrorText.Render(msg.Content))
	case msg.Role == chat.RoleAssistant && !msg.Streaming:
		b.WriteString(r.renderMarkdown(msg.Content))
	default:
		b.WriteString(msg.Content)
	}
	return b.String()
}

func (r *MessageRenderer) renderMarkdown(content string) string {
	r.mu.Lock()
	md := r.markdown
	r.mu.Unlock()
	if md == nil {
		return content
	}
	out, err := md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
