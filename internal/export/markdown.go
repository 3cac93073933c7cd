// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/morganforge/fishchat-tui/internal/chat"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders sessions as Markdown documents.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(sess *chat.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(sess.Topic)))
		sb.WriteString(fmt.Sprintf("persona: %s\n", escapeYAML(sess.Mask.Name)))
		sb.WriteString(fmt.Sprintf("agent_type: %s\n", sess.Mask.AgentType))
		sb.WriteString(fmt.Sprintf("updated: %s\n", sess.LastUpdate.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(sess.Messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: fishchat-tui\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", sess.Topic))

	if e.options.IncludeMetadata && sess.MemoryPrompt != "" {
		sb.WriteString("## Memory\n\n")
		sb.WriteString(sess.MemoryPrompt)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range sess.Messages {
		label := roleLabel(msg.Role)
		if msg.IsError {
			label += " (failed)"
		}
		if e.options.IncludeTimestamps && !msg.Date.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, msg.Date.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns "md".
func (e *MarkdownExporter) FileExtension() string { return "md" }

func roleLabel(role string) string {
	switch role {
	case chat.RoleUser:
		return "👤 User"
	case chat.RoleAssistant:
		return "🤖 Assistant"
	case chat.RoleSystem:
		return "⚙️ System"
	default:
		return role
	}
}

// escapeYAML keeps frontmatter values on one line and quotes them safely.
func escapeYAML(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return "\"" + s + "\""
}
