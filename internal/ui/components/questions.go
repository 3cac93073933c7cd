// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/morganforge/fishchat-tui/internal/agent"
	"github.com/morganforge/fishchat-tui/internal/ui/styles"
)

// =============================================================================
// SUGGESTED QUESTIONS
// =============================================================================

// QuestionList renders suggested follow-up questions below the conversation.
// Entries are numbered so they can be picked with alt+1..alt+3.
type QuestionList struct {
	Questions []agent.Question
	Width     int
}

// View renders the question block, or "" when there are no questions.
func (q QuestionList) View() string {
	if len(q.Questions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Suggestions (alt+n to ask):"))
	for i, question := range q.Questions {
		b.WriteString("\n")
		b.WriteString(styles.QuestionChip.Render(fmt.Sprintf("  %d. %s", i+1, question.Text)))
	}
	return b.String()
}

// Pick returns the question at the 1-based index, or "" if out of range.
func (q QuestionList) Pick(n int) string {
	if n < 1 || n > len(q.Questions) {
		return ""
	}
	return q.Questions[n-1].Text
}
