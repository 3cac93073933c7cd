// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/morganforge/fishchat-tui/internal/agent"
)

// Display fragments for streamed turns.
const (
	thinkingLiveHeader  = "**🤔 Thinking:**"
	thinkingDoneHeader  = "**🤔 Thought process:**"
	callingBanner       = "**🔧 Calling tools, please wait: %s**"
	succeededBanner     = "**✅ Tools succeeded: %s**"
	answerHeader        = "---\n\n**💬 Answer:**"
	emptyReplyText      = "The agent gave no reply"
)

// turnState accumulates one streamed assistant turn.
//
// Tool bookkeeping is deliberately append-only within a turn: a tool that
// starts stays in calling even if it later errors or times out, and a
// completed tool stays listed until finalization. The banners show the
// history of what ran, not just the current state.
type turnState struct {
	thinking       strings.Builder
	answer         strings.Builder
	sawThinking    bool
	callingTools   []string
	completedTools []string
}

func (t *turnState) applyChunk(ev agent.Event) {
	if ev.IsThinking {
		t.thinking.WriteString(ev.Content)
		t.sawThinking = true
	} else {
		t.answer.WriteString(ev.Content)
	}
}

func (t *turnState) applyToolStatus(ev agent.Event) {
	name := ev.QualifiedToolName()
	switch {
	case ev.IsToolRunning():
		if !contains(t.callingTools, name) {
			t.callingTools = append(t.callingTools, name)
		}
	case ev.IsToolSuccess():
		if !contains(t.completedTools, name) {
			t.completedTools = append(t.completedTools, name)
		}
	}
}

// stage returns the loading stage the turn is in right now.
func (t *turnState) stage(thinkingNow bool) LoadingStage {
	switch {
	case len(t.callingTools) > 0:
		return StageToolCalling
	case thinkingNow:
		return StageThinking
	default:
		return StageGenerating
	}
}

// composeChunk renders the turn after a chunk event. While the turn is
// still thinking the display is strictly the thinking buffer; once answer
// text flows the order is thinking, succeeded-tools banner, answer. The
// calling banner is never shown on this path, only tool_status renders it.
func (t *turnState) composeChunk(thinkingNow bool) string {
	if thinkingNow {
		return thinkingLiveHeader + "\n\n" + t.thinking.String()
	}

	var b strings.Builder
	if t.sawThinking {
		b.WriteString(thinkingDoneHeader + "\n\n" + t.thinking.String() + "\n\n")
	}
	if len(t.completedTools) > 0 && len(t.callingTools) == 0 {
		b.WriteString(t.succeededLine() + "\n\n")
	}
	if t.answer.Len() > 0 {
		b.WriteString(answerHeader + "\n\n" + t.answer.String())
	}
	return b.String()
}

// composeToolStatus renders the turn after a tool_status event: thinking,
// then the calling banner while any tool is in flight (else the succeeded
// banner), then the answer so far.
func (t *turnState) composeToolStatus() string {
	var b strings.Builder
	if t.sawThinking {
		b.WriteString(thinkingDoneHeader + "\n\n" + t.thinking.String() + "\n\n")
	}
	if len(t.callingTools) > 0 {
		b.WriteString(strings.Replace(callingBanner, "%s", strings.Join(t.callingTools, ", "), 1) + "\n\n")
	} else if len(t.completedTools) > 0 {
		b.WriteString(t.succeededLine() + "\n\n")
	}
	if t.answer.Len() > 0 {
		b.WriteString(answerHeader + "\n\n" + t.answer.String())
	}
	return b.String()
}

// composeFinal renders the finished turn. In-flight tools are dropped but
// the succeeded banner is preserved.
func (t *turnState) composeFinal() string {
	t.callingTools = nil

	var b strings.Builder
	if t.sawThinking {
		b.WriteString(thinkingDoneHeader + "\n\n" + t.thinking.String() + "\n\n")
	}
	if len(t.completedTools) > 0 {
		b.WriteString(t.succeededLine() + "\n\n")
	}
	if t.answer.Len() > 0 {
		b.WriteString(answerHeader + "\n\n" + t.answer.String())
	}
	if b.Len() == 0 {
		return emptyReplyText
	}
	return strings.TrimSuffix(b.String(), "\n\n")
}

func (t *turnState) succeededLine() string {
	return strings.Replace(succeededBanner, "%s", strings.Join(t.completedTools, ", "), 1)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
