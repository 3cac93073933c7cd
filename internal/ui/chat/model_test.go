// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/fishchat-tui/internal/admin"
	"github.com/morganforge/fishchat-tui/internal/agent"
	chatstore "github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/storage"
	"github.com/morganforge/fishchat-tui/internal/typing"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()

	state, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })

	catalog, err := masks.NewCatalog(filepath.Join(t.TempDir(), "masks"))
	require.NoError(t, err)

	client := agent.NewClient("http://127.0.0.1:1")
	store := chatstore.NewStore(client, catalog, state, "user_test")

	m := New(Options{
		Store:   store,
		Catalog: catalog,
		Typing:  typing.Options{BaseSpeed: typing.DefaultBaseSpeed},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	case "ctrl+h":
		return tea.KeyMsg{Type: tea.KeyCtrlH}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestViewRendersEmptySession(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "fishchat")
	assert.Contains(t, out, "Start chatting")
	assert.Contains(t, out, "New Conversation")
}

func TestNewSessionShortcut(t *testing.T) {
	m := newTestModel(t)
	before := len(m.store.Sessions())
	m.Update(keyMsg("ctrl+n"))
	assert.Equal(t, before+1, len(m.store.Sessions()))
}

func TestSessionOverlayNavigation(t *testing.T) {
	m := newTestModel(t)
	m.store.New(m.catalog.GetOrDefault(masks.DefaultMaskID))

	m.Update(keyMsg("ctrl+s"))
	assert.Equal(t, modeSessions, m.mode)
	assert.Contains(t, m.View(), "Sessions")

	m.Update(keyMsg("down"))
	m.Update(keyMsg("enter"))
	assert.Equal(t, modeChat, m.mode)
	assert.Equal(t, 1, m.store.CurrentIndex())
}

func TestMaskPickerStartsSession(t *testing.T) {
	m := newTestModel(t)
	before := len(m.store.Sessions())

	m.Update(keyMsg("ctrl+p"))
	assert.Equal(t, modeMasks, m.mode)
	out := m.View()
	assert.Contains(t, out, "persona")

	m.Update(keyMsg("down"))
	m.Update(keyMsg("enter"))
	assert.Equal(t, modeChat, m.mode)
	assert.Equal(t, before+1, len(m.store.Sessions()))
	// Non-default personas seed the topic from the mask name.
	assert.NotEqual(t, chatstore.DefaultTopic, m.store.Current().Topic)
}

func TestDeepThinkingToggle(t *testing.T) {
	m := newTestModel(t)
	assert.True(t, m.store.Current().DeepThinking)
	m.Update(keyMsg("ctrl+t"))
	assert.False(t, m.store.Current().DeepThinking)
	assert.Contains(t, m.notice, "Deep thinking off")
}

func TestSettingsWithoutGateOpensDirectly(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyMsg("ctrl+g"))
	assert.Equal(t, modeSettings, m.mode)
	assert.Contains(t, m.View(), "Settings")

	m.Update(keyMsg("esc"))
	assert.Equal(t, modeChat, m.mode)
}

func TestSettingsGatePromptsForPassword(t *testing.T) {
	m := newTestModel(t)
	phc, err := admin.HashPassword("secret")
	require.NoError(t, err)
	m.gate = admin.NewGate(phc, "")

	m.Update(keyMsg("ctrl+g"))
	assert.Equal(t, modePassword, m.mode)
	assert.Contains(t, m.View(), "Admin password")

	for _, r := range "secret" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m.Update(keyMsg("enter"))
	assert.Equal(t, modeSettings, m.mode)
}

func TestSettingsGateRejectsWrongPassword(t *testing.T) {
	m := newTestModel(t)
	phc, err := admin.HashPassword("secret")
	require.NoError(t, err)
	m.gate = admin.NewGate(phc, "")

	m.Update(keyMsg("ctrl+g"))
	for _, r := range "nope" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m.Update(keyMsg("enter"))
	assert.Equal(t, modeChat, m.mode)
	assert.Contains(t, m.notice, "Invalid credentials")
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyMsg("ctrl+h"))
	assert.Equal(t, modeHelp, m.mode)
	assert.Contains(t, m.View(), "Keyboard shortcuts")
	m.Update(keyMsg("esc"))
	assert.Equal(t, modeChat, m.mode)
}

func TestQuestionsMsgIgnoredForOtherSession(t *testing.T) {
	m := newTestModel(t)
	m.Update(questionsMsg{
		sessionID: "some-other-session",
		questions: []agent.Question{{ID: "1", Text: "ignored"}},
	})
	assert.Empty(t, m.questionList.Questions)

	current := m.store.Current().ID
	m.Update(questionsMsg{
		sessionID: current,
		questions: []agent.Question{{ID: "1", Text: "What can you do?"}},
	})
	assert.Len(t, m.questionList.Questions, 1)
	assert.Contains(t, m.View(), "What can you do?")
}

func TestTypingInputAppendsToField(t *testing.T) {
	m := newTestModel(t)
	for _, r := range "hello" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "hello", m.input.Value())
}
