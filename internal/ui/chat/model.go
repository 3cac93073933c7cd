// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/fishchat-tui/internal/admin"
	chatstore "github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/export"
	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/questions"
	"github.com/morganforge/fishchat-tui/internal/typing"
	"github.com/morganforge/fishchat-tui/internal/ui/components"
)

// =============================================================================
// MODES
// =============================================================================

// mode selects which surface currently has the keyboard.
type mode int

const (
	modeChat mode = iota
	modeSessions
	modeMasks
	modePassword
	modeTOTP
	modeSettings
	modeHelp
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options wires the chat model to the application services.
type Options struct {
	Store     *chatstore.Store
	Questions *questions.Service
	Catalog   *masks.Catalog
	Gate      *admin.Gate
	ExportDir string
	Typing    typing.Options

	// Compact drops message timestamps and inter-message spacing.
	Compact bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	keyMap KeyMap

	width  int
	height int

	store   *chatstore.Store
	svc     *questions.Service
	catalog *masks.Catalog
	gate    *admin.Gate

	exportDir string
	compact   bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	secret   textinput.Model
	spinner  components.StageSpinner
	renderer *components.MessageRenderer

	questionList components.QuestionList

	// Store change notifications
	updates chan struct{}

	// Streaming and typewriter state
	busy            bool
	prevStreamingID string
	typingOpts      typing.Options
	typingFx        *typing.Effect
	typingMsgID     string

	mode     mode
	cursor   int
	password string

	notice   string
	noticeID int

	quitting bool
}

// New builds the chat model. The store must already be loaded.
func New(opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	secret := textinput.New()
	secret.EchoMode = textinput.EchoPassword
	secret.Prompt = "> "

	ch := make(chan struct{}, 1)
	opts.Store.Subscribe(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})

	m := &Model{
		keyMap:     DefaultKeyMap(),
		store:      opts.Store,
		svc:        opts.Questions,
		catalog:    opts.Catalog,
		gate:       opts.Gate,
		exportDir:  opts.ExportDir,
		compact:    opts.Compact,
		viewport:   viewport.New(80, 20),
		input:      input,
		secret:     secret,
		spinner:    components.NewStageSpinner(),
		renderer:   components.NewMessageRenderer(80),
		updates:    ch,
		typingOpts: opts.Typing,
	}
	m.renderer.Compact = opts.Compact
	return m
}

// Init starts the store update listener and fetches opening suggestions.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		waitForStoreUpdate(m.updates),
	}
	if cmd := m.fetchDefaultQuestions(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case storeUpdatedMsg:
		cmd := m.syncFromStore()
		return m, tea.Batch(cmd, waitForStoreUpdate(m.updates))

	case sendFinishedMsg:
		return m, m.handleSendFinished(msg)

	case questionsMsg:
		if sess := m.store.Current(); sess != nil && sess.ID == msg.sessionID {
			m.questionList.Questions = msg.questions
			m.refreshViewport()
		}
		return m, nil

	case typingTickMsg:
		return m, m.handleTypingTick(msg.at)

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			return m, m.setNotice("Export failed: " + msg.err.Error())
		}
		return m, m.setNotice("Exported to " + msg.path)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	if c := m.spinner.Update(msg); c != nil {
		cmds = append(cmds, c)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE AND STORE SYNC
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.renderer.SetWidth(msg.Width)
	m.input.Width = msg.Width - 4
	m.questionList.Width = msg.Width

	// header + questions + spinner + input + status
	chrome := 2 + m.questionLines() + 1 + 1 + 1
	h := msg.Height - chrome
	if h < 3 {
		h = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = h
	m.refreshViewport()
}

// syncFromStore refreshes derived state after a store mutation.
func (m *Model) syncFromStore() tea.Cmd {
	var cmds []tea.Cmd

	sess := m.store.Current()
	last := lastMessage(sess)

	wasBusy := m.busy
	m.busy = last != nil && last.Streaming

	switch {
	case m.busy:
		m.prevStreamingID = last.ID
		if m.spinner.Active() {
			m.spinner.SetStage(last.Stage)
		} else {
			cmds = append(cmds, m.spinner.Start(last.Stage))
		}
	default:
		m.spinner.Stop()
		if wasBusy && last != nil && last.ID == m.prevStreamingID &&
			!last.IsError && last.Content != "" {
			// Reply just finalized; replay it with the typewriter.
			m.typingFx = typing.New(last.Content, m.typingOpts)
			m.typingMsgID = last.ID
			cmds = append(cmds, m.typingTick())
		}
		m.prevStreamingID = ""
	}

	m.refreshViewport()
	return tea.Batch(cmds...)
}

func (m *Model) handleSendFinished(msg sendFinishedMsg) tea.Cmd {
	if msg.err != nil {
		// The store already wrote the classified error into the
		// conversation; nothing extra to surface here.
		return nil
	}
	return m.fetchRelatedQuestions()
}

// =============================================================================
// TYPEWRITER
// =============================================================================

func (m *Model) typingTick() tea.Cmd {
	return tea.Tick(typing.TickInterval, func(t time.Time) tea.Msg {
		return typingTickMsg{at: t}
	})
}

func (m *Model) handleTypingTick(at time.Time) tea.Cmd {
	if m.typingFx == nil {
		return nil
	}
	_, done := m.typingFx.Advance(at)
	m.refreshViewport()
	if done {
		m.typingFx = nil
		m.typingMsgID = ""
		return nil
	}
	return m.typingTick()
}

func (m *Model) finishTyping() {
	if m.typingFx != nil {
		m.typingFx.Finish()
		m.typingFx = nil
		m.typingMsgID = ""
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		err := m.store.SendMessage(context.Background(), content, nil)
		return sendFinishedMsg{err: err}
	}
}

func (m *Model) retryCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.store.Retry(context.Background())
		return sendFinishedMsg{err: err}
	}
}

func (m *Model) fetchDefaultQuestions() tea.Cmd {
	sess := m.store.Current()
	if m.svc == nil || sess == nil || len(sess.Messages) > 0 {
		return nil
	}
	sessionID, localID := sess.AgentSessionID, sess.ID
	cache := &sess.Suggestions
	return func() tea.Msg {
		qs := m.svc.Default(context.Background(), cache, sessionID)
		return questionsMsg{sessionID: localID, questions: qs}
	}
}

func (m *Model) fetchRelatedQuestions() tea.Cmd {
	sess := m.store.Current()
	if m.svc == nil || sess == nil {
		return nil
	}
	userMessage := lastUserContent(sess)
	if userMessage == "" {
		return nil
	}
	sessionID, localID := sess.AgentSessionID, sess.ID
	cache := &sess.Suggestions
	return func() tea.Msg {
		qs := m.svc.Related(context.Background(), cache, sessionID, userMessage)
		return questionsMsg{sessionID: localID, questions: qs}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	sess := m.store.Current()
	if sess == nil || len(sess.Messages) == 0 {
		return m.setNotice("Nothing to export")
	}
	opts := export.DefaultOptions()
	if m.exportDir != "" {
		opts.OutputDir = m.exportDir
	}
	return func() tea.Msg {
		exp, err := export.New("markdown", opts)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path, err := export.ToFile(sess, exp, opts)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.notice = text
	m.noticeID++
	id := m.noticeID
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		m.store.Controllers().CancelAll()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeSessions:
		return m, m.handleSessionsKey(msg)
	case modeMasks:
		return m, m.handleMasksKey(msg)
	case modePassword, modeTOTP:
		return m, m.handleGateKey(msg)
	case modeSettings, modeHelp:
		if msg.String() == "esc" || msg.String() == "q" {
			m.mode = modeChat
		}
		return m, nil
	}
	return m, m.handleChatKey(msg)
}

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Abort):
		if m.busy {
			m.store.Controllers().CancelAll()
			return m.setNotice("Generation stopped")
		}
		m.finishTyping()
		m.refreshViewport()
		return nil

	case key.Matches(msg, m.keyMap.Retry):
		if m.busy {
			return nil
		}
		return m.retryCmd()

	case key.Matches(msg, m.keyMap.NewSession):
		m.store.New(m.catalog.GetOrDefault(masks.DefaultMaskID))
		m.questionList.Questions = nil
		return m.fetchDefaultQuestions()

	case key.Matches(msg, m.keyMap.NextSession):
		m.switchSession(1)
		return nil

	case key.Matches(msg, m.keyMap.PrevSession):
		m.switchSession(-1)
		return nil

	case key.Matches(msg, m.keyMap.Sessions):
		m.mode = modeSessions
		m.cursor = m.store.CurrentIndex()
		return nil

	case key.Matches(msg, m.keyMap.Masks):
		m.mode = modeMasks
		m.cursor = 0
		return nil

	case key.Matches(msg, m.keyMap.DeepThinking):
		on := m.store.ToggleDeepThinking()
		if on {
			return m.setNotice("Deep thinking on")
		}
		return m.setNotice("Deep thinking off")

	case key.Matches(msg, m.keyMap.ClearContext):
		m.store.ClearContext(context.Background())
		return m.setNotice("Context cleared")

	case key.Matches(msg, m.keyMap.Export):
		return m.exportCmd()

	case key.Matches(msg, m.keyMap.Settings):
		return m.openSettings()

	case key.Matches(msg, m.keyMap.Help):
		m.mode = modeHelp
		return nil

	case key.Matches(msg, m.keyMap.Up), key.Matches(msg, m.keyMap.Down),
		key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	// alt+1..alt+9 picks a suggested question.
	if q := m.pickQuestion(msg); q != "" {
		return m.sendText(q)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) submit() tea.Cmd {
	content := strings.TrimSpace(m.input.Value())
	if content == "" || m.busy {
		return nil
	}
	m.input.Reset()
	return m.sendText(content)
}

func (m *Model) sendText(content string) tea.Cmd {
	m.finishTyping()
	m.questionList.Questions = nil
	return m.sendCmd(content)
}

func (m *Model) pickQuestion(msg tea.KeyMsg) string {
	s := msg.String()
	if !strings.HasPrefix(s, "alt+") || len(s) != 5 {
		return ""
	}
	n := int(s[4] - '0')
	return m.questionList.Pick(n)
}

func (m *Model) switchSession(delta int) {
	m.finishTyping()
	m.store.Next(delta)
	m.questionList.Questions = nil
	m.refreshViewport()
}

// =============================================================================
// HELPERS
// =============================================================================

func lastMessage(sess *chatstore.Session) *chatstore.Message {
	if sess == nil || len(sess.Messages) == 0 {
		return nil
	}
	return sess.Messages[len(sess.Messages)-1]
}

func lastUserContent(sess *chatstore.Session) string {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Role == chatstore.RoleUser && !msg.IsError {
			return msg.Content
		}
	}
	return ""
}

func (m *Model) questionLines() int {
	if len(m.questionList.Questions) == 0 {
		return 0
	}
	return len(m.questionList.Questions) + 1
}
