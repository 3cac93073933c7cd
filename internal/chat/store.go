// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/morganforge/fishchat-tui/internal/agent"
	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/retry"
	"github.com/morganforge/fishchat-tui/internal/storage"
)

// ErrRetryHistoryMissing means a turn retry was requested but the session
// does not end with a user/assistant pair to replay. This is a local bug
// condition and is never retried.
var ErrRetryHistoryMissing = errors.New("message history too short to retry")

// Defaults carries the global chat settings applied to every new session:
// the deep-thinking flag, and the windowing values for personas that sync
// with the global config. Personas with their own tuning keep it.
type Defaults struct {
	DeepThinking        bool
	HistoryMessageCount int
	MaxTokens           int
	SendMemory          bool
}

func baseDefaults() Defaults {
	return Defaults{
		DeepThinking:        true,
		HistoryMessageCount: 8,
		MaxTokens:           4000,
		SendMemory:          true,
	}
}

// Store is the single source of truth for all sessions. Every mutation
// funnels through commit, which persists the session list and notifies
// subscribers. Sessions are addressed by id, not index, since indices
// shift on move and delete.
type Store struct {
	mu       sync.Mutex
	sessions []*Session
	current  int
	defaults Defaults

	client  *agent.Client
	pool    *agent.ControllerPool
	state   *storage.Store
	catalog *masks.Catalog
	userID  string

	// summarizer is optional; nil disables memory and title generation.
	summarizer *Summarizer

	listeners []func()
}

// NewStore creates a store bound to the agent client. state may be nil for
// an in-memory store.
func NewStore(client *agent.Client, catalog *masks.Catalog, state *storage.Store, userID string) *Store {
	s := &Store{
		defaults: baseDefaults(),
		client:   client,
		pool:     agent.NewControllerPool(),
		state:    state,
		catalog:  catalog,
		userID:   userID,
	}
	s.load()
	if len(s.sessions) == 0 {
		s.sessions = []*Session{s.newSessionLocked(catalog.GetOrDefault(masks.DefaultMaskID))}
	}
	return s
}

// WithSummarizer enables memory and title summarization.
func (s *Store) WithSummarizer(sum *Summarizer) *Store {
	s.summarizer = sum
	return s
}

// WithDefaults installs the global chat settings. Sessions that have not
// seen a message yet pick the new settings up immediately.
func (s *Store) WithDefaults(d Defaults) *Store {
	s.mu.Lock()
	s.defaults = d
	for _, sess := range s.sessions {
		if len(sess.Messages) == 0 {
			s.applyDefaultsLocked(sess)
		}
	}
	s.mu.Unlock()
	return s
}

// newSessionLocked creates a session from mask with the global defaults
// applied. Caller holds the lock or has exclusive access.
func (s *Store) newSessionLocked(mask masks.Mask) *Session {
	sess := NewSession(mask)
	s.applyDefaultsLocked(sess)
	return sess
}

func (s *Store) applyDefaultsLocked(sess *Session) {
	sess.DeepThinking = s.defaults.DeepThinking
	if sess.Mask.SyncGlobal {
		sess.Mask.Config.HistoryMessageCount = s.defaults.HistoryMessageCount
		sess.Mask.Config.MaxTokens = s.defaults.MaxTokens
		sess.Mask.Config.SendMemory = s.defaults.SendMemory
	}
}

// Subscribe registers fn to run after every committed mutation.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Controllers exposes the cancel pool so the UI can abort turns.
func (s *Store) Controllers() *agent.ControllerPool {
	return s.pool
}

// commit runs fn under the lock, then persists and notifies.
func (s *Store) commit(fn func()) {
	s.mu.Lock()
	fn()
	listeners := append([]func(){}, s.listeners...)
	s.persistLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// updateSession mutates the session with the given id, if it still exists.
func (s *Store) updateSession(id string, fn func(*Session)) {
	s.commit(func() {
		if sess := s.findLocked(id); sess != nil {
			fn(sess)
		}
	})
}

func (s *Store) findLocked(id string) *Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

type persistedState struct {
	Sessions []*Session `json:"sessions"`
	Current  int        `json:"current"`
}

// persistLocked writes the whole session list as one blob. Last write
// wins; acceptable for a single-user client.
func (s *Store) persistLocked() {
	if s.state == nil {
		return
	}
	blob, err := json.Marshal(persistedState{Sessions: s.sessions, Current: s.current})
	if err != nil {
		log.Printf("chat: marshal sessions: %v", err)
		return
	}
	if err := s.state.Set(storage.KeySessions, blob); err != nil {
		log.Printf("chat: persist sessions: %v", err)
	}
}

func (s *Store) load() {
	if s.state == nil {
		return
	}
	blob, err := s.state.Get(storage.KeySessions)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("chat: load sessions: %v", err)
		}
		return
	}
	var st persistedState
	if err := json.Unmarshal(blob, &st); err != nil {
		log.Printf("chat: corrupt session state, starting fresh: %v", err)
		return
	}
	s.sessions = st.Sessions
	s.current = st.Current
	if s.current >= len(s.sessions) {
		s.current = 0
	}
	// A restart kills any in-flight stream; do not resurrect spinners.
	for _, sess := range s.sessions {
		for _, m := range sess.Messages {
			m.Streaming = false
			m.Stage = StageNone
		}
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// Sessions returns a snapshot of the session list.
func (s *Store) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Session{}, s.sessions...)
}

// Current returns the selected session.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[s.current]
}

// CurrentIndex returns the selected position.
func (s *Store) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// New creates a session with the given persona and selects it.
func (s *Store) New(mask masks.Mask) *Session {
	var sess *Session
	s.commit(func() {
		sess = s.newSessionLocked(mask)
		s.sessions = append([]*Session{sess}, s.sessions...)
		s.current = 0
	})
	return sess
}

// Select switches the current session by index.
func (s *Store) Select(index int) {
	s.commit(func() {
		if index >= 0 && index < len(s.sessions) {
			s.current = index
		}
	})
}

// Next moves the selection by delta, wrapping around.
func (s *Store) Next(delta int) {
	s.commit(func() {
		n := len(s.sessions)
		s.current = ((s.current+delta)%n + n) % n
	})
}

// Move reorders a session from one position to another, keeping the
// selection on the same session.
func (s *Store) Move(from, to int) {
	s.commit(func() {
		n := len(s.sessions)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return
		}
		sess := s.sessions[from]
		rest := append(append([]*Session{}, s.sessions[:from]...), s.sessions[from+1:]...)
		s.sessions = append(append(append([]*Session{}, rest[:to]...), sess), rest[to:]...)

		switch {
		case s.current == from:
			s.current = to
		case s.current > from && s.current <= to:
			s.current--
		case s.current < from && s.current >= to:
			s.current++
		}
	})
}

// Delete removes a session, best-effort releasing its remote binding. The
// last session is replaced by a fresh one rather than leaving the list
// empty.
func (s *Store) Delete(ctx context.Context, index int) {
	var remoteID string
	s.commit(func() {
		if index < 0 || index >= len(s.sessions) {
			return
		}
		doomed := s.sessions[index]
		remoteID = doomed.AgentSessionID
		doomed.AgentSessionID = ""

		s.sessions = append(s.sessions[:index], s.sessions[index+1:]...)
		if index < s.current {
			s.current--
		}
		if len(s.sessions) == 0 {
			s.sessions = []*Session{s.newSessionLocked(s.catalog.GetOrDefault(masks.DefaultMaskID))}
			s.current = 0
		}
		if s.current >= len(s.sessions) {
			s.current = len(s.sessions) - 1
		}
	})

	if remoteID != "" {
		go s.client.RemoveSession(ctx, remoteID)
	}
}

// Fork duplicates the current session and selects the copy.
func (s *Store) Fork() *Session {
	var forked *Session
	s.commit(func() {
		forked = s.sessions[s.current].Fork()
		s.sessions = append([]*Session{forked}, s.sessions...)
		s.current = 0
	})
	return forked
}

// ClearContext moves the current session's clear watermark and notifies
// the backend to drop its server-side history.
func (s *Store) ClearContext(ctx context.Context) {
	var remoteID string
	s.commit(func() {
		sess := s.sessions[s.current]
		sess.ClearContext()
		remoteID = sess.AgentSessionID
	})
	if remoteID != "" {
		go s.client.ClearSession(ctx, remoteID)
	}
}

// ToggleDeepThinking flips the flag on the current session and reports the
// new value.
func (s *Store) ToggleDeepThinking() bool {
	var on bool
	s.commit(func() {
		sess := s.sessions[s.current]
		sess.DeepThinking = !sess.DeepThinking
		on = sess.DeepThinking
	})
	return on
}

// ClearAll drops every session and starts over with one empty session.
func (s *Store) ClearAll() {
	s.commit(func() {
		s.sessions = []*Session{s.newSessionLocked(s.catalog.GetOrDefault(masks.DefaultMaskID))}
		s.current = 0
	})
}

// =============================================================================
// TURN FLOW
// =============================================================================

// SendMessage runs one full chat turn on the current session: it appends
// the user message and a streaming assistant placeholder, then drives the
// agent call under smart retry. The returned error is only for local bug
// conditions; network failures are absorbed and written into the message
// pair as an error classification.
func (s *Store) SendMessage(ctx context.Context, content string, filePaths []string) error {
	sess := s.Current()
	return s.callAgent(ctx, sess, content, filePaths, false)
}

// Retry replays the last turn of the current session after a failure.
func (s *Store) Retry(ctx context.Context) error {
	sess := s.Current()
	var content string
	s.mu.Lock()
	if n := len(sess.Messages); n >= 2 && sess.Messages[n-2].Role == RoleUser {
		content = sess.Messages[n-2].Content
	}
	s.mu.Unlock()
	if content == "" {
		return ErrRetryHistoryMissing
	}
	return s.callAgent(ctx, sess, content, nil, true)
}

// callAgent wraps one turn in the smart retry policy. isRetry replays the
// existing trailing message pair instead of appending a new one.
func (s *Store) callAgent(ctx context.Context, sess *Session, content string, filePaths []string, isRetry bool) error {
	var userMsg, botMsg *Message

	if !isRetry {
		userMsg = NewMessage(RoleUser, content)
		botMsg = NewMessage(RoleAssistant, "")
		botMsg.Streaming = true
		botMsg.Stage = StageConnecting
		s.updateSession(sess.ID, func(sess *Session) {
			sess.Messages = append(sess.Messages, userMsg, botMsg)
		})
	} else {
		s.mu.Lock()
		n := len(sess.Messages)
		if n < 2 {
			s.mu.Unlock()
			return ErrRetryHistoryMissing
		}
		userMsg = sess.Messages[n-2]
		botMsg = sess.Messages[n-1]
		s.mu.Unlock()
		if userMsg.Role != RoleUser || botMsg.Role != RoleAssistant {
			return ErrRetryHistoryMissing
		}
		s.updateSession(sess.ID, func(*Session) {
			botMsg.Streaming = true
			botMsg.IsError = false
			botMsg.Content = "Reconnecting..."
			botMsg.Stage = StageConnecting
			userMsg.IsError = false
		})
	}

	policy := retry.Network
	policy.OnRetry = func(attempt int, err error) {
		log.Printf("chat: retry %d: %v", attempt, err)
		s.updateSession(sess.ID, func(*Session) {
			botMsg.Stage = StageConnecting
			botMsg.Content = fmt.Sprintf("Connection unstable, retrying (%d/%d)...", attempt, retry.Network.MaxRetries)
		})
	}

	result := retry.Smart(ctx, func(ctx context.Context) error {
		return s.performCall(ctx, sess, userMsg, botMsg, content, filePaths, isRetry)
	}, policy)

	if !result.Success {
		s.finalizeError(result.Err, sess, userMsg, botMsg)
	}
	return nil
}

// performCall is one attempt: ensure a remote session, POST the chat, and
// consume the stream. Errors bubble to the retry layer; the 404 path
// recurses once into a fresh turn with isRetry=true.
func (s *Store) performCall(ctx context.Context, sess *Session, userMsg, botMsg *Message, content string, filePaths []string, isRetry bool) error {
	ctx, cancel, key := s.pool.Add(ctx, sess.ID, botMsg.ID)
	defer func() {
		s.pool.Remove(key)
		cancel()
	}()

	s.updateSession(sess.ID, func(*Session) {
		botMsg.Stage = StageProcessing
	})

	s.mu.Lock()
	cachedID := sess.AgentSessionID
	deepThinking := sess.DeepThinking
	agentKey := s.sessionKey(sess)
	s.mu.Unlock()

	remoteID, err := s.client.EnsureSession(ctx, agentKey, cachedID, isRetry)
	if err != nil {
		return err
	}
	s.updateSession(sess.ID, func(sess *Session) {
		sess.AgentSessionID = remoteID
	})

	stream, err := s.client.OpenChat(ctx, agent.ChatRequest{
		SessionID:    remoteID,
		Message:      content,
		FilePaths:    filePaths,
		DeepThinking: deepThinking,
	})
	if err != nil {
		if agent.IsSessionNotFound(err) {
			// The session vanished between validation and use.
			s.updateSession(sess.ID, func(sess *Session) {
				sess.AgentSessionID = ""
			})
			if !isRetry {
				log.Printf("chat: remote session gone, re-initializing")
				return s.callAgent(ctx, sess, content, filePaths, true)
			}
			return agent.ErrSessionExpired
		}
		return err
	}

	s.updateSession(sess.ID, func(*Session) {
		botMsg.Stage = StageGenerating
	})
	return s.consumeStream(ctx, stream, sess, botMsg)
}

func (s *Store) sessionKey(sess *Session) agent.SessionKey {
	return agent.SessionKey{
		UserID:      s.userID,
		MaskID:      sess.Mask.ID,
		AgentType:   sess.Mask.AgentType,
		SessionUUID: sess.SessionUUID,
	}
}

// consumeStream drives the event loop of one streamed response. Abort
// preserves whatever was rendered and finalizes without error; stream
// errors bubble to the retry layer.
func (s *Store) consumeStream(ctx context.Context, stream *agent.StreamReader, sess *Session, botMsg *Message) error {
	defer stream.Close()

	turn := &turnState{}
	s.updateSession(sess.ID, func(*Session) {
		botMsg.Streaming = true
		botMsg.Content = ""
		botMsg.IsError = false
	})

	for {
		if ctx.Err() != nil {
			// User cancel: keep the partial content exactly as rendered.
			s.finalizeAborted(sess, botMsg)
			return nil
		}

		ev, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				s.finalizeAborted(sess, botMsg)
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}

		switch ev.Type {
		case agent.EventChunk:
			if ev.Content == "" {
				continue
			}
			turn.applyChunk(ev)
			s.updateSession(sess.ID, func(*Session) {
				botMsg.Stage = turn.stage(ev.IsThinking)
				botMsg.Content = turn.composeChunk(ev.IsThinking)
			})
		case agent.EventToolStatus:
			turn.applyToolStatus(ev)
			s.updateSession(sess.ID, func(*Session) {
				botMsg.Stage = turn.stage(false)
				botMsg.Content = turn.composeToolStatus()
			})
		case agent.EventComplete, agent.EventDone:
			s.finalizeSuccess(sess, botMsg, turn)
			return nil
		case agent.EventError:
			msg := ev.Error
			if msg == "" {
				msg = "stream error"
			}
			return errors.New(msg)
		}
	}

	// Stream closed without a terminal event; treat as complete.
	s.finalizeSuccess(sess, botMsg, turn)
	return nil
}

// =============================================================================
// FINALIZATION
// =============================================================================

func (s *Store) finalizeSuccess(sess *Session, botMsg *Message, turn *turnState) {
	final := turn.composeFinal()
	s.updateSession(sess.ID, func(sess *Session) {
		botMsg.Streaming = false
		botMsg.Content = final
		botMsg.Date = time.Now()
		botMsg.IsError = false
		botMsg.Stage = StageNone
		sess.LastUpdate = time.Now()
		sess.Stat.CharCount += len([]rune(final))
		sess.Stat.MessageCount++
	})

	if s.summarizer != nil {
		go s.summarizer.MaybeSummarize(context.Background(), s, sess.ID)
	}
}

func (s *Store) finalizeAborted(sess *Session, botMsg *Message) {
	s.updateSession(sess.ID, func(sess *Session) {
		botMsg.Streaming = false
		botMsg.Date = time.Now()
		botMsg.IsError = false
		botMsg.Stage = StageNone
		sess.LastUpdate = time.Now()
	})
}

// finalizeError writes the user-facing failure classification into the
// assistant message and flags both messages so context windowing skips
// them.
func (s *Store) finalizeError(err error, sess *Session, userMsg, botMsg *Message) {
	log.Printf("chat: turn failed: %v", err)
	s.updateSession(sess.ID, func(sess *Session) {
		botMsg.Streaming = false
		botMsg.Stage = StageError
		botMsg.Content = ClassifyError(err)
		botMsg.IsError = true
		userMsg.IsError = true
		sess.LastUpdate = time.Now()
	})
}
