// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/morganforge/fishchat-tui/internal/agent"
	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/storage"
)

// fakeAgent is a scripted agent service backend.
type fakeAgent struct {
	mu         sync.Mutex
	initCalls  int
	chatCalls  int
	sessionSeq int

	// chatHandler decides each chat call's outcome; nil streams a plain
	// reply.
	chatHandler func(call int, w http.ResponseWriter, body agent.ChatRequest)
}

func (f *fakeAgent) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/flask/agent/init", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.initCalls++
		f.sessionSeq++
		id := fmt.Sprintf("remote-%d", f.sessionSeq)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"session_id": id})
	})
	mux.HandleFunc("/flask/agent/session/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "exists": true})
	})
	mux.HandleFunc("/flask/agent/chat", func(w http.ResponseWriter, r *http.Request) {
		var body agent.ChatRequest
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.chatCalls++
		call := f.chatCalls
		handler := f.chatHandler
		f.mu.Unlock()

		if handler != nil {
			handler(call, w, body)
			return
		}
		streamReply(w, "Hello there!")
	})
	mux.HandleFunc("/flask/agent/clear/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/flask/agent/remove/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	return mux
}

func streamReply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprintf(w, "data: {\"type\":\"chunk\",\"content\":%q}\n", text)
	fmt.Fprint(w, `data: {"type":"complete"}`+"\n")
	fmt.Fprint(w, `data: {"type":"done"}`+"\n")
}

func newTestStore(t *testing.T, fa *fakeAgent) (*Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fa.handler())
	t.Cleanup(srv.Close)

	catalog, err := masks.NewCatalog(filepath.Join(t.TempDir(), "masks"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	client := agent.NewClient(srv.URL)
	return NewStore(client, catalog, nil, "user_test"), srv
}

func lastPair(t *testing.T, sess *Session) (*Message, *Message) {
	t.Helper()
	n := len(sess.Messages)
	if n < 2 {
		t.Fatalf("message count = %d, want at least 2", n)
	}
	return sess.Messages[n-2], sess.Messages[n-1]
}

func TestTurnInitThenChat(t *testing.T) {
	fa := &fakeAgent{}
	store, _ := newTestStore(t, fa)

	if err := store.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if fa.initCalls != 1 {
		t.Errorf("init calls = %d, want 1", fa.initCalls)
	}
	if fa.chatCalls != 1 {
		t.Errorf("chat calls = %d, want 1", fa.chatCalls)
	}

	sess := store.Current()
	userMsg, botMsg := lastPair(t, sess)
	if userMsg.Content != "hello" || userMsg.IsError {
		t.Errorf("user message = %+v", userMsg)
	}
	if botMsg.IsError || botMsg.Streaming {
		t.Errorf("bot message = %+v, want finalized success", botMsg)
	}
	if !strings.Contains(botMsg.Content, "Hello there!") {
		t.Errorf("bot content = %q", botMsg.Content)
	}
	if sess.AgentSessionID != "remote-1" {
		t.Errorf("remote id = %q, want remote-1", sess.AgentSessionID)
	}
}

func TestTurn404ReInitsOnce(t *testing.T) {
	fa := &fakeAgent{}
	fa.chatHandler = func(call int, w http.ResponseWriter, body agent.ChatRequest) {
		if call == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if body.SessionID == "remote-1" {
			// The second chat must carry the fresh id, not the stale one.
			w.WriteHeader(http.StatusNotFound)
			return
		}
		streamReply(w, "recovered reply")
	}
	store, _ := newTestStore(t, fa)

	if err := store.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if fa.initCalls != 2 {
		t.Errorf("init calls = %d, want re-init after 404", fa.initCalls)
	}
	if fa.chatCalls != 2 {
		t.Errorf("chat calls = %d, want exactly one automatic retry", fa.chatCalls)
	}

	_, botMsg := lastPair(t, store.Current())
	if botMsg.IsError {
		t.Errorf("bot message errored: %q, the retry must be silent", botMsg.Content)
	}
	if !strings.Contains(botMsg.Content, "recovered reply") {
		t.Errorf("bot content = %q", botMsg.Content)
	}
	if got := store.Current().AgentSessionID; got != "remote-2" {
		t.Errorf("remote id = %q, want the fresh session", got)
	}
}

func TestTurnSecond404SurfacesSessionExpired(t *testing.T) {
	fa := &fakeAgent{}
	fa.chatHandler = func(call int, w http.ResponseWriter, body agent.ChatRequest) {
		w.WriteHeader(http.StatusNotFound)
	}
	store, _ := newTestStore(t, fa)

	if err := store.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	userMsg, botMsg := lastPair(t, store.Current())
	if !botMsg.IsError || !userMsg.IsError {
		t.Error("both messages should be flagged errored")
	}
	if !strings.Contains(botMsg.Content, "Session expired") {
		t.Errorf("content = %q, want session expired classification", botMsg.Content)
	}
	if store.Current().AgentSessionID != "" {
		t.Error("remote id should stay cleared after a failed turn")
	}
}

func TestTurnNetworkFailureClassification(t *testing.T) {
	fa := &fakeAgent{}
	// Every chat call drops the connection mid-handshake, the shape of a
	// flaky network rather than an HTTP-level failure.
	fa.chatHandler = func(call int, w http.ResponseWriter, body agent.ChatRequest) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("test server does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		conn.Close()
	}
	store, _ := newTestStore(t, fa)

	if err := store.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	userMsg, botMsg := lastPair(t, store.Current())
	if !botMsg.IsError || !userMsg.IsError {
		t.Error("both messages should be flagged errored")
	}
	if !strings.Contains(botMsg.Content, "Network connection failed") {
		t.Errorf("content = %q, want network failure classification", botMsg.Content)
	}

	// Errored pairs are excluded from future context windows.
	for _, m := range store.Current().ContextWindow() {
		if m.Content == "hello" {
			t.Error("errored user message leaked into the context window")
		}
	}
}

func TestTurnToolBannerScenario(t *testing.T) {
	fa := &fakeAgent{}
	fa.chatHandler = func(call int, w http.ResponseWriter, body agent.ChatRequest) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"tool_status","tool_status":"calling","tool_name":"search"}`+"\n")
		fmt.Fprint(w, `data: {"type":"chunk","content":"The capital is Paris."}`+"\n")
		fmt.Fprint(w, `data: {"type":"tool_status","tool_status":"success","tool_name":"search"}`+"\n")
		fmt.Fprint(w, `data: {"type":"complete"}`+"\n")
	}
	store, _ := newTestStore(t, fa)

	if err := store.SendMessage(context.Background(), "capital of France?", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	_, botMsg := lastPair(t, store.Current())
	if !strings.Contains(botMsg.Content, "Tools succeeded: search") {
		t.Errorf("content = %q, want succeeded banner", botMsg.Content)
	}
	if strings.Contains(botMsg.Content, "Calling tools") {
		t.Errorf("content = %q, calling banner must not survive finalization", botMsg.Content)
	}
	if !strings.Contains(botMsg.Content, "The capital is Paris.") {
		t.Errorf("content = %q, want full answer", botMsg.Content)
	}
}

func TestTurnAbortPreservesPartialContent(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeAgent{}
	fa.chatHandler = func(call int, w http.ResponseWriter, body agent.ChatRequest) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"chunk","content":"partial answer"}`+"\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}
	store, _ := newTestStore(t, fa)
	defer close(release)

	done := make(chan struct{})
	go func() {
		store.SendMessage(context.Background(), "hello", nil)
		close(done)
	}()

	// Wait until the partial chunk has rendered, then abort.
	readBotContent := func() string {
		store.mu.Lock()
		defer store.mu.Unlock()
		sess := store.sessions[store.current]
		if n := len(sess.Messages); n >= 2 {
			return sess.Messages[n-1].Content
		}
		return ""
	}
	deadline := time.After(5 * time.Second)
	for {
		if strings.Contains(readBotContent(), "partial answer") {
			break
		}
		select {
		case <-deadline:
			t.Fatal("partial content never rendered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	store.Controllers().CancelAll()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("turn did not finish after abort")
	}

	_, botMsg := lastPair(t, store.Current())
	if botMsg.Streaming {
		t.Error("aborted message still streaming")
	}
	if botMsg.IsError {
		t.Error("abort is not an error")
	}
	if !strings.Contains(botMsg.Content, "partial answer") {
		t.Errorf("content = %q, partial content must be preserved verbatim", botMsg.Content)
	}
}

func TestSessionOperations(t *testing.T) {
	fa := &fakeAgent{}
	store, _ := newTestStore(t, fa)

	first := store.Current()
	second := store.New(masks.Builtins()[0])
	if store.Current().ID != second.ID {
		t.Error("New should select the new session")
	}

	store.Select(1)
	if store.Current().ID != first.ID {
		t.Error("Select by index failed")
	}

	store.Move(1, 0)
	if store.Current().ID != first.ID {
		t.Error("Move should keep the selection on the same session")
	}
	if store.Sessions()[0].ID != first.ID {
		t.Error("Move did not reorder")
	}

	store.Delete(context.Background(), 0)
	if len(store.Sessions()) != 1 || store.Current().ID != second.ID {
		t.Error("Delete should fall back to the remaining session")
	}

	// Deleting the last session leaves a fresh empty one.
	store.Delete(context.Background(), 0)
	if len(store.Sessions()) != 1 {
		t.Fatal("store must never be empty")
	}
	if store.Current().ID == second.ID {
		t.Error("last delete should have created a fresh session")
	}
}

func TestWithDefaultsSeedsNewSessions(t *testing.T) {
	store, _ := newTestStore(t, &fakeAgent{})

	store.WithDefaults(Defaults{
		DeepThinking:        false,
		HistoryMessageCount: 4,
		MaxTokens:           1200,
		SendMemory:          false,
	})

	// The seed session has no messages yet, so it picks the settings up.
	cur := store.Current()
	if cur.DeepThinking {
		t.Error("seed session should follow the configured deep-thinking default")
	}
	if got := cur.Mask.Config.HistoryMessageCount; got != 4 {
		t.Errorf("seed session history window = %d, want 4", got)
	}

	var def, ticket masks.Mask
	for _, m := range masks.Builtins() {
		switch m.ID {
		case masks.DefaultMaskID:
			def = m
		case "ticket":
			ticket = m
		}
	}

	synced := store.New(def)
	if synced.Mask.Config.MaxTokens != 1200 || synced.Mask.Config.HistoryMessageCount != 4 {
		t.Errorf("syncing persona config = %+v, want global settings", synced.Mask.Config)
	}
	if synced.Mask.Config.SendMemory {
		t.Error("syncing persona should take the global send-memory setting")
	}

	curated := store.New(ticket)
	if curated.Mask.Config.HistoryMessageCount != 16 {
		t.Errorf("curated persona history window = %d, want its own 16",
			curated.Mask.Config.HistoryMessageCount)
	}
	if curated.DeepThinking {
		t.Error("the deep-thinking default applies to every persona")
	}

	// Sessions that already hold messages keep their settings.
	synced.Messages = append(synced.Messages, NewMessage(RoleUser, "hi"))
	store.WithDefaults(Defaults{DeepThinking: true, HistoryMessageCount: 9, MaxTokens: 900, SendMemory: true})
	if synced.Mask.Config.HistoryMessageCount != 4 {
		t.Error("in-use sessions must keep their window settings")
	}
}

func TestForkCopiesConversation(t *testing.T) {
	fa := &fakeAgent{}
	store, _ := newTestStore(t, fa)

	if err := store.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	orig := store.Current()
	forked := store.Fork()

	if forked.ID == orig.ID {
		t.Error("fork must have its own id")
	}
	if forked.AgentSessionID != "" {
		t.Error("fork must not inherit the remote binding")
	}
	if len(forked.Messages) != len(orig.Messages) {
		t.Errorf("fork messages = %d, want %d", len(forked.Messages), len(orig.Messages))
	}
	forked.Messages[0].Content = "mutated"
	if orig.Messages[0].Content == "mutated" {
		t.Error("fork shares message memory with the original")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	fa := &fakeAgent{}
	srv := httptest.NewServer(fa.handler())
	defer srv.Close()

	catalog, err := masks.NewCatalog(filepath.Join(t.TempDir(), "masks"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "state.db")
	state, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("open state: %v", err)
	}

	client := agent.NewClient(srv.URL)
	store := NewStore(client, catalog, state, "user_test")
	if err := store.SendMessage(context.Background(), "remember me", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	sessID := store.Current().ID
	state.Close()

	state, err = storage.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen state: %v", err)
	}
	defer state.Close()

	store2 := NewStore(client, catalog, state, "user_test")
	if store2.Current().ID != sessID {
		t.Error("session did not survive restart")
	}
	userMsg, botMsg := lastPair(t, store2.Current())
	if userMsg.Content != "remember me" {
		t.Errorf("user content = %q", userMsg.Content)
	}
	if botMsg.Streaming || botMsg.Stage != StageNone {
		t.Error("reloaded messages must not resurrect streaming state")
	}
}

func TestSubscribeNotifiedOnMutation(t *testing.T) {
	fa := &fakeAgent{}
	store, _ := newTestStore(t, fa)

	var mu sync.Mutex
	notified := 0
	store.Subscribe(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	store.New(masks.Builtins()[0])
	mu.Lock()
	defer mu.Unlock()
	if notified == 0 {
		t.Error("subscriber not notified")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{agent.ErrSessionExpired, msgSessionExpired},
		{agent.ErrInitFailed, msgInitFailed},
		{&agent.APIError{Op: "chat", Status: 500}, msgServerBusy},
		{&agent.APIError{Op: "chat", Status: 400}, msgConnection},
		{fmt.Errorf("dial tcp: connection refused"), msgNetworkFailed},
		{fmt.Errorf("request timeout"), msgNetworkFailed},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	got := ClassifyError(fmt.Errorf("something odd happened"))
	if !strings.Contains(got, "something odd happened") {
		t.Errorf("unknown errors should carry their message, got %q", got)
	}
}
