// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"sync"
)

// ControllerPool tracks the cancel function of every in-flight chat turn,
// keyed by session and message, so the UI can abort a single stream or
// everything at once.
type ControllerPool struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewControllerPool creates an empty pool.
func NewControllerPool() *ControllerPool {
	return &ControllerPool{cancels: make(map[string]context.CancelFunc)}
}

// Key builds the pool key for a session/message pair.
func (p *ControllerPool) Key(sessionID, messageID string) string {
	return sessionID + "," + messageID
}

// Add derives a cancellable context from parent and registers its cancel
// under the session/message key. The caller owns the returned cancel and
// must call it once the turn finishes, after Remove, so the derived
// context is released even when the turn ends normally. Re-registering a
// key replaces the handle without cancelling the old one; a retry attempt
// derives its context from the previous attempt's, so cancelling the old
// handle would kill the new attempt too.
func (p *ControllerPool) Add(parent context.Context, sessionID, messageID string) (context.Context, context.CancelFunc, string) {
	ctx, cancel := context.WithCancel(parent)
	key := p.Key(sessionID, messageID)

	p.mu.Lock()
	p.cancels[key] = cancel
	p.mu.Unlock()

	return ctx, cancel, key
}

// Cancel aborts the turn registered under key, if any.
func (p *ControllerPool) Cancel(key string) {
	p.mu.Lock()
	cancel, ok := p.cancels[key]
	delete(p.cancels, key)
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll aborts every in-flight turn.
func (p *ControllerPool) CancelAll() {
	p.mu.Lock()
	cancels := p.cancels
	p.cancels = make(map[string]context.CancelFunc)
	p.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Remove drops a finished turn without cancelling it.
func (p *ControllerPool) Remove(key string) {
	p.mu.Lock()
	delete(p.cancels, key)
	p.mu.Unlock()
}

// HasPending reports whether any turn is still registered.
func (p *ControllerPool) HasPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels) > 0
}
