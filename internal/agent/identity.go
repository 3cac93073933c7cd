// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/morganforge/fishchat-tui/internal/storage"
)

// EnsureUserID returns the stable per-install user id, generating and
// persisting one on first use. The id survives restarts so the backend can
// associate sessions with the same client.
func EnsureUserID(store *storage.Store) (string, error) {
	id, err := store.GetString(storage.KeyUserID)
	if err == nil && strings.HasPrefix(id, "user_") {
		return id, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("load user id: %w", err)
	}

	id = "user_" + uuid.NewString()
	if err := store.SetString(storage.KeyUserID, id); err != nil {
		return "", fmt.Errorf("persist user id: %w", err)
	}
	return id, nil
}

// NewSessionUUID mints the client-side uuid that identifies a chat session
// across init and recovery calls.
func NewSessionUUID() string {
	return uuid.NewString()
}
