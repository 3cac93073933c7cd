// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/morganforge/fishchat-tui/internal/storage"
)

func TestEnsureUserIDStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := storage.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	first, err := EnsureUserID(store)
	if err != nil {
		t.Fatalf("EnsureUserID: %v", err)
	}
	if !strings.HasPrefix(first, "user_") {
		t.Errorf("id = %q, want user_ prefix", first)
	}

	second, err := EnsureUserID(store)
	if err != nil {
		t.Fatalf("EnsureUserID: %v", err)
	}
	if second != first {
		t.Errorf("id changed across calls: %q then %q", first, second)
	}
	store.Close()

	// Survives reopen.
	store, err = storage.Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	third, err := EnsureUserID(store)
	if err != nil {
		t.Fatalf("EnsureUserID: %v", err)
	}
	if third != first {
		t.Errorf("id changed across restarts: %q then %q", first, third)
	}
}
