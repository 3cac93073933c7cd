// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package masks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinsHaveRequiredFields(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Builtins() {
		if m.ID == "" || m.Name == "" || m.AgentType == "" {
			t.Errorf("builtin %+v missing id, name, or agent type", m)
		}
		if seen[m.ID] {
			t.Errorf("duplicate builtin id %q", m.ID)
		}
		seen[m.ID] = true
		if !m.Builtin {
			t.Errorf("builtin %q not flagged builtin", m.ID)
		}
		if len(m.Context) == 0 || m.Context[0].Role != "system" {
			t.Errorf("builtin %q should open with a system message", m.ID)
		}
	}
	if !seen[DefaultMaskID] {
		t.Error("default mask missing from builtins")
	}
}

func TestCatalogMissingDirUsesBuiltins(t *testing.T) {
	c, err := NewCatalog(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if len(c.List()) != len(Builtins()) {
		t.Errorf("catalog size = %d, want builtins only", len(c.List()))
	}
}

func TestCatalogLoadsUserMasks(t *testing.T) {
	dir := t.TempDir()
	maskTOML := `
name = "Pirate"
agent_type = "general"

[[context]]
id = "pirate-0"
role = "system"
content = "You answer everything as a pirate."

[config]
history_message_count = 4
compress_threshold = 800
max_tokens = 1000
temperature = 1.0
send_memory = false
`
	if err := os.WriteFile(filepath.Join(dir, "pirate.toml"), []byte(maskTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("not [valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewCatalog(dir)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	m, ok := c.Get("pirate")
	if !ok {
		t.Fatal("user mask not loaded")
	}
	if m.Name != "Pirate" || m.Builtin {
		t.Errorf("mask = %+v, want non-builtin Pirate", m)
	}
	if m.Config.HistoryMessageCount != 4 || m.Config.SendMemory {
		t.Errorf("config = %+v, want values from file", m.Config)
	}

	// The broken file is skipped, not fatal.
	if _, ok := c.Get("broken"); ok {
		t.Error("unparseable mask should be skipped")
	}
}

func TestCatalogUserMaskShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	override := `
id = "default"
name = "My Default"
agent_type = "general"
`
	if err := os.WriteFile(filepath.Join(dir, "custom.toml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewCatalog(dir)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	m := c.GetOrDefault("default")
	if m.Name != "My Default" {
		t.Errorf("name = %q, want user override to shadow the builtin", m.Name)
	}
}

func TestGetOrDefaultFallsBack(t *testing.T) {
	c, err := NewCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	m := c.GetOrDefault("no-such-mask")
	if m.ID != DefaultMaskID {
		t.Errorf("id = %q, want fallback to default", m.ID)
	}
}

func TestUserMaskDefaults(t *testing.T) {
	dir := t.TempDir()
	minimal := `name = "Minimal"`
	if err := os.WriteFile(filepath.Join(dir, "minimal.toml"), []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewCatalog(dir)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	m, ok := c.Get("minimal")
	if !ok {
		t.Fatal("mask not loaded")
	}
	if m.AgentType != "general" {
		t.Errorf("agent type = %q, want general default", m.AgentType)
	}
	if m.Config.HistoryMessageCount == 0 {
		t.Error("empty config should pick up defaults")
	}
	if !m.SyncGlobal {
		t.Error("a mask without its own tuning should sync with the global config")
	}
}
