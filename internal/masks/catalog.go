// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package masks

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce groups rapid editor save events into one reload.
const reloadDebounce = 200 * time.Millisecond

// Catalog holds the merged set of builtin and user masks. User masks with
// a builtin's id shadow the builtin.
type Catalog struct {
	mu       sync.RWMutex
	dir      string
	masks    map[string]Mask
	watcher  *fsnotify.Watcher
	onReload func()
	done     chan struct{}
}

// NewCatalog loads builtins plus any user masks found in dir. A missing
// directory is fine; it is only masks to load, not a requirement.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{dir: dir, masks: make(map[string]Mask)}
	c.reload()
	return c, nil
}

// DefaultDir is the user mask directory under the config root.
func DefaultDir(configDir string) string {
	return filepath.Join(configDir, "masks")
}

// Get returns the mask with the given id.
func (c *Catalog) Get(id string) (Mask, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.masks[id]
	return m, ok
}

// GetOrDefault returns the mask with the given id, falling back to the
// default persona.
func (c *Catalog) GetOrDefault(id string) Mask {
	if m, ok := c.Get(id); ok {
		return m
	}
	m, _ := c.Get(DefaultMaskID)
	return m
}

// List returns all masks sorted by name, builtins first.
func (c *Catalog) List() []Mask {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Mask, 0, len(c.masks))
	for _, m := range c.masks {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Builtin != out[j].Builtin {
			return out[i].Builtin
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// OnReload registers a callback fired after each live reload.
func (c *Catalog) OnReload(fn func()) {
	c.mu.Lock()
	c.onReload = fn
	c.mu.Unlock()
}

// reload rebuilds the merged mask set from builtins and the user dir.
func (c *Catalog) reload() {
	merged := make(map[string]Mask)
	for _, m := range Builtins() {
		merged[m.ID] = m
	}

	entries, err := os.ReadDir(c.dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
				continue
			}
			path := filepath.Join(c.dir, entry.Name())
			m, err := loadMaskFile(path)
			if err != nil {
				log.Printf("masks: skipping %s: %v", entry.Name(), err)
				continue
			}
			merged[m.ID] = m
		}
	}

	c.mu.Lock()
	c.masks = merged
	fn := c.onReload
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// loadMaskFile parses one user mask. The file name (sans extension)
// becomes the id when the file does not set one.
func loadMaskFile(path string) (Mask, error) {
	var m Mask
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Mask{}, fmt.Errorf("parse mask: %w", err)
	}
	if m.ID == "" {
		m.ID = strings.TrimSuffix(filepath.Base(path), ".toml")
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	if m.AgentType == "" {
		m.AgentType = "general"
	}
	if m.Config == (ModelConfig{}) {
		m.Config = defaultModelConfig()
		m.SyncGlobal = true
	}
	m.Builtin = false
	return m, nil
}

// Watch starts live reloading of the user mask directory. Edits are
// debounced so an editor's save dance triggers one reload.
func (c *Catalog) Watch() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create mask dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch mask dir: %w", err)
	}

	c.watcher = watcher
	c.done = make(chan struct{})
	go c.processEvents()
	return nil
}

func (c *Catalog) processEvents() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".toml") {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("masks: watcher error: %v", err)
		case <-timerC:
			timer = nil
			timerC = nil
			c.reload()
		}
	}
}

// Close stops the watcher, if running.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	close(c.done)
	return c.watcher.Close()
}
