// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared command context for the fishchat CLI.
package cli

import (
	"github.com/morganforge/fishchat-tui/internal/admin"
	"github.com/morganforge/fishchat-tui/internal/agent"
	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/config"
	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/questions"
	"github.com/morganforge/fishchat-tui/internal/storage"
)

// App bundles the wired services every command works against.
type App struct {
	Config    *config.Config
	State     *storage.Store
	Client    *agent.Client
	Catalog   *masks.Catalog
	Store     *chat.Store
	Questions *questions.Service
	Gate      *admin.Gate
	UserID    string
}
