// fishchat TUI - A terminal client for the fishchat agent service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/fishchat-tui/internal/admin"
	"github.com/morganforge/fishchat-tui/internal/agent"
	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/cli"
	"github.com/morganforge/fishchat-tui/internal/cloud"
	"github.com/morganforge/fishchat-tui/internal/config"
	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/questions"
	"github.com/morganforge/fishchat-tui/internal/storage"
	"github.com/morganforge/fishchat-tui/internal/typing"
	uichat "github.com/morganforge/fishchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.ParseArgs(os.Args[1:])

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		cli.Fatalf("load config: %v", err)
	}
	setupLogging(cfg, args, cmd == cli.CmdTUI)

	app, cleanup, err := buildApp(cfg)
	if err != nil {
		cli.Fatalf("%v", err)
	}
	defer cleanup()

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(app, cfg)
	case cli.CmdAsk:
		err = cli.RunAsk(app, args)
	case cli.CmdChat:
		err = cli.RunChat(app, args)
	case cli.CmdSessions:
		err = cli.RunSessions(app, args)
	case cli.CmdConfig:
		err = cli.RunConfig(app, args)
	case cli.CmdStatus:
		err = cli.RunStatus(app, args)
	}
	if err != nil {
		cli.Fatalf("%v", err)
	}
}

// setupLogging routes the standard logger to the debug log file. The TUI
// owns the terminal, so its log lines never reach stderr.
func setupLogging(cfg *config.Config, args *cli.Args, tui bool) {
	if path, err := cfg.Logging.LogFile(); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			switch {
			case tui || args.Quiet:
				log.SetOutput(f)
			case args.Verbose:
				log.SetOutput(io.MultiWriter(os.Stderr, f))
			default:
				log.SetOutput(f)
			}
			return
		}
	}
	if !args.Verbose {
		log.SetOutput(io.Discard)
	}
}

// buildApp wires the full service graph from configuration.
func buildApp(cfg *config.Config) (*cli.App, func(), error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, fmt.Errorf("config dir: %w", err)
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}

	state, err := storage.Open(filepath.Join(configDir, "state.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open state: %w", err)
	}

	userID, err := agent.EnsureUserID(state)
	if err != nil {
		state.Close()
		return nil, nil, fmt.Errorf("user identity: %w", err)
	}

	client := agent.NewClient(cfg.Agent.BaseURL).
		WithStatusTimeout(cfg.Agent.StatusTimeout())
	if cfg.Agent.RequestsPerSecond > 0 {
		client = client.WithRateLimit(cfg.Agent.RequestsPerSecond)
	}

	catalog, err := masks.NewCatalog(masks.DefaultDir(configDir))
	if err != nil {
		state.Close()
		return nil, nil, fmt.Errorf("load personas: %w", err)
	}
	if err := catalog.Watch(); err != nil {
		log.Printf("main: persona watcher disabled: %v", err)
	}

	store := chat.NewStore(client, catalog, state, userID).
		WithDefaults(chat.Defaults{
			DeepThinking:        cfg.Chat.DeepThinking,
			HistoryMessageCount: cfg.Chat.HistoryMessageCount,
			MaxTokens:           cfg.Chat.MaxTokens,
			SendMemory:          cfg.Chat.SendMemory,
		})

	summarizerClient := cloud.NewClient(cfg.LLM.APIKey).
		WithBaseURL(cfg.LLM.BaseURL).
		WithModel(cfg.LLM.SummarizeModel)
	if summarizerClient.IsConfigured() {
		store.WithSummarizer(chat.NewSummarizer(summarizerClient,
			cfg.Chat.AutoGenerateTitle, cfg.Chat.CompressThreshold))
	}

	var svc *questions.Service
	if cfg.Questions.Enabled {
		svc = questions.NewService(client, cfg.Questions.TTL())
	}

	app := &cli.App{
		Config:    cfg,
		State:     state,
		Client:    client,
		Catalog:   catalog,
		Store:     store,
		Questions: svc,
		Gate:      admin.NewGate(cfg.Admin.PasswordHash, cfg.Admin.TOTPSecret),
		UserID:    userID,
	}
	cleanup := func() {
		catalog.Close()
		state.Close()
	}
	return app, cleanup, nil
}

// runTUI starts the full-screen terminal interface.
func runTUI(app *cli.App, cfg *config.Config) error {
	typingOpts := typing.Options{
		BaseSpeed: float64(cfg.UI.TypingBaseSpeed),
		Adaptive:  true,
		MaxLength: typing.DefaultMaxLength,
	}

	model := uichat.New(uichat.Options{
		Store:     app.Store,
		Questions: app.Questions,
		Catalog:   app.Catalog,
		Gate:      app.Gate,
		Typing:    typingOpts,
		Compact:   cfg.UI.CompactMode,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())

	start := time.Now()
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	log.Printf("main: tui session ended after %s", time.Since(start).Round(time.Second))
	return nil
}
