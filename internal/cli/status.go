// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Agent service reachability and configuration summary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/morganforge/fishchat-tui/internal/cloud"
)

// RunStatus checks the agent backend and prints a configuration summary.
func RunStatus(app *App, args *Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	pingErr := app.Client.Ping(ctx)
	latency := time.Since(start).Round(time.Millisecond)

	summarizer := cloud.NewClient(app.Config.LLM.APIKey).
		WithBaseURL(app.Config.LLM.BaseURL).
		WithModel(app.Config.LLM.SummarizeModel)

	if args.JSON {
		out := map[string]any{
			"agent_url":       app.Config.Agent.BaseURL,
			"agent_reachable": pingErr == nil,
			"latency_ms":      latency.Milliseconds(),
			"sessions":        len(app.Store.Sessions()),
			"llm_configured":  summarizer.IsConfigured(),
			"user_id":         app.UserID,
		}
		if pingErr != nil {
			out["agent_error"] = pingErr.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Agent service:  %s\n", app.Config.Agent.BaseURL)
	if pingErr == nil {
		fmt.Printf("Reachable:      yes (%s)\n", latency)
	} else {
		fmt.Printf("Reachable:      no (%v)\n", pingErr)
	}
	fmt.Printf("Sessions:       %d stored\n", len(app.Store.Sessions()))
	fmt.Printf("Summarizer:     %s (key %s)\n",
		app.Config.LLM.SummarizeModel, summarizer.APIKeyMasked())
	fmt.Printf("User id:        %s\n", app.UserID)
	fmt.Printf("Admin gate:     %v\n", app.Gate != nil && app.Gate.Enabled())

	if pingErr != nil {
		os.Exit(1)
	}
	return nil
}
