// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/typing"
)

// RunAsk sends a single question and prints the reply.
func RunAsk(app *App, args *Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return errors.New("ask: empty question, usage: fishchat ask <question>")
	}

	mask, ok := app.Catalog.Get(args.Mask)
	if !ok {
		return fmt.Errorf("ask: unknown persona %q, run 'fishchat sessions' to list personas", args.Mask)
	}
	app.Store.New(mask)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interruptOnSignal(cancel, app)

	if !args.Quiet && IsStdoutTTY() {
		fmt.Fprintln(os.Stderr, "Thinking...")
	}

	if err := app.Store.SendMessage(ctx, query, nil); err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	sess := app.Store.Current()
	if len(sess.Messages) == 0 {
		return errors.New("ask: no reply")
	}
	reply := sess.Messages[len(sess.Messages)-1]
	if reply.IsError {
		return errors.New(reply.Content)
	}

	printReply(ctx, reply, args)
	return nil
}

// printReply writes a finalized reply to stdout, with the typewriter effect
// on interactive terminals.
func printReply(ctx context.Context, reply *chat.Message, args *Args) {
	if args.NoType || !IsStdoutTTY() {
		fmt.Println(RenderReply(reply.Content))
		return
	}

	opts := typing.Options{BaseSpeed: typing.DefaultBaseSpeed, Adaptive: true}
	var printed int
	typing.Run(ctx, reply.Content, opts, func(visible string) {
		fmt.Print(visible[printed:])
		printed = len(visible)
	})
	fmt.Println()
}

// interruptOnSignal cancels in-flight generation on Ctrl+C.
func interruptOnSignal(cancel context.CancelFunc, app *App) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		app.Store.Controllers().CancelAll()
		cancel()
	}()
}
