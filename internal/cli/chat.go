// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode REPL with input history.
//
// This is the fallback surface for terminals where the full-screen TUI is
// unwanted. It drives the same session store, so conversations started here
// show up in the TUI and vice versa.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/config"
	"github.com/morganforge/fishchat-tui/internal/export"
	"github.com/morganforge/fishchat-tui/internal/masks"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &replInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *replInput) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *replInput) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL LOOP
// =============================================================================

// RunChat starts the interactive line-mode chat.
func RunChat(app *App, args *Args) error {
	if args.Mask != "default" {
		mask, ok := app.Catalog.Get(args.Mask)
		if !ok {
			return fmt.Errorf("chat: unknown persona %q", args.Mask)
		}
		app.Store.New(mask)
	}

	input := newReplInput()
	defer input.close()

	// Ctrl+C during generation cancels the turn, not the REPL.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			app.Store.Controllers().CancelAll()
		}
	}()

	if !args.Quiet {
		sess := app.Store.Current()
		fmt.Printf("fishchat %s - persona %s. Type /help for commands, /exit to quit.\n",
			Version, sess.Mask.Name)
	}

	for {
		line, err := input.read("fishchat> ")
		if err != nil {
			// Ctrl+C at the prompt or EOF ends the REPL.
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleSlashCommand(app, args, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		runTurn(app, args, line)
	}
}

func runTurn(app *App, args *Args, content string) {
	ctx := context.Background()
	if err := app.Store.SendMessage(ctx, content, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	printLastReply(app, args)
}

func printLastReply(app *App, args *Args) {
	sess := app.Store.Current()
	if len(sess.Messages) == 0 {
		return
	}
	reply := sess.Messages[len(sess.Messages)-1]
	if reply.IsError {
		fmt.Fprintln(os.Stderr, reply.Content)
		return
	}
	printReply(context.Background(), reply, args)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const slashHelp = `Commands:
  /new [persona]   Start a new session
  /masks           List available personas
  /sessions        List stored sessions
  /select <n>      Switch to session n
  /deep            Toggle deep thinking
  /retry           Retry the last failed message
  /clear           Clear conversation context
  /export [fmt]    Export conversation (markdown or json)
  /questions       Show suggested questions
  /help            Show this help
  /exit            Quit`

func handleSlashCommand(app *App, args *Args, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Println(slashHelp)

	case "/new":
		id := masks.DefaultMaskID
		if len(rest) > 0 {
			id = rest[0]
		}
		mask, ok := app.Catalog.Get(id)
		if !ok {
			return false, fmt.Errorf("unknown persona %q", id)
		}
		app.Store.New(mask)
		fmt.Printf("New session with %s.\n", mask.Name)

	case "/masks":
		for _, mask := range app.Catalog.List() {
			fmt.Printf("  %-14s %s\n", mask.ID, mask.Name)
		}

	case "/sessions":
		for i, sess := range app.Store.Sessions() {
			marker := " "
			if i == app.Store.CurrentIndex() {
				marker = "*"
			}
			fmt.Printf("%s %2d  %-30s %d messages\n", marker, i, sess.Topic, len(sess.Messages))
		}

	case "/select":
		if len(rest) == 0 {
			return false, fmt.Errorf("usage: /select <n>")
		}
		n, convErr := strconv.Atoi(rest[0])
		if convErr != nil {
			return false, fmt.Errorf("usage: /select <n>")
		}
		app.Store.Select(n)
		fmt.Printf("Switched to %s.\n", app.Store.Current().Topic)

	case "/deep":
		if app.Store.ToggleDeepThinking() {
			fmt.Println("Deep thinking on.")
		} else {
			fmt.Println("Deep thinking off.")
		}

	case "/retry":
		if retryErr := app.Store.Retry(context.Background()); retryErr != nil {
			return false, retryErr
		}
		printLastReply(app, args)

	case "/clear":
		app.Store.ClearContext(context.Background())
		fmt.Println("Context cleared.")

	case "/export":
		format := "markdown"
		if len(rest) > 0 {
			format = rest[0]
		}
		opts := export.DefaultOptions()
		exp, expErr := export.New(format, opts)
		if expErr != nil {
			return false, expErr
		}
		path, expErr := export.ToFile(app.Store.Current(), exp, opts)
		if expErr != nil {
			return false, expErr
		}
		fmt.Printf("Exported to %s\n", path)

	case "/questions":
		showQuestions(app)

	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, nil
}

func showQuestions(app *App) {
	if app.Questions == nil {
		fmt.Println("Suggestions are disabled.")
		return
	}
	sess := app.Store.Current()
	userMessage := ""
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == chat.RoleUser && !sess.Messages[i].IsError {
			userMessage = sess.Messages[i].Content
			break
		}
	}

	ctx := context.Background()
	qs := app.Questions.Default(ctx, &sess.Suggestions, sess.AgentSessionID)
	if userMessage != "" {
		qs = app.Questions.Related(ctx, &sess.Suggestions, sess.AgentSessionID, userMessage)
	}
	for i, q := range qs {
		fmt.Printf("  %d. %s\n", i+1, q.Text)
	}
}
