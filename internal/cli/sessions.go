// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Stored conversation management.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/morganforge/fishchat-tui/internal/export"
	"github.com/morganforge/fishchat-tui/internal/util"
)

// RunSessions handles the sessions subcommands: list (default), delete,
// export, show.
func RunSessions(app *App, args *Args) error {
	switch args.Subcommand {
	case "", "list":
		return listSessions(app, args)
	case "delete":
		return deleteSession(app, args)
	case "export":
		return exportSession(app, args)
	case "show":
		return showSession(app, args)
	default:
		return fmt.Errorf("sessions: unknown subcommand %q (list, delete, export, show)", args.Subcommand)
	}
}

func listSessions(app *App, args *Args) error {
	sessions := app.Store.Sessions()
	if args.JSON {
		type row struct {
			Index    int    `json:"index"`
			Topic    string `json:"topic"`
			Persona  string `json:"persona"`
			Messages int    `json:"messages"`
			Current  bool   `json:"current"`
		}
		rows := make([]row, 0, len(sessions))
		for i, sess := range sessions {
			rows = append(rows, row{
				Index:    i,
				Topic:    sess.Topic,
				Persona:  sess.Mask.Name,
				Messages: len(sess.Messages),
				Current:  i == app.Store.CurrentIndex(),
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for i, sess := range sessions {
		marker := " "
		if i == app.Store.CurrentIndex() {
			marker = "*"
		}
		fmt.Printf("%s %2d  %-30s %-16s %d messages\n",
			marker, i, util.Preview(sess.Topic, 30), sess.Mask.Name, len(sess.Messages))
	}
	return nil
}

func deleteSession(app *App, args *Args) error {
	index, err := sessionIndexArg(args)
	if err != nil {
		return err
	}
	count := len(app.Store.Sessions())
	if index < 0 || index >= count {
		return fmt.Errorf("sessions: index %d out of range (0..%d)", index, count-1)
	}
	topic := app.Store.Sessions()[index].Topic
	app.Store.Delete(context.Background(), index)
	fmt.Printf("Deleted %q.\n", topic)
	return nil
}

func exportSession(app *App, args *Args) error {
	format := "markdown"
	if args.JSON {
		format = "json"
	}
	index := app.Store.CurrentIndex()
	for _, raw := range args.Raw {
		if n, err := strconv.Atoi(raw); err == nil {
			index = n
		}
		if raw == "--format" || raw == "json" || raw == "markdown" || raw == "md" {
			if raw != "--format" {
				format = raw
			}
		}
	}

	sessions := app.Store.Sessions()
	if index < 0 || index >= len(sessions) {
		return fmt.Errorf("sessions: index %d out of range", index)
	}

	opts := export.DefaultOptions()
	exp, err := export.New(format, opts)
	if err != nil {
		return err
	}
	path, err := export.ToFile(sessions[index], exp, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func showSession(app *App, args *Args) error {
	index, err := sessionIndexArg(args)
	if err != nil {
		index = app.Store.CurrentIndex()
	}
	sessions := app.Store.Sessions()
	if index < 0 || index >= len(sessions) {
		return fmt.Errorf("sessions: index %d out of range", index)
	}
	sess := sessions[index]
	fmt.Printf("%s (%s, %d messages)\n\n", sess.Topic, sess.Mask.Name, len(sess.Messages))
	for _, msg := range sess.Messages {
		label := "You"
		if msg.Role != "user" {
			label = "Agent"
		}
		suffix := ""
		if msg.IsError {
			suffix = " (failed)"
		}
		fmt.Printf("--- %s%s ---\n%s\n\n", label, suffix, msg.Content)
	}
	return nil
}

func sessionIndexArg(args *Args) (int, error) {
	for _, raw := range args.Raw {
		if n, err := strconv.Atoi(raw); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("sessions: missing index argument")
}
