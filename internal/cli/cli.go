// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for fishchat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSessions
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	NoType  bool // disable the typewriter effect

	// Command-specific
	Query      string
	Mask       string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `fishchat - terminal client for the fishchat agent service

Usage:
  fishchat                           Launch the interactive TUI (default)
  fishchat ask <question>            One-shot question, prints the reply
  fishchat chat                      Line-mode REPL with input history
  fishchat sessions [list|delete|export]
                                     Manage stored conversations
  fishchat config [get|set|path|admin] ...
                                     Inspect and change configuration
  fishchat status                    Check agent service reachability
  fishchat version                   Print version information
  fishchat help                      Show this help

Flags:
  --mask <id>     Persona for ask/chat (default: default)
  --no-type       Print replies immediately, no typewriter effect
  --json          Machine-readable output where supported
  --quiet, -q     Suppress status chatter
  --verbose, -v   Debug logging

Examples:
  fishchat ask "how do I book a train ticket to Shanghai?"
  fishchat ask --mask data-analyst "summarize Q3 sales by region"
  fishchat sessions export --format json
  fishchat config set agent.base_url https://agent.example.com
  fishchat config admin set-password
`

// ParseArgs parses os.Args style arguments into a Command and Args.
func ParseArgs(argv []string) (Command, *Args) {
	args := &Args{Mask: "default"}

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--verbose" || arg == "-v":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--no-type":
			args.NoType = true
		case arg == "--mask" || arg == "-m":
			if i+1 < len(argv) {
				args.Mask = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--mask="):
			args.Mask = strings.TrimPrefix(arg, "--mask=")
		case strings.HasPrefix(arg, "-"):
			// Unknown flags are kept for subcommands to interpret.
			positional = append(positional, arg)
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args
	}

	cmd := positional[0]
	rest := positional[1:]
	args.Raw = rest
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		args.Subcommand = rest[0]
	}

	switch cmd {
	case "ask":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "sessions":
		return CmdSessions, args
	case "config":
		return CmdConfig, args
	case "status":
		return CmdStatus, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		// Bare words are treated as an ask query.
		args.Query = strings.Join(positional, " ")
		return CmdAsk, args
	}
}

// PrintUsage writes the help text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("fishchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// Fatalf prints an error and exits non-zero.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fishchat: "+format+"\n", args...)
	os.Exit(1)
}
