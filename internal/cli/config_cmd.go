// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection and editing.
package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/morganforge/fishchat-tui/internal/admin"
	"github.com/morganforge/fishchat-tui/internal/config"
)

// RunConfig handles the config subcommands: path, get, set, admin.
func RunConfig(app *App, args *Args) error {
	switch args.Subcommand {
	case "", "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "get":
		if len(args.Raw) < 2 {
			return fmt.Errorf("usage: fishchat config get <key>")
		}
		value, err := app.Config.Get(args.Raw[1])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil

	case "set":
		if len(args.Raw) < 3 {
			return fmt.Errorf("usage: fishchat config set <key> <value>")
		}
		if err := app.Config.Set(args.Raw[1], args.Raw[2]); err != nil {
			return err
		}
		if err := config.Save(app.Config); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args.Raw[1], args.Raw[2])
		return nil

	case "admin":
		return runConfigAdmin(app, args)

	default:
		return fmt.Errorf("config: unknown subcommand %q (path, get, set, admin)", args.Subcommand)
	}
}

func runConfigAdmin(app *App, args *Args) error {
	action := ""
	if len(args.Raw) > 1 {
		action = args.Raw[1]
	}

	switch action {
	case "set-password":
		password, err := promptPassword("New admin password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
		if password == "" {
			app.Config.Admin.PasswordHash = ""
			if err := config.Save(app.Config); err != nil {
				return err
			}
			fmt.Println("Admin password removed, settings are no longer gated.")
			return nil
		}
		hash, err := admin.HashPassword(password)
		if err != nil {
			return err
		}
		app.Config.Admin.PasswordHash = hash
		if err := config.Save(app.Config); err != nil {
			return err
		}
		fmt.Println("Admin password set.")
		return nil

	case "enable-totp":
		if app.Config.Admin.PasswordHash == "" {
			return fmt.Errorf("set a password first: fishchat config admin set-password")
		}
		secret, url, err := admin.GenerateTOTPSecret(app.UserID)
		if err != nil {
			return err
		}
		app.Config.Admin.TOTPSecret = secret
		if err := config.Save(app.Config); err != nil {
			return err
		}
		fmt.Println("TOTP enabled. Add this to your authenticator app:")
		fmt.Println("  secret: " + secret)
		fmt.Println("  url:    " + url)
		return nil

	case "disable-totp":
		app.Config.Admin.TOTPSecret = ""
		if err := config.Save(app.Config); err != nil {
			return err
		}
		fmt.Println("TOTP disabled.")
		return nil

	default:
		return fmt.Errorf("config admin: unknown action %q (set-password, enable-totp, disable-totp)", action)
	}
}

func promptPassword(prompt string) (string, error) {
	if !IsTTY() {
		return "", fmt.Errorf("password prompts need an interactive terminal")
	}
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
