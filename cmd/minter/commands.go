// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

// Command table and handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/command"
	"github.com/aplane-algo/minter/internal/contract"
	"github.com/aplane-algo/minter/internal/minter"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/util"
)

var (
	errQuit        = errors.New("quit")
	errNotLoggedIn = errors.New("not logged in (use 'login')")
)

// replState is the shell's state between commands.
type replState struct {
	mgr      *minter.Manager
	out      io.Writer
	registry *command.Registry
	config   util.Config
	dataDir  string
}

func newREPLState(mgr *minter.Manager, out io.Writer) *replState {
	r := &replState{mgr: mgr, out: out}
	r.registry = r.initCommandRegistry()
	return r
}

// mustRegister registers a command and panics if there's an error.
func mustRegister(registry *command.Registry, cmd *command.Command) {
	if err := registry.Register(cmd); err != nil {
		panic(fmt.Sprintf("failed to register command %q: %v", cmd.Name, err))
	}
}

func (r *replState) initCommandRegistry() *command.Registry {
	registry := command.NewRegistry()

	mustRegister(registry, &command.Command{
		Name:        "login",
		Usage:       "login",
		Description: "Log in with a wallet",
		LongHelp:    "Prompts for a wallet when more than one is configured. A successful\nlogin replaces the current session.",
		Category:    command.CategorySession,
		Handler:     command.HandlerFunc(r.cmdLogin),
	})
	mustRegister(registry, &command.Command{
		Name:        "logout",
		Usage:       "logout",
		Description: "End the current session",
		Category:    command.CategorySession,
		Handler:     command.HandlerFunc(r.cmdLogout),
	})
	mustRegister(registry, &command.Command{
		Name:        "restore",
		Usage:       "restore",
		Description: "Restore the last stored session",
		Category:    command.CategorySession,
		Handler:     command.HandlerFunc(r.cmdRestore),
	})
	mustRegister(registry, &command.Command{
		Name:        "whoami",
		Usage:       "whoami",
		Description: "Show the current session",
		Category:    command.CategorySession,
		Handler:     command.HandlerFunc(r.cmdWhoami),
	})
	mustRegister(registry, &command.Command{
		Name:        "sessions",
		Usage:       "sessions",
		Description: "List stored sessions",
		Category:    command.CategorySession,
		Handler:     command.HandlerFunc(r.cmdSessions),
	})

	mustRegister(registry, &command.Command{
		Name:        "account",
		Usage:       "account [name]",
		Description: "Show an account (defaults to the session's)",
		Category:    command.CategoryChain,
		Handler:     command.HandlerFunc(r.cmdAccount),
	})
	mustRegister(registry, &command.Command{
		Name:        "table",
		Usage:       "table <contract> <table> [scope] [limit]",
		Description: "Read rows from a contract table",
		Category:    command.CategoryChain,
		Handler:     command.HandlerFunc(r.cmdTable),
	})

	mustRegister(registry, &command.Command{
		Name:        "transact",
		Aliases:     []string{"tx"},
		Usage:       "transact <contract> <action> <json> [--no-broadcast]",
		Description: "Sign and send one action as the session's account",
		LongHelp:    "Example:\n  transact eosio.token transfer {\"from\":\"alice\",\"to\":\"bob\",\"quantity\":\"1.0000 EOS\",\"memo\":\"\"}",
		Category:    command.CategoryTransaction,
		Handler:     command.HandlerFunc(r.cmdTransact),
	})

	mustRegister(registry, &command.Command{
		Name:        "config",
		Usage:       "config",
		Description: "Show the effective configuration",
		Category:    command.CategoryInfo,
		Handler:     command.HandlerFunc(r.cmdConfig),
	})
	mustRegister(registry, &command.Command{
		Name:        "help",
		Aliases:     []string{"?"},
		Usage:       "help [command]",
		Description: "Show available commands",
		Category:    command.CategoryInfo,
		Handler:     command.HandlerFunc(r.cmdHelp),
	})
	mustRegister(registry, &command.Command{
		Name:        "quit",
		Aliases:     []string{"exit"},
		Usage:       "quit",
		Description: "Exit the shell",
		Category:    command.CategoryInfo,
		Handler: command.HandlerFunc(func(context.Context, []string, *command.Context) error {
			return errQuit
		}),
	})

	return registry
}

// execute runs one input line.
func (r *replState) execute(ctx context.Context, line string) error {
	name, args, raw := command.Parse(line)
	if name == "" {
		return nil
	}
	cmd, ok := r.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown command %q (type 'help' for a list)", name)
	}
	return cmd.Handler.Execute(ctx, args, &command.Context{Out: r.out, RawArgs: raw})
}

func (r *replState) cmdLogin(ctx context.Context, _ []string, env *command.Context) error {
	if err := r.mgr.Login(ctx); err != nil {
		// The login UI has already reported it.
		var authErr *session.AuthenticationError
		if errors.As(err, &authErr) {
			return nil
		}
		return err
	}
	fmt.Fprintf(env.Out, "Logged in as %s\n", r.mgr.Session())
	return nil
}

func (r *replState) cmdLogout(ctx context.Context, _ []string, env *command.Context) error {
	current := r.mgr.Session()
	if err := r.mgr.Logout(ctx); err != nil {
		return err
	}
	if current == nil {
		fmt.Fprintln(env.Out, "Cleared stored sessions")
		return nil
	}
	fmt.Fprintf(env.Out, "Logged out %s\n", current.PermissionLevel)
	return nil
}

func (r *replState) cmdRestore(ctx context.Context, _ []string, env *command.Context) error {
	if err := r.mgr.Restore(ctx); err != nil {
		return err
	}
	if s := r.mgr.Session(); s != nil {
		fmt.Fprintf(env.Out, "Restored session %s\n", s)
	} else {
		fmt.Fprintln(env.Out, "No stored session")
	}
	return nil
}

func (r *replState) cmdWhoami(_ context.Context, _ []string, env *command.Context) error {
	s := r.mgr.Session()
	if s == nil {
		fmt.Fprintln(env.Out, "Not logged in")
		return nil
	}
	fmt.Fprintf(env.Out, "Account:    %s\n", s.Actor())
	fmt.Fprintf(env.Out, "Permission: %s\n", s.Permission())
	fmt.Fprintf(env.Out, "Wallet:     %s\n", s.WalletPlugin.Metadata().Name)
	fmt.Fprintf(env.Out, "Chain:      %s (%s)\n", s.Chain.Name, s.Chain.ID)
	return nil
}

func (r *replState) cmdSessions(ctx context.Context, _ []string, env *command.Context) error {
	kit, ok := r.mgr.Kit().(*session.Kit)
	if !ok {
		return errors.New("session listing is not available")
	}
	all, err := kit.GetSessions(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(env.Out, "No stored sessions")
		return nil
	}
	current := r.mgr.Session()
	for _, s := range all {
		marker := " "
		if current != nil && current.Actor() == s.Actor && current.Permission() == s.Permission &&
			current.WalletPlugin.ID() == s.WalletPlugin.ID && current.Chain.ID == s.Chain {
			marker = "*"
		}
		fmt.Fprintf(env.Out, "%s %s@%s  %-12s %s\n", marker, s.Actor, s.Permission, s.WalletPlugin.ID, s.Chain)
	}
	return nil
}

func (r *replState) cmdAccount(ctx context.Context, args []string, env *command.Context) error {
	var name string
	switch {
	case len(args) > 0:
		name = args[0]
	case r.mgr.Session() != nil:
		name = r.mgr.Session().Actor().String()
	default:
		return errors.New("usage: account <name>")
	}

	acct, err := r.mgr.Accounts().Load(ctx, name)
	if err != nil {
		return err
	}
	data := acct.Data
	fmt.Fprintf(env.Out, "Account:  %s\n", acct.Name())
	if data.Created != "" {
		fmt.Fprintf(env.Out, "Created:  %s\n", data.Created)
	}
	if balance := acct.Balance(); balance != "" {
		fmt.Fprintf(env.Out, "Balance:  %s\n", balance)
	}
	fmt.Fprintf(env.Out, "RAM:      %s / %s bytes\n", data.RAMUsage, data.RAMQuota)
	fmt.Fprintf(env.Out, "CPU:      %s / %s us\n", data.CPULimit.Used, data.CPULimit.Max)
	fmt.Fprintf(env.Out, "NET:      %s / %s bytes\n", data.NetLimit.Used, data.NetLimit.Max)
	if len(data.Permissions) > 0 {
		fmt.Fprintln(env.Out, "Permissions:")
		for _, p := range data.Permissions {
			parent := ""
			if p.Parent != "" {
				parent = " (parent " + p.Parent.String() + ")"
			}
			fmt.Fprintf(env.Out, "  %s%s\n", p.PermName, parent)
		}
	}
	return nil
}

func (r *replState) cmdTable(ctx context.Context, args []string, env *command.Context) error {
	if len(args) < 2 {
		return errors.New("usage: table <contract> <table> [scope] [limit]")
	}
	c, err := r.mgr.Contracts().Load(ctx, args[0])
	if err != nil {
		return err
	}
	table, err := c.Table(args[1])
	if err != nil {
		return err
	}

	q := contract.Query{Limit: 10}
	if len(args) > 2 {
		q.Scope = args[2]
	}
	if len(args) > 3 {
		limit, err := strconv.Atoi(args[3])
		if err != nil || limit <= 0 {
			return fmt.Errorf("invalid limit %q", args[3])
		}
		q.Limit = limit
	}

	rows, more, err := table.Rows(ctx, q)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(env.Out, "No rows")
		return nil
	}
	for _, row := range rows {
		fmt.Fprintln(env.Out, string(row))
	}
	if more {
		fmt.Fprintf(env.Out, "(more rows available; showing %d)\n", len(rows))
	}
	return nil
}

func (r *replState) cmdTransact(ctx context.Context, _ []string, env *command.Context) error {
	s := r.mgr.Session()
	if s == nil {
		return errNotLoggedIn
	}

	words, data := command.SplitN(env.RawArgs, 2)
	noBroadcast := false
	if rest, ok := strings.CutSuffix(data, "--no-broadcast"); ok {
		data = strings.TrimSpace(rest)
		noBroadcast = true
	}
	if len(words) < 2 || data == "" {
		return errors.New("usage: transact <contract> <action> <json> [--no-broadcast]")
	}
	if !json.Valid([]byte(data)) {
		return errors.New("action data is not valid JSON")
	}

	c, err := r.mgr.Contracts().Load(ctx, words[0])
	if err != nil {
		return err
	}
	action, err := c.Action(ctx, words[1], json.RawMessage(data), s.PermissionLevel)
	if err != nil {
		return err
	}

	result, err := s.Transact(ctx, session.TransactArgs{Actions: []antelope.Action{action}},
		session.TransactOptions{NoBroadcast: noBroadcast})
	if err != nil {
		return err
	}

	if result.Broadcast {
		fmt.Fprintf(env.Out, "Transaction %s sent\n", result.ID)
	} else {
		fmt.Fprintf(env.Out, "Transaction %s signed (not broadcast)\n", result.ID)
		signed, err := json.MarshalIndent(result.Transaction, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, string(signed))
	}
	return nil
}

func (r *replState) cmdConfig(_ context.Context, _ []string, _ *command.Context) error {
	util.DisplayConfig(r.dataDir, r.config)
	return nil
}

func (r *replState) cmdHelp(_ context.Context, args []string, env *command.Context) error {
	if len(args) > 0 {
		cmd, ok := r.registry.Lookup(strings.ToLower(args[0]))
		if !ok {
			return fmt.Errorf("unknown command %q", args[0])
		}
		command.ShowCommandHelp(env.Out, cmd)
		return nil
	}
	command.ShowHelp(env.Out, r.registry, r.mgr.URL())
	return nil
}
