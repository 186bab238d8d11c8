// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package command holds the shell's command table and help output.
package command

import "context"

// Command describes one shell command.
type Command struct {
	Name        string   // Primary command name
	Aliases     []string // Alternative names (e.g., "exit" for "quit")
	Usage       string   // Usage string: "account [name]"
	Description string   // One-line description
	LongHelp    string   // Multi-line detailed help (optional)
	Category    string
	Handler     Handler
}

// Handler runs a command.
type Handler interface {
	Execute(ctx context.Context, args []string, env *Context) error
}

// Command categories, in help order.
const (
	CategorySession     = "Session"
	CategoryChain       = "Chain Queries"
	CategoryTransaction = "Transactions"
	CategoryInfo        = "Information"
)

var categoryOrder = []string{
	CategorySession,
	CategoryChain,
	CategoryTransaction,
	CategoryInfo,
}
