// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"github.com/chzyer/readline"

	"github.com/aplane-algo/minter/internal/command"
)

// newCompleter completes command names, and command names again after help.
func newCompleter(registry *command.Registry) readline.AutoCompleter {
	names := registry.Names()
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		if cmd, _ := registry.Lookup(name); cmd != nil && cmd.Name == "help" {
			items = append(items, readline.PcItem(name,
				readline.PcItemDynamic(func(string) []string { return names })))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
