// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Command minter is an interactive shell for logging in to an Antelope
// chain with an external wallet and sending transactions.
//
// Usage:
//
//	minter [-d dir] [-node url] [launch-url]
//
// A launch URL such as "minter://open?node=https://jungle4.greymass.com"
// overrides the node from its query string.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aplane-algo/minter/internal/minter"
	"github.com/aplane-algo/minter/internal/util"
	"github.com/aplane-algo/minter/internal/version"
)

func main() {
	printVersion := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("d", "", "Data directory (default: ~/.minter or MINTER_DATA)")
	node := flag.String("node", "", "Chain API endpoint (overrides config)")
	showConfig := flag.Bool("config", false, "Print the effective configuration and exit")
	flag.Parse()

	if *printVersion {
		fmt.Printf("minter %s\n", version.String())
		os.Exit(0)
	}

	// Supports MINTER_DEBUG
	util.InitLogger()

	// Resolve data directory: -d flag > MINTER_DATA env var > ~/.minter
	resolvedDataDir := util.GetDataDir(*dataDir)

	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *showConfig {
		util.DisplayConfig(resolvedDataDir, config)
		os.Exit(0)
	}

	// Launch URL ?node= > -node flag > config
	fallback := config.Node
	if *node != "" {
		fallback = *node
	}
	endpoint := minter.ResolveLaunchURL(flag.Arg(0), fallback)

	mcfg, err := minter.ConfigFromSettings(&config, resolvedDataDir, endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	startREPL(mcfg, config, resolvedDataDir)
}
