// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/minter/internal/minter"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/sshtunnel"
	"github.com/aplane-algo/minter/internal/ui"
	"github.com/aplane-algo/minter/internal/util"
)

// promptFor renders the REPL prompt for the current session.
func promptFor(s *session.Session) string {
	if s == nil {
		return util.Colorize(util.ColorGreen, "minter>") + " "
	}
	return util.Colorize(util.ColorGreen, s.PermissionLevel.String()+">") + " "
}

// lineInput is the REPL's view of the terminal.
type lineInput struct {
	mu       sync.Mutex
	rl       *readline.Instance
	basic    *bufio.Reader
	prompt   string
	fallback bool
}

func (in *lineInput) setPrompt(p string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.prompt = p
	if in.rl != nil {
		in.rl.SetPrompt(p)
	}
}

// readCommand reads one REPL line with the session prompt.
func (in *lineInput) readCommand() (string, error) {
	in.mu.Lock()
	prompt := in.prompt
	in.mu.Unlock()
	return in.read(prompt)
}

// ask reads one answer with a one-off prompt. Ctrl-C reads as end of
// input so prompts treat it as cancellation.
func (in *lineInput) ask(prompt string) (string, error) {
	line, err := in.read(prompt)
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (in *lineInput) read(prompt string) (string, error) {
	if in.rl != nil {
		in.rl.SetPrompt(prompt)
		defer in.rl.SetPrompt(in.currentPrompt())
		return in.rl.Readline()
	}
	fmt.Print(prompt)
	line, err := in.basic.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (in *lineInput) currentPrompt() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.prompt
}

func newLineInput(completer readline.AutoCompleter) *lineInput {
	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".minter_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptFor(nil),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		return &lineInput{basic: bufio.NewReader(os.Stdin), prompt: promptFor(nil), fallback: true}
	}
	return &lineInput{rl: rl, prompt: promptFor(nil)}
}

func (in *lineInput) close() {
	if in.rl != nil {
		_ = in.rl.Close() // Best-effort close, errors during shutdown not critical
	}
}

// approveHostKey asks before trusting an unknown SSH host.
func approveHostKey(in *lineInput) sshtunnel.HostKeyApprovalHandler {
	return func(host, fingerprint string) (bool, error) {
		fmt.Printf("The authenticity of host '%s' can't be established.\n", host)
		fmt.Printf("Key fingerprint is %s.\n", fingerprint)
		answer, err := in.ask("Trust this host and continue connecting (yes/no)? ")
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "yes" || answer == "y", nil
	}
}

func startREPL(mcfg minter.Config, config util.Config, dataDir string) {
	fmt.Println("minter - Antelope wallet sessions")
	fmt.Println("Type 'help' for available commands or 'quit' to exit")

	state := &replState{out: os.Stdout, config: config, dataDir: dataDir}
	state.registry = state.initCommandRegistry()

	in := newLineInput(newCompleter(state.registry))
	defer in.close()

	opts := []minter.Option{
		minter.WithUI(ui.New(mcfg.MinimalUI || in.fallback, os.Stdin, os.Stdout, ui.WithLineReader(in.ask))),
	}

	var tunnel *sshtunnel.Client
	if config.SSH != nil {
		tunnel = sshtunnel.NewClient(sshtunnel.Config{
			Host:           config.SSH.Host,
			Port:           config.SSH.Port,
			User:           config.SSH.User,
			IdentityFile:   config.SSH.IdentityFile,
			KnownHostsPath: config.SSH.KnownHostsPath,
		})
		tunnel.SetHostKeyApprovalHandler(approveHostKey(in))
		opts = append(opts, minter.WithDialer(tunnel.DialContext))
		fmt.Printf("Routing chain requests via SSH: %s:%d\n", config.SSH.Host, config.SSH.Port)
		defer func() {
			_ = tunnel.Close() // Best-effort cleanup on exit
		}()
	}

	mgr, err := minter.New(mcfg, opts...)
	if err != nil {
		fmt.Printf("Error: failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	unsubscribe := mgr.Subscribe(func(s *session.Session) {
		in.setPrompt(promptFor(s))
	})
	defer unsubscribe()

	state.mgr = mgr

	fmt.Printf("Node: %s (%s)\n", util.Colorize(util.ColorCyan, mgr.URL()), mgr.Chain().Name)
	if err := mgr.Restore(context.Background()); err != nil {
		fmt.Printf("%s could not restore session: %v\n", util.Colorize(util.ColorYellow, "Warning:"), err)
	} else if s := mgr.Session(); s != nil {
		fmt.Printf("Restored session %s\n", s)
	}

	for {
		line, err := in.readCommand()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					fmt.Println("Use 'quit' or 'exit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = state.execute(ctx, line)
		stop()
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}
