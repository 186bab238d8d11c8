// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package ui implements the interactive parts of login: picking a chain
// and a wallet, and reporting progress and failures.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/session"
)

// LineReader reads one line of input after showing prompt. It returns
// io.EOF when input ends.
type LineReader func(prompt string) (string, error)

// Prompter is a session.UserInterface for terminals. With minimal set, or
// when not attached to a TTY, it uses numbered line prompts; otherwise it
// shows a picker.
type Prompter struct {
	minimal bool
	tty     bool
	in      io.Reader
	out     io.Writer

	mu       sync.Mutex
	readLine LineReader
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithLineReader reads answers through fn instead of in, so a REPL can
// keep ownership of the terminal.
func WithLineReader(fn LineReader) Option {
	return func(p *Prompter) { p.readLine = fn }
}

// New creates a prompter reading from in and writing to out.
func New(minimal bool, in io.Reader, out io.Writer, opts ...Option) *Prompter {
	p := &Prompter{
		minimal: minimal,
		tty:     isTerminal(in) && isTerminal(out),
		in:      in,
		out:     out,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.readLine == nil {
		r := bufio.NewReader(in)
		p.readLine = func(prompt string) (string, error) {
			fmt.Fprint(out, prompt)
			line, err := r.ReadString('\n')
			if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
				return "", err
			}
			return strings.TrimRight(line, "\r\n"), nil
		}
	}
	return p
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) // #nosec G115 - file descriptors are small integers
}

// SelectChain asks which chain to log in to.
func (p *Prompter) SelectChain(ctx context.Context, chains []antelope.ChainDefinition) (int, error) {
	items := make([]item, len(chains))
	for i, c := range chains {
		items[i] = item{title: c.Name, desc: c.URL}
	}
	return p.choose(ctx, "Select a blockchain", items)
}

// SelectWallet asks which wallet to log in with.
func (p *Prompter) SelectWallet(ctx context.Context, wallets []session.WalletMetadata) (int, error) {
	items := make([]item, len(wallets))
	for i, w := range wallets {
		items[i] = item{title: w.Name, desc: w.Description}
	}
	return p.choose(ctx, "Login with", items)
}

// Status prints a progress message.
func (p *Prompter) Status(msg string) {
	fmt.Fprintln(p.out, p.render(statusStyle.Render, msg))
}

// OnError prints a failure. Cancellation is reported quietly.
func (p *Prompter) OnError(err error) {
	if errors.Is(err, session.ErrCancelled) {
		fmt.Fprintln(p.out, "Login cancelled.")
		return
	}
	fmt.Fprintln(p.out, p.render(errorStyle.Render, "Error: "+err.Error()))
}

func (p *Prompter) render(style func(...string) string, s string) string {
	if !p.tty {
		return s
	}
	return style(s)
}

func (p *Prompter) choose(ctx context.Context, title string, items []item) (int, error) {
	if len(items) == 0 {
		return 0, errors.New("nothing to choose from")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty && !p.minimal {
		return p.pick(ctx, title, items)
	}
	return p.prompt(ctx, title, items)
}

func (p *Prompter) pick(ctx context.Context, title string, items []item) (int, error) {
	prog := tea.NewProgram(newPicker(title, items),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	m := final.(pickerModel)
	if m.cancelled || m.chosen < 0 {
		return 0, session.ErrCancelled
	}
	return m.chosen, nil
}

// maxAttempts bounds invalid answers before a line prompt gives up.
const maxAttempts = 3

func (p *Prompter) prompt(ctx context.Context, title string, items []item) (int, error) {
	fmt.Fprintln(p.out, title+":")
	for i, it := range items {
		if it.desc != "" {
			fmt.Fprintf(p.out, "  %d) %s - %s\n", i+1, it.title, it.desc)
		} else {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, it.title)
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		line, err := p.readLine(fmt.Sprintf("Choice [1-%d, q to cancel]: ", len(items)))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, session.ErrCancelled
			}
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "q" || line == "quit" {
			return 0, session.ErrCancelled
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(items) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Enter a number between 1 and %d.\n", len(items))
	}
	return 0, fmt.Errorf("no valid choice after %d attempts", maxAttempts)
}

var _ session.UserInterface = (*Prompter)(nil)
