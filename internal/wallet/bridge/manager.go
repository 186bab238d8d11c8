// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/aplane-algo/minter/internal/util"
	"github.com/aplane-algo/minter/internal/version"
)

// Process describes how to launch one wallet bridge.
type Process struct {
	Wallet  string // wallet id, also the instance key
	Command string
	Args    []string
	Env     []string
}

// Instance is a running bridge process
type Instance struct {
	Process  Process
	Cmd      *exec.Cmd
	Client   *Client
	Started  time.Time
	LastUsed time.Time

	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// Manager starts bridges on first use and keeps one instance per wallet.
type Manager struct {
	appName  string
	chainID  string
	chainURL string
	timeout  time.Duration

	mu        sync.Mutex
	instances map[string]*Instance
}

// DefaultTimeout bounds initialize and shutdown calls.
const DefaultTimeout = 30 * time.Second

// NewManager creates a manager; chainID and chainURL are passed to each
// bridge on initialize.
func NewManager(appName, chainID, chainURL string) *Manager {
	return &Manager{
		appName:   appName,
		chainID:   chainID,
		chainURL:  chainURL,
		timeout:   DefaultTimeout,
		instances: make(map[string]*Instance),
	}
}

// Get returns the running instance for p.Wallet, starting and
// initializing the bridge if needed.
func (m *Manager) Get(ctx context.Context, p Process) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.instances[p.Wallet]; ok {
		if inst.IsRunning() {
			inst.LastUsed = time.Now()
			return inst, nil
		}
		inst.Stop()
		delete(m.instances, p.Wallet)
	}

	inst, err := m.start(p)
	if err != nil {
		return nil, err
	}
	if err := m.initialize(ctx, inst); err != nil {
		inst.Stop()
		return nil, fmt.Errorf("failed to initialize %s bridge: %w", p.Wallet, err)
	}
	m.instances[p.Wallet] = inst
	return inst, nil
}

func (m *Manager) start(p Process) (*Instance, error) {
	if p.Command == "" {
		return nil, errors.New("no bridge command")
	}
	cmd := exec.Command(p.Command, p.Args...)
	cmd.Env = append(os.Environ(),
		"MINTER_WALLET="+p.Wallet,
		"MINTER_CHAIN_ID="+m.chainID,
		"MINTER_CHAIN_URL="+m.chainURL,
	)
	cmd.Env = append(cmd.Env, p.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s bridge: %w", p.Wallet, err)
	}
	util.Debug("bridge started", "wallet", p.Wallet, "pid", cmd.Process.Pid)

	client := NewClient(stdout, stdin)
	client.Start()

	inst := &Instance{
		Process:  p,
		Cmd:      cmd,
		Client:   client,
		Started:  time.Now(),
		LastUsed: time.Now(),
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
	go inst.monitorStderr()
	return inst, nil
}

func (m *Manager) initialize(ctx context.Context, inst *Instance) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var result InitializeResult
	err := inst.Client.Call(ctx, MethodInitialize, InitializeParams{
		AppName:  m.appName,
		Wallet:   inst.Process.Wallet,
		Version:  version.String(),
		ChainID:  m.chainID,
		ChainURL: m.chainURL,
	}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("bridge refused initialization: %s", result.Message)
	}
	return nil
}

// Running returns the wallet ids with a live bridge.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.instances))
	for name := range m.instances {
		names = append(names, name)
	}
	return names
}

// Stop shuts down the bridge for wallet, if running.
func (m *Manager) Stop(wallet string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[wallet]; ok {
		m.shutdown(inst)
		delete(m.instances, wallet)
	}
}

// StopAll shuts down every running bridge.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, inst := range m.instances {
		m.shutdown(inst)
		delete(m.instances, name)
	}
}

func (m *Manager) shutdown(inst *Instance) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var result ShutdownResult
	_ = inst.Client.Call(ctx, MethodShutdown, ShutdownParams{}, &result)
	inst.Stop()
}

func (i *Instance) monitorStderr() {
	scanner := bufio.NewScanner(i.stderr)
	for scanner.Scan() {
		util.Debug("bridge stderr", "wallet", i.Process.Wallet, "line", scanner.Text())
	}
}

// Stop terminates the bridge process
func (i *Instance) Stop() {
	if i.Cmd == nil {
		return
	}

	_ = i.stdin.Close()

	done := make(chan error, 1)
	go func() {
		done <- i.Cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = i.Cmd.Process.Kill()
		<-done
	}

	i.Client.Close()
}

// IsRunning checks if the bridge process is still running
func (i *Instance) IsRunning() bool {
	if i.Cmd == nil || i.Cmd.Process == nil {
		return false
	}
	return i.Cmd.ProcessState == nil && !i.Client.Closed()
}
