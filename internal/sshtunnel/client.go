// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package sshtunnel dials chain node connections through an SSH server so
// a node that is only reachable from a bastion can be used as the endpoint.
package sshtunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrClosed is returned by DialContext after Close.
var ErrClosed = errors.New("ssh tunnel closed")

// HostKeyApprovalHandler is called when connecting to an unknown SSH server.
// It should display the host and fingerprint to the user and return true if trusted.
type HostKeyApprovalHandler func(host string, fingerprint string) (bool, error)

// Config describes the SSH server to tunnel through.
type Config struct {
	Host           string
	Port           int
	User           string
	IdentityFile   string // empty = use SSH agent
	KnownHostsPath string
}

// Client owns one SSH connection and dials through it on demand. The SSH
// connection is established lazily by the first DialContext call and
// re-established if it drops.
type Client struct {
	cfg Config

	hostKeyApproval HostKeyApprovalHandler

	mu        sync.Mutex
	sshClient *ssh.Client
	agentConn net.Conn
	closed    bool
}

// NewClient creates a tunnel client. No connection is made.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// SetHostKeyApprovalHandler sets a callback for TOFU host key approval.
// When connecting to an unknown server, this handler will be called to prompt
// the user. If approved, the host key is saved to known_hosts.
func (c *Client) SetHostKeyApprovalHandler(handler HostKeyApprovalHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostKeyApproval = handler
}

// DialContext opens a connection to addr from the SSH server's side.
// Its signature matches net.Dialer.DialContext.
func (c *Client) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := c.connected(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := client.DialContext(ctx, network, addr)
	if err == nil {
		return conn, nil
	}

	// The SSH connection may have dropped; reconnect once.
	c.mu.Lock()
	if c.sshClient == client {
		_ = c.sshClient.Close()
		c.sshClient = nil
	}
	c.mu.Unlock()

	client, err = c.connected(ctx)
	if err != nil {
		return nil, err
	}
	return client.DialContext(ctx, network, addr)
}

func (c *Client) connected(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.sshClient != nil {
		return c.sshClient, nil
	}

	authMethod, agentConn, err := c.authMethod()
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		if agentConn != nil {
			_ = agentConn.Close()
		}
		return nil, err
	}

	user := c.cfg.User
	if user == "" {
		user = os.Getenv("USER")
	}
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprint(c.cfg.Port))
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if agentConn != nil {
			_ = agentConn.Close()
		}
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		if agentConn != nil {
			_ = agentConn.Close()
		}
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}

	if c.agentConn != nil {
		_ = c.agentConn.Close()
	}
	c.sshClient = ssh.NewClient(sc, chans, reqs)
	c.agentConn = agentConn
	return c.sshClient, nil
}

// Close tears down the SSH connection. Later dials fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	var err error
	if c.sshClient != nil {
		err = c.sshClient.Close()
		c.sshClient = nil
	}
	if c.agentConn != nil {
		_ = c.agentConn.Close()
		c.agentConn = nil
	}
	return err
}

func (c *Client) authMethod() (ssh.AuthMethod, net.Conn, error) {
	if c.cfg.IdentityFile != "" {
		identityPath := expandUserPath(c.cfg.IdentityFile)
		keyData, err := os.ReadFile(identityPath)
		if err != nil {
			if os.IsNotExist(err) {
				return c.agentAuthMethod()
			}
			return nil, nil, fmt.Errorf("failed to read SSH identity file %s: %w", identityPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				return nil, nil, fmt.Errorf("SSH identity file %s is encrypted; use ssh-agent or an unencrypted key", identityPath)
			}
			return nil, nil, fmt.Errorf("failed to parse SSH identity file %s: %w", identityPath, err)
		}
		return ssh.PublicKeys(signer), nil, nil
	}

	return c.agentAuthMethod()
}

func (c *Client) agentAuthMethod() (ssh.AuthMethod, net.Conn, error) {
	agentSock := os.Getenv("SSH_AUTH_SOCK")
	if agentSock == "" {
		return nil, nil, fmt.Errorf("no SSH identity file found and SSH_AUTH_SOCK is not set")
	}

	conn, err := net.Dial("unix", agentSock)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}

	agentClient := agent.NewClient(conn)
	return ssh.PublicKeysCallback(agentClient.Signers), conn, nil
}

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.cfg.KnownHostsPath == "" {
		return nil, fmt.Errorf("known_hosts path is empty")
	}
	knownHostsPath := expandUserPath(c.cfg.KnownHostsPath)

	var existingCallback ssh.HostKeyCallback
	if _, err := os.Stat(knownHostsPath); err == nil {
		callback, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts %s: %w", knownHostsPath, err)
		}
		existingCallback = callback
	}
	handler := c.hostKeyApproval

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		fingerprint := ssh.FingerprintSHA256(key)

		if existingCallback != nil {
			err := existingCallback(hostname, remote, key)
			if err == nil {
				return nil
			}
			var keyErr *knownhosts.KeyError
			if !errors.As(err, &keyErr) {
				return err
			}
			if len(keyErr.Want) > 0 {
				return fmt.Errorf("SSH host key mismatch for %s (possible MITM attack)", hostname)
			}
		}

		if handler == nil {
			return fmt.Errorf("unknown SSH host %s (key %s); add it to %s", hostname, fingerprint, knownHostsPath)
		}
		approved, err := handler(hostname, fingerprint)
		if err != nil {
			return fmt.Errorf("host key approval failed: %w", err)
		}
		if !approved {
			return fmt.Errorf("host key rejected by user")
		}
		return saveHostKey(knownHostsPath, hostname, key)
	}, nil
}

// saveHostKey appends a host key to the known_hosts file.
func saveHostKey(knownHostsPath, hostname string, key ssh.PublicKey) error {
	if dir := filepath.Dir(knownHostsPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(knownHostsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}
	if _, err := f.WriteString(knownhosts.Line([]string{hostname}, key) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write host key: %w", err)
	}
	return f.Close()
}

func expandUserPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return home + path[1:]
	}
	return path
}
