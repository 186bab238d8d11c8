// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package minter holds the session manager: the one observable session
// value and the three operations that change it.
package minter

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aplane-algo/minter/internal/account"
	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
	"github.com/aplane-algo/minter/internal/contract"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/store"
	"github.com/aplane-algo/minter/internal/transact/resourceprovider"
	"github.com/aplane-algo/minter/internal/transact/script"
	"github.com/aplane-algo/minter/internal/ui"
	"github.com/aplane-algo/minter/internal/util"
	"github.com/aplane-algo/minter/internal/wallet"
	"github.com/aplane-algo/minter/internal/wallet/bridge"
)

// Orchestrator runs the login, logout and restore flows. *session.Kit
// implements it.
type Orchestrator interface {
	Login(ctx context.Context, opts session.LoginOptions) (*session.LoginResult, error)
	Logout(ctx context.Context, s *session.Session) error
	Restore(ctx context.Context, args *session.RestoreArgs) (*session.Session, error)
}

// Config is what the Manager is built from.
type Config struct {
	AppName string
	// URL is the node endpoint. Empty means DefaultEndpoint.
	URL string
	// Chain is the chain to log in to; its URL is replaced by URL.
	// The zero value means EOS.
	Chain         antelope.ChainDefinition
	ExpireSeconds int
	MinimalUI     bool

	ResourceProvider util.ResourceProviderConfig
	TransactScript   string
	Wallets          map[string]util.WalletBridgeConfig

	// SessionDir holds persisted sessions. Empty keeps them in memory.
	SessionDir string
}

// ConfigFromSettings builds a Config from loaded settings and a resolved
// endpoint.
func ConfigFromSettings(cfg *util.Config, dataDir, endpoint string) (Config, error) {
	chain, err := cfg.ChainDefinition()
	if err != nil {
		return Config{}, err
	}
	c := Config{
		AppName:          cfg.AppName,
		URL:              endpoint,
		Chain:            chain,
		ExpireSeconds:    cfg.ExpireSeconds,
		MinimalUI:        cfg.MinimalUI,
		ResourceProvider: cfg.ResourceProvider,
		TransactScript:   cfg.TransactScript,
		Wallets:          cfg.Wallets,
	}
	if dataDir != "" {
		c.SessionDir = filepath.Join(dataDir, "sessions")
	}
	return c, nil
}

// Manager owns the session slot. Login, Logout and Restore are its only
// writers.
type Manager struct {
	url          string
	chain        antelope.ChainDefinition
	client       *apiclient.Client
	accounts     *account.Kit
	contracts    *contract.Kit
	orchestrator Orchestrator
	bridges      *bridge.Manager
	slot         *store.Writable[*session.Session]
}

// New wires the transport, account and contract kits, and the session
// orchestrator. Nothing is fetched from the network.
func New(cfg Config, opts ...Option) (*Manager, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	chain := cfg.Chain
	if chain.ID == "" {
		chain = antelope.ChainEOS
	}
	chain = chain.WithURL(endpoint)
	appName := cfg.AppName
	if appName == "" {
		appName = util.DefaultAppName
	}

	// One HTTP client, and so one dialer, for the node and the
	// resource provider.
	httpClient := apiclient.NewHTTPClient(o.httpClient, o.dialer, 0)
	client := apiclient.New(endpoint, apiclient.WithHTTPClient(httpClient))

	m := &Manager{
		url:       endpoint,
		chain:     chain,
		client:    client,
		accounts:  account.NewKit(chain, client),
		contracts: contract.NewKit(client),
		slot:      o.slot,
	}
	if m.slot == nil {
		m.slot = store.NewWritable[*session.Session](nil)
	}

	m.orchestrator = o.orchestrator
	if m.orchestrator == nil {
		kit, err := m.newKit(cfg, appName, o)
		if err != nil {
			return nil, err
		}
		m.orchestrator = kit
	}

	util.Debug("session manager ready", "url", endpoint, "chain", chain.ID)
	return m, nil
}

func (m *Manager) newKit(cfg Config, appName string, o *options) (*session.Kit, error) {
	wallets := o.walletPlugins
	if wallets == nil {
		m.bridges = bridge.NewManager(appName, string(m.chain.ID), m.url)
		wallets = wallet.Defaults(cfg.Wallets, m.bridges)
	}

	transactPlugins := o.transactPlugins
	if transactPlugins == nil {
		var err error
		transactPlugins, err = defaultTransactPlugins(cfg, m.client.HTTPClient())
		if err != nil {
			return nil, err
		}
	}

	prompter := o.ui
	if prompter == nil {
		prompter = ui.New(cfg.MinimalUI, os.Stdin, os.Stdout)
	}

	storage := o.storage
	if storage == nil && cfg.SessionDir != "" {
		storage = session.NewFileStorage(cfg.SessionDir)
	}

	client := m.client
	return session.NewKit(session.KitArgs{
		AppName:       appName,
		Chains:        []antelope.ChainDefinition{m.chain},
		UI:            prompter,
		WalletPlugins: wallets,
	}, session.KitOptions{
		TransactPlugins: transactPlugins,
		Storage:         storage,
		ExpireSeconds:   cfg.ExpireSeconds,
		ClientFactory:   func(antelope.ChainDefinition) session.ChainClient { return client },
	}), nil
}

func defaultTransactPlugins(cfg Config, hc *http.Client) ([]session.TransactPlugin, error) {
	var plugins []session.TransactPlugin
	if cfg.ResourceProvider.Enabled {
		rp, err := resourceprovider.New(resourceprovider.Config{
			Endpoint:  cfg.ResourceProvider.Endpoint,
			AllowFees: cfg.ResourceProvider.AllowFees,
			MaxFee:    cfg.ResourceProvider.MaxFee,
		}, resourceprovider.WithHTTPClient(hc))
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, rp)
	}
	if cfg.TransactScript != "" {
		sp, err := script.Load(cfg.TransactScript)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, sp)
	}
	return plugins, nil
}

// Login runs the interactive login flow and, on success, stores the new
// session in the slot. On failure the error is returned as is and the
// slot keeps its previous value.
func (m *Manager) Login(ctx context.Context) error {
	result, err := m.orchestrator.Login(ctx, session.LoginOptions{})
	if err != nil {
		return err
	}
	m.slot.Set(result.Session)
	return nil
}

// Logout tears down the current session and clears the slot, even when
// teardown fails. The teardown error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.orchestrator.Logout(ctx, m.slot.Get())
	m.slot.Set(nil)
	return err
}

// Restore recovers a persisted session into the slot. Finding none is not
// an error; the slot is then set to nil.
func (m *Manager) Restore(ctx context.Context) error {
	restored, err := m.orchestrator.Restore(ctx, nil)
	if err != nil {
		return err
	}
	m.slot.Set(restored)
	return nil
}

// Session returns the current session, or nil.
func (m *Manager) Session() *session.Session { return m.slot.Get() }

// Subscribe calls fn with the current session and on every change.
func (m *Manager) Subscribe(fn func(*session.Session)) (unsubscribe func()) {
	return m.slot.Subscribe(fn)
}

// URL returns the node endpoint.
func (m *Manager) URL() string { return m.url }

// Chain returns the chain sessions are created on.
func (m *Manager) Chain() antelope.ChainDefinition { return m.chain }

// Client returns the chain transport.
func (m *Manager) Client() *apiclient.Client { return m.client }

// Accounts returns the account lookup kit.
func (m *Manager) Accounts() *account.Kit { return m.accounts }

// Contracts returns the contract kit.
func (m *Manager) Contracts() *contract.Kit { return m.contracts }

// Kit returns the session orchestrator.
func (m *Manager) Kit() Orchestrator { return m.orchestrator }

// Close stops any wallet bridges the Manager started.
func (m *Manager) Close() {
	if m.bridges != nil {
		m.bridges.StopAll()
	}
}
