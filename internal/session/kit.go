// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
	"github.com/aplane-algo/minter/internal/util"
)

// Storage keys.
const (
	keyDefaultSession = "session"
	keyAllSessions    = "all-sessions"
)

// DefaultExpireSeconds is the transaction expiration window.
const DefaultExpireSeconds = 120

// KitArgs are the required parts of a Kit.
type KitArgs struct {
	AppName       string
	Chains        []antelope.ChainDefinition
	UI            UserInterface
	WalletPlugins []WalletPlugin
}

// KitOptions are the optional parts of a Kit.
type KitOptions struct {
	TransactPlugins []TransactPlugin
	Storage         Storage
	ExpireSeconds   int

	// ClientFactory builds the chain client for a session. Defaults to an
	// apiclient bound to the chain's URL.
	ClientFactory func(chain antelope.ChainDefinition) ChainClient

	// Now is the clock used for transaction expiration.
	Now func() time.Time
}

// Kit is the session orchestrator.
type Kit struct {
	appName         string
	chains          []antelope.ChainDefinition
	ui              UserInterface
	walletPlugins   []WalletPlugin
	transactPlugins []TransactPlugin
	storage         Storage
	expireSeconds   int
	clientFactory   func(antelope.ChainDefinition) ChainClient
	now             func() time.Time
}

// NewKit creates a kit. Construction performs no I/O; plugin lists are
// copied and fixed for the kit's lifetime.
func NewKit(args KitArgs, opts KitOptions) *Kit {
	k := &Kit{
		appName:         args.AppName,
		chains:          append([]antelope.ChainDefinition(nil), args.Chains...),
		ui:              args.UI,
		walletPlugins:   append([]WalletPlugin(nil), args.WalletPlugins...),
		transactPlugins: append([]TransactPlugin(nil), opts.TransactPlugins...),
		storage:         opts.Storage,
		expireSeconds:   opts.ExpireSeconds,
		clientFactory:   opts.ClientFactory,
		now:             opts.Now,
	}
	if k.storage == nil {
		k.storage = NewMemoryStorage()
	}
	if k.expireSeconds <= 0 {
		k.expireSeconds = DefaultExpireSeconds
	}
	if k.clientFactory == nil {
		k.clientFactory = func(chain antelope.ChainDefinition) ChainClient {
			return apiclient.New(chain.URL)
		}
	}
	if k.now == nil {
		k.now = time.Now
	}
	return k
}

// AppName returns the name the kit presents to wallets.
func (k *Kit) AppName() string { return k.appName }

// Chains returns the registered chains.
func (k *Kit) Chains() []antelope.ChainDefinition {
	return append([]antelope.ChainDefinition(nil), k.chains...)
}

// WalletPlugins returns the registered wallets in registration order.
func (k *Kit) WalletPlugins() []WalletPlugin {
	return append([]WalletPlugin(nil), k.walletPlugins...)
}

// TransactPlugins returns the registered transact plugins.
func (k *Kit) TransactPlugins() []TransactPlugin {
	return append([]TransactPlugin(nil), k.transactPlugins...)
}

// LoginOptions narrow the interactive login flow.
type LoginOptions struct {
	Chain           antelope.ChainID         // skip the chain prompt
	WalletPlugin    string                   // skip the wallet prompt
	PermissionLevel antelope.PermissionLevel // require this identity
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Chain    antelope.ChainDefinition
	Session  *Session
	Wallet   WalletMetadata
	Response *WalletLoginResponse
}

// Login runs the interactive login flow. Any failure, including the user
// cancelling a prompt, is returned as an *AuthenticationError.
func (k *Kit) Login(ctx context.Context, opts LoginOptions) (*LoginResult, error) {
	result, err := k.login(ctx, opts)
	if err != nil {
		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			err = &AuthenticationError{Err: err}
		}
		if k.ui != nil {
			k.ui.OnError(err)
		}
		return nil, err
	}
	return result, nil
}

func (k *Kit) login(ctx context.Context, opts LoginOptions) (*LoginResult, error) {
	chain, err := k.selectChain(ctx, opts.Chain)
	if err != nil {
		return nil, err
	}
	plugin, err := k.selectWallet(ctx, opts.WalletPlugin)
	if err != nil {
		return nil, err
	}
	meta := plugin.Metadata()

	if k.ui != nil {
		k.ui.Status(fmt.Sprintf("Logging in with %s...", meta.Name))
	}
	resp, err := plugin.Login(ctx, LoginContext{
		AppName:         k.appName,
		Chain:           chain,
		Chains:          k.Chains(),
		PermissionLevel: opts.PermissionLevel,
		UI:              k.ui,
	})
	if err != nil {
		return nil, &AuthenticationError{Wallet: plugin.ID(), Err: err}
	}
	if resp == nil || resp.PermissionLevel.IsZero() {
		return nil, &AuthenticationError{Wallet: plugin.ID(), Err: errors.New("wallet returned no account")}
	}
	if resp.Chain != "" && resp.Chain != chain.ID {
		return nil, &AuthenticationError{Wallet: plugin.ID(), Err: fmt.Errorf("wallet logged in to chain %s, expected %s", resp.Chain, chain.ID)}
	}
	if !opts.PermissionLevel.IsZero() && resp.PermissionLevel != opts.PermissionLevel {
		return nil, &AuthenticationError{Wallet: plugin.ID(), Err: fmt.Errorf("wallet selected %s, expected %s", resp.PermissionLevel, opts.PermissionLevel)}
	}

	s := k.newSession(chain, resp.PermissionLevel, plugin, resp.Data)
	if err := k.persist(ctx, s); err != nil {
		// The wallet login succeeded; only restore-after-restart is lost.
		util.Warn("failed to persist session", "session", s.String(), "error", err)
	}
	util.Debug("logged in", "session", s.String(), "chain", chain.ID)

	return &LoginResult{Chain: chain, Session: s, Wallet: meta, Response: resp}, nil
}

func (k *Kit) selectChain(ctx context.Context, id antelope.ChainID) (antelope.ChainDefinition, error) {
	if id != "" {
		c, ok := k.chainByID(id)
		if !ok {
			return antelope.ChainDefinition{}, fmt.Errorf("%w: %s", ErrUnknownChain, id)
		}
		return c, nil
	}
	switch len(k.chains) {
	case 0:
		return antelope.ChainDefinition{}, fmt.Errorf("%w: no chains registered", ErrUnknownChain)
	case 1:
		return k.chains[0], nil
	}
	if k.ui == nil {
		return antelope.ChainDefinition{}, errors.New("multiple chains registered and no user interface to choose")
	}
	i, err := k.ui.SelectChain(ctx, k.Chains())
	if err != nil {
		return antelope.ChainDefinition{}, err
	}
	if i < 0 || i >= len(k.chains) {
		return antelope.ChainDefinition{}, fmt.Errorf("chain selection %d out of range", i)
	}
	return k.chains[i], nil
}

func (k *Kit) selectWallet(ctx context.Context, id string) (WalletPlugin, error) {
	if id != "" {
		p, ok := k.walletByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownWallet, id)
		}
		return p, nil
	}
	switch len(k.walletPlugins) {
	case 0:
		return nil, ErrNoWalletPlugins
	case 1:
		return k.walletPlugins[0], nil
	}
	if k.ui == nil {
		return nil, errors.New("multiple wallets registered and no user interface to choose")
	}
	metas := make([]WalletMetadata, len(k.walletPlugins))
	for i, p := range k.walletPlugins {
		metas[i] = p.Metadata()
	}
	i, err := k.ui.SelectWallet(ctx, metas)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(k.walletPlugins) {
		return nil, fmt.Errorf("wallet selection %d out of range", i)
	}
	return k.walletPlugins[i], nil
}

func (k *Kit) chainByID(id antelope.ChainID) (antelope.ChainDefinition, bool) {
	for _, c := range k.chains {
		if c.ID == id {
			return c, true
		}
	}
	return antelope.ChainDefinition{}, false
}

func (k *Kit) walletByID(id string) (WalletPlugin, bool) {
	for _, p := range k.walletPlugins {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

func (k *Kit) newSession(chain antelope.ChainDefinition, level antelope.PermissionLevel, plugin WalletPlugin, data json.RawMessage) *Session {
	return &Session{
		AppName:         k.appName,
		Chain:           chain,
		PermissionLevel: level,
		WalletPlugin:    plugin,
		WalletData:      data,
		client:          k.clientFactory(chain),
		transactPlugins: k.transactPlugins,
		expireSeconds:   k.expireSeconds,
		now:             k.now,
	}
}

// Logout ends s. With a nil session every stored session is forgotten.
// Stored state is removed even when the wallet's teardown fails; that
// failure is returned as a *TeardownError.
func (k *Kit) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		if err := k.storage.Remove(ctx, keyDefaultSession); err != nil {
			return err
		}
		return k.storage.Remove(ctx, keyAllSessions)
	}

	var teardownErr error
	if lc, ok := s.WalletPlugin.(LogoutCapable); ok {
		if err := lc.Logout(ctx, s); err != nil {
			teardownErr = &TeardownError{Wallet: s.WalletPlugin.ID(), Err: err}
		}
	}

	if err := k.forget(ctx, s.Serialize()); err != nil {
		return errors.Join(teardownErr, err)
	}
	util.Debug("logged out", "session", s.String())
	return teardownErr
}

// RestoreArgs select a stored session other than the default one.
type RestoreArgs struct {
	Chain        antelope.ChainID
	Actor        antelope.Name
	Permission   antelope.Name
	WalletPlugin string
}

// Restore recovers a stored session without user interaction. A missing
// record, or one naming a chain or wallet that is no longer registered,
// yields (nil, nil).
func (k *Kit) Restore(ctx context.Context, args *RestoreArgs) (*Session, error) {
	var (
		record SerializedSession
		found  bool
	)
	if args == nil {
		data, err := k.storage.Read(ctx, keyDefaultSession)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &record); err != nil {
			util.Warn("discarding unreadable stored session", "error", err)
			return nil, nil
		}
		found = true
	} else {
		all, err := k.GetSessions(ctx)
		if err != nil {
			return nil, err
		}
		want := SerializedSession{
			Chain:        args.Chain,
			Actor:        args.Actor,
			Permission:   args.Permission,
			WalletPlugin: SerializedWalletPlugin{ID: args.WalletPlugin},
		}
		for _, r := range all {
			if r.sameIdentity(want) {
				record, found = r, true
				break
			}
		}
	}
	if !found {
		return nil, nil
	}

	chain, ok := k.chainByID(record.Chain)
	if !ok {
		util.Debug("stored session names unregistered chain", "chain", record.Chain)
		return nil, nil
	}
	plugin, ok := k.walletByID(record.WalletPlugin.ID)
	if !ok {
		util.Debug("stored session names unregistered wallet", "wallet", record.WalletPlugin.ID)
		return nil, nil
	}

	level := antelope.PermissionLevel{Actor: record.Actor, Permission: record.Permission}
	s := k.newSession(chain, level, plugin, record.WalletPlugin.Data)
	if err := k.persist(ctx, s); err != nil {
		util.Warn("failed to persist restored session", "session", s.String(), "error", err)
	}
	return s, nil
}

// GetSessions lists every stored session record.
func (k *Kit) GetSessions(ctx context.Context) ([]SerializedSession, error) {
	data, err := k.storage.Read(ctx, keyAllSessions)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var all []SerializedSession
	if err := json.Unmarshal(data, &all); err != nil {
		util.Warn("discarding unreadable session list", "error", err)
		return nil, nil
	}
	return all, nil
}

// persist stores s as the default session and adds it to the session list.
func (k *Kit) persist(ctx context.Context, s *Session) error {
	record := s.Serialize()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := k.storage.Write(ctx, keyDefaultSession, data); err != nil {
		return err
	}

	all, err := k.GetSessions(ctx)
	if err != nil {
		return err
	}
	updated := make([]SerializedSession, 0, len(all)+1)
	for _, r := range all {
		if r.sameIdentity(record) {
			continue
		}
		r.Default = false
		updated = append(updated, r)
	}
	record.Default = true
	updated = append(updated, record)
	return k.writeAll(ctx, updated)
}

// forget removes record from the session list and clears the default
// session if it matches.
func (k *Kit) forget(ctx context.Context, record SerializedSession) error {
	data, err := k.storage.Read(ctx, keyDefaultSession)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	default:
		var def SerializedSession
		if json.Unmarshal(data, &def) != nil || def.sameIdentity(record) {
			if err := k.storage.Remove(ctx, keyDefaultSession); err != nil {
				return err
			}
		}
	}

	all, err := k.GetSessions(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, r := range all {
		if !r.sameIdentity(record) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return k.storage.Remove(ctx, keyAllSessions)
	}
	return k.writeAll(ctx, kept)
}

func (k *Kit) writeAll(ctx context.Context, all []SerializedSession) error {
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return k.storage.Write(ctx, keyAllSessions, data)
}
