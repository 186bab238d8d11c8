// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package wallet provides the wallet plugins minter offers at login.
// Each wallet is reached through an external bridge process that speaks
// the wallet's native protocol.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/util"
	"github.com/aplane-algo/minter/internal/wallet/bridge"
)

// ErrBridgeNotConfigured is returned when a wallet has no bridge command.
var ErrBridgeNotConfigured = errors.New("wallet bridge not configured")

// Known wallets, in the order they are offered.
var (
	Anchor = session.WalletMetadata{
		ID:          "anchor",
		Name:        "Anchor",
		Description: "Secure your accounts with Anchor",
		Homepage:    "https://www.greymass.com/anchor",
		Download:    "https://www.greymass.com/anchor#download",
	}
	TokenPocket = session.WalletMetadata{
		ID:          "tokenpocket",
		Name:        "TokenPocket",
		Description: "Multi-chain mobile wallet",
		Homepage:    "https://www.tokenpocket.pro",
		Download:    "https://www.tokenpocket.pro/en/download/app",
	}
	Scatter = session.WalletMetadata{
		ID:          "scatter",
		Name:        "Scatter",
		Description: "Scatter-compatible desktop wallets",
		Homepage:    "https://github.com/GetScatter",
	}
	Wombat = session.WalletMetadata{
		ID:          "wombat",
		Name:        "Wombat",
		Description: "Wombat mobile and browser wallet",
		Homepage:    "https://www.wombat.app",
		Download:    "https://www.wombat.app/the-app",
	}
)

// Known returns the metadata of every built-in wallet in offer order.
func Known() []session.WalletMetadata {
	return []session.WalletMetadata{Anchor, TokenPocket, Scatter, Wombat}
}

// Plugin is a session.WalletPlugin backed by a bridge process.
type Plugin struct {
	meta    session.WalletMetadata
	process bridge.Process
	bridges *bridge.Manager
}

// New creates a plugin for meta that launches its bridge with cfg.
func New(meta session.WalletMetadata, cfg util.WalletBridgeConfig, bridges *bridge.Manager) *Plugin {
	return &Plugin{
		meta: meta,
		process: bridge.Process{
			Wallet:  meta.ID,
			Command: cfg.Command,
			Args:    cfg.Args,
		},
		bridges: bridges,
	}
}

// Defaults builds the built-in wallet set. Wallets without a configured
// bridge are still offered; choosing one fails with ErrBridgeNotConfigured.
func Defaults(cfg map[string]util.WalletBridgeConfig, bridges *bridge.Manager) []session.WalletPlugin {
	known := Known()
	plugins := make([]session.WalletPlugin, 0, len(known))
	for _, meta := range known {
		plugins = append(plugins, New(meta, cfg[meta.ID], bridges))
	}
	return plugins
}

func (p *Plugin) ID() string { return p.meta.ID }

func (p *Plugin) Metadata() session.WalletMetadata { return p.meta }

// Configured reports whether the plugin has a bridge command.
func (p *Plugin) Configured() bool { return p.process.Command != "" }

func (p *Plugin) client(ctx context.Context) (*bridge.Client, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("%w: set wallets.%s.command in config.yaml", ErrBridgeNotConfigured, p.meta.ID)
	}
	if p.bridges == nil {
		return nil, errors.New("no bridge manager")
	}
	inst, err := p.bridges.Get(ctx, p.process)
	if err != nil {
		return nil, err
	}
	return inst.Client, nil
}

// Login asks the wallet to authenticate an account.
func (p *Plugin) Login(ctx context.Context, lc session.LoginContext) (*session.WalletLoginResponse, error) {
	c, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	if lc.UI != nil {
		lc.UI.Status(fmt.Sprintf("Approve the login request in %s", p.meta.Name))
	}

	chains := make([]antelope.ChainID, len(lc.Chains))
	for i, chain := range lc.Chains {
		chains[i] = chain.ID
	}
	var result bridge.LoginResult
	err = c.Call(ctx, bridge.MethodLogin, bridge.LoginParams{
		AppName:         lc.AppName,
		Chain:           lc.Chain.ID,
		Chains:          chains,
		PermissionLevel: lc.PermissionLevel,
	}, &result)
	if err != nil {
		return nil, mapError(err)
	}
	return &session.WalletLoginResponse{
		Chain:           result.Chain,
		PermissionLevel: result.PermissionLevel,
		Data:            result.Data,
	}, nil
}

// Sign asks the wallet to sign tx for the session's chain.
func (p *Plugin) Sign(ctx context.Context, tx *antelope.Transaction, tc session.TransactContext) ([]antelope.Signature, error) {
	digest, err := tx.SigningDigest(tc.Chain.ID)
	if err != nil {
		return nil, err
	}
	c, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	var result bridge.SignResult
	err = c.Call(ctx, bridge.MethodSign, bridge.SignParams{
		Chain:           tc.Chain.ID,
		PermissionLevel: tc.PermissionLevel,
		Transaction:     tx,
		Digest:          hex.EncodeToString(digest),
		WalletData:      tc.WalletData,
	}, &result)
	if err != nil {
		return nil, mapError(err)
	}
	return result.Signatures, nil
}

// Logout tells the wallet to drop the session. Unconfigured wallets have
// nothing to tear down.
func (p *Plugin) Logout(ctx context.Context, s *session.Session) error {
	if !p.Configured() {
		return nil
	}
	c, err := p.client(ctx)
	if err != nil {
		return err
	}
	err = c.Call(ctx, bridge.MethodLogout, bridge.LogoutParams{
		Chain:           s.Chain.ID,
		PermissionLevel: s.PermissionLevel,
		WalletData:      s.WalletData,
	}, nil)
	return mapError(err)
}

// mapError turns a user rejection reported by the bridge into
// session.ErrCancelled.
func mapError(err error) error {
	var rpcErr *bridge.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == bridge.UserRejected {
		return fmt.Errorf("%w: %s", session.ErrCancelled, rpcErr.Message)
	}
	return err
}

var (
	_ session.WalletPlugin  = (*Plugin)(nil)
	_ session.LogoutCapable = (*Plugin)(nil)
)
