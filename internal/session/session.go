// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package session coordinates wallet selection, authentication,
// persistence and transaction signing across wallet and transact plugins.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
)

// ChainClient is the transport capability sessions use to build and
// broadcast transactions.
type ChainClient interface {
	GetInfo(ctx context.Context) (*apiclient.Info, error)
	SendTransaction(ctx context.Context, tx *antelope.SignedTransaction) (*apiclient.SendTransactionResponse, error)
}

// Session is an authenticated wallet identity on one chain.
type Session struct {
	AppName         string
	Chain           antelope.ChainDefinition
	PermissionLevel antelope.PermissionLevel
	WalletPlugin    WalletPlugin
	WalletData      json.RawMessage

	client          ChainClient
	transactPlugins []TransactPlugin
	expireSeconds   int
	now             func() time.Time
}

// Actor returns the session's account name.
func (s *Session) Actor() antelope.Name { return s.PermissionLevel.Actor }

// Permission returns the session's permission name.
func (s *Session) Permission() antelope.Name { return s.PermissionLevel.Permission }

// Client returns the chain client bound to the session's chain.
func (s *Session) Client() ChainClient { return s.client }

func (s *Session) String() string {
	return s.PermissionLevel.String() + " (" + s.WalletPlugin.ID() + ")"
}

// SerializedSession is the persisted form of a Session.
type SerializedSession struct {
	Chain        antelope.ChainID       `json:"chain"`
	Actor        antelope.Name          `json:"actor"`
	Permission   antelope.Name          `json:"permission"`
	WalletPlugin SerializedWalletPlugin `json:"walletPlugin"`
	Default      bool                   `json:"default,omitempty"`
}

// SerializedWalletPlugin identifies the wallet and carries its private data.
type SerializedWalletPlugin struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Serialize returns the persisted form of the session.
func (s *Session) Serialize() SerializedSession {
	return SerializedSession{
		Chain:      s.Chain.ID,
		Actor:      s.PermissionLevel.Actor,
		Permission: s.PermissionLevel.Permission,
		WalletPlugin: SerializedWalletPlugin{
			ID:   s.WalletPlugin.ID(),
			Data: s.WalletData,
		},
	}
}

// sameIdentity reports whether two records name the same chain, account,
// permission and wallet.
func (a SerializedSession) sameIdentity(b SerializedSession) bool {
	return a.Chain == b.Chain &&
		a.Actor == b.Actor &&
		a.Permission == b.Permission &&
		a.WalletPlugin.ID == b.WalletPlugin.ID
}
