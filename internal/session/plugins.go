// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package session

import (
	"context"
	"encoding/json"

	"github.com/aplane-algo/minter/internal/antelope"
)

// WalletMetadata describes a wallet for selection prompts.
type WalletMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
	Download    string `json:"download,omitempty"`
}

// LoginContext is what a wallet plugin gets to authenticate a user.
type LoginContext struct {
	AppName string
	Chain   antelope.ChainDefinition
	Chains  []antelope.ChainDefinition

	// PermissionLevel is set when the caller already knows which account
	// to use; wallets should log in with it or fail.
	PermissionLevel antelope.PermissionLevel

	UI UserInterface
}

// WalletLoginResponse is the identity a wallet plugin selected.
type WalletLoginResponse struct {
	Chain           antelope.ChainID         `json:"chain"`
	PermissionLevel antelope.PermissionLevel `json:"permissionLevel"`

	// Data is wallet-private state stored with the session and handed
	// back on every sign call (e.g. a channel id).
	Data json.RawMessage `json:"data,omitempty"`
}

// TransactContext is what plugins get when a transaction is processed.
type TransactContext struct {
	AppName         string
	Chain           antelope.ChainDefinition
	PermissionLevel antelope.PermissionLevel
	WalletData      json.RawMessage
	Client          ChainClient
}

// WalletPlugin produces identities and signatures for one wallet technology.
type WalletPlugin interface {
	ID() string
	Metadata() WalletMetadata
	Login(ctx context.Context, lc LoginContext) (*WalletLoginResponse, error)
	Sign(ctx context.Context, tx *antelope.Transaction, tc TransactContext) ([]antelope.Signature, error)
}

// LogoutCapable is implemented by wallets that hold remote session state.
type LogoutCapable interface {
	Logout(ctx context.Context, s *Session) error
}

// TransactRequest is the transaction under construction. Hooks may
// replace Transaction.
type TransactRequest struct {
	Transaction *antelope.Transaction
}

// TransactHookResult is what a BeforeSign hook returns. A nil result or
// nil Transaction leaves the request unchanged.
type TransactHookResult struct {
	Transaction *antelope.Transaction
	Signatures  []antelope.Signature
}

// TransactPlugin augments transactions before the wallet signs them.
type TransactPlugin interface {
	ID() string
	BeforeSign(ctx context.Context, req *TransactRequest, tc TransactContext) (*TransactHookResult, error)
}

// AfterBroadcastHook is implemented by transact plugins that want to see
// the broadcast result. Errors are logged, not returned.
type AfterBroadcastHook interface {
	AfterBroadcast(ctx context.Context, result *TransactResult, tc TransactContext) error
}

// UserInterface is the interactive part of login.
type UserInterface interface {
	// SelectChain returns an index into chains.
	SelectChain(ctx context.Context, chains []antelope.ChainDefinition) (int, error)
	// SelectWallet returns an index into wallets.
	SelectWallet(ctx context.Context, wallets []WalletMetadata) (int, error)
	// Status shows a progress message.
	Status(msg string)
	// OnError shows a failure.
	OnError(err error)
}
