// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package bridge

import (
	"encoding/json"

	"github.com/aplane-algo/minter/internal/antelope"
)

// Methods every bridge implements
const (
	MethodInitialize = "initialize"
	MethodLogin      = "login"
	MethodSign       = "sign"
	MethodLogout     = "logout"
	MethodShutdown   = "shutdown"
)

// InitializeParams sent once after the bridge starts
type InitializeParams struct {
	AppName  string `json:"appName"`
	Wallet   string `json:"wallet"`
	Version  string `json:"version"`
	ChainID  string `json:"chainId"`
	ChainURL string `json:"chainUrl"`
}

// InitializeResult returned from bridge initialization
type InitializeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Version string `json:"version"`
}

// LoginParams asks the wallet to authenticate a user.
type LoginParams struct {
	AppName         string                   `json:"appName"`
	Chain           antelope.ChainID         `json:"chain"`
	Chains          []antelope.ChainID       `json:"chains"`
	PermissionLevel antelope.PermissionLevel `json:"permissionLevel,omitempty"`
}

// LoginResult identifies the account the wallet authenticated. Data is
// opaque wallet state handed back on later calls.
type LoginResult struct {
	Chain           antelope.ChainID         `json:"chain"`
	PermissionLevel antelope.PermissionLevel `json:"permissionLevel"`
	Data            json.RawMessage          `json:"data,omitempty"`
}

// SignParams asks the wallet to sign a transaction. Digest is the hex
// signing digest for Chain.
type SignParams struct {
	Chain           antelope.ChainID         `json:"chain"`
	PermissionLevel antelope.PermissionLevel `json:"permissionLevel"`
	Transaction     *antelope.Transaction    `json:"transaction"`
	Digest          string                   `json:"digest"`
	WalletData      json.RawMessage          `json:"walletData,omitempty"`
}

// SignResult carries the wallet's signatures.
type SignResult struct {
	Signatures []antelope.Signature `json:"signatures"`
}

// LogoutParams asks the wallet to drop its state for a session.
type LogoutParams struct {
	Chain           antelope.ChainID         `json:"chain"`
	PermissionLevel antelope.PermissionLevel `json:"permissionLevel"`
	WalletData      json.RawMessage          `json:"walletData,omitempty"`
}

// ShutdownParams (empty)
type ShutdownParams struct{}

// ShutdownResult confirms shutdown
type ShutdownResult struct {
	Success bool `json:"success"`
}
