// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package session

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrCancelled is returned by a UserInterface when the user backs out
	// of a prompt. Login surfaces it inside an AuthenticationError.
	ErrCancelled = errors.New("cancelled by user")

	// ErrNoWalletPlugins is returned by Login when the kit has no wallets.
	ErrNoWalletPlugins = errors.New("no wallet plugins registered")

	// ErrUnknownWallet is returned when a wallet id is not registered.
	ErrUnknownWallet = errors.New("unknown wallet plugin")

	// ErrUnknownChain is returned when a chain id is not registered.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrNotFound is returned by Storage.Read for a missing key.
	ErrNotFound = errors.New("not found in storage")
)

// AuthenticationError reports a failed or cancelled login.
type AuthenticationError struct {
	Wallet string // wallet plugin id, empty if failure happened before selection
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Wallet == "" {
		return fmt.Sprintf("login failed: %v", e.Err)
	}
	return fmt.Sprintf("login with %s failed: %v", e.Wallet, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TeardownError reports a failed logout. Local session state has already
// been removed when it is returned; the wallet side may still consider
// the session valid.
type TeardownError struct {
	Wallet string
	Err    error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("logout from %s failed: %v", e.Wallet, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
