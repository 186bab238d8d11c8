// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package account resolves account names against a chain.
package account

import (
	"context"
	"fmt"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
)

// Client is the transport capability the kit needs.
type Client interface {
	GetAccount(ctx context.Context, name antelope.Name) (*apiclient.AccountObject, error)
}

// Kit looks up accounts on one chain.
type Kit struct {
	chain  antelope.ChainDefinition
	client Client
}

// NewKit creates an account kit. No network I/O happens until Load.
func NewKit(chain antelope.ChainDefinition, client Client) *Kit {
	return &Kit{chain: chain, client: client}
}

// Chain returns the chain this kit resolves against.
func (k *Kit) Chain() antelope.ChainDefinition {
	return k.chain
}

// Account is a loaded on-chain account.
type Account struct {
	Chain antelope.ChainDefinition
	Data  *apiclient.AccountObject
}

// Load fetches an account by name. Invalid names fail before any request.
func (k *Kit) Load(ctx context.Context, name string) (*Account, error) {
	n, err := antelope.ParseName(name)
	if err != nil {
		return nil, err
	}
	data, err := k.client.GetAccount(ctx, n)
	if err != nil {
		return nil, err
	}
	return &Account{Chain: k.chain, Data: data}, nil
}

// Name returns the account name.
func (a *Account) Name() antelope.Name {
	return a.Data.AccountName
}

// Balance returns the liquid core token balance, or "" if the node did
// not report one.
func (a *Account) Balance() string {
	return a.Data.CoreLiquid
}

// Permission returns the named permission.
func (a *Account) Permission(name string) (*apiclient.Permission, error) {
	for i := range a.Data.Permissions {
		if string(a.Data.Permissions[i].PermName) == name {
			return &a.Data.Permissions[i], nil
		}
	}
	return nil, fmt.Errorf("account %s has no permission %q", a.Name(), name)
}

// PermissionLevels lists actor@permission for every permission of the account.
func (a *Account) PermissionLevels() []antelope.PermissionLevel {
	levels := make([]antelope.PermissionLevel, 0, len(a.Data.Permissions))
	for _, p := range a.Data.Permissions {
		levels = append(levels, antelope.PermissionLevel{Actor: a.Name(), Permission: p.PermName})
	}
	return levels
}
