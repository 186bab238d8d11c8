// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package contract loads contract ABIs and builds actions and table
// queries against them.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
)

// Sentinel errors.
var (
	ErrNoABI           = errors.New("account has no contract ABI")
	ErrUnknownAction   = errors.New("action not in contract ABI")
	ErrUnknownTable    = errors.New("table not in contract ABI")
	ErrNoAuthorization = errors.New("action requires at least one authorization")
)

// Client is the transport capability the kit needs.
type Client interface {
	GetABI(ctx context.Context, account antelope.Name) (*apiclient.GetABIResponse, error)
	AbiJSONToBin(ctx context.Context, code, action antelope.Name, args any) (string, error)
	GetTableRows(ctx context.Context, params apiclient.TableRowsParams) (*apiclient.TableRowsResponse, error)
}

// Kit loads contracts. ABIs are cached per account for the kit's lifetime.
type Kit struct {
	client Client

	mu   sync.Mutex
	abis map[antelope.Name]*apiclient.ABI
}

// NewKit creates a contract kit. No network I/O happens until Load.
func NewKit(client Client) *Kit {
	return &Kit{
		client: client,
		abis:   make(map[antelope.Name]*apiclient.ABI),
	}
}

// Load returns the contract deployed at account.
func (k *Kit) Load(ctx context.Context, account string) (*Contract, error) {
	name, err := antelope.ParseName(account)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	abi, ok := k.abis[name]
	k.mu.Unlock()
	if !ok {
		resp, err := k.client.GetABI(ctx, name)
		if err != nil {
			return nil, err
		}
		if resp.ABI == nil {
			return nil, fmt.Errorf("%s: %w", name, ErrNoABI)
		}
		abi = resp.ABI
		k.mu.Lock()
		k.abis[name] = abi
		k.mu.Unlock()
	}

	return &Contract{Account: name, ABI: abi, client: k.client}, nil
}

// Forget drops a cached ABI, e.g. after a contract update.
func (k *Kit) Forget(account antelope.Name) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.abis, account)
}

// Contract is a loaded contract.
type Contract struct {
	Account antelope.Name
	ABI     *apiclient.ABI

	client Client
}

// ActionNames lists the actions declared by the ABI.
func (c *Contract) ActionNames() []antelope.Name {
	names := make([]antelope.Name, 0, len(c.ABI.Actions))
	for _, a := range c.ABI.Actions {
		names = append(names, a.Name)
	}
	return names
}

// TableNames lists the tables declared by the ABI.
func (c *Contract) TableNames() []antelope.Name {
	names := make([]antelope.Name, 0, len(c.ABI.Tables))
	for _, t := range c.ABI.Tables {
		names = append(names, t.Name)
	}
	return names
}

func (c *Contract) hasAction(name antelope.Name) bool {
	for _, a := range c.ABI.Actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

func (c *Contract) hasTable(name antelope.Name) bool {
	for _, t := range c.ABI.Tables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Action encodes data for the named action and returns it ready to be
// included in a transaction.
func (c *Contract) Action(ctx context.Context, name string, data any, auth ...antelope.PermissionLevel) (antelope.Action, error) {
	n, err := antelope.ParseName(name)
	if err != nil {
		return antelope.Action{}, err
	}
	if !c.hasAction(n) {
		return antelope.Action{}, fmt.Errorf("%s::%s: %w", c.Account, n, ErrUnknownAction)
	}
	if len(auth) == 0 {
		return antelope.Action{}, fmt.Errorf("%s::%s: %w", c.Account, n, ErrNoAuthorization)
	}
	bin, err := c.client.AbiJSONToBin(ctx, c.Account, n, data)
	if err != nil {
		return antelope.Action{}, err
	}
	return antelope.Action{
		Account:       c.Account,
		Name:          n,
		Authorization: auth,
		Data:          bin,
	}, nil
}

// Table returns a handle for reading the named table.
func (c *Contract) Table(name string) (*Table, error) {
	n, err := antelope.ParseName(name)
	if err != nil {
		return nil, err
	}
	if !c.hasTable(n) {
		return nil, fmt.Errorf("%s::%s: %w", c.Account, n, ErrUnknownTable)
	}
	return &Table{contract: c, name: n}, nil
}

// Table reads rows of one contract table.
type Table struct {
	contract *Contract
	name     antelope.Name
}

// Query selects rows. Scope defaults to the contract account.
type Query struct {
	Scope      string
	LowerBound string
	UpperBound string
	Limit      int
	Reverse    bool
}

// Rows returns one page of decoded rows and whether more remain.
func (t *Table) Rows(ctx context.Context, q Query) ([]json.RawMessage, bool, error) {
	scope := q.Scope
	if scope == "" {
		scope = string(t.contract.Account)
	}
	resp, err := t.contract.client.GetTableRows(ctx, apiclient.TableRowsParams{
		Code:       t.contract.Account,
		Table:      t.name,
		Scope:      scope,
		LowerBound: q.LowerBound,
		UpperBound: q.UpperBound,
		Limit:      q.Limit,
		Reverse:    q.Reverse,
		JSON:       true,
	})
	if err != nil {
		return nil, false, err
	}
	return resp.Rows, resp.More, nil
}
