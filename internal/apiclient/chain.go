// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package apiclient

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/aplane-algo/minter/internal/antelope"
)

// Chain API paths.
const (
	PathGetInfo         = "/v1/chain/get_info"
	PathGetAccount      = "/v1/chain/get_account"
	PathGetABI          = "/v1/chain/get_abi"
	PathGetTableRows    = "/v1/chain/get_table_rows"
	PathAbiJSONToBin    = "/v1/chain/abi_json_to_bin"
	PathSendTransaction = "/v1/chain/send_transaction"
)

// Info is the reply of get_info.
type Info struct {
	ServerVersion            string           `json:"server_version"`
	ChainID                  antelope.ChainID `json:"chain_id"`
	HeadBlockNum             uint32           `json:"head_block_num"`
	HeadBlockID              string           `json:"head_block_id"`
	LastIrreversibleBlockNum uint32           `json:"last_irreversible_block_num"`
	LastIrreversibleBlockID  string           `json:"last_irreversible_block_id"`
	HeadBlockTime            string           `json:"head_block_time"`
	ServerVersionString      string           `json:"server_version_string,omitempty"`
}

// GetInfo returns the node's chain state.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.Call(ctx, PathGetInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PermissionAuth is one key or account entry of a permission's authority.
type PermissionAuth struct {
	Threshold uint32 `json:"threshold"`
	Keys      []struct {
		Key    string `json:"key"`
		Weight uint16 `json:"weight"`
	} `json:"keys"`
	Accounts []struct {
		Permission antelope.PermissionLevel `json:"permission"`
		Weight     uint16                   `json:"weight"`
	} `json:"accounts"`
}

// Permission is one entry of get_account's permissions list.
type Permission struct {
	PermName     antelope.Name  `json:"perm_name"`
	Parent       antelope.Name  `json:"parent"`
	RequiredAuth PermissionAuth `json:"required_auth"`
}

// ResourceLimit is a used/available/max triple.
type ResourceLimit struct {
	Used      json.Number `json:"used"`
	Available json.Number `json:"available"`
	Max       json.Number `json:"max"`
}

// AccountObject is the reply of get_account.
type AccountObject struct {
	AccountName    antelope.Name `json:"account_name"`
	HeadBlockNum   uint32        `json:"head_block_num"`
	Created        string        `json:"created"`
	CoreLiquid     string        `json:"core_liquid_balance,omitempty"`
	RAMQuota       json.Number   `json:"ram_quota"`
	RAMUsage       json.Number   `json:"ram_usage"`
	NetLimit       ResourceLimit `json:"net_limit"`
	CPULimit       ResourceLimit `json:"cpu_limit"`
	Permissions    []Permission  `json:"permissions"`
	Privileged     bool          `json:"privileged"`
	LastCodeUpdate string        `json:"last_code_update"`
}

// GetAccount fetches an account by name.
func (c *Client) GetAccount(ctx context.Context, name antelope.Name) (*AccountObject, error) {
	var acct AccountObject
	params := map[string]any{"account_name": name}
	if err := c.Call(ctx, PathGetAccount, params, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// ABI is the subset of a contract ABI used for action and table lookup.
type ABI struct {
	Version string `json:"version"`
	Structs []struct {
		Name   string `json:"name"`
		Base   string `json:"base"`
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	} `json:"structs"`
	Actions []struct {
		Name antelope.Name `json:"name"`
		Type string        `json:"type"`
	} `json:"actions"`
	Tables []struct {
		Name      antelope.Name `json:"name"`
		IndexType string        `json:"index_type"`
		KeyNames  []string      `json:"key_names"`
		KeyTypes  []string      `json:"key_types"`
		Type      string        `json:"type"`
	} `json:"tables"`
}

// GetABIResponse is the reply of get_abi. ABI is nil for accounts without
// a contract.
type GetABIResponse struct {
	AccountName antelope.Name `json:"account_name"`
	ABI         *ABI          `json:"abi,omitempty"`
}

// GetABI fetches an account's contract ABI.
func (c *Client) GetABI(ctx context.Context, account antelope.Name) (*GetABIResponse, error) {
	var resp GetABIResponse
	params := map[string]any{"account_name": account}
	if err := c.Call(ctx, PathGetABI, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TableRowsParams are the parameters of get_table_rows.
type TableRowsParams struct {
	Code       antelope.Name `json:"code"`
	Table      antelope.Name `json:"table"`
	Scope      string        `json:"scope"`
	LowerBound string        `json:"lower_bound,omitempty"`
	UpperBound string        `json:"upper_bound,omitempty"`
	Limit      int           `json:"limit,omitempty"`
	Reverse    bool          `json:"reverse,omitempty"`
	IndexPos   string        `json:"index_position,omitempty"`
	KeyType    string        `json:"key_type,omitempty"`
	JSON       bool          `json:"json"`
}

// TableRowsResponse is the reply of get_table_rows.
type TableRowsResponse struct {
	Rows    []json.RawMessage `json:"rows"`
	More    bool              `json:"more"`
	NextKey string            `json:"next_key"`
}

// GetTableRows reads contract table rows.
func (c *Client) GetTableRows(ctx context.Context, params TableRowsParams) (*TableRowsResponse, error) {
	var resp TableRowsResponse
	if err := c.Call(ctx, PathGetTableRows, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AbiJSONToBin encodes action arguments with the contract's ABI on the node.
// Returns the hex-encoded binary payload.
func (c *Client) AbiJSONToBin(ctx context.Context, code, action antelope.Name, args any) (string, error) {
	var resp struct {
		Binargs string `json:"binargs"`
	}
	params := map[string]any{"code": code, "action": action, "args": args}
	if err := c.Call(ctx, PathAbiJSONToBin, params, &resp); err != nil {
		return "", err
	}
	return resp.Binargs, nil
}

// SendTransactionResponse is the reply of send_transaction.
type SendTransactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	Processed     json.RawMessage `json:"processed"`
}

// SendTransaction packs and broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *antelope.SignedTransaction) (*SendTransactionResponse, error) {
	packed, err := tx.Pack()
	if err != nil {
		return nil, err
	}
	params := map[string]any{
		"signatures":               tx.Signatures,
		"compression":              0,
		"packed_context_free_data": "",
		"packed_trx":               hex.EncodeToString(packed),
	}
	var resp SendTransactionResponse
	if err := c.Call(ctx, PathSendTransaction, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
