// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package bridge talks to external wallet bridge processes over
// line-delimited JSON-RPC 2.0 on stdio.
package bridge

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC request from minter to a bridge.
type Request struct {
	Jsonrpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC response from a bridge.
type Response struct {
	Jsonrpc string           `json:"jsonrpc"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
	ID      interface{}      `json:"id"`
}

// Error is a JSON-RPC error object. It is returned from Call as an error
// so callers can branch on Code.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Wallet bridge error codes
const (
	BridgeError       = -32000
	UserRejected      = -32001
	WalletUnavailable = -32002
	WrongChain        = -32003
)

// NewRequest creates a new JSON-RPC request
func NewRequest(method string, params interface{}, id interface{}) *Request {
	return &Request{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

// IsNotification checks if this is a notification (no response expected)
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// ParseResult unmarshals the result into v.
func (r *Response) ParseResult(v interface{}) error {
	if r.Result == nil {
		return fmt.Errorf("no result in response")
	}
	if err := json.Unmarshal(*r.Result, v); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// HasError checks if the response contains an error
func (r *Response) HasError() bool {
	return r.Error != nil
}
