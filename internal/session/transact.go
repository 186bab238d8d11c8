// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
	"github.com/aplane-algo/minter/internal/util"
)

// TransactArgs is either a list of actions or a prepared transaction.
type TransactArgs struct {
	Actions     []antelope.Action
	Transaction *antelope.Transaction
}

// TransactOptions adjust one Transact call.
type TransactOptions struct {
	NoBroadcast   bool
	ExpireSeconds int

	// TransactPlugins replaces the kit's transact plugins for this call.
	TransactPlugins []TransactPlugin
}

// TransactResult is the outcome of Transact.
type TransactResult struct {
	ID          string
	Transaction *antelope.SignedTransaction
	Broadcast   bool
	Response    *apiclient.SendTransactionResponse
}

// Transact builds, augments, signs and (unless disabled) broadcasts a
// transaction with the session's wallet.
func (s *Session) Transact(ctx context.Context, args TransactArgs, opts TransactOptions) (*TransactResult, error) {
	tx, err := s.prepare(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	tc := TransactContext{
		AppName:         s.AppName,
		Chain:           s.Chain,
		PermissionLevel: s.PermissionLevel,
		WalletData:      s.WalletData,
		Client:          s.client,
	}

	plugins := s.transactPlugins
	if opts.TransactPlugins != nil {
		plugins = opts.TransactPlugins
	}

	req := &TransactRequest{Transaction: tx}
	var cosignatures []antelope.Signature
	for _, p := range plugins {
		res, err := p.BeforeSign(ctx, req, tc)
		if err != nil {
			return nil, fmt.Errorf("transact plugin %s: %w", p.ID(), err)
		}
		if res == nil {
			continue
		}
		if res.Transaction != nil {
			req.Transaction = res.Transaction
			// A replaced transaction invalidates earlier cosignatures.
			cosignatures = nil
		}
		cosignatures = append(cosignatures, res.Signatures...)
	}

	signatures, err := s.WalletPlugin.Sign(ctx, req.Transaction, tc)
	if err != nil {
		return nil, fmt.Errorf("%s failed to sign: %w", s.WalletPlugin.ID(), err)
	}
	if len(signatures) == 0 {
		return nil, fmt.Errorf("%s returned no signatures", s.WalletPlugin.ID())
	}

	signed := &antelope.SignedTransaction{
		Transaction: *req.Transaction,
		Signatures:  append(cosignatures, signatures...),
	}
	id, err := signed.ID()
	if err != nil {
		return nil, err
	}
	result := &TransactResult{ID: id, Transaction: signed}

	if opts.NoBroadcast {
		return result, nil
	}
	if s.client == nil {
		return nil, errors.New("session has no chain client")
	}
	resp, err := s.client.SendTransaction(ctx, signed)
	if err != nil {
		return nil, err
	}
	result.Broadcast = true
	result.Response = resp
	util.Debug("transaction broadcast", "id", id, "session", s.String())

	for _, p := range plugins {
		if hook, ok := p.(AfterBroadcastHook); ok {
			if err := hook.AfterBroadcast(ctx, result, tc); err != nil {
				util.Warn("after-broadcast hook failed", "plugin", p.ID(), "error", err)
			}
		}
	}
	return result, nil
}

func (s *Session) prepare(ctx context.Context, args TransactArgs, opts TransactOptions) (*antelope.Transaction, error) {
	var tx antelope.Transaction
	switch {
	case args.Transaction != nil:
		tx = *args.Transaction
		tx.Actions = append([]antelope.Action(nil), args.Transaction.Actions...)
	case len(args.Actions) > 0:
		tx.Actions = append([]antelope.Action(nil), args.Actions...)
	default:
		return nil, errors.New("transaction has no actions")
	}
	if tx.ContextFreeActions == nil {
		tx.ContextFreeActions = []antelope.Action{}
	}
	if tx.TransactionExtensions == nil {
		tx.TransactionExtensions = []antelope.Extension{}
	}

	if tx.Expiration.Time().IsZero() || tx.Expiration.Time().Unix() == 0 {
		if s.client == nil {
			return nil, errors.New("session has no chain client")
		}
		info, err := s.client.GetInfo(ctx)
		if err != nil {
			return nil, err
		}
		if info.ChainID != "" && info.ChainID != s.Chain.ID {
			return nil, fmt.Errorf("node is on chain %s, session is for %s", info.ChainID, s.Chain.ID)
		}
		expire := s.expireSeconds
		if opts.ExpireSeconds > 0 {
			expire = opts.ExpireSeconds
		}
		if err := tx.SetTAPOS(info.LastIrreversibleBlockID, s.now(), expire); err != nil {
			return nil, err
		}
	}
	return &tx, nil
}
