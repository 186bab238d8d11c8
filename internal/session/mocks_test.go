// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/apiclient"
)

// mockWallet implements WalletPlugin and LogoutCapable.
type mockWallet struct {
	id        string
	level     antelope.PermissionLevel
	chain     antelope.ChainID
	data      json.RawMessage
	loginErr  error
	signErr   error
	logoutErr error
	sigs      []antelope.Signature

	mu          sync.Mutex
	loginCalls  int
	logoutCalls int
	signedTx    *antelope.Transaction
	lastLogin   LoginContext
	lastSignCtx TransactContext
}

func (m *mockWallet) ID() string { return m.id }

func (m *mockWallet) Metadata() WalletMetadata {
	return WalletMetadata{ID: m.id, Name: "Mock " + m.id}
}

func (m *mockWallet) Login(ctx context.Context, lc LoginContext) (*WalletLoginResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginCalls++
	m.lastLogin = lc
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &WalletLoginResponse{Chain: m.chain, PermissionLevel: m.level, Data: m.data}, nil
}

func (m *mockWallet) Sign(ctx context.Context, tx *antelope.Transaction, tc TransactContext) ([]antelope.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedTx = tx
	m.lastSignCtx = tc
	if m.signErr != nil {
		return nil, m.signErr
	}
	if m.sigs != nil {
		return m.sigs, nil
	}
	return []antelope.Signature{"SIG_K1_wallet"}, nil
}

func (m *mockWallet) Logout(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutCalls++
	return m.logoutErr
}

// mockUI implements UserInterface with scripted answers.
type mockUI struct {
	chainChoice  int
	walletChoice int
	err          error

	chainPrompts  int
	walletPrompts int
	statuses      []string
	errs          []error
}

func (m *mockUI) SelectChain(ctx context.Context, chains []antelope.ChainDefinition) (int, error) {
	m.chainPrompts++
	return m.chainChoice, m.err
}

func (m *mockUI) SelectWallet(ctx context.Context, wallets []WalletMetadata) (int, error) {
	m.walletPrompts++
	return m.walletChoice, m.err
}

func (m *mockUI) Status(msg string) { m.statuses = append(m.statuses, msg) }

func (m *mockUI) OnError(err error) { m.errs = append(m.errs, err) }

// mockChain implements ChainClient.
type mockChain struct {
	info    *apiclient.Info
	infoErr error
	sendErr error
	sent    *antelope.SignedTransaction
}

const testBlockID = "0000000a00000000aabbccdd0000000000000000000000000000000000000000"

func (m *mockChain) GetInfo(ctx context.Context) (*apiclient.Info, error) {
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	if m.info != nil {
		return m.info, nil
	}
	return &apiclient.Info{ChainID: antelope.ChainEOS.ID, LastIrreversibleBlockID: testBlockID}, nil
}

func (m *mockChain) SendTransaction(ctx context.Context, tx *antelope.SignedTransaction) (*apiclient.SendTransactionResponse, error) {
	m.sent = tx
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return &apiclient.SendTransactionResponse{TransactionID: "sent"}, nil
}

// mockTransactPlugin implements TransactPlugin and AfterBroadcastHook.
type mockTransactPlugin struct {
	id       string
	result   *TransactHookResult
	err      error
	seen     []*antelope.Transaction
	after    int
	afterErr error
}

func (m *mockTransactPlugin) ID() string { return m.id }

func (m *mockTransactPlugin) BeforeSign(ctx context.Context, req *TransactRequest, tc TransactContext) (*TransactHookResult, error) {
	m.seen = append(m.seen, req.Transaction)
	return m.result, m.err
}

func (m *mockTransactPlugin) AfterBroadcast(ctx context.Context, result *TransactResult, tc TransactContext) error {
	m.after++
	return m.afterErr
}

// failingStorage fails every write.
type failingStorage struct {
	*MemoryStorage
	err error
}

func (f *failingStorage) Write(ctx context.Context, key string, data []byte) error {
	return f.err
}

var errTest = errors.New("test failure")

var apiInfoOtherChain = apiclient.Info{
	ChainID:                 antelope.ChainWAX.ID,
	LastIrreversibleBlockID: testBlockID,
}
