// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
)

var alice = antelope.PermissionLevel{Actor: "alice", Permission: "active"}

func newTestKit(ui UserInterface, storage Storage, wallets ...WalletPlugin) (*Kit, *mockChain) {
	chain := &mockChain{}
	kit := NewKit(KitArgs{
		AppName:       "Test",
		Chains:        []antelope.ChainDefinition{antelope.ChainEOS},
		UI:            ui,
		WalletPlugins: wallets,
	}, KitOptions{
		Storage:       storage,
		ClientFactory: func(antelope.ChainDefinition) ChainClient { return chain },
		Now:           func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	return kit, chain
}

func TestKitLogin_SingleWalletSkipsPrompt(t *testing.T) {
	ui := &mockUI{}
	wallet := &mockWallet{id: "anchor", level: alice, data: json.RawMessage(`{"channel":"c1"}`)}
	kit, _ := newTestKit(ui, nil, wallet)

	result, err := kit.Login(context.Background(), LoginOptions{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ui.walletPrompts != 0 || ui.chainPrompts != 0 {
		t.Errorf("unexpected prompts: wallet=%d chain=%d", ui.walletPrompts, ui.chainPrompts)
	}
	s := result.Session
	if s.PermissionLevel != alice || s.WalletPlugin != wallet {
		t.Errorf("unexpected session %v", s)
	}
	if s.Chain.ID != antelope.ChainEOS.ID {
		t.Errorf("session chain = %s", s.Chain.ID)
	}
	if string(s.WalletData) != `{"channel":"c1"}` {
		t.Errorf("wallet data = %s", s.WalletData)
	}
	if wallet.lastLogin.AppName != "Test" {
		t.Errorf("wallet saw app name %q", wallet.lastLogin.AppName)
	}
	if len(ui.statuses) == 0 {
		t.Error("expected a status message")
	}
}

func TestKitLogin_PromptsForWallet(t *testing.T) {
	ui := &mockUI{walletChoice: 1}
	first := &mockWallet{id: "anchor", level: alice}
	second := &mockWallet{id: "wombat", level: alice}
	kit, _ := newTestKit(ui, nil, first, second)

	result, err := kit.Login(context.Background(), LoginOptions{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ui.walletPrompts != 1 {
		t.Errorf("walletPrompts = %d, want 1", ui.walletPrompts)
	}
	if result.Session.WalletPlugin != second || first.loginCalls != 0 {
		t.Error("wrong wallet used")
	}
	if result.Wallet.ID != "wombat" {
		t.Errorf("result wallet = %q", result.Wallet.ID)
	}
}

func TestKitLogin_WalletOptionSkipsPrompt(t *testing.T) {
	ui := &mockUI{walletChoice: 0}
	kit, _ := newTestKit(ui, nil, &mockWallet{id: "anchor", level: alice}, &mockWallet{id: "scatter", level: alice})

	result, err := kit.Login(context.Background(), LoginOptions{WalletPlugin: "scatter"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ui.walletPrompts != 0 || result.Wallet.ID != "scatter" {
		t.Errorf("prompts=%d wallet=%s", ui.walletPrompts, result.Wallet.ID)
	}

	_, err = kit.Login(context.Background(), LoginOptions{WalletPlugin: "nope"})
	if !errors.Is(err, ErrUnknownWallet) {
		t.Errorf("expected ErrUnknownWallet, got %v", err)
	}
}

func TestKitLogin_Failures(t *testing.T) {
	walletErr := errors.New("user rejected")
	tests := []struct {
		name    string
		ui      *mockUI
		wallets []WalletPlugin
		opts    LoginOptions
		wantIs  error
	}{
		{
			name:    "cancelled wallet prompt",
			ui:      &mockUI{err: ErrCancelled},
			wallets: []WalletPlugin{&mockWallet{id: "a", level: alice}, &mockWallet{id: "b", level: alice}},
			wantIs:  ErrCancelled,
		},
		{
			name:    "wallet rejects",
			ui:      &mockUI{},
			wallets: []WalletPlugin{&mockWallet{id: "a", loginErr: walletErr}},
			wantIs:  walletErr,
		},
		{
			name:   "no wallets",
			ui:     &mockUI{},
			wantIs: ErrNoWalletPlugins,
		},
		{
			name:    "unknown chain",
			ui:      &mockUI{},
			wallets: []WalletPlugin{&mockWallet{id: "a", level: alice}},
			opts:    LoginOptions{Chain: antelope.ChainWAX.ID},
			wantIs:  ErrUnknownChain,
		},
		{
			name:    "wallet on wrong chain",
			ui:      &mockUI{},
			wallets: []WalletPlugin{&mockWallet{id: "a", level: alice, chain: antelope.ChainWAX.ID}},
		},
		{
			name:    "wallet returns no account",
			ui:      &mockUI{},
			wallets: []WalletPlugin{&mockWallet{id: "a"}},
		},
		{
			name:    "wallet picks different identity",
			ui:      &mockUI{},
			wallets: []WalletPlugin{&mockWallet{id: "a", level: alice}},
			opts:    LoginOptions{PermissionLevel: antelope.PermissionLevel{Actor: "bob", Permission: "active"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			kit, _ := newTestKit(tt.ui, storage, tt.wallets...)

			result, err := kit.Login(context.Background(), tt.opts)
			if result != nil {
				t.Errorf("expected nil result, got %v", result)
			}
			var authErr *AuthenticationError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected *AuthenticationError, got %T %v", err, err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error %v does not wrap %v", err, tt.wantIs)
			}
			if len(tt.ui.errs) != 1 {
				t.Errorf("OnError called %d times, want 1", len(tt.ui.errs))
			}
			if _, err := storage.Read(context.Background(), keyDefaultSession); !errors.Is(err, ErrNotFound) {
				t.Error("failed login must not persist a session")
			}
		})
	}
}

func TestKitLogin_PersistFailureIsNotFatal(t *testing.T) {
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(), err: errors.New("disk full")}
	kit, _ := newTestKit(&mockUI{}, storage, &mockWallet{id: "anchor", level: alice})

	if _, err := kit.Login(context.Background(), LoginOptions{}); err != nil {
		t.Fatalf("Login should succeed when persistence fails: %v", err)
	}
}

func TestKitLogin_MultipleChainsPrompt(t *testing.T) {
	ui := &mockUI{chainChoice: 1}
	kit := NewKit(KitArgs{
		Chains:        []antelope.ChainDefinition{antelope.ChainEOS, antelope.ChainJungle4},
		UI:            ui,
		WalletPlugins: []WalletPlugin{&mockWallet{id: "anchor", level: alice}},
	}, KitOptions{})

	result, err := kit.Login(context.Background(), LoginOptions{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ui.chainPrompts != 1 || result.Chain.ID != antelope.ChainJungle4.ID {
		t.Errorf("prompts=%d chain=%s", ui.chainPrompts, result.Chain.ID)
	}
}

func TestKitRestore(t *testing.T) {
	storage := NewMemoryStorage()
	wallet := &mockWallet{id: "anchor", level: alice, data: json.RawMessage(`{"k":1}`)}

	kit, _ := newTestKit(&mockUI{}, storage, wallet)
	restored, err := kit.Restore(context.Background(), nil)
	if err != nil || restored != nil {
		t.Fatalf("Restore with empty storage = (%v, %v), want (nil, nil)", restored, err)
	}

	if _, err := kit.Login(context.Background(), LoginOptions{}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A fresh kit over the same storage recovers the session.
	kit2, _ := newTestKit(&mockUI{}, storage, wallet)
	restored, err = kit2.Restore(context.Background(), nil)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored == nil {
		t.Fatal("Restore returned nil session")
	}
	if restored.PermissionLevel != alice || restored.WalletPlugin != wallet {
		t.Errorf("restored %v", restored)
	}
	if string(restored.WalletData) != `{"k":1}` {
		t.Errorf("wallet data = %s", restored.WalletData)
	}
	if wallet.loginCalls != 1 {
		t.Errorf("Restore must not call wallet Login, loginCalls = %d", wallet.loginCalls)
	}
}

func TestKitRestore_UnregisteredWallet(t *testing.T) {
	storage := NewMemoryStorage()
	kit, _ := newTestKit(&mockUI{}, storage, &mockWallet{id: "anchor", level: alice})
	if _, err := kit.Login(context.Background(), LoginOptions{}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	kit2, _ := newTestKit(&mockUI{}, storage, &mockWallet{id: "wombat", level: alice})
	restored, err := kit2.Restore(context.Background(), nil)
	if err != nil || restored != nil {
		t.Errorf("Restore = (%v, %v), want (nil, nil)", restored, err)
	}
}

func TestKitRestore_CorruptRecord(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.Write(context.Background(), keyDefaultSession, []byte("{"))
	kit, _ := newTestKit(&mockUI{}, storage, &mockWallet{id: "anchor", level: alice})

	restored, err := kit.Restore(context.Background(), nil)
	if err != nil || restored != nil {
		t.Errorf("Restore = (%v, %v), want (nil, nil)", restored, err)
	}
}

func TestKitRestore_ByArgs(t *testing.T) {
	storage := NewMemoryStorage()
	bob := antelope.PermissionLevel{Actor: "bob", Permission: "active"}
	aliceWallet := &mockWallet{id: "anchor", level: alice}
	bobWallet := &mockWallet{id: "wombat", level: bob}
	kit, _ := newTestKit(&mockUI{}, storage, aliceWallet, bobWallet)

	if _, err := kit.Login(context.Background(), LoginOptions{WalletPlugin: "anchor"}); err != nil {
		t.Fatal(err)
	}
	if _, err := kit.Login(context.Background(), LoginOptions{WalletPlugin: "wombat"}); err != nil {
		t.Fatal(err)
	}

	all, err := kit.GetSessions(context.Background())
	if err != nil {
		t.Fatalf("GetSessions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetSessions returned %d records, want 2", len(all))
	}
	if all[0].Default || !all[1].Default {
		t.Errorf("latest login should be the only default: %+v", all)
	}

	restored, err := kit.Restore(context.Background(), &RestoreArgs{
		Chain:        antelope.ChainEOS.ID,
		Actor:        "alice",
		Permission:   "active",
		WalletPlugin: "anchor",
	})
	if err != nil || restored == nil {
		t.Fatalf("Restore by args = (%v, %v)", restored, err)
	}
	if restored.PermissionLevel != alice {
		t.Errorf("restored %v", restored.PermissionLevel)
	}

	missing, err := kit.Restore(context.Background(), &RestoreArgs{Chain: antelope.ChainEOS.ID, Actor: "carol", Permission: "active", WalletPlugin: "anchor"})
	if err != nil || missing != nil {
		t.Errorf("Restore of unknown record = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestKitLogout(t *testing.T) {
	storage := NewMemoryStorage()
	wallet := &mockWallet{id: "anchor", level: alice}
	kit, _ := newTestKit(&mockUI{}, storage, wallet)

	result, err := kit.Login(context.Background(), LoginOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := kit.Logout(context.Background(), result.Session); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if wallet.logoutCalls != 1 {
		t.Errorf("wallet Logout called %d times", wallet.logoutCalls)
	}
	restored, err := kit.Restore(context.Background(), nil)
	if err != nil || restored != nil {
		t.Errorf("Restore after Logout = (%v, %v), want (nil, nil)", restored, err)
	}
	all, _ := kit.GetSessions(context.Background())
	if len(all) != 0 {
		t.Errorf("session list not cleared: %v", all)
	}
}

func TestKitLogout_TeardownErrorStillForgets(t *testing.T) {
	storage := NewMemoryStorage()
	teardown := errors.New("wallet unreachable")
	wallet := &mockWallet{id: "anchor", level: alice, logoutErr: teardown}
	kit, _ := newTestKit(&mockUI{}, storage, wallet)

	result, err := kit.Login(context.Background(), LoginOptions{})
	if err != nil {
		t.Fatal(err)
	}
	err = kit.Logout(context.Background(), result.Session)
	var tdErr *TeardownError
	if !errors.As(err, &tdErr) || !errors.Is(err, teardown) {
		t.Fatalf("expected *TeardownError wrapping cause, got %v", err)
	}
	if restored, _ := kit.Restore(context.Background(), nil); restored != nil {
		t.Error("stored session should be removed even when teardown fails")
	}
}

func TestKitLogout_NilClearsAll(t *testing.T) {
	storage := NewMemoryStorage()
	kit, _ := newTestKit(&mockUI{}, storage, &mockWallet{id: "anchor", level: alice})
	if _, err := kit.Login(context.Background(), LoginOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := kit.Logout(context.Background(), nil); err != nil {
		t.Fatalf("Logout(nil) failed: %v", err)
	}
	for _, key := range []string{keyDefaultSession, keyAllSessions} {
		if _, err := storage.Read(context.Background(), key); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s not cleared", key)
		}
	}
}

func TestNewKit_CopiesPluginLists(t *testing.T) {
	wallets := []WalletPlugin{&mockWallet{id: "anchor"}}
	kit := NewKit(KitArgs{WalletPlugins: wallets}, KitOptions{})
	wallets[0] = &mockWallet{id: "changed"}
	if kit.WalletPlugins()[0].ID() != "anchor" {
		t.Error("kit plugin list must not alias the caller's slice")
	}
}
