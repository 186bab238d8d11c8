// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/session"
)

func testRequest() *session.TransactRequest {
	return &session.TransactRequest{Transaction: &antelope.Transaction{
		Expiration:     antelope.TimePointSec(time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC)),
		RefBlockNum:    10,
		RefBlockPrefix: 1234,
		Actions: []antelope.Action{{
			Account:       "eosio.token",
			Name:          "transfer",
			Authorization: []antelope.PermissionLevel{{Actor: "alice", Permission: "active"}},
			Data:          "00",
		}},
	}}
}

func testContext() session.TransactContext {
	return session.TransactContext{
		AppName:         "Minter",
		Chain:           antelope.ChainEOS,
		PermissionLevel: antelope.PermissionLevel{Actor: "alice", Permission: "active"},
	}
}

func TestBeforeSign_Modifies(t *testing.T) {
	p, err := New("hook.js", `
function beforeSign(tx, ctx) {
	tx.max_cpu_usage_ms = 5;
	tx.actions[0].authorization.push({actor: ctx.actor, permission: "owner"});
	return tx;
}`)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res, err := p.BeforeSign(context.Background(), testRequest(), testContext())
	if err != nil {
		t.Fatalf("BeforeSign failed: %v", err)
	}
	if res == nil || res.Transaction == nil {
		t.Fatal("expected a replaced transaction")
	}
	tx := res.Transaction
	if tx.MaxCPUUsageMS != 5 {
		t.Errorf("MaxCPUUsageMS = %d, want 5", tx.MaxCPUUsageMS)
	}
	if tx.RefBlockPrefix != 1234 {
		t.Errorf("RefBlockPrefix = %d, want 1234", tx.RefBlockPrefix)
	}
	if !tx.Expiration.Time().Equal(time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC)) {
		t.Errorf("Expiration = %v", tx.Expiration.Time())
	}
	auth := tx.Actions[0].Authorization
	if len(auth) != 2 || auth[1].String() != "alice@owner" {
		t.Errorf("authorization = %v", auth)
	}
}

func TestBeforeSign_NoReturnLeavesUnchanged(t *testing.T) {
	p, err := New("noop.js", `var seen = 0; function beforeSign(tx) { seen++; log("saw", tx.actions.length); }`)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.BeforeSign(context.Background(), testRequest(), testContext())
	if err != nil || res != nil {
		t.Errorf("BeforeSign = (%v, %v), want (nil, nil)", res, err)
	}
}

func TestBeforeSign_Throws(t *testing.T) {
	p, err := New("veto.js", `function beforeSign(tx, ctx) {
	if (ctx.chain.length > 0) { throw new Error("transfers disabled"); }
}`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.BeforeSign(context.Background(), testRequest(), testContext())
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected *ScriptError, got %T %v", err, err)
	}
	if !strings.Contains(scriptErr.Message, "transfers disabled") {
		t.Errorf("message = %q", scriptErr.Message)
	}
}

func TestBeforeSign_InvalidReturn(t *testing.T) {
	p, err := New("bad.js", `function beforeSign(tx) { return {actions: []}; }`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.BeforeSign(context.Background(), testRequest(), testContext())
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Errorf("expected *ScriptError, got %v", err)
	}
}

func TestBeforeSign_Cancelled(t *testing.T) {
	p, err := New("loop.js", `function beforeSign(tx) { if (tx.ref_block_num === 10) { for (;;) {} } }`)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.BeforeSign(ctx, testRequest(), testContext())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The runtime is usable after an interrupt.
	req := testRequest()
	req.Transaction.RefBlockNum = 11
	if _, err := p.BeforeSign(context.Background(), req, testContext()); err != nil {
		t.Errorf("BeforeSign after interrupt failed: %v", err)
	}
}

func TestBeforeSign_CancelDuringReturnDoesNotLeakInterrupt(t *testing.T) {
	p, err := New("cancel.js", `function beforeSign(tx) { cancelNow(); return tx; }`)
	if err != nil {
		t.Fatal(err)
	}
	cancel := func() {}
	if err := p.vm.Set("cancelNow", func() { cancel() }); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		// Either outcome is fine; the interrupt must not outlive the call.
		_, _ = p.BeforeSign(ctx, testRequest(), testContext())

		cancel = func() {}
		res, err := p.BeforeSign(context.Background(), testRequest(), testContext())
		if err != nil {
			t.Fatalf("iteration %d: BeforeSign with a live context failed: %v", i, err)
		}
		if res == nil || res.Transaction == nil {
			t.Fatalf("iteration %d: expected the returned transaction", i)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "syntax error", src: `function beforeSign( {`},
		{name: "missing hook", src: `function other() {}`},
		{name: "top-level throw", src: `throw new Error("boom")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.name+".js", tt.src); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.js")
	if err := os.WriteFile(path, []byte(`function beforeSign(tx) {}`), 0600); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.ID() != ID {
		t.Errorf("ID() = %q", p.ID())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.js")); err == nil {
		t.Error("expected error for missing file")
	}
}
