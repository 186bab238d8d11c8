// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package resourceprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/session"
)

var signer = antelope.PermissionLevel{Actor: "alice", Permission: "active"}

func userTx() *antelope.Transaction {
	return &antelope.Transaction{
		Expiration: antelope.TimePointSec(time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC)),
		Actions: []antelope.Action{{
			Account:       "eosio.token",
			Name:          "transfer",
			Authorization: []antelope.PermissionLevel{signer},
			Data:          "00",
		}},
	}
}

func providerTx() *antelope.Transaction {
	tx := userTx()
	noop := antelope.Action{
		Account:       "greymassnoop",
		Name:          "noop",
		Authorization: []antelope.PermissionLevel{{Actor: "greymassfuel", Permission: "cosign"}},
		Data:          "",
	}
	tx.Actions = append([]antelope.Action{noop}, tx.Actions...)
	return tx
}

func provider(t *testing.T, status int, data responseData) (*httptest.Server, *request) {
	t.Helper()
	seen := &request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RequestPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(seen)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response{Code: status, Data: data})
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func run(t *testing.T, p *Plugin, chainURL string) *session.TransactHookResult {
	t.Helper()
	res, err := p.BeforeSign(context.Background(),
		&session.TransactRequest{Transaction: userTx()},
		session.TransactContext{Chain: antelope.ChainEOS.WithURL(chainURL), PermissionLevel: signer})
	if err != nil {
		t.Fatalf("BeforeSign must not fail: %v", err)
	}
	return res
}

func TestBeforeSign_Provided(t *testing.T) {
	srv, seen := provider(t, http.StatusOK, responseData{
		Transaction: providerTx(),
		Signatures:  []antelope.Signature{"SIG_K1_provider"},
	})
	p, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}

	res := run(t, p, srv.URL)
	if res == nil || res.Transaction == nil {
		t.Fatal("expected replaced transaction")
	}
	if len(res.Transaction.Actions) != 2 || res.Transaction.Actions[0].Account != "greymassnoop" {
		t.Errorf("unexpected transaction %+v", res.Transaction.Actions)
	}
	if len(res.Signatures) != 1 || res.Signatures[0] != "SIG_K1_provider" {
		t.Errorf("signatures = %v", res.Signatures)
	}
	if seen.Signer != signer {
		t.Errorf("provider saw signer %v", seen.Signer)
	}
	if seen.Transaction == nil || len(seen.Transaction.Actions) != 1 {
		t.Error("provider did not receive the transaction")
	}
}

func TestBeforeSign_Unchanged(t *testing.T) {
	tests := []struct {
		name   string
		status int
		data   responseData
		cfg    Config
	}{
		{name: "not needed", status: http.StatusBadRequest},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "fee but fees disabled", status: http.StatusPaymentRequired, data: responseData{
			Transaction: providerTx(), Signatures: []antelope.Signature{"SIG"}, Fee: "0.0010 EOS",
		}},
		{name: "fee above max", status: http.StatusPaymentRequired, cfg: Config{AllowFees: true, MaxFee: "0.0005 EOS"}, data: responseData{
			Transaction: providerTx(), Signatures: []antelope.Signature{"SIG"}, Fee: "0.0010 EOS",
		}},
		{name: "fee in other symbol", status: http.StatusPaymentRequired, cfg: Config{AllowFees: true, MaxFee: "1.0000 EOS"}, data: responseData{
			Transaction: providerTx(), Signatures: []antelope.Signature{"SIG"}, Fee: "0.10 WAX",
		}},
		{name: "ok without signatures", status: http.StatusOK, data: responseData{Transaction: providerTx()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := provider(t, tt.status, tt.data)
			p, err := New(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if res := run(t, p, srv.URL); res != nil {
				t.Errorf("expected unchanged transaction, got %+v", res)
			}
		})
	}
}

func TestBeforeSign_FeeAccepted(t *testing.T) {
	srv, _ := provider(t, http.StatusPaymentRequired, responseData{
		Transaction: providerTx(),
		Signatures:  []antelope.Signature{"SIG_K1_provider"},
		Fee:         "0.0010 EOS",
	})
	p, err := New(Config{AllowFees: true, MaxFee: "0.0100 EOS"})
	if err != nil {
		t.Fatal(err)
	}
	res := run(t, p, srv.URL)
	if res == nil || len(res.Signatures) != 1 {
		t.Fatalf("expected fee transaction to be accepted, got %+v", res)
	}
}

func TestBeforeSign_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, _ := New(Config{Endpoint: url})
	if res := run(t, p, "https://unused.example"); res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestBeforeSign_EndpointOverride(t *testing.T) {
	srv, seen := provider(t, http.StatusBadRequest, responseData{})
	p, _ := New(Config{Endpoint: srv.URL + "/"})
	run(t, p, "http://127.0.0.1:1")
	if seen.Signer != signer {
		t.Error("configured endpoint was not used")
	}
}

func TestNew_BadMaxFee(t *testing.T) {
	if _, err := New(Config{MaxFee: "lots"}); err == nil {
		t.Error("expected error for malformed max_fee")
	}
}
