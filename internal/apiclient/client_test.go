// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package apiclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
)

func TestNew_NoValidationAtConstruction(t *testing.T) {
	c := New("::not a url")
	if c.URL() != "::not a url" {
		t.Errorf("URL() = %q", c.URL())
	}

	_, err := c.GetInfo(context.Background())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError on first request, got %T %v", err, err)
	}
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad scheme", "ftp://node.example"},
		{"missing host", "https://"},
		{"unparsable", "http://[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.url).Call(context.Background(), PathGetInfo, nil, nil)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigurationError, got %T %v", err, err)
			}
			if cfgErr.URL != tt.url {
				t.Errorf("URL = %q, want %q", cfgErr.URL, tt.url)
			}
		})
	}
}

func TestCall_Success(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"chain_id":"` + string(antelope.ChainEOS.ID) + `","head_block_num":42,"last_irreversible_block_id":"00"}`))
	}))
	defer srv.Close()

	// Trailing slash on the base URL is tolerated.
	c := New(srv.URL + "/")
	info, err := c.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if gotPath != PathGetInfo {
		t.Errorf("path = %q, want %q", gotPath, PathGetInfo)
	}
	if gotBody != "" {
		t.Errorf("get_info should send no body, got %q", gotBody)
	}
	if info.ChainID != antelope.ChainEOS.ID || info.HeadBlockNum != 42 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestCall_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":500,"message":"Internal Service Error","error":{"code":3010001,"name":"name_type_exception","what":"Invalid name","details":[{"message":"Name not properly normalized"}]}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetAccount(context.Background(), "alice")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != 500 || apiErr.Info.Code != 3010001 {
		t.Errorf("unexpected error fields %+v", apiErr)
	}
	msg := apiErr.Error()
	for _, want := range []string{"name_type_exception", "Invalid name", "Name not properly normalized"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestCall_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).Call(context.Background(), PathGetInfo, nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "bad gateway" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestCall_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, WithTimeout(2*time.Second)).Call(context.Background(), PathGetInfo, nil, nil)
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if tErr.Unwrap() == nil {
		t.Error("TransportError should wrap its cause")
	}
}

func TestCall_MalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetInfo(context.Background())
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestSendTransaction(t *testing.T) {
	var params map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathSendTransaction {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&params)
		_, _ = w.Write([]byte(`{"transaction_id":"abc"}`))
	}))
	defer srv.Close()

	tx := &antelope.SignedTransaction{
		Transaction: antelope.Transaction{Expiration: antelope.TimePointSec(time.Unix(100, 0))},
		Signatures:  []antelope.Signature{"SIG_K1_test"},
	}
	resp, err := New(srv.URL).SendTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}
	if resp.TransactionID != "abc" {
		t.Errorf("TransactionID = %q", resp.TransactionID)
	}

	packed, _ := tx.Pack()
	if params["packed_trx"] != hex.EncodeToString(packed) {
		t.Errorf("packed_trx = %v", params["packed_trx"])
	}
	sigs, _ := params["signatures"].([]any)
	if len(sigs) != 1 || sigs[0] != "SIG_K1_test" {
		t.Errorf("signatures = %v", params["signatures"])
	}
}

func TestWithDialer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	dialed := false
	var d DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialed = true
		var nd net.Dialer
		return nd.DialContext(ctx, network, srv.Listener.Addr().String())
	}
	c := New("http://node.invalid", WithDialer(d))
	if err := c.Call(context.Background(), PathGetInfo, nil, nil); err != nil {
		t.Fatalf("Call through dialer failed: %v", err)
	}
	if !dialed {
		t.Error("custom dialer not used")
	}
}

func TestOptionsDoNotModifyCallerClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	dials := 0
	var d DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dials++
		var nd net.Dialer
		return nd.DialContext(ctx, network, srv.Listener.Addr().String())
	}

	orders := map[string]func(hc *http.Client) []Option{
		"client first": func(hc *http.Client) []Option {
			return []Option{WithHTTPClient(hc), WithTimeout(3 * time.Second), WithDialer(d)}
		},
		"client last": func(hc *http.Client) []Option {
			return []Option{WithDialer(d), WithTimeout(3 * time.Second), WithHTTPClient(hc)}
		},
	}

	for name, opts := range orders {
		t.Run(name, func(t *testing.T) {
			hc := &http.Client{Timeout: 7 * time.Second}
			dials = 0

			c := New("http://node.invalid", opts(hc)...)
			if err := c.Call(context.Background(), PathGetInfo, nil, nil); err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if dials == 0 {
				t.Error("dialer dropped")
			}
			if hc.Transport != nil || hc.Timeout != 7*time.Second {
				t.Errorf("caller client modified: transport=%v timeout=%v", hc.Transport, hc.Timeout)
			}
			if c.HTTPClient() == hc || c.HTTPClient().Timeout != 3*time.Second {
				t.Errorf("derived client = %+v", c.HTTPClient())
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	base := &http.Client{Timeout: time.Second}
	if got := NewHTTPClient(base, nil, 0); got != base {
		t.Error("base should be returned unchanged when nothing applies")
	}

	if got := NewHTTPClient(nil, nil, 0); got.Timeout != DefaultTimeout {
		t.Errorf("default timeout = %v", got.Timeout)
	}

	var d DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("unused")
	}
	tuned := &http.Transport{MaxIdleConnsPerHost: 9}
	got := NewHTTPClient(&http.Client{Transport: tuned}, d, 0)
	tr, ok := got.Transport.(*http.Transport)
	if !ok || tr == tuned {
		t.Fatalf("transport should be a copy, got %T", got.Transport)
	}
	if tr.MaxIdleConnsPerHost != 9 || tr.DialContext == nil {
		t.Errorf("cloned transport lost settings or dialer: %+v", tr)
	}
	if tuned.DialContext != nil {
		t.Error("base transport modified")
	}
}
