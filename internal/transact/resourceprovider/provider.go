// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package resourceprovider asks a resource provider to cover the CPU and
// NET cost of a transaction before the wallet signs it.
package resourceprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/util"
	"github.com/aplane-algo/minter/internal/version"
)

// RequestPath is appended to the provider endpoint.
const RequestPath = "/v1/resource_provider/request_transaction"

// ID is the plugin id.
const ID = "resource-provider"

// Config configures the plugin.
type Config struct {
	// Endpoint is the provider base URL. Empty means the chain's node.
	Endpoint string
	// AllowFees permits transactions where the provider charges a fee.
	AllowFees bool
	// MaxFee caps an accepted fee. Empty means no cap.
	MaxFee string
}

// Plugin is a session.TransactPlugin.
type Plugin struct {
	cfg    Config
	maxFee *antelope.Asset
	client *http.Client
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithHTTPClient sets the HTTP client used for provider requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Plugin) { p.client = c }
}

// New creates the plugin. A malformed MaxFee is an error.
func New(cfg Config, opts ...Option) (*Plugin, error) {
	p := &Plugin{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.MaxFee != "" {
		fee, err := antelope.ParseAsset(cfg.MaxFee)
		if err != nil {
			return nil, fmt.Errorf("resource_provider.max_fee: %w", err)
		}
		p.maxFee = &fee
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Plugin) ID() string { return ID }

type request struct {
	Signer      antelope.PermissionLevel `json:"signer"`
	Transaction *antelope.Transaction    `json:"transaction"`
}

type response struct {
	Code int          `json:"code"`
	Data responseData `json:"data"`
}

type responseData struct {
	Transaction *antelope.Transaction `json:"transaction"`
	Signatures  []antelope.Signature  `json:"signatures"`
	Fee         string                `json:"fee,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// BeforeSign requests resources for the transaction. Provisioning is
// best effort: every failure leaves the transaction unchanged.
func (p *Plugin) BeforeSign(ctx context.Context, req *session.TransactRequest, tc session.TransactContext) (*session.TransactHookResult, error) {
	endpoint := p.cfg.Endpoint
	if endpoint == "" {
		endpoint = tc.Chain.URL
	}
	if endpoint == "" {
		return nil, nil
	}
	url := strings.TrimRight(endpoint, "/") + RequestPath

	body, err := json.Marshal(request{Signer: tc.PermissionLevel, Transaction: req.Transaction})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		util.Warn("resource provider request failed", "url", url, "error", err)
		return nil, nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		util.Warn("resource provider unreachable", "url", url, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		util.Warn("resource provider response unreadable", "error", err)
		return nil, nil
	}

	var decoded response
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPaymentRequired {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			util.Warn("resource provider response malformed", "status", resp.StatusCode, "error", err)
			return nil, nil
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return p.accept(decoded.Data, "")
	case http.StatusBadRequest:
		util.Debug("resource provider: resources not needed")
		return nil, nil
	case http.StatusPaymentRequired:
		return p.acceptFee(decoded.Data)
	default:
		util.Warn("resource provider error", "status", resp.StatusCode, "body", strings.TrimSpace(string(raw)))
		return nil, nil
	}
}

func (p *Plugin) acceptFee(data responseData) (*session.TransactHookResult, error) {
	if !p.cfg.AllowFees {
		util.Debug("resource provider requires a fee; fees disabled", "fee", data.Fee)
		return nil, nil
	}
	fee, err := antelope.ParseAsset(data.Fee)
	if err != nil {
		util.Warn("resource provider fee unreadable", "fee", data.Fee, "error", err)
		return nil, nil
	}
	if p.maxFee != nil {
		cmp, err := fee.Compare(*p.maxFee)
		if err != nil || cmp > 0 {
			util.Debug("resource provider fee above maximum", "fee", fee.String(), "max", p.maxFee.String())
			return nil, nil
		}
	}
	return p.accept(data, fee.String())
}

func (p *Plugin) accept(data responseData, fee string) (*session.TransactHookResult, error) {
	if data.Transaction == nil || len(data.Transaction.Actions) == 0 || len(data.Signatures) == 0 {
		util.Warn("resource provider returned an incomplete transaction")
		return nil, nil
	}
	if fee != "" {
		util.Debug("accepting resource provider fee", "fee", fee)
	}
	return &session.TransactHookResult{
		Transaction: data.Transaction,
		Signatures:  data.Signatures,
	}, nil
}

var _ session.TransactPlugin = (*Plugin)(nil)
