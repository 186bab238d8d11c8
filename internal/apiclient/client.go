// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package apiclient is the JSON transport to an Antelope chain node.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aplane-algo/minter/internal/util"
	"github.com/aplane-algo/minter/internal/version"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// DialFunc dials the node. Used to route requests through an SSH tunnel.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client sends requests to one chain node.
type Client struct {
	rawURL string
	client *http.Client

	// Collected by options, resolved by New.
	base    *http.Client
	timeout time.Duration
	dial    DialFunc

	parseOnce sync.Once
	baseURL   string
	parseErr  error
}

// Option configures a Client. Options are order-independent.
type Option func(*Client)

// WithHTTPClient uses hc for requests. hc is never modified; timeout and
// dialer options apply to a copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.base = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDialer routes all connections through dial.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// NewHTTPClient returns an http.Client derived from base (nil means a
// client with DefaultTimeout) with timeout and dial applied. base is
// returned as is when there is nothing to apply, and is otherwise copied.
// A dialer replaces a base transport that is not an *http.Transport.
func NewHTTPClient(base *http.Client, dial DialFunc, timeout time.Duration) *http.Client {
	if base != nil && dial == nil && timeout <= 0 {
		return base
	}

	hc := http.Client{Timeout: DefaultTimeout}
	if base != nil {
		hc = *base
	}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	if dial != nil {
		t, ok := hc.Transport.(*http.Transport)
		if ok {
			t = t.Clone()
		} else {
			t = &http.Transport{
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        4,
				IdleConnTimeout:     90 * time.Second,
			}
		}
		t.DialContext = dial
		t.Proxy = nil
		hc.Transport = t
	}
	return &hc
}

// New creates a client bound to rawURL. The URL is not validated or
// contacted until the first request.
func New(rawURL string, opts ...Option) *Client {
	c := &Client{rawURL: rawURL}
	for _, opt := range opts {
		opt(c)
	}
	c.client = NewHTTPClient(c.base, c.dial, c.timeout)
	return c
}

// HTTPClient returns the http.Client requests are sent with.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// URL returns the endpoint the client was constructed with.
func (c *Client) URL() string {
	return c.rawURL
}

func (c *Client) base() (string, error) {
	c.parseOnce.Do(func() {
		u, err := url.Parse(c.rawURL)
		switch {
		case err != nil:
			c.parseErr = &ConfigurationError{URL: c.rawURL, Reason: err.Error()}
		case u.Scheme != "http" && u.Scheme != "https":
			c.parseErr = &ConfigurationError{URL: c.rawURL, Reason: "scheme must be http or https"}
		case u.Host == "":
			c.parseErr = &ConfigurationError{URL: c.rawURL, Reason: "missing host"}
		default:
			c.baseURL = strings.TrimRight(u.String(), "/")
		}
	})
	return c.baseURL, c.parseErr
}

// Call POSTs params as JSON to path and decodes the reply into out.
// out may be nil to discard the body.
func (c *Client) Call(ctx context.Context, path string, params, out any) error {
	base, err := c.base()
	if err != nil {
		return err
	}

	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode %s params: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, body)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	util.Debug("api request", "path", path)
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Path: path, StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || (apiErr.Message == "" && apiErr.Info.What == "") {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Path: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
