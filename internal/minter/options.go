// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package minter

import (
	"net/http"

	"github.com/aplane-algo/minter/internal/apiclient"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/store"
)

type options struct {
	orchestrator    Orchestrator
	slot            *store.Writable[*session.Session]
	ui              session.UserInterface
	storage         session.Storage
	walletPlugins   []session.WalletPlugin
	transactPlugins []session.TransactPlugin
	httpClient      *http.Client
	dialer          apiclient.DialFunc
}

// Option replaces one of the Manager's default collaborators.
type Option func(*options)

// WithOrchestrator replaces the session kit.
func WithOrchestrator(o Orchestrator) Option {
	return func(opts *options) { opts.orchestrator = o }
}

// WithSessionStore uses slot as the session slot.
func WithSessionStore(slot *store.Writable[*session.Session]) Option {
	return func(opts *options) { opts.slot = slot }
}

// WithUI sets the login prompter.
func WithUI(ui session.UserInterface) Option {
	return func(opts *options) { opts.ui = ui }
}

// WithStorage sets where sessions are persisted.
func WithStorage(s session.Storage) Option {
	return func(opts *options) { opts.storage = s }
}

// WithWalletPlugins replaces the built-in wallet set.
func WithWalletPlugins(plugins ...session.WalletPlugin) Option {
	return func(opts *options) { opts.walletPlugins = plugins }
}

// WithTransactPlugins replaces the configured transact plugins.
func WithTransactPlugins(plugins ...session.TransactPlugin) Option {
	return func(opts *options) { opts.transactPlugins = plugins }
}

// WithHTTPClient sets the HTTP client for chain requests.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *options) { opts.httpClient = c }
}

// WithDialer routes chain connections through dial, e.g. an SSH tunnel.
func WithDialer(dial apiclient.DialFunc) Option {
	return func(opts *options) { opts.dialer = dial }
}
