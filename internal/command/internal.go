// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import "context"

// HandlerFunc wraps a Go function as a command Handler.
type HandlerFunc func(ctx context.Context, args []string, env *Context) error

// Execute implements the Handler interface
func (f HandlerFunc) Execute(ctx context.Context, args []string, env *Context) error {
	return f(ctx, args, env)
}
