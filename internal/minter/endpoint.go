// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package minter

import (
	"net/url"
	"strings"

	"github.com/aplane-algo/minter/internal/util"
)

// DefaultEndpoint is the node used when nothing overrides it.
const DefaultEndpoint = util.DefaultNode

// NodeParam is the query parameter that overrides the node.
const NodeParam = "node"

// ResolveEndpoint returns the node query parameter from rawQuery when it
// is present and non-empty, else fallback, else DefaultEndpoint. A
// leading "?" is accepted.
func ResolveEndpoint(rawQuery, fallback string) string {
	q, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err == nil {
		if node := q.Get(NodeParam); node != "" {
			return node
		}
	}
	if fallback != "" {
		return fallback
	}
	return DefaultEndpoint
}

// ResolveLaunchURL applies ResolveEndpoint to the query of a launch URL
// such as "minter://open?node=https://jungle4.greymass.com".
func ResolveLaunchURL(launch, fallback string) string {
	if launch == "" {
		return ResolveEndpoint("", fallback)
	}
	u, err := url.Parse(launch)
	if err != nil {
		return ResolveEndpoint("", fallback)
	}
	return ResolveEndpoint(u.RawQuery, fallback)
}
