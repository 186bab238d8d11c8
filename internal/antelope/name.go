// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package antelope holds the chain value types shared by the transport,
// account, contract and session packages.
package antelope

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned when a string is not a valid account, action
// or permission name.
var ErrInvalidName = errors.New("invalid name")

// Name is an Antelope name (accounts, permissions, actions, tables).
// Up to 13 characters from ".12345abcdefghijklmnopqrstuvwxyz"; the 13th
// character is limited to ".12345abcdefghij".
type Name string

const maxNameLen = 13

// ParseName validates s and returns it as a Name.
func ParseName(s string) (Name, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(s) > maxNameLen {
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidName, s, maxNameLen)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i == maxNameLen-1 {
			if !(c == '.' || (c >= '1' && c <= '5') || (c >= 'a' && c <= 'j')) {
				return "", fmt.Errorf("%w: %q has invalid 13th character %q", ErrInvalidName, s, c)
			}
			continue
		}
		if !(c == '.' || (c >= '1' && c <= '5') || (c >= 'a' && c <= 'z')) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidName, s, c)
		}
	}
	if strings.HasSuffix(s, ".") {
		return "", fmt.Errorf("%w: %q ends with '.'", ErrInvalidName, s)
	}
	return Name(s), nil
}

// MustName is ParseName for compile-time constants.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string { return string(n) }

// PermissionLevel is an actor@permission pair.
type PermissionLevel struct {
	Actor      Name `json:"actor" yaml:"actor"`
	Permission Name `json:"permission" yaml:"permission"`
}

// ParsePermissionLevel parses "actor@permission". A bare actor defaults
// to the active permission.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	actor, perm, found := strings.Cut(s, "@")
	if !found {
		perm = "active"
	}
	a, err := ParseName(actor)
	if err != nil {
		return PermissionLevel{}, err
	}
	p, err := ParseName(perm)
	if err != nil {
		return PermissionLevel{}, err
	}
	return PermissionLevel{Actor: a, Permission: p}, nil
}

func (p PermissionLevel) String() string {
	return string(p.Actor) + "@" + string(p.Permission)
}

// IsZero reports whether no actor is set.
func (p PermissionLevel) IsZero() bool {
	return p.Actor == ""
}
