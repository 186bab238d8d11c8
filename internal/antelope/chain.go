// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package antelope

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ChainID is the hex-encoded 32-byte chain identifier.
type ChainID string

// Validate checks that the id is 64 hex characters.
func (c ChainID) Validate() error {
	if len(c) != 64 {
		return fmt.Errorf("chain id must be 64 hex characters, got %d", len(c))
	}
	if _, err := hex.DecodeString(string(c)); err != nil {
		return fmt.Errorf("chain id is not hex: %w", err)
	}
	return nil
}

// ChainDefinition identifies a chain and the node used to reach it.
type ChainDefinition struct {
	ID     ChainID `json:"id"`
	URL    string  `json:"url"`
	Name   string  `json:"name,omitempty"`
	Symbol string  `json:"symbol,omitempty"` // core token, e.g. "4,EOS"
}

// WithURL returns a copy of the definition bound to a different node.
func (c ChainDefinition) WithURL(url string) ChainDefinition {
	c.URL = url
	return c
}

// Well-known chains.
var (
	ChainEOS = ChainDefinition{
		ID:     "aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906",
		URL:    "https://eos.greymass.com",
		Name:   "EOS",
		Symbol: "4,EOS",
	}
	ChainJungle4 = ChainDefinition{
		ID:     "73e4385a2708e6d7048834fbc1079f2fabb17b3c125b146af438971e90716c4d",
		URL:    "https://jungle4.greymass.com",
		Name:   "Jungle 4 (Testnet)",
		Symbol: "4,EOS",
	}
	ChainWAX = ChainDefinition{
		ID:     "1064487b3cd1a897ce03ae5b6a865651747e2e152090f99c1d19d44e01aea5a4",
		URL:    "https://wax.greymass.com",
		Name:   "WAX",
		Symbol: "8,WAX",
	}
	ChainTelos = ChainDefinition{
		ID:     "4667b205c6838ef70ff7988f6e8257e8be0e1284a2f59699054a018f743b1d11",
		URL:    "https://telos.greymass.com",
		Name:   "Telos",
		Symbol: "4,TLOS",
	}
)

var chainsByKey = map[string]ChainDefinition{
	"eos":     ChainEOS,
	"jungle4": ChainJungle4,
	"wax":     ChainWAX,
	"telos":   ChainTelos,
}

// ChainByKey looks up a well-known chain by its config key (eos, jungle4, wax, telos).
func ChainByKey(key string) (ChainDefinition, bool) {
	c, ok := chainsByKey[strings.ToLower(key)]
	return c, ok
}

// ChainKeys returns the config keys accepted by ChainByKey.
func ChainKeys() []string {
	return []string{"eos", "jungle4", "wax", "telos"}
}
