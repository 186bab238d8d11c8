// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package antelope

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimePointSec is a second-precision UTC timestamp in the node's
// "2006-01-02T15:04:05" JSON format.
type TimePointSec time.Time

const timePointSecLayout = "2006-01-02T15:04:05"

func (t TimePointSec) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(timePointSecLayout))
}

func (t *TimePointSec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	// Nodes sometimes append fractional seconds.
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parsed, err := time.Parse(timePointSecLayout, s)
	if err != nil {
		return fmt.Errorf("invalid time_point_sec %q: %w", s, err)
	}
	*t = TimePointSec(parsed.UTC())
	return nil
}

// Time returns the value as a time.Time.
func (t TimePointSec) Time() time.Time { return time.Time(t) }

// Action is a single contract call. Data is the hex-encoded binary payload.
type Action struct {
	Account       Name              `json:"account"`
	Name          Name              `json:"name"`
	Authorization []PermissionLevel `json:"authorization"`
	Data          string            `json:"data"`
}

// Extension is a transaction extension (type, hex data).
type Extension struct {
	Type uint16 `json:"type"`
	Data string `json:"data"`
}

// Transaction is an unsigned transaction.
type Transaction struct {
	Expiration            TimePointSec `json:"expiration"`
	RefBlockNum           uint16       `json:"ref_block_num"`
	RefBlockPrefix        uint32       `json:"ref_block_prefix"`
	MaxNetUsageWords      uint32       `json:"max_net_usage_words"`
	MaxCPUUsageMS         uint8        `json:"max_cpu_usage_ms"`
	DelaySec              uint32       `json:"delay_sec"`
	ContextFreeActions    []Action     `json:"context_free_actions"`
	Actions               []Action     `json:"actions"`
	TransactionExtensions []Extension  `json:"transaction_extensions"`
}

// SetTAPOS sets the reference block fields from a block id and the
// expiration relative to now.
func (t *Transaction) SetTAPOS(blockID string, now time.Time, expireSeconds int) error {
	raw, err := hex.DecodeString(blockID)
	if err != nil {
		return fmt.Errorf("invalid block id: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid block id length %d", len(raw))
	}
	blockNum := binary.BigEndian.Uint32(raw[0:4])
	t.RefBlockNum = uint16(blockNum & 0xffff)
	t.RefBlockPrefix = binary.LittleEndian.Uint32(raw[8:12])
	t.Expiration = TimePointSec(now.UTC().Truncate(time.Second).Add(time.Duration(expireSeconds) * time.Second))
	return nil
}

// Signature is a string-encoded signature ("SIG_K1_...").
type Signature string

// SignedTransaction is a transaction plus collected signatures.
type SignedTransaction struct {
	Transaction
	Signatures []Signature `json:"signatures"`
}
