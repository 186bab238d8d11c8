// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package antelope

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Uint64 returns the 64-bit encoding of the name used on the wire.
func (n Name) Uint64() uint64 {
	var value uint64
	s := string(n)
	for i := 0; i <= 12; i++ {
		var c uint64
		if i < len(s) {
			c = charToSymbol(s[i])
		}
		if i < 12 {
			c &= 0x1f
			c <<= 64 - 5*(i+1)
		} else {
			c &= 0x0f
		}
		value |= c
	}
	return value
}

func charToSymbol(c byte) uint64 {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1
	default:
		return 0
	}
}

type encoder struct {
	buf bytes.Buffer
	err error
}

func (e *encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) varuint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func (e *encoder) hexBytes(s string) {
	if e.err != nil {
		return
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		e.err = fmt.Errorf("invalid hex data: %w", err)
		return
	}
	e.varuint32(uint32(len(raw)))
	e.buf.Write(raw)
}

func (e *encoder) action(a Action) {
	e.u64(a.Account.Uint64())
	e.u64(a.Name.Uint64())
	e.varuint32(uint32(len(a.Authorization)))
	for _, p := range a.Authorization {
		e.u64(p.Actor.Uint64())
		e.u64(p.Permission.Uint64())
	}
	e.hexBytes(a.Data)
}

// Pack serializes the transaction into its binary wire form.
func (t *Transaction) Pack() ([]byte, error) {
	var e encoder
	e.u32(uint32(t.Expiration.Time().Unix()))
	e.u16(t.RefBlockNum)
	e.u32(t.RefBlockPrefix)
	e.varuint32(t.MaxNetUsageWords)
	e.u8(t.MaxCPUUsageMS)
	e.varuint32(t.DelaySec)
	e.varuint32(uint32(len(t.ContextFreeActions)))
	for _, a := range t.ContextFreeActions {
		e.action(a)
	}
	e.varuint32(uint32(len(t.Actions)))
	for _, a := range t.Actions {
		e.action(a)
	}
	e.varuint32(uint32(len(t.TransactionExtensions)))
	for _, x := range t.TransactionExtensions {
		e.u16(x.Type)
		e.hexBytes(x.Data)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

// ID returns the transaction id (sha256 of the packed transaction).
func (t *Transaction) ID() (string, error) {
	packed, err := t.Pack()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(packed)
	return hex.EncodeToString(sum[:]), nil
}

// SigningDigest returns the digest a wallet signs for the given chain:
// sha256(chain_id || packed_trx || sha256(context_free_data)), with empty
// context free data hashed as 32 zero bytes.
func (t *Transaction) SigningDigest(chainID ChainID) ([]byte, error) {
	id, err := hex.DecodeString(string(chainID))
	if err != nil {
		return nil, fmt.Errorf("invalid chain id: %w", err)
	}
	packed, err := t.Pack()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write(id)
	h.Write(packed)
	h.Write(make([]byte, 32))
	return h.Sum(nil), nil
}
