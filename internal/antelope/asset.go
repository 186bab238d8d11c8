// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package antelope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAsset is returned by ParseAsset for malformed input.
var ErrInvalidAsset = errors.New("invalid asset")

// Asset is a token quantity such as "1.0000 EOS". Units counts the
// smallest denomination.
type Asset struct {
	Units     int64
	Precision int
	Symbol    string
}

// ParseAsset parses "<amount> <SYMBOL>".
func ParseAsset(s string) (Asset, error) {
	amount, symbol, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || symbol == "" || len(symbol) > 7 || strings.ToUpper(symbol) != symbol {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	for _, c := range symbol {
		if c < 'A' || c > 'Z' {
			return Asset{}, fmt.Errorf("%w: bad symbol %q", ErrInvalidAsset, symbol)
		}
	}

	negative := strings.HasPrefix(amount, "-")
	amount = strings.TrimPrefix(amount, "-")
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" || len(frac) > 18 {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	units, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	if negative {
		units = -units
	}
	return Asset{Units: units, Precision: len(frac), Symbol: symbol}, nil
}

// String formats the asset with its precision.
func (a Asset) String() string {
	sign := ""
	units := a.Units
	if units < 0 {
		sign = "-"
		units = -units
	}
	digits := strconv.FormatInt(units, 10)
	if a.Precision == 0 {
		return sign + digits + " " + a.Symbol
	}
	if len(digits) <= a.Precision {
		digits = strings.Repeat("0", a.Precision-len(digits)+1) + digits
	}
	cut := len(digits) - a.Precision
	return sign + digits[:cut] + "." + digits[cut:] + " " + a.Symbol
}

// Compare returns -1, 0 or 1. Assets must share symbol and precision.
func (a Asset) Compare(b Asset) (int, error) {
	if a.Symbol != b.Symbol || a.Precision != b.Precision {
		return 0, fmt.Errorf("cannot compare %s with %s", a, b)
	}
	switch {
	case a.Units < b.Units:
		return -1, nil
	case a.Units > b.Units:
		return 1, nil
	}
	return 0, nil
}
