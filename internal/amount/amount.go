// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package amount holds checked uint256 arithmetic and display helpers
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var ErrOverflow = ledgererr.New(
	ledgererr.ClassValidation,
	"AMOUNT_OVERFLOW",
	"amount overflow",
)

var errDivByZero = errors.New("division by zero")

// MulDiv returns x*y/d rounded down, using a 512-bit intermediate product
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, errDivByZero
	}
	ret, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return ret, nil
}

// MulDivUint64 is MulDiv with uint64 multiplier and divisor
func MulDivUint64(x *uint256.Int, y uint64, d uint64) (*uint256.Int, error) {
	return MulDiv(x, uint256.NewInt(y), uint256.NewInt(d))
}

func Add(x, y *uint256.Int) (*uint256.Int, error) {
	ret, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return ret, nil
}

// SubFloor returns x-y, or zero when y exceeds x
func SubFloor(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Float64 converts for metrics. Precision loss is acceptable there.
func Float64(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

// Parse reads a base-unit decimal integer string
func Parse(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// Display renders a base-unit amount with the given number of decimals
func Display(v *uint256.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals).String()
}

// ParseDisplay is the inverse of Display. Fractional digits beyond the
// asset's decimals are rejected rather than rounded.
func ParseDisplay(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}
