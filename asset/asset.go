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

// Package asset defines the fungible asset transfer boundary used by the
// ledgers, along with an in-memory custody book that implements it.
package asset

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Account identifies a holder of assets and positions
type Account string

// ID identifies a fungible asset
type ID string

// Amount is a quantity of a single asset
type Amount struct {
	Value *uint256.Int
	Asset ID
}

func NewAmount(id ID, value *uint256.Int) Amount {
	return Amount{
		Asset: id,
		Value: value.Clone(),
	}
}

func (a Amount) String() string {
	if a.Value == nil {
		return "0 " + string(a.Asset)
	}
	return a.Value.Dec() + " " + string(a.Asset)
}

// Transfer moves Value of Asset from one account to another
type Transfer struct {
	Value *uint256.Int
	Asset ID
	From  Account
	To    Account
}

func (t Transfer) reverse() Transfer {
	return Transfer{
		Asset: t.Asset,
		From:  t.To,
		To:    t.From,
		Value: t.Value,
	}
}

// Transferer moves balances between accounts. A failed transfer must leave
// both balances untouched.
type Transferer interface {
	Transfer(Transfer) error
}

// Minter creates new units of an asset
type Minter interface {
	Mint(id ID, to Account, value *uint256.Int) error
}

// TransferAll performs the transfers in order. If one fails, transfers that
// already succeeded are reversed in the opposite order and the original
// error is returned.
func TransferAll(t Transferer, transfers []Transfer) error {
	for idx, xfer := range transfers {
		if err := t.Transfer(xfer); err != nil {
			err = fmt.Errorf(
				"transfer %s %s from %s to %s: %w",
				xfer.Value.Dec(),
				xfer.Asset,
				xfer.From,
				xfer.To,
				err,
			)
			for i := idx - 1; i >= 0; i-- {
				if rErr := t.Transfer(transfers[i].reverse()); rErr != nil {
					err = errors.Join(
						err,
						fmt.Errorf("revert transfer %d: %w", i, rErr),
					)
				}
			}
			return err
		}
	}
	return nil
}
