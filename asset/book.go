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

package asset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFrozen              = errors.New("asset frozen")
	ErrZeroTransfer        = errors.New("zero value transfer")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Balance is a single (account, asset) holding
type Balance struct {
	Value   *uint256.Int
	Account Account
	Asset   ID
}

// Book is an in-memory asset ledger implementing Transferer and Minter.
// Assets can be frozen to make every transfer of them fail.
type Book struct {
	logger   *slog.Logger
	balances map[ID]map[Account]*uint256.Int
	frozen   map[ID]bool
	mutex    sync.Mutex
}

func NewBook(logger *slog.Logger) *Book {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Book{
		logger:   logger,
		balances: make(map[ID]map[Account]*uint256.Int),
		frozen:   make(map[ID]bool),
	}
}

func (b *Book) Transfer(t Transfer) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if t.Value == nil || t.Value.IsZero() {
		return ErrZeroTransfer
	}
	if b.frozen[t.Asset] {
		return fmt.Errorf("%s: %w", t.Asset, ErrFrozen)
	}
	from := b.balance(t.Asset, t.From)
	if from.Lt(t.Value) {
		return fmt.Errorf(
			"%s holds %s %s: %w",
			t.From,
			from.Dec(),
			t.Asset,
			ErrInsufficientBalance,
		)
	}
	if t.From == t.To {
		return nil
	}
	to := b.balance(t.Asset, t.To)
	newTo, overflow := new(uint256.Int).AddOverflow(to, t.Value)
	if overflow {
		return ErrBalanceOverflow
	}
	b.set(t.Asset, t.From, new(uint256.Int).Sub(from, t.Value))
	b.set(t.Asset, t.To, newTo)
	b.logger.Debug(
		"transfer",
		"component", "asset",
		"asset", t.Asset,
		"from", t.From,
		"to", t.To,
		"value", t.Value.Dec(),
	)
	return nil
}

func (b *Book) Mint(id ID, to Account, value *uint256.Int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if value == nil || value.IsZero() {
		return ErrZeroTransfer
	}
	if b.frozen[id] {
		return fmt.Errorf("%s: %w", id, ErrFrozen)
	}
	newBal, overflow := new(uint256.Int).AddOverflow(b.balance(id, to), value)
	if overflow {
		return ErrBalanceOverflow
	}
	b.set(id, to, newBal)
	return nil
}

func (b *Book) BalanceOf(id ID, account Account) *uint256.Int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.balance(id, account).Clone()
}

// Freeze makes every transfer and mint of the asset fail until Unfreeze
func (b *Book) Freeze(id ID) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.frozen[id] = true
}

func (b *Book) Unfreeze(id ID) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.frozen, id)
}

// Balances returns all non-zero holdings sorted by asset then account
func (b *Book) Balances() []Balance {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	var ret []Balance
	for id, accounts := range b.balances {
		for account, value := range accounts {
			ret = append(ret, Balance{
				Asset:   id,
				Account: account,
				Value:   value.Clone(),
			})
		}
	}
	slices.SortFunc(ret, func(a, b Balance) int {
		if a.Asset != b.Asset {
			if a.Asset < b.Asset {
				return -1
			}
			return 1
		}
		if a.Account < b.Account {
			return -1
		}
		if a.Account > b.Account {
			return 1
		}
		return 0
	})
	return ret
}

// Load replaces the book contents
func (b *Book) Load(balances []Balance) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.balances = make(map[ID]map[Account]*uint256.Int)
	for _, bal := range balances {
		b.set(bal.Asset, bal.Account, bal.Value.Clone())
	}
}

func (b *Book) balance(id ID, account Account) *uint256.Int {
	if accounts, ok := b.balances[id]; ok {
		if v, ok := accounts[account]; ok {
			return v
		}
	}
	return new(uint256.Int)
}

func (b *Book) set(id ID, account Account, value *uint256.Int) {
	accounts, ok := b.balances[id]
	if !ok {
		accounts = make(map[Account]*uint256.Int)
		b.balances[id] = accounts
	}
	if value.IsZero() {
		delete(accounts, account)
		return
	}
	accounts[account] = value
}
