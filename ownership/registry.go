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

// Package ownership tracks the single current owner of each position id
package ownership

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/ledgererr"
)

var (
	ErrNotExisting = ledgererr.New(
		ledgererr.ClassNotFound,
		"POSITION_NOT_EXISTING",
		"position does not exist",
	)
	ErrNotOwner = ledgererr.New(
		ledgererr.ClassAuthorization,
		"NOT_OWNER",
		"caller is not the position owner",
	)
	ErrInvalidRecipient = ledgererr.New(
		ledgererr.ClassValidation,
		"INVALID_RECIPIENT",
		"recipient must be set",
	)
)

// Registry is the ownership boundary consulted by the ledgers
type Registry interface {
	Mint(to asset.Account) (uint64, error)
	Burn(id uint64) error
	OwnerOf(id uint64) (asset.Account, error)
	Transfer(id uint64, from asset.Account, to asset.Account) error
}

// Token is a single owned id
type Token struct {
	Owner asset.Account
	ID    uint64
}

// Book is an in-memory Registry. Ids start at 1 and are never reused.
type Book struct {
	owners map[uint64]asset.Account
	nextID uint64
	mutex  sync.RWMutex
}

func NewBook() *Book {
	return &Book{
		owners: make(map[uint64]asset.Account),
		nextID: 1,
	}
}

func (b *Book) Mint(to asset.Account) (uint64, error) {
	if to == "" {
		return 0, ErrInvalidRecipient
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	id := b.nextID
	b.nextID++
	b.owners[id] = to
	return id, nil
}

func (b *Book) Burn(id uint64) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.owners[id]; !ok {
		return fmt.Errorf("burn %d: %w", id, ErrNotExisting)
	}
	delete(b.owners, id)
	return nil
}

func (b *Book) OwnerOf(id uint64) (asset.Account, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	owner, ok := b.owners[id]
	if !ok {
		return "", fmt.Errorf("position %d: %w", id, ErrNotExisting)
	}
	return owner, nil
}

func (b *Book) Transfer(id uint64, from asset.Account, to asset.Account) error {
	if to == "" {
		return ErrInvalidRecipient
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	owner, ok := b.owners[id]
	if !ok {
		return fmt.Errorf("transfer %d: %w", id, ErrNotExisting)
	}
	if owner != from {
		return fmt.Errorf("transfer %d: %w", id, ErrNotOwner)
	}
	b.owners[id] = to
	return nil
}

// TokensOf returns the ids owned by account in ascending order
func (b *Book) TokensOf(account asset.Account) []uint64 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	var ret []uint64
	for id, owner := range b.owners {
		if owner == account {
			ret = append(ret, id)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Tokens returns every owned id with its owner, ordered by id
func (b *Book) Tokens() []Token {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	ret := make([]Token, 0, len(b.owners))
	for id, owner := range b.owners {
		ret = append(ret, Token{ID: id, Owner: owner})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// NextID returns the id the next Mint will assign
func (b *Book) NextID() uint64 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.nextID
}

// Load replaces the registry contents
func (b *Book) Load(tokens []Token, nextID uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.owners = make(map[uint64]asset.Account, len(tokens))
	for _, tok := range tokens {
		b.owners[tok.ID] = tok.Owner
		if tok.ID >= nextID {
			nextID = tok.ID + 1
		}
	}
	if nextID == 0 {
		nextID = 1
	}
	b.nextID = nextID
}
