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

package access

import (
	"sync"

	"github.com/blinklabs-io/lockledger/asset"
)

// Kind selects which delegated right is being checked
type Kind int

const (
	KindYield Kind = iota
	KindVote
	KindMetagovernance
)

// Delegation answers whether an account acts on behalf of a position owner.
// Bookkeeping of who delegated to whom lives outside the ledger.
type Delegation interface {
	IsDelegateOf(positionID uint64, caller asset.Account, kind Kind) bool
}

// NoDelegation rejects every delegate
type NoDelegation struct{}

func (NoDelegation) IsDelegateOf(uint64, asset.Account, Kind) bool {
	return false
}

type delegationKey struct {
	positionID uint64
	kind       Kind
}

// StaticDelegation is an in-memory Delegation with one delegate per
// position and kind
type StaticDelegation struct {
	delegates map[delegationKey]asset.Account
	mutex     sync.RWMutex
}

func NewStaticDelegation() *StaticDelegation {
	return &StaticDelegation{
		delegates: make(map[delegationKey]asset.Account),
	}
}

func (d *StaticDelegation) Set(
	positionID uint64,
	kind Kind,
	delegate asset.Account,
) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	key := delegationKey{positionID: positionID, kind: kind}
	if delegate == "" {
		delete(d.delegates, key)
		return
	}
	d.delegates[key] = delegate
}

func (d *StaticDelegation) IsDelegateOf(
	positionID uint64,
	caller asset.Account,
	kind Kind,
) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	delegate, ok := d.delegates[delegationKey{positionID: positionID, kind: kind}]
	return ok && delegate == caller
}
