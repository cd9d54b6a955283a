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

package staking

import (
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/holiman/uint256"
)

// Emission decides the primary reward pool of an elapsed cycle
type Emission interface {
	AmountFor(cycle uint64) *uint256.Int
}

// FixedEmission emits the same pool every cycle
type FixedEmission struct {
	PerCycle *uint256.Int
}

func (e FixedEmission) AmountFor(uint64) *uint256.Int {
	if e.PerCycle == nil {
		return new(uint256.Int)
	}
	return e.PerCycle.Clone()
}

// EmissionFunc adapts a function to the Emission interface
type EmissionFunc func(cycle uint64) *uint256.Int

func (f EmissionFunc) AmountFor(cycle uint64) *uint256.Int {
	return f(cycle)
}

// Converter swaps secondary rewards on behalf of a claimant. The ledger
// transfers the inputs to Account before calling ConvertAll. A failed
// conversion must leave the inputs in Account.
type Converter interface {
	Account() asset.Account
	ConvertAll(inputs []asset.Amount, recipient asset.Account) error
}
