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

package lockledger

import (
	"fmt"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/blinklabs-io/lockledger/staking"
	"github.com/holiman/uint256"
)

// State is everything needed to rebuild a System. It is what gets written
// to the snapshot store.
type State struct {
	Balances    []BalanceState
	LockTokens  []TokenState
	StakeTokens []TokenState
	Locking     locking.State
	Distributor distributor.State
	Staking     staking.State
	Cycle       uint64
	LockNextID  uint64
	StakeNextID uint64
}

type BalanceState struct {
	Asset   asset.ID
	Account asset.Account
	Value   []byte
}

type TokenState struct {
	Owner asset.Account
	ID    uint64
}

func tokenStates(tokens []ownership.Token) []TokenState {
	ret := make([]TokenState, 0, len(tokens))
	for _, tok := range tokens {
		ret = append(ret, TokenState{Owner: tok.Owner, ID: tok.ID})
	}
	return ret
}

func tokensFromState(states []TokenState) []ownership.Token {
	ret := make([]ownership.Token, 0, len(states))
	for _, ts := range states {
		ret = append(ret, ownership.Token{Owner: ts.Owner, ID: ts.ID})
	}
	return ret
}

// state must be called with the mutex held
func (s *System) state() State {
	ret := State{
		Cycle:       s.clock.Current(),
		LockTokens:  tokenStates(s.lockTokens.Tokens()),
		StakeTokens: tokenStates(s.stakeTokens.Tokens()),
		LockNextID:  s.lockTokens.NextID(),
		StakeNextID: s.stakeTokens.NextID(),
		Locking:     s.locking.State(),
		Distributor: s.distributor.State(),
		Staking:     s.staking.State(),
	}
	for _, bal := range s.book.Balances() {
		ret.Balances = append(ret.Balances, BalanceState{
			Asset:   bal.Asset,
			Account: bal.Account,
			Value:   bal.Value.Bytes(),
		})
	}
	return ret
}

// load must be called with the mutex held
func (s *System) load(st State) error {
	if err := s.clock.Restore(st.Cycle); err != nil {
		return fmt.Errorf("restore cycle: %w", err)
	}
	balances := make([]asset.Balance, 0, len(st.Balances))
	for _, bs := range st.Balances {
		balances = append(balances, asset.Balance{
			Asset:   bs.Asset,
			Account: bs.Account,
			Value:   new(uint256.Int).SetBytes(bs.Value),
		})
	}
	s.book.Load(balances)
	s.lockTokens.Load(tokensFromState(st.LockTokens), st.LockNextID)
	s.stakeTokens.Load(tokensFromState(st.StakeTokens), st.StakeNextID)
	s.locking.Load(st.Locking)
	s.distributor.Load(st.Distributor)
	s.staking.Load(st.Staking)
	return nil
}
