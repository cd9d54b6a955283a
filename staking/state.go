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
	"sort"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/history"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/holiman/uint256"
)

// State is the serializable form of the ledger. Amounts are big-endian
// byte strings.
type State struct {
	Positions     []PositionState
	Total         []PointState
	Pools         []PointState
	Secondary     []SecondaryState
	LastProcessed uint64
	Paused        bool
}

type PositionState struct {
	Stake                []PointState
	Pending              []byte
	TotalStaked          []byte
	ID                   uint64
	PendingCycle         uint64
	LastClaimedPrimary   uint64
	LastClaimedSecondary uint64
	Burned               bool
}

type PointState struct {
	Value []byte
	Cycle uint64
}

type SecondaryState struct {
	Amounts []AmountState
	Cycle   uint64
}

type AmountState struct {
	Asset asset.ID
	Value []byte
}

func seriesState(s *history.Series) []PointState {
	points := s.Points()
	ret := make([]PointState, 0, len(points))
	for _, p := range points {
		ret = append(ret, PointState{Cycle: p.Cycle, Value: p.Value.Bytes()})
	}
	return ret
}

func seriesFromState(points []PointState) *history.Series {
	s := history.NewSeries()
	for _, p := range points {
		s.Set(p.Cycle, new(uint256.Int).SetBytes(p.Value))
	}
	return s
}

func (l *Ledger) State() State {
	ret := State{
		Total:         seriesState(l.total),
		LastProcessed: l.lastProcessed,
		Paused:        l.paused,
	}
	for id, e := range l.entries {
		ret.Positions = append(ret.Positions, PositionState{
			ID:                   id,
			Stake:                seriesState(e.stake),
			Pending:              e.pending.Bytes(),
			PendingCycle:         e.pendingCycle,
			TotalStaked:          e.totalStaked.Bytes(),
			LastClaimedPrimary:   e.lastClaimedPrimary,
			LastClaimedSecondary: e.lastClaimedSecondary,
			Burned:               e.burned,
		})
	}
	sort.Slice(ret.Positions, func(i, j int) bool {
		return ret.Positions[i].ID < ret.Positions[j].ID
	})
	for c, pool := range l.pools {
		ret.Pools = append(ret.Pools, PointState{Cycle: c, Value: pool.Bytes()})
	}
	sort.Slice(ret.Pools, func(i, j int) bool { return ret.Pools[i].Cycle < ret.Pools[j].Cycle })
	for c, amounts := range l.secondary {
		ss := SecondaryState{Cycle: c}
		for _, a := range amounts {
			ss.Amounts = append(ss.Amounts, AmountState{Asset: a.Asset, Value: a.Value.Bytes()})
		}
		ret.Secondary = append(ret.Secondary, ss)
	}
	sort.Slice(ret.Secondary, func(i, j int) bool {
		return ret.Secondary[i].Cycle < ret.Secondary[j].Cycle
	})
	return ret
}

// Load replaces the ledger contents with a previously captured state
func (l *Ledger) Load(st State) {
	l.entries = make(map[uint64]*entry, len(st.Positions))
	l.staked = new(uint256.Int)
	for _, ps := range st.Positions {
		e := &entry{
			id:                   ps.ID,
			stake:                seriesFromState(ps.Stake),
			pending:              new(uint256.Int).SetBytes(ps.Pending),
			pendingCycle:         ps.PendingCycle,
			totalStaked:          new(uint256.Int).SetBytes(ps.TotalStaked),
			lastClaimedPrimary:   ps.LastClaimedPrimary,
			lastClaimedSecondary: ps.LastClaimedSecondary,
			burned:               ps.Burned,
		}
		l.entries[ps.ID] = e
		l.staked.Add(l.staked, e.totalStaked)
	}
	l.total = seriesFromState(st.Total)
	l.pools = make(map[uint64]*uint256.Int, len(st.Pools))
	for _, p := range st.Pools {
		l.pools[p.Cycle] = new(uint256.Int).SetBytes(p.Value)
	}
	l.secondary = make(map[uint64][]asset.Amount, len(st.Secondary))
	for _, ss := range st.Secondary {
		amounts := make([]asset.Amount, 0, len(ss.Amounts))
		for _, a := range ss.Amounts {
			amounts = append(amounts, asset.Amount{
				Asset: a.Asset,
				Value: new(uint256.Int).SetBytes(a.Value),
			})
		}
		l.secondary[ss.Cycle] = amounts
	}
	l.lastProcessed = st.LastProcessed
	l.paused = st.Paused
	if l.metrics != nil {
		l.metrics.staked.Set(amount.Float64(l.staked))
	}
}
