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

package distributor

import (
	"sort"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/holiman/uint256"
)

type State struct {
	Deposits []DepositState
	Claims   []ClaimState
}

type DepositState struct {
	Amounts []AmountState
	Tde     uint64
}

type AmountState struct {
	Asset asset.ID
	Value []byte
}

type ClaimState struct {
	Tdes       []uint64
	PositionID uint64
}

func (d *Distributor) State() State {
	var ret State
	for tde, dep := range d.deposits {
		ds := DepositState{Tde: tde}
		for _, id := range dep.order {
			ds.Amounts = append(ds.Amounts, AmountState{
				Asset: id,
				Value: dep.amounts[id].Bytes(),
			})
		}
		ret.Deposits = append(ret.Deposits, ds)
	}
	sort.Slice(ret.Deposits, func(i, j int) bool {
		return ret.Deposits[i].Tde < ret.Deposits[j].Tde
	})
	for id, tdes := range d.claims {
		cs := ClaimState{PositionID: id}
		for tde := range tdes {
			cs.Tdes = append(cs.Tdes, tde)
		}
		sort.Slice(cs.Tdes, func(i, j int) bool { return cs.Tdes[i] < cs.Tdes[j] })
		ret.Claims = append(ret.Claims, cs)
	}
	sort.Slice(ret.Claims, func(i, j int) bool {
		return ret.Claims[i].PositionID < ret.Claims[j].PositionID
	})
	return ret
}

// Load replaces the distributor contents with a previously captured state
func (d *Distributor) Load(st State) {
	d.deposits = make(map[uint64]*deposit, len(st.Deposits))
	for _, ds := range st.Deposits {
		dep := &deposit{amounts: make(map[asset.ID]*uint256.Int, len(ds.Amounts))}
		for _, a := range ds.Amounts {
			dep.order = append(dep.order, a.Asset)
			dep.amounts[a.Asset] = new(uint256.Int).SetBytes(a.Value)
		}
		d.deposits[ds.Tde] = dep
	}
	d.claims = make(map[uint64]map[uint64]struct{}, len(st.Claims))
	for _, cs := range st.Claims {
		tdes := make(map[uint64]struct{}, len(cs.Tdes))
		for _, tde := range cs.Tdes {
			tdes[tde] = struct{}{}
		}
		d.claims[cs.PositionID] = tdes
	}
}
