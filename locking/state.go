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

package locking

import (
	"time"

	"github.com/holiman/uint256"
)

// State is the serializable form of the ledger. Amounts are big-endian
// byte strings.
type State struct {
	Positions   []PositionState
	TotalLocked []byte
	YieldShare  SeriesState
	GovSlope    SeriesState
	GovBias     SeriesState
	Metagov     SeriesState
}

type PositionState struct {
	TotalLocked       []byte
	Windows           []WindowState
	ID                uint64
	StartCycle        uint64
	EndCycle          uint64
	YieldSharePercent uint64
	HoldUntil         int64
	Managed           bool
	Burned            bool
}

type WindowState struct {
	Amount            []byte
	YieldShareTotal   []byte
	YieldSharePartial []byte
	TotalLocked       []byte
	Metagovernance    []byte
	RecordedCycle     uint64
	StartCycle        uint64
	ActiveFrom        uint64
	EndCycle          uint64
	FirstCheckpoint   uint64
	LockEnd           uint64
}

func (l *Ledger) State() State {
	ret := State{
		TotalLocked: l.totalLocked.Bytes(),
		YieldShare:  l.yieldShare.state(),
		GovSlope:    l.govSlope.state(),
		GovBias:     l.govBias.state(),
		Metagov:     l.metagov.state(),
	}
	for _, pos := range l.Positions() {
		ps := PositionState{
			ID:                pos.ID,
			StartCycle:        pos.StartCycle,
			EndCycle:          pos.EndCycle,
			TotalLocked:       pos.TotalLocked.Bytes(),
			YieldSharePercent: pos.YieldSharePercent,
			Managed:           pos.Managed,
			Burned:            pos.Burned,
		}
		if !pos.HoldUntil.IsZero() {
			ps.HoldUntil = pos.HoldUntil.UnixNano()
		}
		for _, w := range pos.Windows {
			ps.Windows = append(ps.Windows, WindowState{
				Amount:            w.Amount.Bytes(),
				YieldShareTotal:   w.YieldShareTotal.Bytes(),
				YieldSharePartial: w.YieldSharePartial.Bytes(),
				TotalLocked:       w.TotalLocked.Bytes(),
				Metagovernance:    w.Metagovernance.Bytes(),
				RecordedCycle:     w.RecordedCycle,
				StartCycle:        w.StartCycle,
				ActiveFrom:        w.ActiveFrom,
				EndCycle:          w.EndCycle,
				FirstCheckpoint:   w.FirstCheckpoint,
				LockEnd:           w.LockEnd,
			})
		}
		ret.Positions = append(ret.Positions, ps)
	}
	return ret
}

// Load replaces the ledger contents with a previously captured state
func (l *Ledger) Load(st State) {
	l.positions = make(map[uint64]*Position, len(st.Positions))
	for _, ps := range st.Positions {
		pos := &Position{
			ID:                ps.ID,
			StartCycle:        ps.StartCycle,
			EndCycle:          ps.EndCycle,
			TotalLocked:       new(uint256.Int).SetBytes(ps.TotalLocked),
			YieldSharePercent: ps.YieldSharePercent,
			Managed:           ps.Managed,
			Burned:            ps.Burned,
		}
		if ps.HoldUntil != 0 {
			pos.HoldUntil = time.Unix(0, ps.HoldUntil)
		}
		for _, ws := range ps.Windows {
			pos.Windows = append(pos.Windows, LockWindow{
				Amount:            new(uint256.Int).SetBytes(ws.Amount),
				YieldShareTotal:   new(uint256.Int).SetBytes(ws.YieldShareTotal),
				YieldSharePartial: new(uint256.Int).SetBytes(ws.YieldSharePartial),
				TotalLocked:       new(uint256.Int).SetBytes(ws.TotalLocked),
				Metagovernance:    new(uint256.Int).SetBytes(ws.Metagovernance),
				RecordedCycle:     ws.RecordedCycle,
				StartCycle:        ws.StartCycle,
				ActiveFrom:        ws.ActiveFrom,
				EndCycle:          ws.EndCycle,
				FirstCheckpoint:   ws.FirstCheckpoint,
				LockEnd:           ws.LockEnd,
			})
		}
		l.positions[pos.ID] = pos
	}
	l.totalLocked = new(uint256.Int).SetBytes(st.TotalLocked)
	l.yieldShare = deltaSeriesFromState(st.YieldShare)
	l.govSlope = deltaSeriesFromState(st.GovSlope)
	l.govBias = deltaSeriesFromState(st.GovBias)
	l.metagov = deltaSeriesFromState(st.Metagov)
	if l.metrics != nil {
		l.updateGauges()
	}
}
