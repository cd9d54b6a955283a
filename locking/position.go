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
	"sort"
	"time"

	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/holiman/uint256"
)

const MaxPercentage = 100

// Position is a lock of principal until EndCycle. Windows holds one entry
// per mutation in the order they were recorded. A burned position keeps its
// windows so balances at past cycles still resolve.
type Position struct {
	HoldUntil         time.Time
	TotalLocked       *uint256.Int
	Windows           []LockWindow
	ID                uint64
	StartCycle        uint64
	EndCycle          uint64
	YieldSharePercent uint64
	Managed           bool
	Burned            bool
}

// LockWindow is the yield-share contribution of one mutation plus the
// cumulative position state right after it.
//
// A window contributes nothing before ActiveFrom or from EndCycle on. Up to
// and including the first checkpoint after StartCycle it contributes the
// pro-rated YieldSharePartial, after that the full YieldShareTotal.
type LockWindow struct {
	Amount            *uint256.Int
	YieldShareTotal   *uint256.Int
	YieldSharePartial *uint256.Int
	TotalLocked       *uint256.Int
	Metagovernance    *uint256.Int
	RecordedCycle     uint64
	StartCycle        uint64
	ActiveFrom        uint64
	EndCycle          uint64
	FirstCheckpoint   uint64
	LockEnd           uint64
}

type windowParams struct {
	amount     *uint256.Int
	recorded   uint64
	start      uint64
	activeFrom uint64
	end        uint64
	percent    uint64
	maxLock    uint64
	interval   uint64
}

func newWindow(p windowParams) (LockWindow, error) {
	total, err := amount.MulDiv(
		p.amount,
		uint256.NewInt((p.end-p.start)*p.percent),
		uint256.NewInt(MaxPercentage*p.maxLock),
	)
	if err != nil {
		return LockWindow{}, err
	}
	firstCheckpoint := cycle.NextCheckpoint(p.start, p.interval)
	partial, err := amount.MulDivUint64(
		total,
		firstCheckpoint-p.start,
		p.interval,
	)
	if err != nil {
		return LockWindow{}, err
	}
	return LockWindow{
		Amount:            p.amount.Clone(),
		YieldShareTotal:   total,
		YieldSharePartial: partial,
		RecordedCycle:     p.recorded,
		StartCycle:        p.start,
		ActiveFrom:        p.activeFrom,
		EndCycle:          p.end,
		FirstCheckpoint:   firstCheckpoint,
	}, nil
}

func (w *LockWindow) yieldShareAt(c uint64) *uint256.Int {
	if c < w.ActiveFrom || c >= w.EndCycle {
		return new(uint256.Int)
	}
	if c <= w.FirstCheckpoint {
		return w.YieldSharePartial.Clone()
	}
	return w.YieldShareTotal.Clone()
}

// scheduleYieldShare records the window's contribution in the aggregate
func (w *LockWindow) scheduleYieldShare(s *deltaSeries) {
	if w.ActiveFrom >= w.EndCycle {
		return
	}
	s.add(w.ActiveFrom, w.YieldSharePartial)
	if step := w.FirstCheckpoint + 1; step < w.EndCycle {
		s.add(step, new(uint256.Int).Sub(w.YieldShareTotal, w.YieldSharePartial))
	}
	s.sub(w.EndCycle, w.yieldShareAt(w.EndCycle-1))
}

// stateAt returns the last window recorded at or before c
func (p *Position) stateAt(c uint64) (*LockWindow, bool) {
	idx := sort.Search(len(p.Windows), func(i int) bool {
		return p.Windows[i].RecordedCycle > c
	})
	if idx == 0 {
		return nil, false
	}
	return &p.Windows[idx-1], true
}

func (p *Position) voteAmount(locked *uint256.Int) *uint256.Int {
	ret, _ := amount.MulDivUint64(
		locked,
		MaxPercentage-p.YieldSharePercent,
		MaxPercentage,
	)
	return ret
}

func (p *Position) governanceAt(c uint64, maxLock uint64) *uint256.Int {
	if c < p.StartCycle {
		return new(uint256.Int)
	}
	w, ok := p.stateAt(c)
	if !ok || c >= w.LockEnd {
		return new(uint256.Int)
	}
	ret, _ := amount.MulDivUint64(
		p.voteAmount(w.TotalLocked),
		w.LockEnd-c,
		maxLock,
	)
	return ret
}

func (p *Position) metagovernanceAt(c uint64) *uint256.Int {
	if c < p.StartCycle {
		return new(uint256.Int)
	}
	w, ok := p.stateAt(c)
	if !ok || c >= w.LockEnd {
		return new(uint256.Int)
	}
	return w.Metagovernance.Clone()
}

func (p *Position) yieldShareAt(c uint64) *uint256.Int {
	ret := new(uint256.Int)
	for i := range p.Windows {
		ret.Add(ret, p.Windows[i].yieldShareAt(c))
	}
	return ret
}

func (p *Position) isHeld(now time.Time) bool {
	return now.Before(p.HoldUntil)
}

func (p *Position) clone() Position {
	ret := *p
	ret.TotalLocked = p.TotalLocked.Clone()
	ret.Windows = make([]LockWindow, len(p.Windows))
	for i, w := range p.Windows {
		ret.Windows[i] = w
		ret.Windows[i].Amount = w.Amount.Clone()
		ret.Windows[i].YieldShareTotal = w.YieldShareTotal.Clone()
		ret.Windows[i].YieldSharePartial = w.YieldSharePartial.Clone()
		ret.Windows[i].TotalLocked = w.TotalLocked.Clone()
		ret.Windows[i].Metagovernance = w.Metagovernance.Clone()
	}
	return ret
}
