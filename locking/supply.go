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
	"fmt"

	"github.com/holiman/uint256"
)

// deltaSeries is an aggregate that changes by scheduled deltas. Cycles that
// have elapsed are sealed into a dense slice so lookups are O(1); the
// current and future cycles are projected from the last sealed value once
// per change and cached until the next schedule or seal.
//
// Deltas are only ever scheduled at or after the current cycle, and a cycle
// is sealed when the clock leaves it, so sealed values never change.
type deltaSeries struct {
	adds    map[uint64]*uint256.Int
	subs    map[uint64]*uint256.Int
	sealed  []*uint256.Int
	// proj holds the values of nextUnsealed() through horizon, nil when stale
	proj    []*uint256.Int
	origin  uint64
	horizon uint64
}

func newDeltaSeries(origin uint64) *deltaSeries {
	return &deltaSeries{
		origin: origin,
		adds:   make(map[uint64]*uint256.Int),
		subs:   make(map[uint64]*uint256.Int),
	}
}

func (s *deltaSeries) add(cycle uint64, v *uint256.Int) {
	s.schedule(s.adds, cycle, v)
}

func (s *deltaSeries) sub(cycle uint64, v *uint256.Int) {
	s.schedule(s.subs, cycle, v)
}

func (s *deltaSeries) schedule(
	m map[uint64]*uint256.Int,
	cycle uint64,
	v *uint256.Int,
) {
	if v == nil || v.IsZero() {
		return
	}
	if cur, ok := m[cycle]; ok {
		m[cycle] = new(uint256.Int).Add(cur, v)
	} else {
		m[cycle] = v.Clone()
	}
	if cycle > s.horizon {
		s.horizon = cycle
	}
	s.proj = nil
}

// nextUnsealed is the first cycle without a sealed value
func (s *deltaSeries) nextUnsealed() uint64 {
	return s.origin + uint64(len(s.sealed))
}

func (s *deltaSeries) lastSealed() *uint256.Int {
	if len(s.sealed) == 0 {
		return new(uint256.Int)
	}
	return s.sealed[len(s.sealed)-1]
}

// apply returns prev adjusted by the deltas scheduled at cycle
func (s *deltaSeries) apply(prev *uint256.Int, cycle uint64) (*uint256.Int, error) {
	ret := prev.Clone()
	if v, ok := s.adds[cycle]; ok {
		ret.Add(ret, v)
	}
	if v, ok := s.subs[cycle]; ok {
		if ret.Lt(v) {
			return new(uint256.Int), fmt.Errorf(
				"aggregate underflow at cycle %d: %s < %s",
				cycle,
				ret.Dec(),
				v.Dec(),
			)
		}
		ret.Sub(ret, v)
	}
	return ret, nil
}

// pending computes the values that sealing up to and including cycle would
// append, without changing the series
func (s *deltaSeries) pending(cycle uint64) ([]*uint256.Int, error) {
	var ret []*uint256.Int
	prev := s.lastSealed()
	for next := s.nextUnsealed(); next <= cycle; next++ {
		v, err := s.apply(prev, next)
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
		prev = v
	}
	return ret, nil
}

// commit appends values returned by pending
func (s *deltaSeries) commit(values []*uint256.Int) {
	for _, v := range values {
		next := s.nextUnsealed()
		s.sealed = append(s.sealed, v)
		delete(s.adds, next)
		delete(s.subs, next)
	}
	if len(values) > 0 {
		s.proj = nil
	}
}

// seal finalizes every cycle up to and including cycle. Nothing is sealed
// when any of those cycles underflows.
func (s *deltaSeries) seal(cycle uint64) error {
	values, err := s.pending(cycle)
	if err != nil {
		return err
	}
	s.commit(values)
	return nil
}

func (s *deltaSeries) projection() []*uint256.Int {
	if s.proj != nil {
		return s.proj
	}
	proj := []*uint256.Int{}
	prev := s.lastSealed()
	for next := s.nextUnsealed(); next <= s.horizon; next++ {
		// Projection errors imply a bookkeeping bug and are reported by seal
		prev, _ = s.apply(prev, next)
		proj = append(proj, prev)
	}
	s.proj = proj
	return proj
}

func (s *deltaSeries) at(cycle uint64) *uint256.Int {
	if cycle < s.origin {
		return new(uint256.Int)
	}
	if idx := cycle - s.origin; idx < uint64(len(s.sealed)) {
		return s.sealed[idx].Clone()
	}
	proj := s.projection()
	if idx := cycle - s.nextUnsealed(); idx < uint64(len(proj)) {
		return proj[idx].Clone()
	}
	if len(proj) > 0 {
		return proj[len(proj)-1].Clone()
	}
	return s.lastSealed().Clone()
}

// SeriesState is the serializable form of an aggregate series
type SeriesState struct {
	Sealed  [][]byte
	Adds    []CycleValue
	Subs    []CycleValue
	Origin  uint64
	Horizon uint64
}

type CycleValue struct {
	Value []byte
	Cycle uint64
}

func (s *deltaSeries) state() SeriesState {
	ret := SeriesState{
		Origin:  s.origin,
		Horizon: s.horizon,
		Sealed:  make([][]byte, len(s.sealed)),
		Adds:    mapToCycleValues(s.adds),
		Subs:    mapToCycleValues(s.subs),
	}
	for i, v := range s.sealed {
		ret.Sealed[i] = v.Bytes()
	}
	return ret
}

func deltaSeriesFromState(st SeriesState) *deltaSeries {
	s := newDeltaSeries(st.Origin)
	s.horizon = st.Horizon
	s.sealed = make([]*uint256.Int, len(st.Sealed))
	for i, b := range st.Sealed {
		s.sealed[i] = new(uint256.Int).SetBytes(b)
	}
	for _, cv := range st.Adds {
		s.adds[cv.Cycle] = new(uint256.Int).SetBytes(cv.Value)
	}
	for _, cv := range st.Subs {
		s.subs[cv.Cycle] = new(uint256.Int).SetBytes(cv.Value)
	}
	return s
}

func mapToCycleValues(m map[uint64]*uint256.Int) []CycleValue {
	ret := make([]CycleValue, 0, len(m))
	for cycle, v := range m {
		ret = append(ret, CycleValue{Cycle: cycle, Value: v.Bytes()})
	}
	return ret
}
