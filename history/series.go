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

// Package history stores values that change at a few cycles and are read at
// arbitrary cycles. Only the cycles where a value changed are kept; reads
// binary search for the last change at or before the requested cycle.
package history

import (
	"sort"

	"github.com/holiman/uint256"
)

// Point is the value recorded for a cycle
type Point struct {
	Value *uint256.Int
	Cycle uint64
}

// Series is an ordered list of points, at most one per cycle
type Series struct {
	points []Point
}

func NewSeries(points ...Point) *Series {
	s := &Series{}
	for _, p := range points {
		s.Set(p.Cycle, p.Value)
	}
	return s
}

// Set records value at cycle, replacing any value already recorded there
func (s *Series) Set(cycle uint64, value *uint256.Int) {
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Cycle >= cycle
	})
	p := Point{Cycle: cycle, Value: value.Clone()}
	if idx < len(s.points) && s.points[idx].Cycle == cycle {
		s.points[idx] = p
		return
	}
	s.points = append(s.points, Point{})
	copy(s.points[idx+1:], s.points[idx:])
	s.points[idx] = p
}

// At returns the last value recorded at or before cycle. The boolean is
// false when nothing was recorded that early.
func (s *Series) At(cycle uint64) (*uint256.Int, bool) {
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Cycle > cycle
	})
	if idx == 0 {
		return new(uint256.Int), false
	}
	return s.points[idx-1].Value.Clone(), true
}

// ValueAt is At without the presence flag
func (s *Series) ValueAt(cycle uint64) *uint256.Int {
	v, _ := s.At(cycle)
	return v
}

// First returns the earliest recorded cycle
func (s *Series) First() (uint64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	return s.points[0].Cycle, true
}

// Last returns the latest recorded point
func (s *Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	p := s.points[len(s.points)-1]
	return Point{Cycle: p.Cycle, Value: p.Value.Clone()}, true
}

func (s *Series) Len() int {
	return len(s.points)
}

// Points returns a copy of the recorded points in cycle order
func (s *Series) Points() []Point {
	ret := make([]Point, len(s.points))
	for i, p := range s.points {
		ret[i] = Point{Cycle: p.Cycle, Value: p.Value.Clone()}
	}
	return ret
}
