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

package history_test

import (
	"testing"

	"github.com/blinklabs-io/lockledger/history"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesForwardFill(t *testing.T) {
	s := history.NewSeries()
	s.Set(5, uint256.NewInt(10))
	s.Set(9, uint256.NewInt(30))

	testDefs := []struct {
		cycle uint64
		value uint64
		found bool
	}{
		{cycle: 4, value: 0, found: false},
		{cycle: 5, value: 10, found: true},
		{cycle: 8, value: 10, found: true},
		{cycle: 9, value: 30, found: true},
		{cycle: 100, value: 30, found: true},
	}
	for _, testDef := range testDefs {
		v, ok := s.At(testDef.cycle)
		assert.Equal(t, testDef.found, ok, "cycle %d", testDef.cycle)
		assert.Equal(t, testDef.value, v.Uint64(), "cycle %d", testDef.cycle)
	}
}

func TestSeriesOverwriteAndInsert(t *testing.T) {
	s := history.NewSeries()
	s.Set(10, uint256.NewInt(1))
	s.Set(10, uint256.NewInt(2))
	s.Set(7, uint256.NewInt(3))
	require.Equal(t, 2, s.Len())
	first, ok := s.First()
	require.True(t, ok)
	assert.Equal(t, uint64(7), first)
	assert.Equal(t, uint64(2), s.ValueAt(10).Uint64())
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(10), last.Cycle)
}

func TestSeriesValuesAreCopied(t *testing.T) {
	v := uint256.NewInt(5)
	s := history.NewSeries(history.Point{Cycle: 1, Value: v})
	v.SetUint64(99)
	got := s.ValueAt(1)
	assert.Equal(t, uint64(5), got.Uint64())
	got.SetUint64(42)
	assert.Equal(t, uint64(5), s.ValueAt(1).Uint64())
}
