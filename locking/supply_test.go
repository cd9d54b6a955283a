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
	"testing"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walk recomputes a value from the raw deltas without the projection cache
func walk(s *deltaSeries, cycle uint64) string {
	if idx := cycle - s.origin; cycle >= s.origin && idx < uint64(len(s.sealed)) {
		return s.sealed[idx].Dec()
	}
	ret := s.lastSealed().Clone()
	for next := s.nextUnsealed(); next <= cycle && next <= s.horizon; next++ {
		ret, _ = s.apply(ret, next)
	}
	return ret.Dec()
}

func TestDeltaSeriesProjection(t *testing.T) {
	s := newDeltaSeries(1)
	s.add(1, uint256.NewInt(100))
	s.add(3, uint256.NewInt(50))
	s.sub(12, uint256.NewInt(100))
	s.sub(24, uint256.NewInt(50))
	for c := uint64(0); c <= 30; c++ {
		assert.Equal(t, walk(s, c), s.at(c).Dec(), "cycle %d", c)
	}
	assert.Equal(t, "150", s.at(11).Dec())
	assert.Equal(t, "0", s.at(30).Dec())

	// Scheduling drops the cached projection
	s.add(5, uint256.NewInt(7))
	s.sub(36, uint256.NewInt(7))
	assert.Equal(t, "157", s.at(11).Dec())
	assert.Equal(t, "7", s.at(30).Dec())

	require.NoError(t, s.seal(10))
	for c := uint64(0); c <= 40; c++ {
		assert.Equal(t, walk(s, c), s.at(c).Dec(), "cycle %d", c)
	}
	assert.Equal(t, "157", s.at(10).Dec())
	assert.Equal(t, "0", s.at(40).Dec())

	// Returned values must not alias the cache
	v := s.at(20)
	v.SetUint64(1)
	assert.Equal(t, "57", s.at(20).Dec())
}

func TestDeltaSeriesSealUnderflow(t *testing.T) {
	s := newDeltaSeries(1)
	s.add(2, uint256.NewInt(5))
	s.sub(3, uint256.NewInt(7))
	require.Error(t, s.seal(3))
	assert.Empty(t, s.sealed)
	assert.Equal(t, "5", s.at(2).Dec())

	require.NoError(t, s.seal(2))
	assert.Len(t, s.sealed, 2)
	assert.Equal(t, "5", s.at(2).Dec())
}

func TestOnAdvanceUnderflowSealsNothing(t *testing.T) {
	clock, err := cycle.NewClock(cycle.Config{Advancer: "keeper"})
	require.NoError(t, err)
	book := asset.NewBook(nil)
	l, err := NewLedger(Config{
		Clock:          clock,
		Registry:       ownership.NewBook(),
		Transferer:     book,
		Access:         access.NewChecker(nil),
		PrincipalAsset: "CVG",
		Custody:        "lock-custody",
		PromRegistry:   prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	clock.OnAdvance(l.OnAdvance)
	require.NoError(t, book.Mint("CVG", "alice", uint256.NewInt(1000)))
	_, err = l.CreatePosition("alice", CreateRequest{
		Duration:          11,
		Amount:            uint256.NewInt(960),
		YieldSharePercent: 50,
	})
	require.NoError(t, err)

	// A subtraction with no matching addition can only come from a bug
	l.metagov.sub(clock.Current(), new(uint256.Int).SetAllOne())
	_, err = clock.Advance("keeper")
	require.ErrorIs(t, err, cycle.ErrAdvanceAborted)
	assert.Equal(t, uint64(1), clock.Current())
	for _, s := range []*deltaSeries{l.yieldShare, l.govSlope, l.govBias, l.metagov} {
		assert.Empty(t, s.sealed)
	}
}
