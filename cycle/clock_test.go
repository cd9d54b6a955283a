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

package cycle_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newClock(t *testing.T) *cycle.Clock {
	t.Helper()
	c, err := cycle.NewClock(cycle.Config{Advancer: "keeper"})
	require.NoError(t, err)
	return c
}

func TestClockAdvance(t *testing.T) {
	c := newClock(t)
	assert.Equal(t, uint64(1), c.Current())

	var seen [][2]uint64
	c.OnAdvance(func(prev, next uint64) error {
		assert.Equal(t, next, c.Current())
		seen = append(seen, [2]uint64{prev, next})
		return nil
	})
	next, err := c.Advance("keeper")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
	assert.Equal(t, [][2]uint64{{1, 2}}, seen)
}

func TestClockAdvanceHookFailure(t *testing.T) {
	c := newClock(t)
	hookErr := errors.New("mint failed")
	var calls int
	c.OnAdvance(func(prev, next uint64) error {
		calls++
		return nil
	})
	c.OnAdvance(func(prev, next uint64) error {
		return hookErr
	})
	c.OnAdvance(func(prev, next uint64) error {
		t.Fatal("hook after a failed hook must not run")
		return nil
	})
	_, err := c.Advance("keeper")
	require.ErrorIs(t, err, cycle.ErrAdvanceAborted)
	require.ErrorIs(t, err, hookErr)
	assert.Equal(t, uint64(1), c.Current())
	assert.Equal(t, 1, calls)
}

func TestClockAdvanceRejectsOthers(t *testing.T) {
	c := newClock(t)
	_, err := c.Advance("mallory")
	require.ErrorIs(t, err, cycle.ErrNotAdvancer)
	assert.Equal(t, uint64(1), c.Current())
}

func TestClockRequiresAdvancer(t *testing.T) {
	_, err := cycle.NewClock(cycle.Config{})
	require.Error(t, err)
}

func TestCheckpointArithmetic(t *testing.T) {
	c := newClock(t)
	testDefs := []struct {
		cycle uint64
		tde   uint64
	}{
		{cycle: 1, tde: 1},
		{cycle: 11, tde: 1},
		{cycle: 12, tde: 1},
		{cycle: 13, tde: 2},
		{cycle: 24, tde: 2},
		{cycle: 25, tde: 3},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.tde, c.TdeOf(testDef.cycle), "cycle %d", testDef.cycle)
	}
	assert.Equal(t, uint64(24), c.CheckpointCycle(2))
	assert.True(t, c.IsCheckpoint(36))
	assert.False(t, c.IsCheckpoint(35))
	assert.Equal(t, uint64(12), cycle.NextCheckpoint(5, 12))
	assert.Equal(t, uint64(24), cycle.NextCheckpoint(12, 12))
}

func TestClockRestore(t *testing.T) {
	c := newClock(t)
	require.NoError(t, c.Restore(40))
	assert.Equal(t, uint64(40), c.Current())
	require.Error(t, c.Restore(0))
}

func TestTickerRuns(t *testing.T) {
	var ticks atomic.Int32
	ticker, err := cycle.NewTicker("@every 1s", func(context.Context) error {
		ticks.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)
	require.NoError(t, ticker.Start(context.Background()))
	require.Eventually(t, func() bool {
		return ticks.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
	ticker.Stop()
}

func TestTickerInvalidSchedule(t *testing.T) {
	_, err := cycle.NewTicker("not a schedule", func(context.Context) error {
		return nil
	}, nil)
	require.Error(t, err)
}
