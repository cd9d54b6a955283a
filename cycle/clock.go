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

// Package cycle provides the cycle clock that every ledger reads its notion
// of "now" from, plus checkpoint (TDE) arithmetic.
package cycle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/ledgererr"
)

const (
	DefaultGenesis            = 1
	DefaultCheckpointInterval = 12
)

var ErrNotAdvancer = ledgererr.New(
	ledgererr.ClassAuthorization,
	"NOT_CYCLE_ADVANCER",
	"caller is not the cycle advancer",
)

var ErrAdvanceAborted = errors.New("cycle advance aborted by hook")

// AdvanceFunc is called after the clock moves from prev to next. A non-nil
// error aborts the advance.
type AdvanceFunc func(prev uint64, next uint64) error

type Config struct {
	Logger             *slog.Logger
	Advancer           asset.Account
	Genesis            uint64
	CheckpointInterval uint64
}

// Clock is a monotonically increasing cycle counter. Only the configured
// advancer may move it forward, and only one cycle at a time.
type Clock struct {
	logger   *slog.Logger
	advancer asset.Account
	hooks    []AdvanceFunc
	genesis  uint64
	interval uint64
	current  uint64
	mutex    sync.RWMutex
}

func NewClock(cfg Config) (*Clock, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Genesis == 0 {
		cfg.Genesis = DefaultGenesis
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	if cfg.Advancer == "" {
		return nil, errors.New("cycle advancer must be set")
	}
	return &Clock{
		logger:   cfg.Logger,
		advancer: cfg.Advancer,
		genesis:  cfg.Genesis,
		interval: cfg.CheckpointInterval,
		current:  cfg.Genesis,
	}, nil
}

func (c *Clock) Current() uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.current
}

func (c *Clock) Genesis() uint64 {
	return c.genesis
}

func (c *Clock) Interval() uint64 {
	return c.interval
}

// OnAdvance registers a hook. Hooks run in registration order after the
// counter has moved, so Current already reports the new cycle. The first hook
// to fail stops the chain and the counter is moved back to prev. Hooks that
// already ran are not undone; their owner restores them.
func (c *Clock) OnAdvance(fn AdvanceFunc) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Advance moves the clock forward by exactly one cycle
func (c *Clock) Advance(caller asset.Account) (uint64, error) {
	c.mutex.Lock()
	if caller != c.advancer {
		c.mutex.Unlock()
		return 0, fmt.Errorf("advance cycle: %w", ErrNotAdvancer)
	}
	prev := c.current
	next := prev + 1
	c.current = next
	hooks := make([]AdvanceFunc, len(c.hooks))
	copy(hooks, c.hooks)
	c.mutex.Unlock()
	for _, hook := range hooks {
		if err := hook(prev, next); err != nil {
			c.mutex.Lock()
			c.current = prev
			c.mutex.Unlock()
			return 0, fmt.Errorf(
				"advance to cycle %d: %w: %w",
				next,
				ErrAdvanceAborted,
				err,
			)
		}
	}
	c.logger.Debug(
		fmt.Sprintf("advanced to cycle %d", next),
		"component", "cycle",
		"tde", c.TdeOf(next),
	)
	return next, nil
}

// Restore sets the current cycle without running hooks. It is used when
// rebuilding state from a snapshot.
func (c *Clock) Restore(current uint64) error {
	if current < c.genesis {
		return fmt.Errorf(
			"cannot restore cycle %d before genesis %d",
			current,
			c.genesis,
		)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.current = current
	return nil
}

// TdeOf returns the checkpoint epoch that the given cycle belongs to. Cycles
// (k-1)*N+1 through k*N map to epoch k.
func (c *Clock) TdeOf(cycle uint64) uint64 {
	return TdeOf(cycle, c.interval)
}

// CheckpointCycle returns the closing cycle of the given checkpoint epoch
func (c *Clock) CheckpointCycle(tde uint64) uint64 {
	return tde * c.interval
}

func (c *Clock) IsCheckpoint(cycle uint64) bool {
	return cycle%c.interval == 0
}

func TdeOf(cycle uint64, interval uint64) uint64 {
	return (cycle + interval - 1) / interval
}

// NextCheckpoint returns the first checkpoint cycle strictly after cycle
func NextCheckpoint(cycle uint64, interval uint64) uint64 {
	return interval * (cycle/interval + 1)
}
