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

package lockledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/staking"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Custody accounts holding the assets of each component
const (
	LockCustody        asset.Account = "lockledger:lock-custody"
	DistributorCustody asset.Account = "lockledger:distributor-custody"
	StakingCustody     asset.Account = "lockledger:staking-custody"
)

type Config struct {
	promRegistry       prometheus.Registerer
	logger             *slog.Logger
	delegation         access.Delegation
	emission           staking.Emission
	converter          staking.Converter
	now                func() time.Time
	dataDir            string
	principalAsset     asset.ID
	stakedAsset        asset.ID
	primaryAsset       asset.ID
	advancer           asset.Account
	treasury           asset.Account
	stakingAdmin       asset.Account
	processor          asset.Account
	managers           []asset.Account
	genesisBalances    []asset.Balance
	genesis            uint64
	checkpointInterval uint64
	maxLockCycles      uint64
	historyFloor       uint64
	snapshotRetain     uint64
	maxHoldDuration    time.Duration
}

func (c *Config) validate() error {
	if c.advancer == "" {
		return errors.New("cycle advancer must be set")
	}
	if c.principalAsset == "" {
		return errors.New("principal asset must be set")
	}
	if c.treasury == "" {
		return errors.New("treasury account must be set")
	}
	if c.stakedAsset == "" {
		return errors.New("staked asset must be set")
	}
	if c.emission != nil && c.primaryAsset == "" {
		return errors.New("primary emission requires a primary asset")
	}
	if c.checkpointInterval == 0 {
		return errors.New("checkpoint interval must be positive")
	}
	if c.maxLockCycles%c.checkpointInterval != 0 {
		return fmt.Errorf(
			"max lock cycles (%d) must be a multiple of the checkpoint interval (%d)",
			c.maxLockCycles,
			c.checkpointInterval,
		)
	}
	for _, bal := range c.genesisBalances {
		if bal.Asset == "" || bal.Account == "" || bal.Value == nil {
			return errors.New("genesis balances need an asset, account and value")
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the System config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new lockledger config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:             slog.New(slog.NewJSONHandler(io.Discard, nil)),
		delegation:         access.NoDelegation{},
		now:                time.Now,
		genesis:            cycle.DefaultGenesis,
		checkpointInterval: cycle.DefaultCheckpointInterval,
		maxLockCycles:      locking.DefaultMaxLockCycles,
		maxHoldDuration:    locking.DefaultMaxHoldDuration,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithSnapshotRetain specifies how many cycles of snapshots to keep. The default keeps all of them
func WithSnapshotRetain(cycles uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.snapshotRetain = cycles
	}
}

// WithGenesis specifies the first cycle. The default is 1
func WithGenesis(genesis uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.genesis = genesis
	}
}

// WithCheckpointInterval specifies the number of cycles per checkpoint epoch. The default is 12
func WithCheckpointInterval(interval uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.checkpointInterval = interval
	}
}

// WithMaxLockCycles specifies the longest allowed lock. It must be a multiple of the checkpoint interval
func WithMaxLockCycles(cycles uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.maxLockCycles = cycles
	}
}

// WithMaxHoldDuration specifies how far in the future a manual hold may reach
func WithMaxHoldDuration(d time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.maxHoldDuration = d
	}
}

// WithHistoryFloor rejects balance queries at or before the given cycle
func WithHistoryFloor(floor uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.historyFloor = floor
	}
}

// WithAdvancer specifies the only account allowed to advance the cycle
func WithAdvancer(account asset.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.advancer = account
	}
}

// WithTreasury specifies the account allowed to fund checkpoint epochs
func WithTreasury(account asset.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.treasury = account
	}
}

// WithStakingAdmin specifies the account allowed to pause staking deposits
func WithStakingAdmin(account asset.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.stakingAdmin = account
	}
}

// WithProcessor specifies the account allowed to process secondary rewards
func WithProcessor(account asset.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.processor = account
	}
}

// WithManagers adds accounts allowed to extend managed locks on behalf of their owners
func WithManagers(managers ...asset.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.managers = append(c.managers, managers...)
	}
}

// WithPrincipalAsset specifies the asset that locks are made of
func WithPrincipalAsset(id asset.ID) ConfigOptionFunc {
	return func(c *Config) {
		c.principalAsset = id
	}
}

// WithStakedAsset specifies the asset accepted by the staking ledger
func WithStakedAsset(id asset.ID) ConfigOptionFunc {
	return func(c *Config) {
		c.stakedAsset = id
	}
}

// WithPrimaryAsset specifies the asset minted as the primary staking reward
func WithPrimaryAsset(id asset.ID) ConfigOptionFunc {
	return func(c *Config) {
		c.primaryAsset = id
	}
}

// WithEmission specifies the primary reward schedule. Without one no primary rewards accrue
func WithEmission(emission staking.Emission) ConfigOptionFunc {
	return func(c *Config) {
		c.emission = emission
	}
}

// WithEmissionPerCycle is shorthand for a fixed primary reward per cycle
func WithEmissionPerCycle(perCycle *uint256.Int) ConfigOptionFunc {
	return func(c *Config) {
		c.emission = staking.FixedEmission{PerCycle: perCycle}
	}
}

// WithConverter specifies the converter used for converted secondary claims
func WithConverter(converter staking.Converter) ConfigOptionFunc {
	return func(c *Config) {
		c.converter = converter
	}
}

// WithDelegation specifies the source of delegated rights. The default allows no delegates
func WithDelegation(delegation access.Delegation) ConfigOptionFunc {
	return func(c *Config) {
		c.delegation = delegation
	}
}

// WithGenesisBalances specifies balances credited when starting without saved state
func WithGenesisBalances(balances ...asset.Balance) ConfigOptionFunc {
	return func(c *Config) {
		c.genesisBalances = append(c.genesisBalances, balances...)
	}
}

// WithNow overrides the wall clock used for manual holds
func WithNow(now func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.now = now
	}
}
