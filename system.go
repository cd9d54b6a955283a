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

// Package lockledger ties the cycle clock, lock ledger, checkpoint
// distributor and staking ledger together behind a single serialized entry
// point. Every accepted operation is snapshotted, journaled and published
// on the event bus before the call returns.
package lockledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/database"
	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/event"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/blinklabs-io/lockledger/staking"
)

// Operation names used for the journal and metrics
const (
	OpGenesis                   = "genesis"
	OpAdvance                   = "cycle.advance"
	OpCreateLock                = "lock.create"
	OpIncreaseLockAmount        = "lock.increase_amount"
	OpIncreaseLockTime          = "lock.increase_time"
	OpIncreaseLockTimeAndAmount = "lock.increase_time_and_amount"
	OpSetHold                   = "lock.hold"
	OpTransferLock              = "lock.transfer"
	OpBurnLock                  = "lock.burn"
	OpDepositCheckpoint         = "distributor.deposit"
	OpClaimCheckpoint           = "distributor.claim"
	OpStakeDeposit              = "staking.deposit"
	OpStakeWithdraw             = "staking.withdraw"
	OpStakePause                = "staking.pause"
	OpStakeBurn                 = "staking.burn"
	OpProcessSecondary          = "staking.process_secondary"
	OpClaimPrimary              = "staking.claim_primary"
	OpClaimSecondary            = "staking.claim_secondary"
	OpClaimAll                  = "staking.claim_all"
)

// ErrPersist is returned when an accepted operation could not be saved.
// The in-memory state is rolled back to the last saved snapshot.
var ErrPersist = errors.New("failed to persist ledger state")

type System struct {
	config      Config
	logger      *slog.Logger
	metrics     *systemMetrics
	clock       *cycle.Clock
	book        *asset.Book
	lockTokens  *ownership.Book
	stakeTokens *ownership.Book
	checker     *access.Checker
	locking     *locking.Ledger
	distributor *distributor.Distributor
	staking     *staking.Ledger
	eventBus    *event.EventBus
	db          *database.Database
	mutex       sync.Mutex
	closeOnce   sync.Once
}

// New builds every component, then restores the latest snapshot or, on a
// fresh data directory, credits the genesis balances
func New(cfg Config) (*System, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	s := &System{
		config:      cfg,
		logger:      cfg.logger.With("component", "lockledger"),
		book:        asset.NewBook(cfg.logger),
		lockTokens:  ownership.NewBook(),
		stakeTokens: ownership.NewBook(),
		checker:     access.NewChecker(cfg.delegation, cfg.managers...),
	}
	var err error
	s.clock, err = cycle.NewClock(cycle.Config{
		Logger:             cfg.logger,
		Advancer:           cfg.advancer,
		Genesis:            cfg.genesis,
		CheckpointInterval: cfg.checkpointInterval,
	})
	if err != nil {
		return nil, err
	}
	s.locking, err = locking.NewLedger(locking.Config{
		Logger:          cfg.logger,
		PromRegistry:    cfg.promRegistry,
		Clock:           s.clock,
		Registry:        s.lockTokens,
		Transferer:      s.book,
		Access:          s.checker,
		Now:             cfg.now,
		PrincipalAsset:  cfg.principalAsset,
		Custody:         LockCustody,
		MaxLockCycles:   cfg.maxLockCycles,
		MaxHoldDuration: cfg.maxHoldDuration,
		HistoryFloor:    cfg.historyFloor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lock ledger: %w", err)
	}
	s.distributor, err = distributor.New(distributor.Config{
		Logger:       cfg.logger,
		PromRegistry: cfg.promRegistry,
		Clock:        s.clock,
		Locks:        s.locking,
		Transferer:   s.book,
		Access:       s.checker,
		Treasury:     cfg.treasury,
		Custody:      DistributorCustody,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create distributor: %w", err)
	}
	s.locking.OnBurn(s.distributor.GuardBurn)
	s.staking, err = staking.NewLedger(staking.Config{
		Logger:       cfg.logger,
		PromRegistry: cfg.promRegistry,
		Clock:        s.clock,
		Registry:     s.stakeTokens,
		Transferer:   s.book,
		Minter:       s.book,
		Access:       s.checker,
		Emission:     cfg.emission,
		Converter:    cfg.converter,
		StakedAsset:  cfg.stakedAsset,
		PrimaryAsset: cfg.primaryAsset,
		Custody:      StakingCustody,
		Admin:        cfg.stakingAdmin,
		Processor:    cfg.processor,
		Genesis:      cfg.genesis,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create staking ledger: %w", err)
	}
	// The lock ledger seals its aggregates before staking mints the pool
	s.clock.OnAdvance(s.locking.OnAdvance)
	s.clock.OnAdvance(s.staking.OnAdvance)
	if cfg.promRegistry != nil {
		s.metrics = &systemMetrics{}
		s.metrics.init(cfg.promRegistry)
	}
	s.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	db, err := database.New(database.Config{
		Logger:         cfg.logger,
		PromRegistry:   cfg.promRegistry,
		DataDir:        cfg.dataDir,
		SnapshotRetain: cfg.snapshotRetain,
	})
	if err != nil {
		s.eventBus.Stop()
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	if err := s.start(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *System) start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var st State
	cycleNum, ok, err := s.db.Restore(&st)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if ok {
		if err := s.load(st); err != nil {
			return fmt.Errorf("failed to load snapshot from cycle %d: %w", cycleNum, err)
		}
		s.logger.Info(
			fmt.Sprintf("restored ledger state at cycle %d", s.clock.Current()),
		)
		s.setCycleGauge()
		return nil
	}
	for _, bal := range s.config.genesisBalances {
		if err := s.book.Mint(bal.Asset, bal.Account, bal.Value); err != nil {
			return fmt.Errorf("failed to credit genesis balance: %w", err)
		}
	}
	if err := s.commit(OpGenesis, "", 0, "", nil); err != nil {
		return err
	}
	s.logger.Info(
		fmt.Sprintf("initialized ledger state at cycle %d", s.clock.Current()),
		"genesis_balances", len(s.config.genesisBalances),
	)
	return nil
}

// EventBus returns the bus that accepted operations are published on
func (s *System) EventBus() *event.EventBus {
	return s.eventBus
}

// Close stops the event bus and closes the database
func (s *System) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		s.eventBus.Stop()
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

// commit persists the state after a successful mutation, then journals and
// publishes it. The mutex must be held.
func (s *System) commit(
	op string,
	caller asset.Account,
	positionID uint64,
	evtType event.EventType,
	data any,
) error {
	current := s.clock.Current()
	if err := s.db.Commit(current, s.state()); err != nil {
		s.logger.Error(
			"failed to persist operation, rolling back",
			"operation", op,
			"error", err,
		)
		if rbErr := s.rollback(); rbErr != nil {
			s.logger.Error(
				"failed to roll back to last snapshot",
				"error", rbErr,
			)
		}
		s.observe(op, err)
		return fmt.Errorf("%s: %w: %w", op, ErrPersist, err)
	}
	entry, err := journal.NewEntry(op, string(caller), positionID, current, data)
	if err == nil {
		err = s.db.Record(entry)
	}
	if err != nil {
		// The snapshot is the source of truth, the journal is best effort
		s.logger.Warn(
			"failed to journal operation",
			"operation", op,
			"error", err,
		)
	}
	if evtType != "" {
		s.eventBus.Publish(evtType, event.NewEvent(evtType, data))
	}
	s.observe(op, nil)
	s.setCycleGauge()
	return nil
}

func (s *System) rollback() error {
	var st State
	_, ok, err := s.db.Restore(&st)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no snapshot to roll back to")
	}
	return s.load(st)
}

// reject records a refused operation and returns err unchanged
func (s *System) reject(op string, caller asset.Account, err error) error {
	s.logger.Debug(
		"operation rejected",
		"operation", op,
		"caller", caller,
		"code", ledgererr.CodeOf(err),
		"error", err,
	)
	s.observe(op, err)
	return err
}

func (s *System) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = ledgererr.ClassOf(err).String()
	}
	s.metrics.operations.WithLabelValues(op, result).Inc()
}

func (s *System) setCycleGauge() {
	if s.metrics == nil {
		return
	}
	s.metrics.cycle.Set(float64(s.clock.Current()))
	s.metrics.tde.Set(float64(s.clock.TdeOf(s.clock.Current())))
}
