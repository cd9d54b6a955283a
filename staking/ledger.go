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

// Package staking implements the cycle staking ledger. Stake deposited in a
// cycle becomes eligible the next cycle and accrues a primary reward, minted
// per elapsed cycle, and a secondary reward, processed in batches by a
// trusted caller. Each stream has its own claim watermark.
package staking

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/history"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// MintNew as a position id asks Deposit to mint a new position
const MintNew uint64 = 0

type CycleSource interface {
	Current() uint64
}

type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Clock        CycleSource
	Registry     ownership.Registry
	Transferer   asset.Transferer
	Minter       asset.Minter
	Access       *access.Checker
	Emission     Emission
	Converter    Converter
	StakedAsset  asset.ID
	PrimaryAsset asset.ID
	Custody      asset.Account
	Admin        asset.Account
	Processor    asset.Account
	// Genesis is the first cycle that can receive secondary rewards
	Genesis uint64
}

type entry struct {
	stake                *history.Series
	pending              *uint256.Int
	totalStaked          *uint256.Int
	id                   uint64
	pendingCycle         uint64
	lastClaimedPrimary   uint64
	lastClaimedSecondary uint64
	burned               bool
}

func (e *entry) pendingAt(current uint64) *uint256.Int {
	if e.pendingCycle != current {
		return new(uint256.Int)
	}
	return e.pending.Clone()
}

// Info describes a staking position at the current cycle
type Info struct {
	Owner                asset.Account
	TotalStaked          *uint256.Int
	Eligible             *uint256.Int
	Pending              *uint256.Int
	ID                   uint64
	LastClaimedPrimary   uint64
	LastClaimedSecondary uint64
}

type Ledger struct {
	config        Config
	logger        *slog.Logger
	metrics       *stakingMetrics
	entries       map[uint64]*entry
	total         *history.Series
	staked        *uint256.Int
	pools         map[uint64]*uint256.Int
	secondary     map[uint64][]asset.Amount
	lastProcessed uint64
	paused        bool
}

func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Clock == nil {
		return nil, errors.New("staking ledger requires a cycle source")
	}
	if cfg.Registry == nil {
		return nil, errors.New("staking ledger requires an ownership registry")
	}
	if cfg.Transferer == nil {
		return nil, errors.New("staking ledger requires an asset transferer")
	}
	if cfg.StakedAsset == "" || cfg.Custody == "" {
		return nil, errors.New("staking ledger requires a staked asset and custody account")
	}
	if cfg.Emission != nil && (cfg.Minter == nil || cfg.PrimaryAsset == "") {
		return nil, errors.New("primary emission requires a minter and a primary asset")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Access == nil {
		cfg.Access = access.NewChecker(nil)
	}
	if cfg.Genesis == 0 {
		cfg.Genesis = cycle.DefaultGenesis
	}
	l := &Ledger{
		config:        cfg,
		logger:        cfg.Logger.With("component", "staking"),
		entries:       make(map[uint64]*entry),
		total:         history.NewSeries(),
		staked:        new(uint256.Int),
		pools:         make(map[uint64]*uint256.Int),
		secondary:     make(map[uint64][]asset.Amount),
		lastProcessed: cfg.Genesis - 1,
	}
	if cfg.PromRegistry != nil {
		l.metrics = &stakingMetrics{}
		l.metrics.init(cfg.PromRegistry)
	}
	return l, nil
}

// Deposit stakes amt from caller. With MintNew a position is minted to
// recipient, or to the caller when recipient is empty; otherwise the caller
// must own the position. The stake becomes eligible next cycle.
func (l *Ledger) Deposit(
	caller asset.Account,
	id uint64,
	amt *uint256.Int,
	recipient asset.Account,
) (uint64, error) {
	if amt == nil || amt.IsZero() {
		return 0, ErrZeroAmount
	}
	if l.paused {
		return 0, ErrDepositPaused
	}
	now := l.config.Clock.Current()
	next := now + 1
	var e *entry
	posNext := amt.Clone()
	newStaked := amt.Clone()
	if id != MintNew {
		var err error
		if e, _, err = l.authorize(caller, id); err != nil {
			return 0, err
		}
		if posNext, err = amount.Add(e.stake.ValueAt(next), amt); err != nil {
			return 0, err
		}
		if newStaked, err = amount.Add(e.totalStaked, amt); err != nil {
			return 0, err
		}
	}
	totalNext, err := amount.Add(l.total.ValueAt(next), amt)
	if err != nil {
		return 0, err
	}
	newTotalStaked, err := amount.Add(l.staked, amt)
	if err != nil {
		return 0, err
	}
	deposit := asset.Transfer{
		Asset: l.config.StakedAsset,
		From:  caller,
		To:    l.config.Custody,
		Value: amt.Clone(),
	}
	if err := l.config.Transferer.Transfer(deposit); err != nil {
		return 0, fmt.Errorf("stake deposit: %w", err)
	}
	if e == nil {
		if recipient == "" {
			recipient = caller
		}
		id, err = l.config.Registry.Mint(recipient)
		if err != nil {
			return 0, errors.Join(
				fmt.Errorf("mint staking position: %w", err),
				l.revert([]asset.Transfer{deposit}),
			)
		}
		e = &entry{
			id:                   id,
			stake:                history.NewSeries(),
			pending:              new(uint256.Int),
			totalStaked:          new(uint256.Int),
			lastClaimedPrimary:   now,
			lastClaimedSecondary: now,
		}
		l.entries[id] = e
	}
	e.stake.Set(next, posNext)
	l.total.Set(next, totalNext)
	if e.pendingCycle == now {
		e.pending.Add(e.pending, amt)
	} else {
		e.pending = amt.Clone()
		e.pendingCycle = now
	}
	e.totalStaked = newStaked
	l.staked = newTotalStaked
	if l.metrics != nil {
		l.metrics.deposits.Inc()
		l.metrics.staked.Set(amount.Float64(l.staked))
	}
	l.logger.Debug(
		fmt.Sprintf("staked into position %d", id),
		"amount", amt.Dec(),
		"eligible_from", next,
	)
	return id, nil
}

// Withdraw returns eligible stake to the owner. Stake deposited in the
// current cycle is still pending and cannot be withdrawn.
func (l *Ledger) Withdraw(caller asset.Account, id uint64, amt *uint256.Int) error {
	if amt == nil || amt.IsZero() {
		return ErrZeroWithdraw
	}
	e, owner, err := l.authorize(caller, id)
	if err != nil {
		return err
	}
	now := l.config.Clock.Current()
	eligible := e.stake.ValueAt(now)
	if eligible.Lt(amt) {
		return fmt.Errorf(
			"withdraw %s with %s eligible: %w",
			amt.Dec(),
			eligible.Dec(),
			ErrWithdrawExceedsStaked,
		)
	}
	release := asset.Transfer{
		Asset: l.config.StakedAsset,
		From:  l.config.Custody,
		To:    owner,
		Value: amt.Clone(),
	}
	if err := l.config.Transferer.Transfer(release); err != nil {
		return fmt.Errorf("release stake: %w", err)
	}
	for _, s := range []*history.Series{e.stake, l.total} {
		s.Set(now+1, amount.SubFloor(s.ValueAt(now+1), amt))
		s.Set(now, amount.SubFloor(s.ValueAt(now), amt))
	}
	e.totalStaked = amount.SubFloor(e.totalStaked, amt)
	l.staked = amount.SubFloor(l.staked, amt)
	if l.metrics != nil {
		l.metrics.withdrawals.Inc()
		l.metrics.staked.Set(amount.Float64(l.staked))
	}
	l.logger.Debug(
		fmt.Sprintf("withdrew from position %d", id),
		"amount", amt.Dec(),
		"owner", owner,
	)
	return nil
}

// SetDepositPaused toggles the global deposit pause
func (l *Ledger) SetDepositPaused(caller asset.Account, paused bool) error {
	if caller == "" || caller != l.config.Admin {
		return fmt.Errorf("%s: %w", caller, ErrNotAdmin)
	}
	l.paused = paused
	l.logger.Info(fmt.Sprintf("staking deposits paused: %t", paused))
	return nil
}

func (l *Ledger) DepositPaused() bool {
	return l.paused
}

// BurnPosition destroys an empty position. Its history is kept so past
// cycle totals still add up.
func (l *Ledger) BurnPosition(caller asset.Account, id uint64) error {
	e, _, err := l.authorize(caller, id)
	if err != nil {
		return err
	}
	if !e.totalStaked.IsZero() {
		return fmt.Errorf(
			"position %d stakes %s: %w",
			id,
			e.totalStaked.Dec(),
			ErrPositionNotEmpty,
		)
	}
	if err := l.config.Registry.Burn(id); err != nil {
		return fmt.Errorf("burn staking position: %w", err)
	}
	e.burned = true
	l.logger.Debug(fmt.Sprintf("burned staking position %d", id))
	return nil
}

// OnAdvance finalizes the primary pool of the cycle being left. Nothing is
// minted for a cycle without eligible stake. A failed mint is returned so
// the clock does not move past a cycle whose pool was never funded.
func (l *Ledger) OnAdvance(prev uint64, next uint64) error {
	if l.config.Emission == nil {
		return nil
	}
	if l.total.ValueAt(prev).IsZero() {
		return nil
	}
	pool := l.config.Emission.AmountFor(prev)
	if pool == nil || pool.IsZero() {
		return nil
	}
	if err := l.config.Minter.Mint(l.config.PrimaryAsset, l.config.Custody, pool); err != nil {
		l.logger.Error(
			"failed to mint primary reward pool",
			"cycle", prev,
			"amount", pool.Dec(),
			"error", err,
		)
		return fmt.Errorf("mint primary reward pool for cycle %d: %w", prev, err)
	}
	l.pools[prev] = pool.Clone()
	if l.metrics != nil {
		l.metrics.primaryMinted.Add(amount.Float64(pool))
	}
	return nil
}

// StakedAmountEligibleAtCycle returns the stake of the position that was
// eligible at fromCycle, as seen from asOfCycle. It is zero when fromCycle
// has not elapsed as of asOfCycle.
func (l *Ledger) StakedAmountEligibleAtCycle(
	fromCycle uint64,
	id uint64,
	asOfCycle uint64,
) (*uint256.Int, error) {
	e, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	if fromCycle >= asOfCycle {
		return new(uint256.Int), nil
	}
	v, _ := e.stake.At(fromCycle)
	return v, nil
}

// TotalStakedAtCycle is the stake of every position eligible at cycle
func (l *Ledger) TotalStakedAtCycle(c uint64) *uint256.Int {
	return l.total.ValueAt(c)
}

// TotalStaked includes stake that is still pending
func (l *Ledger) TotalStaked() *uint256.Int {
	return l.staked.Clone()
}

func (l *Ledger) PositionInfo(id uint64) (Info, error) {
	e, err := l.lookup(id)
	if err != nil {
		return Info{}, err
	}
	owner, err := l.config.Registry.OwnerOf(id)
	if err != nil {
		return Info{}, err
	}
	now := l.config.Clock.Current()
	return Info{
		ID:                   id,
		Owner:                owner,
		TotalStaked:          e.totalStaked.Clone(),
		Eligible:             e.stake.ValueAt(now),
		Pending:              e.pendingAt(now),
		LastClaimedPrimary:   e.lastClaimedPrimary,
		LastClaimedSecondary: e.lastClaimedSecondary,
	}, nil
}

// Positions lists the ids of positions that have not been burned
func (l *Ledger) Positions() []uint64 {
	ret := make([]uint64, 0, len(l.entries))
	for id, e := range l.entries {
		if !e.burned {
			ret = append(ret, id)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (l *Ledger) lookup(id uint64) (*entry, error) {
	e, ok := l.entries[id]
	if !ok || e.burned {
		return nil, fmt.Errorf("staking position %d: %w", id, ownership.ErrNotExisting)
	}
	return e, nil
}

func (l *Ledger) authorize(caller asset.Account, id uint64) (*entry, asset.Account, error) {
	e, err := l.lookup(id)
	if err != nil {
		return nil, "", err
	}
	owner, err := l.config.Registry.OwnerOf(id)
	if err != nil {
		return nil, "", err
	}
	res := l.config.Access.Check(access.Request{
		PositionID: id,
		Owner:      owner,
		Caller:     caller,
		Action:     access.ActionOwner,
	})
	if err := res.Error(); err != nil {
		return nil, "", err
	}
	return e, owner, nil
}

// revert undoes completed transfers in reverse order
func (l *Ledger) revert(transfers []asset.Transfer) error {
	reversed := make([]asset.Transfer, 0, len(transfers))
	for i := len(transfers) - 1; i >= 0; i-- {
		t := transfers[i]
		reversed = append(reversed, asset.Transfer{
			Asset: t.Asset,
			From:  t.To,
			To:    t.From,
			Value: t.Value,
		})
	}
	if err := asset.TransferAll(l.config.Transferer, reversed); err != nil {
		l.logger.Error("failed to revert transfers", "error", err)
		return fmt.Errorf("revert transfers: %w", err)
	}
	return nil
}
