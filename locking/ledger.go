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

// Package locking implements the lock position ledger: principal locked for
// a duration, and the governance, metagovernance and yield-share balances
// derived from it.
package locking

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultMaxLockCycles   = 96
	DefaultMaxHoldDuration = 10 * 24 * time.Hour
)

// CycleSource provides the current cycle and checkpoint spacing
type CycleSource interface {
	Current() uint64
	Interval() uint64
}

type Config struct {
	Logger          *slog.Logger
	PromRegistry    prometheus.Registerer
	Clock           CycleSource
	Registry        ownership.Registry
	Transferer      asset.Transferer
	Access          *access.Checker
	Now             func() time.Time
	PrincipalAsset  asset.ID
	Custody         asset.Account
	MaxLockCycles   uint64
	MaxHoldDuration time.Duration
	// Queries for cycles at or before HistoryFloor are rejected
	HistoryFloor uint64
}

// CreateRequest describes a new lock
type CreateRequest struct {
	Amount            *uint256.Int
	Recipient         asset.Account
	Duration          uint64
	YieldSharePercent uint64
	Managed           bool
}

type Ledger struct {
	config      Config
	logger      *slog.Logger
	metrics     *lockMetrics
	positions   map[uint64]*Position
	yieldShare  *deltaSeries
	govSlope    *deltaSeries
	govBias     *deltaSeries
	metagov     *deltaSeries
	totalLocked *uint256.Int
	burnGuards  []BurnGuard
}

// BurnGuard may veto burning a position by returning an error
type BurnGuard func(id uint64) error

func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Clock == nil {
		return nil, errors.New("locking ledger requires a cycle source")
	}
	if cfg.Registry == nil {
		return nil, errors.New("locking ledger requires an ownership registry")
	}
	if cfg.Transferer == nil {
		return nil, errors.New("locking ledger requires an asset transferer")
	}
	if cfg.PrincipalAsset == "" || cfg.Custody == "" {
		return nil, errors.New("locking ledger requires a principal asset and custody account")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Access == nil {
		cfg.Access = access.NewChecker(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxLockCycles == 0 {
		cfg.MaxLockCycles = DefaultMaxLockCycles
	}
	if cfg.MaxHoldDuration == 0 {
		cfg.MaxHoldDuration = DefaultMaxHoldDuration
	}
	origin := cfg.Clock.Current()
	l := &Ledger{
		config:      cfg,
		logger:      cfg.Logger.With("component", "locking"),
		positions:   make(map[uint64]*Position),
		yieldShare:  newDeltaSeries(origin),
		govSlope:    newDeltaSeries(origin),
		govBias:     newDeltaSeries(origin),
		metagov:     newDeltaSeries(origin),
		totalLocked: new(uint256.Int),
	}
	if cfg.PromRegistry != nil {
		l.metrics = &lockMetrics{}
		l.metrics.init(cfg.PromRegistry)
	}
	return l, nil
}

func (l *Ledger) MaxLockCycles() uint64 {
	return l.config.MaxLockCycles
}

// CreatePosition locks principal from caller and mints a new position to
// the recipient, or to the caller when no recipient is given
func (l *Ledger) CreatePosition(
	caller asset.Account,
	req CreateRequest,
) (Position, error) {
	now := l.config.Clock.Current()
	interval := l.config.Clock.Interval()
	if req.Amount == nil || req.Amount.IsZero() {
		return Position{}, ErrZeroAmount
	}
	if req.Duration == 0 {
		return Position{}, ErrZeroDuration
	}
	if req.Duration > l.config.MaxLockCycles {
		return Position{}, fmt.Errorf(
			"duration %d over %d: %w",
			req.Duration,
			l.config.MaxLockCycles,
			ErrDurationTooLong,
		)
	}
	end := now + req.Duration
	if end%interval != 0 {
		return Position{}, fmt.Errorf("end cycle %d: %w", end, ErrEndNotCheckpoint)
	}
	if req.YieldSharePercent > MaxPercentage || req.YieldSharePercent%10 != 0 {
		return Position{}, ErrInvalidYieldSharePercent
	}
	recipient := req.Recipient
	if recipient == "" {
		recipient = caller
	}
	newTotal, err := amount.Add(l.totalLocked, req.Amount)
	if err != nil {
		return Position{}, err
	}
	window, err := newWindow(windowParams{
		amount:     req.Amount,
		recorded:   now,
		start:      now,
		activeFrom: now + 1,
		end:        end,
		percent:    req.YieldSharePercent,
		maxLock:    l.config.MaxLockCycles,
		interval:   interval,
	})
	if err != nil {
		return Position{}, err
	}
	pos := &Position{
		StartCycle:        now,
		EndCycle:          end,
		TotalLocked:       req.Amount.Clone(),
		YieldSharePercent: req.YieldSharePercent,
		Managed:           req.Managed,
	}
	vote := pos.voteAmount(req.Amount)
	mg, err := amount.MulDivUint64(vote, req.Duration, l.config.MaxLockCycles)
	if err != nil {
		return Position{}, err
	}
	window.TotalLocked = req.Amount.Clone()
	window.LockEnd = end
	window.Metagovernance = mg
	deposit := asset.Transfer{
		Asset: l.config.PrincipalAsset,
		From:  caller,
		To:    l.config.Custody,
		Value: req.Amount.Clone(),
	}
	if err := l.config.Transferer.Transfer(deposit); err != nil {
		return Position{}, fmt.Errorf("lock principal: %w", err)
	}
	id, err := l.config.Registry.Mint(recipient)
	if err != nil {
		return Position{}, errors.Join(
			fmt.Errorf("mint position: %w", err),
			l.refund(deposit),
		)
	}
	pos.ID = id
	pos.Windows = []LockWindow{window}
	l.positions[id] = pos
	window.scheduleYieldShare(l.yieldShare)
	l.rescheduleWeights(now, nil, weights{vote: vote, end: end, mg: mg})
	l.totalLocked = newTotal
	if l.metrics != nil {
		l.metrics.positionsCreated.Inc()
		l.updateGauges()
	}
	l.logger.Debug(
		fmt.Sprintf("created lock position %d", id),
		"owner", recipient,
		"amount", req.Amount.Dec(),
		"start", now,
		"end", end,
		"ys_percent", req.YieldSharePercent,
	)
	return pos.clone(), nil
}

// IncreaseLockAmount adds principal to an active lock. A manager acting for
// the owner passes the owner as onBehalfOf.
func (l *Ledger) IncreaseLockAmount(
	caller asset.Account,
	id uint64,
	extra *uint256.Int,
	onBehalfOf asset.Account,
) error {
	if extra == nil || extra.IsZero() {
		return ErrZeroAmount
	}
	return l.increase(caller, id, 0, extra, onBehalfOf)
}

// IncreaseLockTime moves the end of an active lock out by extraCycles
func (l *Ledger) IncreaseLockTime(
	caller asset.Account,
	id uint64,
	extraCycles uint64,
	onBehalfOf asset.Account,
) error {
	if extraCycles == 0 {
		return ErrZeroDuration
	}
	return l.increase(caller, id, extraCycles, nil, onBehalfOf)
}

// IncreaseLockTimeAndAmount applies both increases in one step. The added
// principal is weighted over the extended duration.
func (l *Ledger) IncreaseLockTimeAndAmount(
	caller asset.Account,
	id uint64,
	extraCycles uint64,
	extra *uint256.Int,
	onBehalfOf asset.Account,
) error {
	if extraCycles == 0 {
		return ErrZeroDuration
	}
	if extra == nil || extra.IsZero() {
		return ErrZeroAmount
	}
	return l.increase(caller, id, extraCycles, extra, onBehalfOf)
}

func (l *Ledger) increase(
	caller asset.Account,
	id uint64,
	extraCycles uint64,
	extra *uint256.Int,
	onBehalfOf asset.Account,
) error {
	pos, err := l.authorize(caller, id, access.ActionManageLock, onBehalfOf)
	if err != nil {
		return err
	}
	if pos.isHeld(l.config.Now()) {
		return fmt.Errorf("position %d: %w", id, ErrPositionHeld)
	}
	now := l.config.Clock.Current()
	interval := l.config.Clock.Interval()
	if pos.EndCycle <= now {
		return fmt.Errorf("position %d ended at %d: %w", id, pos.EndCycle, ErrLockOver)
	}
	prev := pos.Windows[len(pos.Windows)-1]
	locked := prev.TotalLocked.Clone()
	mg := prev.Metagovernance.Clone()
	end := pos.EndCycle
	var windows []LockWindow
	if extraCycles > 0 {
		newEnd := end + extraCycles
		if newEnd%interval != 0 {
			return fmt.Errorf("end cycle %d: %w", newEnd, ErrEndNotCheckpoint)
		}
		if newEnd-pos.StartCycle > l.config.MaxLockCycles {
			return fmt.Errorf(
				"lock from %d to %d: %w",
				pos.StartCycle,
				newEnd,
				ErrDurationTooLong,
			)
		}
		w, err := newWindow(windowParams{
			amount:     locked,
			recorded:   now,
			start:      end,
			activeFrom: end,
			end:        newEnd,
			percent:    pos.YieldSharePercent,
			maxLock:    l.config.MaxLockCycles,
			interval:   interval,
		})
		if err != nil {
			return err
		}
		added, err := amount.MulDivUint64(
			pos.voteAmount(locked),
			extraCycles,
			l.config.MaxLockCycles,
		)
		if err != nil {
			return err
		}
		mg.Add(mg, added)
		windows = append(windows, w)
		end = newEnd
	}
	if extra != nil {
		w, err := newWindow(windowParams{
			amount:     extra,
			recorded:   now,
			start:      now,
			activeFrom: now + 1,
			end:        end,
			percent:    pos.YieldSharePercent,
			maxLock:    l.config.MaxLockCycles,
			interval:   interval,
		})
		if err != nil {
			return err
		}
		if locked, err = amount.Add(locked, extra); err != nil {
			return err
		}
		added, err := amount.MulDivUint64(
			pos.voteAmount(extra),
			end-now,
			l.config.MaxLockCycles,
		)
		if err != nil {
			return err
		}
		mg.Add(mg, added)
		windows = append(windows, w)
	}
	newTotal := l.totalLocked
	if extra != nil {
		if newTotal, err = amount.Add(l.totalLocked, extra); err != nil {
			return err
		}
		deposit := asset.Transfer{
			Asset: l.config.PrincipalAsset,
			From:  caller,
			To:    l.config.Custody,
			Value: extra.Clone(),
		}
		if err := l.config.Transferer.Transfer(deposit); err != nil {
			return fmt.Errorf("lock principal: %w", err)
		}
	}
	for i := range windows {
		windows[i].TotalLocked = locked.Clone()
		windows[i].LockEnd = end
		windows[i].Metagovernance = mg.Clone()
		windows[i].scheduleYieldShare(l.yieldShare)
	}
	l.rescheduleWeights(
		now,
		&weights{
			vote: pos.voteAmount(prev.TotalLocked),
			end:  pos.EndCycle,
			mg:   prev.Metagovernance,
		},
		weights{
			vote: pos.voteAmount(locked),
			end:  end,
			mg:   mg,
		},
	)
	pos.Windows = append(pos.Windows, windows...)
	pos.EndCycle = end
	pos.TotalLocked = locked
	l.totalLocked = newTotal
	if l.metrics != nil {
		if extraCycles > 0 {
			l.metrics.increases.WithLabelValues("time").Inc()
		}
		if extra != nil {
			l.metrics.increases.WithLabelValues("amount").Inc()
		}
		l.updateGauges()
	}
	l.logger.Debug(
		fmt.Sprintf("increased lock position %d", id),
		"extra_cycles", extraCycles,
		"total_locked", locked.Dec(),
		"end", end,
	)
	return nil
}

// SetHold blocks mutation and transfer of the position until the given time
func (l *Ledger) SetHold(caller asset.Account, id uint64, until time.Time) error {
	pos, err := l.authorize(caller, id, access.ActionOwner, "")
	if err != nil {
		return err
	}
	if until.After(l.config.Now().Add(l.config.MaxHoldDuration)) {
		return fmt.Errorf("hold until %s: %w", until.Format(time.RFC3339), ErrHoldTooLong)
	}
	pos.HoldUntil = until
	return nil
}

// TransferPosition hands the position to another account
func (l *Ledger) TransferPosition(caller asset.Account, id uint64, to asset.Account) error {
	pos, err := l.authorize(caller, id, access.ActionOwner, "")
	if err != nil {
		return err
	}
	if pos.isHeld(l.config.Now()) {
		return fmt.Errorf("position %d: %w", id, ErrPositionHeld)
	}
	return l.config.Registry.Transfer(id, caller, to)
}

// BurnPosition releases the principal of an expired lock to its owner and
// destroys the position
func (l *Ledger) BurnPosition(caller asset.Account, id uint64) (*uint256.Int, error) {
	pos, err := l.authorize(caller, id, access.ActionOwner, "")
	if err != nil {
		return nil, err
	}
	now := l.config.Clock.Current()
	if now <= pos.EndCycle {
		return nil, fmt.Errorf("position %d ends at %d: %w", id, pos.EndCycle, ErrStillLocked)
	}
	for _, guard := range l.burnGuards {
		if err := guard(id); err != nil {
			return nil, err
		}
	}
	release := asset.Transfer{
		Asset: l.config.PrincipalAsset,
		From:  l.config.Custody,
		To:    caller,
		Value: pos.TotalLocked.Clone(),
	}
	if err := l.config.Transferer.Transfer(release); err != nil {
		return nil, fmt.Errorf("release principal: %w", err)
	}
	if err := l.config.Registry.Burn(id); err != nil {
		return nil, errors.Join(
			fmt.Errorf("burn position: %w", err),
			l.refund(release),
		)
	}
	pos.Burned = true
	l.totalLocked = amount.SubFloor(l.totalLocked, pos.TotalLocked)
	if l.metrics != nil {
		l.metrics.positionsBurned.Inc()
		l.updateGauges()
	}
	l.logger.Debug(
		fmt.Sprintf("burned lock position %d", id),
		"owner", caller,
		"released", pos.TotalLocked.Dec(),
	)
	return pos.TotalLocked.Clone(), nil
}

// VotingPowerAt is the governance weight of the position at cycle, readable
// by its owner or vote delegate
func (l *Ledger) VotingPowerAt(
	caller asset.Account,
	id uint64,
	cycle uint64,
) (*uint256.Int, error) {
	if _, _, err := l.check(caller, id, access.ActionVote); err != nil {
		return nil, err
	}
	return l.BalanceOfGovernanceAt(id, cycle)
}

// MetagovernancePowerAt is the metagovernance weight of the position at
// cycle, readable by its owner or metagovernance delegate
func (l *Ledger) MetagovernancePowerAt(
	caller asset.Account,
	id uint64,
	cycle uint64,
) (*uint256.Int, error) {
	if _, _, err := l.check(caller, id, access.ActionMetagovernance); err != nil {
		return nil, err
	}
	return l.BalanceOfMetagovernanceAt(id, cycle)
}

func (l *Ledger) BalanceOfGovernanceAt(id uint64, cycle uint64) (*uint256.Int, error) {
	pos, err := l.lookup(id, cycle)
	if err != nil {
		return nil, err
	}
	return pos.governanceAt(cycle, l.config.MaxLockCycles), nil
}

func (l *Ledger) BalanceOfMetagovernanceAt(id uint64, cycle uint64) (*uint256.Int, error) {
	pos, err := l.lookup(id, cycle)
	if err != nil {
		return nil, err
	}
	return pos.metagovernanceAt(cycle), nil
}

func (l *Ledger) BalanceOfYieldShareAt(id uint64, cycle uint64) (*uint256.Int, error) {
	pos, err := l.lookup(id, cycle)
	if err != nil {
		return nil, err
	}
	return pos.yieldShareAt(cycle), nil
}

func (l *Ledger) TotalYieldShareSupplyAt(cycle uint64) (*uint256.Int, error) {
	if cycle <= l.config.HistoryFloor {
		return nil, fmt.Errorf("cycle %d: %w", cycle, ErrCycleNotExisting)
	}
	return l.yieldShare.at(cycle), nil
}

// TotalGovernanceAt is the aggregate governance weight. Each position
// rounds down on its own, so the aggregate may exceed the sum of positions
// by less than one unit per position.
func (l *Ledger) TotalGovernanceAt(cycle uint64) (*uint256.Int, error) {
	if cycle <= l.config.HistoryFloor {
		return nil, fmt.Errorf("cycle %d: %w", cycle, ErrCycleNotExisting)
	}
	slope := l.govSlope.at(cycle)
	bias := l.govBias.at(cycle)
	decayed := new(uint256.Int).Mul(slope, uint256.NewInt(cycle))
	return new(uint256.Int).Div(
		amount.SubFloor(bias, decayed),
		uint256.NewInt(l.config.MaxLockCycles),
	), nil
}

func (l *Ledger) TotalMetagovernanceAt(cycle uint64) (*uint256.Int, error) {
	if cycle <= l.config.HistoryFloor {
		return nil, fmt.Errorf("cycle %d: %w", cycle, ErrCycleNotExisting)
	}
	return l.metagov.at(cycle), nil
}

func (l *Ledger) TotalLocked() *uint256.Int {
	return l.totalLocked.Clone()
}

// Position returns a copy of the position record
func (l *Ledger) Position(id uint64) (Position, error) {
	pos, ok := l.positions[id]
	if !ok {
		return Position{}, fmt.Errorf("lock position %d: %w", id, ownership.ErrNotExisting)
	}
	return pos.clone(), nil
}

// Positions returns copies of every position ordered by id, burned ones
// included since they still count toward past aggregates
func (l *Ledger) Positions() []Position {
	ret := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		ret = append(ret, pos.clone())
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// OnBurn registers a guard consulted before a position is burned
func (l *Ledger) OnBurn(fn BurnGuard) {
	l.burnGuards = append(l.burnGuards, fn)
}

func (l *Ledger) OwnerOf(id uint64) (asset.Account, error) {
	pos, ok := l.positions[id]
	if !ok || pos.Burned {
		return "", fmt.Errorf("lock position %d: %w", id, ownership.ErrNotExisting)
	}
	return l.config.Registry.OwnerOf(id)
}

// IsHeld reports whether the position is under a manual hold
func (l *Ledger) IsHeld(id uint64) (bool, error) {
	pos, ok := l.positions[id]
	if !ok {
		return false, fmt.Errorf("lock position %d: %w", id, ownership.ErrNotExisting)
	}
	return pos.isHeld(l.config.Now()), nil
}

// OnAdvance seals the aggregates for the cycle being left. Either every
// aggregate is sealed or, on underflow, none is and the advance is aborted.
func (l *Ledger) OnAdvance(prev uint64, next uint64) error {
	series := []struct {
		name string
		s    *deltaSeries
	}{
		{"yield share", l.yieldShare},
		{"governance", l.govSlope},
		{"governance end", l.govBias},
		{"metagovernance", l.metagov},
	}
	pending := make([][]*uint256.Int, len(series))
	for i, entry := range series {
		values, err := entry.s.pending(prev)
		if err != nil {
			l.logger.Error(
				"failed to seal "+entry.name+" aggregate",
				"cycle", prev,
				"error", err,
			)
			return fmt.Errorf("seal %s aggregate: %w", entry.name, err)
		}
		pending[i] = values
	}
	for i, entry := range series {
		entry.s.commit(pending[i])
	}
	if l.metrics != nil {
		l.updateGauges()
	}
	return nil
}

func (l *Ledger) lookup(id uint64, cycle uint64) (*Position, error) {
	if cycle <= l.config.HistoryFloor {
		return nil, fmt.Errorf("cycle %d: %w", cycle, ErrCycleNotExisting)
	}
	pos, ok := l.positions[id]
	if !ok {
		return nil, fmt.Errorf("lock position %d: %w", id, ownership.ErrNotExisting)
	}
	return pos, nil
}

// check loads the position and asks the access checker about the caller
func (l *Ledger) check(
	caller asset.Account,
	id uint64,
	action access.Action,
) (*Position, asset.Account, error) {
	pos, ok := l.positions[id]
	if !ok || pos.Burned {
		return nil, "", fmt.Errorf("lock position %d: %w", id, ownership.ErrNotExisting)
	}
	owner, err := l.config.Registry.OwnerOf(id)
	if err != nil {
		return nil, "", err
	}
	res := l.config.Access.Check(access.Request{
		PositionID: id,
		Owner:      owner,
		Caller:     caller,
		Action:     action,
		Managed:    pos.Managed,
	})
	if err := res.Error(); err != nil {
		return nil, "", err
	}
	return pos, owner, nil
}

// authorize is check for mutations. Managers must name the owner they act
// for.
func (l *Ledger) authorize(
	caller asset.Account,
	id uint64,
	action access.Action,
	onBehalfOf asset.Account,
) (*Position, error) {
	pos, owner, err := l.check(caller, id, action)
	if err != nil {
		return nil, err
	}
	if caller != owner && onBehalfOf != owner {
		return nil, fmt.Errorf(
			"%s acting for %s on position %d: %w",
			caller,
			onBehalfOf,
			id,
			ErrInvalidRecipient,
		)
	}
	return pos, nil
}

func (l *Ledger) refund(t asset.Transfer) error {
	if err := l.config.Transferer.Transfer(asset.Transfer{
		Asset: t.Asset,
		From:  t.To,
		To:    t.From,
		Value: t.Value,
	}); err != nil {
		l.logger.Error(
			"failed to refund principal",
			"account", t.From,
			"amount", t.Value.Dec(),
			"error", err,
		)
		return fmt.Errorf("refund principal: %w", err)
	}
	return nil
}

type weights struct {
	vote *uint256.Int
	mg   *uint256.Int
	end  uint64
}

// rescheduleWeights replaces a position's governance and metagovernance
// contribution from cycle now on
func (l *Ledger) rescheduleWeights(now uint64, old *weights, cur weights) {
	if old != nil {
		oldBias := new(uint256.Int).Mul(old.vote, uint256.NewInt(old.end))
		l.govSlope.sub(now, old.vote)
		l.govSlope.add(old.end, old.vote)
		l.govBias.sub(now, oldBias)
		l.govBias.add(old.end, oldBias)
		l.metagov.sub(now, old.mg)
		l.metagov.add(old.end, old.mg)
	}
	bias := new(uint256.Int).Mul(cur.vote, uint256.NewInt(cur.end))
	l.govSlope.add(now, cur.vote)
	l.govSlope.sub(cur.end, cur.vote)
	l.govBias.add(now, bias)
	l.govBias.sub(cur.end, bias)
	l.metagov.add(now, cur.mg)
	l.metagov.sub(cur.end, cur.mg)
}

func (l *Ledger) updateGauges() {
	l.metrics.principalLocked.Set(amount.Float64(l.totalLocked))
	var open int
	for _, pos := range l.positions {
		if !pos.Burned {
			open++
		}
	}
	l.metrics.openPositions.Set(float64(open))
	l.metrics.yieldShareSupply.Set(
		amount.Float64(l.yieldShare.at(l.config.Clock.Current())),
	)
}
