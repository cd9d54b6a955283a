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

// Package distributor pays assets deposited by the treasury to lock
// positions, pro rata to their yield share at each checkpoint (TDE).
package distributor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSharePrecision scales the share of a position in a checkpoint
var DefaultSharePrecision = uint256.MustFromDecimal("100000000000000000000")

type CycleSource interface {
	Current() uint64
	Interval() uint64
}

// YieldShareSource is the read side of the lock ledger used for payouts
type YieldShareSource interface {
	Position(id uint64) (locking.Position, error)
	OwnerOf(id uint64) (asset.Account, error)
	IsHeld(id uint64) (bool, error)
	BalanceOfYieldShareAt(id uint64, cycle uint64) (*uint256.Int, error)
	TotalYieldShareSupplyAt(cycle uint64) (*uint256.Int, error)
}

type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	Clock          CycleSource
	Locks          YieldShareSource
	Transferer     asset.Transferer
	Access         *access.Checker
	SharePrecision *uint256.Int
	Treasury       asset.Account
	Custody        asset.Account
}

// ClaimResult is the outcome of a claim for one checkpoint epoch
type ClaimResult struct {
	Share      *uint256.Int
	Recipient  asset.Account
	Payouts    []asset.Amount
	PositionID uint64
	Tde        uint64
}

type deposit struct {
	amounts map[asset.ID]*uint256.Int
	order   []asset.ID
}

func (d *deposit) amountsInOrder() []asset.Amount {
	ret := make([]asset.Amount, 0, len(d.order))
	for _, id := range d.order {
		ret = append(ret, asset.NewAmount(id, d.amounts[id]))
	}
	return ret
}

type Distributor struct {
	config   Config
	logger   *slog.Logger
	metrics  *distributorMetrics
	deposits map[uint64]*deposit
	claims   map[uint64]map[uint64]struct{}
}

func New(cfg Config) (*Distributor, error) {
	if cfg.Clock == nil {
		return nil, errors.New("distributor requires a cycle source")
	}
	if cfg.Locks == nil {
		return nil, errors.New("distributor requires a yield share source")
	}
	if cfg.Transferer == nil {
		return nil, errors.New("distributor requires an asset transferer")
	}
	if cfg.Treasury == "" || cfg.Custody == "" {
		return nil, errors.New("distributor requires treasury and custody accounts")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Access == nil {
		cfg.Access = access.NewChecker(nil)
	}
	if cfg.SharePrecision == nil || cfg.SharePrecision.IsZero() {
		cfg.SharePrecision = DefaultSharePrecision
	}
	d := &Distributor{
		config:   cfg,
		logger:   cfg.Logger.With("component", "distributor"),
		deposits: make(map[uint64]*deposit),
		claims:   make(map[uint64]map[uint64]struct{}),
	}
	if cfg.PromRegistry != nil {
		d.metrics = &distributorMetrics{}
		d.metrics.init(cfg.PromRegistry)
	}
	return d, nil
}

// CurrentTde returns the checkpoint epoch that receives deposits now
func (d *Distributor) CurrentTde() uint64 {
	return cycle.TdeOf(d.config.Clock.Current(), d.config.Clock.Interval())
}

// DepositAssets moves the amounts from the treasury into custody and
// credits them to the current checkpoint epoch. Nothing is credited unless
// every transfer succeeds.
func (d *Distributor) DepositAssets(
	caller asset.Account,
	amounts []asset.Amount,
) (uint64, error) {
	if caller != d.config.Treasury {
		return 0, fmt.Errorf("%s: %w", caller, ErrNotTreasury)
	}
	if len(amounts) == 0 {
		return 0, ErrEmptyDeposit
	}
	tde := d.CurrentTde()
	cur, ok := d.deposits[tde]
	if !ok {
		cur = &deposit{amounts: make(map[asset.ID]*uint256.Int)}
	}
	updated := make(map[asset.ID]*uint256.Int, len(amounts))
	var order []asset.ID
	transfers := make([]asset.Transfer, 0, len(amounts))
	for _, a := range amounts {
		if a.Value == nil || a.Value.IsZero() {
			return 0, fmt.Errorf("deposit of %s: %w", a.Asset, ErrZeroAmount)
		}
		prev, seen := updated[a.Asset]
		if !seen {
			prev = cur.amounts[a.Asset]
			if prev == nil {
				prev = new(uint256.Int)
				order = append(order, a.Asset)
			}
		}
		next, err := amount.Add(prev, a.Value)
		if err != nil {
			return 0, fmt.Errorf("deposit of %s: %w", a.Asset, err)
		}
		updated[a.Asset] = next
		transfers = append(transfers, asset.Transfer{
			Asset: a.Asset,
			From:  d.config.Treasury,
			To:    d.config.Custody,
			Value: a.Value.Clone(),
		})
	}
	if err := asset.TransferAll(d.config.Transferer, transfers); err != nil {
		return 0, fmt.Errorf("deposit into checkpoint epoch %d: %w", tde, err)
	}
	for id, v := range updated {
		cur.amounts[id] = v
	}
	cur.order = append(cur.order, order...)
	d.deposits[tde] = cur
	if d.metrics != nil {
		d.metrics.deposits.Inc()
		for _, a := range amounts {
			d.metrics.deposited.WithLabelValues(string(a.Asset)).Add(amount.Float64(a.Value))
		}
	}
	d.logger.Debug(
		fmt.Sprintf("deposited %d assets into checkpoint epoch %d", len(amounts), tde),
		"tde", tde,
	)
	return tde, nil
}

// Claim pays the position's share of the assets deposited at the checkpoint
// epoch to recipient, or to the owner when recipient is empty
func (d *Distributor) Claim(
	caller asset.Account,
	id uint64,
	tde uint64,
	recipient asset.Account,
) (ClaimResult, error) {
	results, err := d.ClaimMany(caller, id, []uint64{tde}, recipient)
	if err != nil {
		return ClaimResult{}, err
	}
	return results[0], nil
}

// ClaimMany claims several checkpoint epochs at once. Either every epoch is
// paid and recorded, or none is.
func (d *Distributor) ClaimMany(
	caller asset.Account,
	id uint64,
	tdes []uint64,
	recipient asset.Account,
) ([]ClaimResult, error) {
	owner, err := d.authorize(caller, id)
	if err != nil {
		return nil, err
	}
	if recipient == "" {
		recipient = owner
	}
	seen := make(map[uint64]struct{}, len(tdes))
	results := make([]ClaimResult, 0, len(tdes))
	var transfers []asset.Transfer
	for _, tde := range tdes {
		if _, ok := seen[tde]; ok {
			return nil, fmt.Errorf("checkpoint epoch %d: %w", tde, ErrDuplicateTde)
		}
		seen[tde] = struct{}{}
		res, err := d.resolve(id, tde)
		if err != nil {
			return nil, err
		}
		res.Recipient = recipient
		for _, p := range res.Payouts {
			if p.Value.IsZero() {
				continue
			}
			transfers = append(transfers, asset.Transfer{
				Asset: p.Asset,
				From:  d.config.Custody,
				To:    recipient,
				Value: p.Value.Clone(),
			})
		}
		results = append(results, res)
	}
	if err := asset.TransferAll(d.config.Transferer, transfers); err != nil {
		return nil, fmt.Errorf("pay claim for position %d: %w", id, err)
	}
	claimed, ok := d.claims[id]
	if !ok {
		claimed = make(map[uint64]struct{})
		d.claims[id] = claimed
	}
	for _, res := range results {
		claimed[res.Tde] = struct{}{}
		if d.metrics != nil {
			d.metrics.claims.Inc()
			for _, p := range res.Payouts {
				d.metrics.paid.WithLabelValues(string(p.Asset)).Add(amount.Float64(p.Value))
			}
		}
		d.logger.Debug(
			fmt.Sprintf("claimed checkpoint epoch %d for position %d", res.Tde, id),
			"share", res.Share.Dec(),
			"recipient", recipient,
		)
	}
	return results, nil
}

// resolve computes the payouts for one position and epoch, rejecting the
// claim when it cannot be paid
func (d *Distributor) resolve(id uint64, tde uint64) (ClaimResult, error) {
	checkpoint := tde * d.config.Clock.Interval()
	if tde == 0 || d.config.Clock.Current() <= checkpoint {
		return ClaimResult{}, fmt.Errorf("checkpoint epoch %d: %w", tde, ErrNotAvailable)
	}
	if d.IsClaimed(id, tde) {
		return ClaimResult{}, fmt.Errorf(
			"position %d at checkpoint epoch %d: %w",
			id,
			tde,
			ErrAlreadyClaimed,
		)
	}
	pos, err := d.config.Locks.Position(id)
	if err != nil {
		return ClaimResult{}, err
	}
	if pos.StartCycle >= checkpoint {
		return ClaimResult{}, fmt.Errorf(
			"position %d started at cycle %d: %w",
			id,
			pos.StartCycle,
			ErrPositionNotExisting,
		)
	}
	share, err := d.shareAt(id, checkpoint)
	if err != nil {
		return ClaimResult{}, err
	}
	if share.IsZero() {
		return ClaimResult{}, fmt.Errorf(
			"position %d at checkpoint epoch %d: %w",
			id,
			tde,
			ErrNoShares,
		)
	}
	res := ClaimResult{
		PositionID: id,
		Tde:        tde,
		Share:      share,
	}
	if dep, ok := d.deposits[tde]; ok {
		for _, a := range dep.amountsInOrder() {
			payout, err := amount.MulDiv(a.Value, share, d.config.SharePrecision)
			if err != nil {
				return ClaimResult{}, err
			}
			res.Payouts = append(res.Payouts, asset.Amount{
				Asset: a.Asset,
				Value: payout,
			})
		}
	}
	return res, nil
}

func (d *Distributor) shareAt(id uint64, checkpoint uint64) (*uint256.Int, error) {
	ys, err := d.config.Locks.BalanceOfYieldShareAt(id, checkpoint)
	if err != nil {
		return nil, err
	}
	total, err := d.config.Locks.TotalYieldShareSupplyAt(checkpoint)
	if err != nil {
		return nil, err
	}
	if ys.IsZero() || total.IsZero() {
		return new(uint256.Int), nil
	}
	return amount.MulDiv(ys, d.config.SharePrecision, total)
}

func (d *Distributor) authorize(caller asset.Account, id uint64) (asset.Account, error) {
	owner, err := d.config.Locks.OwnerOf(id)
	if err != nil {
		return "", err
	}
	res := d.config.Access.Check(access.Request{
		PositionID: id,
		Owner:      owner,
		Caller:     caller,
		Action:     access.ActionClaimYield,
	})
	if err := res.Error(); err != nil {
		return "", err
	}
	held, err := d.config.Locks.IsHeld(id)
	if err != nil {
		return "", err
	}
	if held {
		return "", fmt.Errorf("position %d: %w", id, locking.ErrPositionHeld)
	}
	return owner, nil
}

// TokensDepositedAtTde lists the cumulative deposits of a checkpoint epoch
// in the order the assets were first deposited
func (d *Distributor) TokensDepositedAtTde(tde uint64) []asset.Amount {
	dep, ok := d.deposits[tde]
	if !ok {
		return nil
	}
	return dep.amountsInOrder()
}

// AllTokenRewardsForTde returns what the position could claim for each of
// the epochs. Epochs that are claimed, not yet closed or carry no share
// for the position are left out.
func (d *Distributor) AllTokenRewardsForTde(id uint64, tdes []uint64) ([]ClaimResult, error) {
	owner, err := d.config.Locks.OwnerOf(id)
	if err != nil {
		return nil, err
	}
	var ret []ClaimResult
	for _, tde := range tdes {
		res, err := d.resolve(id, tde)
		if err != nil {
			if errors.Is(err, ErrNotAvailable) ||
				errors.Is(err, ErrAlreadyClaimed) ||
				errors.Is(err, ErrPositionNotExisting) ||
				errors.Is(err, ErrNoShares) {
				continue
			}
			return nil, err
		}
		res.Recipient = owner
		ret = append(ret, res)
	}
	return ret, nil
}

// PendingPayouts lists the closed checkpoint epochs from which the position
// can still claim a nonzero payout
func (d *Distributor) PendingPayouts(id uint64) ([]ClaimResult, error) {
	tdes := make([]uint64, 0, len(d.deposits))
	for tde := range d.deposits {
		tdes = append(tdes, tde)
	}
	sort.Slice(tdes, func(i, j int) bool { return tdes[i] < tdes[j] })
	all, err := d.AllTokenRewardsForTde(id, tdes)
	if err != nil {
		return nil, err
	}
	var ret []ClaimResult
	for _, res := range all {
		for _, p := range res.Payouts {
			if !p.Value.IsZero() {
				ret = append(ret, res)
				break
			}
		}
	}
	return ret, nil
}

// GuardBurn refuses to let a position be burned while it has checkpoint
// payouts left to claim. A burned position can no longer claim.
func (d *Distributor) GuardBurn(id uint64) error {
	pending, err := d.PendingPayouts(id)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return fmt.Errorf(
			"position %d has %d checkpoint epochs to claim, first %d: %w",
			id,
			len(pending),
			pending[0].Tde,
			ErrUnclaimedPayouts,
		)
	}
	return nil
}

func (d *Distributor) IsClaimed(id uint64, tde uint64) bool {
	_, ok := d.claims[id][tde]
	return ok
}
