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

package staking

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/holiman/uint256"
)

// ClaimOptions controls how secondary rewards are paid
type ClaimOptions struct {
	// Convert routes secondary rewards through the configured Converter
	Convert bool
}

// ClaimResult is what a claim paid out
type ClaimResult struct {
	Primary   *uint256.Int
	Secondary []asset.Amount
}

// CycleRewards is the unclaimed reward of one elapsed cycle
type CycleRewards struct {
	Primary   *uint256.Int
	Secondary []asset.Amount
	Cycle     uint64
}

// ProcessSecondary makes the amounts claimable as the secondary reward of
// cycle. Cycles are processed in order and only once they have elapsed.
func (l *Ledger) ProcessSecondary(
	caller asset.Account,
	c uint64,
	amounts []asset.Amount,
) error {
	if caller == "" || caller != l.config.Processor {
		return fmt.Errorf("%s: %w", caller, ErrNotProcessor)
	}
	if c >= l.config.Clock.Current() {
		return fmt.Errorf("cycle %d: %w", c, ErrCycleNotElapsed)
	}
	if c != l.lastProcessed+1 {
		return fmt.Errorf(
			"cycle %d after %d: %w",
			c,
			l.lastProcessed,
			ErrSecondaryOutOfOrder,
		)
	}
	merged := newAmountSet()
	transfers := make([]asset.Transfer, 0, len(amounts))
	for _, a := range amounts {
		if a.Value == nil || a.Value.IsZero() {
			return fmt.Errorf("secondary reward of %s: %w", a.Asset, ErrZeroAmount)
		}
		if err := merged.add(a.Asset, a.Value); err != nil {
			return err
		}
		transfers = append(transfers, asset.Transfer{
			Asset: a.Asset,
			From:  caller,
			To:    l.config.Custody,
			Value: a.Value.Clone(),
		})
	}
	if err := asset.TransferAll(l.config.Transferer, transfers); err != nil {
		return fmt.Errorf("secondary rewards for cycle %d: %w", c, err)
	}
	if set := merged.amounts(); len(set) > 0 {
		l.secondary[c] = set
	}
	l.lastProcessed = c
	if l.metrics != nil {
		l.metrics.secondaryProcessed.Inc()
	}
	l.logger.Debug(
		fmt.Sprintf("processed secondary rewards for cycle %d", c),
		"assets", len(amounts),
	)
	return nil
}

// LastProcessedSecondary is the latest cycle with processed secondary
// rewards
func (l *Ledger) LastProcessedSecondary() uint64 {
	return l.lastProcessed
}

// ClaimPrimary mints the position's share of every elapsed cycle pool since
// the last primary claim to its owner
func (l *Ledger) ClaimPrimary(caller asset.Account, id uint64) (*uint256.Int, error) {
	e, owner, err := l.authorize(caller, id)
	if err != nil {
		return nil, err
	}
	reward, upTo, err := l.primaryRewards(e)
	if err != nil {
		return nil, err
	}
	if err := l.pay(owner, reward, nil, ClaimOptions{}); err != nil {
		return nil, err
	}
	e.lastClaimedPrimary = upTo
	l.claimed("primary", id, reward, nil)
	return reward, nil
}

// ClaimSecondary pays the position's share of every processed cycle since
// the last secondary claim
func (l *Ledger) ClaimSecondary(
	caller asset.Account,
	id uint64,
	opts ClaimOptions,
) ([]asset.Amount, error) {
	if opts.Convert && l.config.Converter == nil {
		return nil, ErrNoConverter
	}
	e, owner, err := l.authorize(caller, id)
	if err != nil {
		return nil, err
	}
	rewards, upTo, err := l.secondaryRewards(e)
	if err != nil {
		return nil, err
	}
	if err := l.pay(owner, nil, rewards, opts); err != nil {
		return nil, err
	}
	e.lastClaimedSecondary = upTo
	l.claimed("secondary", id, nil, rewards)
	return rewards, nil
}

// ClaimAll claims both streams. It fails only when neither stream has
// anything to pay.
func (l *Ledger) ClaimAll(
	caller asset.Account,
	id uint64,
	opts ClaimOptions,
) (ClaimResult, error) {
	if opts.Convert && l.config.Converter == nil {
		return ClaimResult{}, ErrNoConverter
	}
	e, owner, err := l.authorize(caller, id)
	if err != nil {
		return ClaimResult{}, err
	}
	primary, primaryUpTo, primaryErr := l.primaryRewards(e)
	if primaryErr != nil && !nothingToClaim(primaryErr) {
		return ClaimResult{}, primaryErr
	}
	secondary, secondaryUpTo, secondaryErr := l.secondaryRewards(e)
	if secondaryErr != nil && !nothingToClaim(secondaryErr) {
		return ClaimResult{}, secondaryErr
	}
	if primaryErr != nil && secondaryErr != nil {
		return ClaimResult{}, fmt.Errorf("position %d: %w", id, ErrNoRewardToClaim)
	}
	if err := l.pay(owner, primary, secondary, opts); err != nil {
		return ClaimResult{}, err
	}
	ret := ClaimResult{Primary: new(uint256.Int)}
	if primaryErr == nil {
		e.lastClaimedPrimary = primaryUpTo
		ret.Primary = primary
		l.claimed("primary", id, primary, nil)
	}
	if secondaryErr == nil {
		e.lastClaimedSecondary = secondaryUpTo
		ret.Secondary = secondary
		l.claimed("secondary", id, nil, secondary)
	}
	return ret, nil
}

// AllClaimableAmounts returns what ClaimAll would pay now
func (l *Ledger) AllClaimableAmounts(id uint64) (ClaimResult, error) {
	e, err := l.lookup(id)
	if err != nil {
		return ClaimResult{}, err
	}
	ret := ClaimResult{Primary: new(uint256.Int)}
	primary, _, err := l.primaryRewards(e)
	switch {
	case err == nil:
		ret.Primary = primary
	case !nothingToClaim(err):
		return ClaimResult{}, err
	}
	secondary, _, err := l.secondaryRewards(e)
	switch {
	case err == nil:
		ret.Secondary = secondary
	case !nothingToClaim(err):
		return ClaimResult{}, err
	}
	return ret, nil
}

// ClaimableCyclesAndAmounts breaks the unclaimed rewards down per cycle.
// Cycles without any reward for the position are left out.
func (l *Ledger) ClaimableCyclesAndAmounts(id uint64) ([]CycleRewards, error) {
	e, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	current := l.config.Clock.Current()
	from := min(e.lastClaimedPrimary, e.lastClaimedSecondary) + 1
	var ret []CycleRewards
	for c := from; c < current; c++ {
		item := CycleRewards{Cycle: c, Primary: new(uint256.Int)}
		if c > e.lastClaimedPrimary {
			if item.Primary, err = l.primaryAt(e, c); err != nil {
				return nil, err
			}
		}
		if c > e.lastClaimedSecondary && c <= l.lastProcessed {
			set := newAmountSet()
			if err := l.secondaryAt(e, c, set); err != nil {
				return nil, err
			}
			item.Secondary = set.nonZero()
		}
		if item.Primary.IsZero() && len(item.Secondary) == 0 {
			continue
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func (l *Ledger) primaryRewards(e *entry) (*uint256.Int, uint64, error) {
	current := l.config.Clock.Current()
	if current == 0 || e.lastClaimedPrimary >= current-1 {
		return nil, 0, fmt.Errorf("position %d: %w", e.id, ErrAllPrimaryClaimed)
	}
	upTo := current - 1
	sum := new(uint256.Int)
	for c := e.lastClaimedPrimary + 1; c <= upTo; c++ {
		r, err := l.primaryAt(e, c)
		if err != nil {
			return nil, 0, err
		}
		if sum, err = amount.Add(sum, r); err != nil {
			return nil, 0, err
		}
	}
	if sum.IsZero() {
		return nil, 0, fmt.Errorf("position %d primary: %w", e.id, ErrNoRewardToClaim)
	}
	return sum, upTo, nil
}

func (l *Ledger) primaryAt(e *entry, c uint64) (*uint256.Int, error) {
	pool, ok := l.pools[c]
	if !ok {
		return new(uint256.Int), nil
	}
	total := l.total.ValueAt(c)
	stake := e.stake.ValueAt(c)
	if total.IsZero() || stake.IsZero() {
		return new(uint256.Int), nil
	}
	return amount.MulDiv(stake, pool, total)
}

func (l *Ledger) secondaryRewards(e *entry) ([]asset.Amount, uint64, error) {
	if e.lastClaimedSecondary >= l.lastProcessed {
		return nil, 0, fmt.Errorf("position %d: %w", e.id, ErrAllSecondaryClaimed)
	}
	set := newAmountSet()
	for c := e.lastClaimedSecondary + 1; c <= l.lastProcessed; c++ {
		if err := l.secondaryAt(e, c, set); err != nil {
			return nil, 0, err
		}
	}
	rewards := set.nonZero()
	if len(rewards) == 0 {
		return nil, 0, fmt.Errorf("position %d secondary: %w", e.id, ErrNoRewardToClaim)
	}
	return rewards, l.lastProcessed, nil
}

func (l *Ledger) secondaryAt(e *entry, c uint64, set *amountSet) error {
	amounts, ok := l.secondary[c]
	if !ok {
		return nil
	}
	total := l.total.ValueAt(c)
	stake := e.stake.ValueAt(c)
	if total.IsZero() || stake.IsZero() {
		return nil
	}
	for _, a := range amounts {
		r, err := amount.MulDiv(a.Value, stake, total)
		if err != nil {
			return err
		}
		if err := set.add(a.Asset, r); err != nil {
			return err
		}
	}
	return nil
}

// pay moves rewards out of custody to the owner. Converted secondary
// rewards go to the converter, and every transfer is reverted if the
// conversion fails.
func (l *Ledger) pay(
	owner asset.Account,
	primary *uint256.Int,
	secondary []asset.Amount,
	opts ClaimOptions,
) error {
	var transfers []asset.Transfer
	if primary != nil && !primary.IsZero() {
		transfers = append(transfers, asset.Transfer{
			Asset: l.config.PrimaryAsset,
			From:  l.config.Custody,
			To:    owner,
			Value: primary.Clone(),
		})
	}
	dest := owner
	convert := opts.Convert && len(secondary) > 0
	if convert {
		dest = l.config.Converter.Account()
	}
	for _, a := range secondary {
		transfers = append(transfers, asset.Transfer{
			Asset: a.Asset,
			From:  l.config.Custody,
			To:    dest,
			Value: a.Value.Clone(),
		})
	}
	if err := asset.TransferAll(l.config.Transferer, transfers); err != nil {
		return fmt.Errorf("pay rewards: %w", err)
	}
	if convert {
		if err := l.config.Converter.ConvertAll(secondary, owner); err != nil {
			return errors.Join(
				fmt.Errorf("convert secondary rewards: %w", err),
				l.revert(transfers),
			)
		}
	}
	return nil
}

func (l *Ledger) claimed(
	stream string,
	id uint64,
	primary *uint256.Int,
	secondary []asset.Amount,
) {
	if l.metrics != nil {
		l.metrics.claims.WithLabelValues(stream).Inc()
		if primary != nil {
			l.metrics.primaryClaimed.Add(amount.Float64(primary))
		}
	}
	paid := make([]string, 0, len(secondary)+1)
	if primary != nil {
		paid = append(paid, asset.NewAmount(l.config.PrimaryAsset, primary).String())
	}
	for _, a := range secondary {
		paid = append(paid, a.String())
	}
	l.logger.Debug(
		fmt.Sprintf("claimed %s rewards for position %d", stream, id),
		"paid", paid,
	)
}

func nothingToClaim(err error) bool {
	return errors.Is(err, ErrAllPrimaryClaimed) ||
		errors.Is(err, ErrAllSecondaryClaimed) ||
		errors.Is(err, ErrNoRewardToClaim)
}

// amountSet sums amounts per asset, keeping first-seen order
type amountSet struct {
	values map[asset.ID]*uint256.Int
	order  []asset.ID
}

func newAmountSet() *amountSet {
	return &amountSet{values: make(map[asset.ID]*uint256.Int)}
}

func (s *amountSet) add(id asset.ID, v *uint256.Int) error {
	cur, ok := s.values[id]
	if !ok {
		s.order = append(s.order, id)
		s.values[id] = v.Clone()
		return nil
	}
	sum, err := amount.Add(cur, v)
	if err != nil {
		return err
	}
	s.values[id] = sum
	return nil
}

func (s *amountSet) amounts() []asset.Amount {
	ret := make([]asset.Amount, 0, len(s.order))
	for _, id := range s.order {
		ret = append(ret, asset.NewAmount(id, s.values[id]))
	}
	return ret
}

func (s *amountSet) nonZero() []asset.Amount {
	var ret []asset.Amount
	for _, a := range s.amounts() {
		if !a.Value.IsZero() {
			ret = append(ret, a)
		}
	}
	return ret
}
