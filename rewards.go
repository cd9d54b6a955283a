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
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/event"
	"github.com/blinklabs-io/lockledger/staking"
	"github.com/holiman/uint256"
)

// DepositCheckpoint funds the current checkpoint epoch from the treasury
func (s *System) DepositCheckpoint(
	caller asset.Account,
	amounts []asset.Amount,
) (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	tde, err := s.distributor.DepositAssets(caller, amounts)
	if err != nil {
		return 0, s.reject(OpDepositCheckpoint, caller, err)
	}
	evt := event.DistributorDepositEvent{
		Amounts: cloneAmounts(amounts),
		Tde:     tde,
	}
	if err := s.commit(OpDepositCheckpoint, caller, 0, event.DistributorDepositEventType, evt); err != nil {
		return 0, err
	}
	return tde, nil
}

// ClaimCheckpoint pays a position its share of one checkpoint epoch
func (s *System) ClaimCheckpoint(
	caller asset.Account,
	id uint64,
	tde uint64,
	recipient asset.Account,
) (distributor.ClaimResult, error) {
	results, err := s.ClaimCheckpoints(caller, id, []uint64{tde}, recipient)
	if err != nil {
		return distributor.ClaimResult{}, err
	}
	return results[0], nil
}

// ClaimCheckpoints claims several checkpoint epochs at once. Either every
// epoch is paid or none is.
func (s *System) ClaimCheckpoints(
	caller asset.Account,
	id uint64,
	tdes []uint64,
	recipient asset.Account,
) ([]distributor.ClaimResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	results, err := s.distributor.ClaimMany(caller, id, tdes, recipient)
	if err != nil {
		return nil, s.reject(OpClaimCheckpoint, caller, err)
	}
	evts := make([]event.DistributorClaimEvent, 0, len(results))
	for _, res := range results {
		evts = append(evts, event.DistributorClaimEvent{
			Share:      res.Share.Clone(),
			Recipient:  res.Recipient,
			Payouts:    cloneAmounts(res.Payouts),
			PositionID: res.PositionID,
			Tde:        res.Tde,
		})
	}
	if err := s.commit(OpClaimCheckpoint, caller, id, "", evts); err != nil {
		return nil, err
	}
	for _, evt := range evts {
		s.eventBus.Publish(
			event.DistributorClaimEventType,
			event.NewEvent(event.DistributorClaimEventType, evt),
		)
	}
	return results, nil
}

// StakeDeposit stakes into an existing staking position, or into a new one
// when id is staking.MintNew. It returns the position id.
func (s *System) StakeDeposit(
	caller asset.Account,
	id uint64,
	amt *uint256.Int,
	recipient asset.Account,
) (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	posID, err := s.staking.Deposit(caller, id, amt, recipient)
	if err != nil {
		return 0, s.reject(OpStakeDeposit, caller, err)
	}
	evt := event.StakingDepositEvent{
		Amount:        amt.Clone(),
		Caller:        caller,
		PositionID:    posID,
		EligibleCycle: s.clock.Current() + 1,
	}
	if err := s.commit(OpStakeDeposit, caller, posID, event.StakingDepositEventType, evt); err != nil {
		return 0, err
	}
	return posID, nil
}

// StakeWithdraw returns eligible stake to the position owner
func (s *System) StakeWithdraw(caller asset.Account, id uint64, amt *uint256.Int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.staking.Withdraw(caller, id, amt); err != nil {
		return s.reject(OpStakeWithdraw, caller, err)
	}
	evt := event.StakingWithdrawEvent{
		Amount:     amt.Clone(),
		Owner:      caller,
		PositionID: id,
	}
	return s.commit(OpStakeWithdraw, caller, id, event.StakingWithdrawEventType, evt)
}

// SetStakingDepositPaused stops or resumes new staking deposits
func (s *System) SetStakingDepositPaused(caller asset.Account, paused bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.staking.SetDepositPaused(caller, paused); err != nil {
		return s.reject(OpStakePause, caller, err)
	}
	return s.commit(OpStakePause, caller, 0, "", map[string]bool{"paused": paused})
}

// BurnStake destroys an empty staking position
func (s *System) BurnStake(caller asset.Account, id uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.staking.BurnPosition(caller, id); err != nil {
		return s.reject(OpStakeBurn, caller, err)
	}
	evt := event.StakingPositionBurnEvent{Owner: caller, PositionID: id}
	return s.commit(OpStakeBurn, caller, id, event.StakingPositionBurnEventType, evt)
}

// ProcessSecondary records the secondary rewards of an elapsed cycle
func (s *System) ProcessSecondary(
	caller asset.Account,
	cycleNum uint64,
	amounts []asset.Amount,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.staking.ProcessSecondary(caller, cycleNum, amounts); err != nil {
		return s.reject(OpProcessSecondary, caller, err)
	}
	evt := event.StakingSecondaryEvent{
		Amounts: cloneAmounts(amounts),
		Cycle:   cycleNum,
	}
	return s.commit(OpProcessSecondary, caller, 0, event.StakingSecondaryEventType, evt)
}

// ClaimPrimary pays the unclaimed primary rewards of a staking position
func (s *System) ClaimPrimary(caller asset.Account, id uint64) (*uint256.Int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	paid, err := s.staking.ClaimPrimary(caller, id)
	if err != nil {
		return nil, s.reject(OpClaimPrimary, caller, err)
	}
	evt := event.StakingClaimEvent{
		Primary:    paid.Clone(),
		Owner:      caller,
		PositionID: id,
	}
	if err := s.commit(OpClaimPrimary, caller, id, event.StakingClaimEventType, evt); err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimSecondary pays the unclaimed secondary rewards of a staking position
func (s *System) ClaimSecondary(
	caller asset.Account,
	id uint64,
	opts staking.ClaimOptions,
) ([]asset.Amount, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	paid, err := s.staking.ClaimSecondary(caller, id, opts)
	if err != nil {
		return nil, s.reject(OpClaimSecondary, caller, err)
	}
	evt := event.StakingClaimEvent{
		Primary:    new(uint256.Int),
		Secondary:  cloneAmounts(paid),
		Owner:      caller,
		PositionID: id,
		Converted:  opts.Convert,
	}
	if err := s.commit(OpClaimSecondary, caller, id, event.StakingClaimEventType, evt); err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimAllStaking pays both reward streams of a staking position
func (s *System) ClaimAllStaking(
	caller asset.Account,
	id uint64,
	opts staking.ClaimOptions,
) (staking.ClaimResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	res, err := s.staking.ClaimAll(caller, id, opts)
	if err != nil {
		return staking.ClaimResult{}, s.reject(OpClaimAll, caller, err)
	}
	evt := event.StakingClaimEvent{
		Primary:    new(uint256.Int),
		Secondary:  cloneAmounts(res.Secondary),
		Owner:      caller,
		PositionID: id,
		Converted:  opts.Convert,
	}
	if res.Primary != nil {
		evt.Primary.Set(res.Primary)
	}
	if err := s.commit(OpClaimAll, caller, id, event.StakingClaimEventType, evt); err != nil {
		return staking.ClaimResult{}, err
	}
	return res, nil
}

func cloneAmounts(amounts []asset.Amount) []asset.Amount {
	ret := make([]asset.Amount, 0, len(amounts))
	for _, a := range amounts {
		ret = append(ret, asset.NewAmount(a.Asset, a.Value))
	}
	return ret
}
