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
	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/staking"
	"github.com/holiman/uint256"
)

// CycleInfo is the clock position as seen by callers
type CycleInfo struct {
	Current            uint64
	Tde                uint64
	Genesis            uint64
	CheckpointInterval uint64
	NextCheckpoint     uint64
}

func (s *System) Cycle() CycleInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	current := s.clock.Current()
	tde := s.clock.TdeOf(current)
	return CycleInfo{
		Current:            current,
		Tde:                tde,
		Genesis:            s.clock.Genesis(),
		CheckpointInterval: s.clock.Interval(),
		NextCheckpoint:     s.clock.CheckpointCycle(tde),
	}
}

// BalanceOf returns the asset balance of an account
func (s *System) BalanceOf(id asset.ID, account asset.Account) *uint256.Int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.book.BalanceOf(id, account)
}

func (s *System) LockPosition(id uint64) (locking.Position, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.locking.Position(id)
}

func (s *System) LockPositions() []locking.Position {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.locking.Positions()
}

func (s *System) LockOwnerOf(id uint64) (asset.Account, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.locking.OwnerOf(id)
}

// LockBalances holds the three derived balances of a position at a cycle
type LockBalances struct {
	Governance     *uint256.Int
	Metagovernance *uint256.Int
	YieldShare     *uint256.Int
	Cycle          uint64
}

// LockBalancesAt returns the derived balances of each position at cycle.
// An unknown position fails the whole batch.
func (s *System) LockBalancesAt(ids []uint64, cycleNum uint64) ([]LockBalances, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ret := make([]LockBalances, 0, len(ids))
	for _, id := range ids {
		gov, err := s.locking.BalanceOfGovernanceAt(id, cycleNum)
		if err != nil {
			return nil, err
		}
		mg, err := s.locking.BalanceOfMetagovernanceAt(id, cycleNum)
		if err != nil {
			return nil, err
		}
		ys, err := s.locking.BalanceOfYieldShareAt(id, cycleNum)
		if err != nil {
			return nil, err
		}
		ret = append(ret, LockBalances{
			Governance:     gov,
			Metagovernance: mg,
			YieldShare:     ys,
			Cycle:          cycleNum,
		})
	}
	return ret, nil
}

// LockTotals holds the aggregate lock balances at a cycle
type LockTotals struct {
	Governance     *uint256.Int
	Metagovernance *uint256.Int
	YieldShare     *uint256.Int
	Locked         *uint256.Int
	Cycle          uint64
}

func (s *System) LockTotalsAt(cycleNum uint64) (LockTotals, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	gov, err := s.locking.TotalGovernanceAt(cycleNum)
	if err != nil {
		return LockTotals{}, err
	}
	mg, err := s.locking.TotalMetagovernanceAt(cycleNum)
	if err != nil {
		return LockTotals{}, err
	}
	ys, err := s.locking.TotalYieldShareSupplyAt(cycleNum)
	if err != nil {
		return LockTotals{}, err
	}
	return LockTotals{
		Governance:     gov,
		Metagovernance: mg,
		YieldShare:     ys,
		Locked:         s.locking.TotalLocked(),
		Cycle:          cycleNum,
	}, nil
}

// VotingPower is the weight a caller may use through a position. A nil
// field means the caller holds no right to that weight.
type VotingPower struct {
	Governance     *uint256.Int
	Metagovernance *uint256.Int
	Cycle          uint64
}

// VotingPowerAt resolves the governance weight available to an owner or
// vote delegate and the metagovernance weight available to an owner or
// metagovernance delegate. It fails when the caller holds neither right.
func (s *System) VotingPowerAt(
	caller asset.Account,
	id uint64,
	cycleNum uint64,
) (VotingPower, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ret := VotingPower{Cycle: cycleNum}
	gov, govErr := s.locking.VotingPowerAt(caller, id, cycleNum)
	switch {
	case govErr == nil:
		ret.Governance = gov
	case ledgererr.ClassOf(govErr) != ledgererr.ClassAuthorization:
		return VotingPower{}, govErr
	}
	mg, mgErr := s.locking.MetagovernancePowerAt(caller, id, cycleNum)
	switch {
	case mgErr == nil:
		ret.Metagovernance = mg
	case ledgererr.ClassOf(mgErr) != ledgererr.ClassAuthorization:
		return VotingPower{}, mgErr
	}
	if govErr != nil && mgErr != nil {
		return VotingPower{}, govErr
	}
	return ret, nil
}

func (s *System) TokensDepositedAtTde(tde uint64) []asset.Amount {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.distributor.TokensDepositedAtTde(tde)
}

// CheckpointRewards returns what a position could claim for each epoch.
// Epochs with nothing claimable are left out.
func (s *System) CheckpointRewards(id uint64, tdes []uint64) ([]distributor.ClaimResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.distributor.AllTokenRewardsForTde(id, tdes)
}

func (s *System) IsCheckpointClaimed(id uint64, tde uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.distributor.IsClaimed(id, tde)
}

func (s *System) StakePosition(id uint64) (staking.Info, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.staking.PositionInfo(id)
}

func (s *System) StakePositions() []uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.staking.Positions()
}

func (s *System) StakedEligibleAt(fromCycle uint64, id uint64, asOfCycle uint64) (*uint256.Int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.staking.StakedAmountEligibleAtCycle(fromCycle, id, asOfCycle)
}

// StakingTotals holds aggregate staking figures
type StakingTotals struct {
	Staked          *uint256.Int
	EligibleAtCycle *uint256.Int
	Cycle           uint64
	LastProcessed   uint64
	DepositPaused   bool
}

func (s *System) StakingTotalsAt(cycleNum uint64) StakingTotals {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return StakingTotals{
		Staked:          s.staking.TotalStaked(),
		EligibleAtCycle: s.staking.TotalStakedAtCycle(cycleNum),
		Cycle:           cycleNum,
		LastProcessed:   s.staking.LastProcessedSecondary(),
		DepositPaused:   s.staking.DepositPaused(),
	}
}

func (s *System) ClaimableStaking(id uint64) (staking.ClaimResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.staking.AllClaimableAmounts(id)
}

func (s *System) ClaimableStakingCycles(id uint64) ([]staking.CycleRewards, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.staking.ClaimableCyclesAndAmounts(id)
}

// Journal lists recorded operations
func (s *System) Journal(opts journal.ListOptions) ([]journal.Entry, error) {
	return s.db.Journal().List(opts)
}

// JournalCount counts recorded operations matching the filters in opts
func (s *System) JournalCount(opts journal.ListOptions) (int64, error) {
	return s.db.Journal().Count(opts)
}
