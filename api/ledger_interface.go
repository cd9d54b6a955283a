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

package api

import (
	"time"

	"github.com/blinklabs-io/lockledger"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/staking"
	"github.com/holiman/uint256"
)

// Ledger is what the API server needs from the ledger system. It is
// satisfied by *lockledger.System and decouples the HTTP layer from it.
type Ledger interface {
	Cycle() lockledger.CycleInfo
	Advance(caller asset.Account) (uint64, error)
	BalanceOf(id asset.ID, account asset.Account) *uint256.Int

	CreateLock(caller asset.Account, req locking.CreateRequest) (locking.Position, error)
	IncreaseLockAmount(caller asset.Account, id uint64, extra *uint256.Int, onBehalfOf asset.Account) error
	IncreaseLockTime(caller asset.Account, id uint64, extraCycles uint64, onBehalfOf asset.Account) error
	IncreaseLockTimeAndAmount(
		caller asset.Account,
		id uint64,
		extraCycles uint64,
		extra *uint256.Int,
		onBehalfOf asset.Account,
	) error
	SetHold(caller asset.Account, id uint64, until time.Time) error
	TransferLock(caller asset.Account, id uint64, to asset.Account) error
	BurnLock(caller asset.Account, id uint64) (*uint256.Int, error)
	LockPosition(id uint64) (locking.Position, error)
	LockPositions() []locking.Position
	LockOwnerOf(id uint64) (asset.Account, error)
	LockBalancesAt(ids []uint64, cycleNum uint64) ([]lockledger.LockBalances, error)
	LockTotalsAt(cycleNum uint64) (lockledger.LockTotals, error)
	VotingPowerAt(caller asset.Account, id uint64, cycleNum uint64) (lockledger.VotingPower, error)

	DepositCheckpoint(caller asset.Account, amounts []asset.Amount) (uint64, error)
	ClaimCheckpoints(
		caller asset.Account,
		id uint64,
		tdes []uint64,
		recipient asset.Account,
	) ([]distributor.ClaimResult, error)
	TokensDepositedAtTde(tde uint64) []asset.Amount
	CheckpointRewards(id uint64, tdes []uint64) ([]distributor.ClaimResult, error)
	IsCheckpointClaimed(id uint64, tde uint64) bool

	StakeDeposit(caller asset.Account, id uint64, amt *uint256.Int, recipient asset.Account) (uint64, error)
	StakeWithdraw(caller asset.Account, id uint64, amt *uint256.Int) error
	SetStakingDepositPaused(caller asset.Account, paused bool) error
	BurnStake(caller asset.Account, id uint64) error
	ProcessSecondary(caller asset.Account, cycleNum uint64, amounts []asset.Amount) error
	ClaimPrimary(caller asset.Account, id uint64) (*uint256.Int, error)
	ClaimSecondary(caller asset.Account, id uint64, opts staking.ClaimOptions) ([]asset.Amount, error)
	ClaimAllStaking(caller asset.Account, id uint64, opts staking.ClaimOptions) (staking.ClaimResult, error)
	StakePosition(id uint64) (staking.Info, error)
	StakePositions() []uint64
	StakedEligibleAt(fromCycle uint64, id uint64, asOfCycle uint64) (*uint256.Int, error)
	StakingTotalsAt(cycleNum uint64) lockledger.StakingTotals
	ClaimableStaking(id uint64) (staking.ClaimResult, error)
	ClaimableStakingCycles(id uint64) ([]staking.CycleRewards, error)

	Journal(opts journal.ListOptions) ([]journal.Entry, error)
	JournalCount(opts journal.ListOptions) (int64, error)
}

var _ Ledger = (*lockledger.System)(nil)
