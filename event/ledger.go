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

package event

import (
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/holiman/uint256"
)

const (
	CycleAdvancedEventType       = EventType("cycle.advanced")
	PositionCreatedEventType     = EventType("position.created")
	LockIncreasedEventType       = EventType("lock.increased")
	PositionBurnedEventType      = EventType("position.burned")
	DistributorDepositEventType  = EventType("distributor.deposit")
	DistributorClaimEventType    = EventType("distributor.claim")
	StakingDepositEventType      = EventType("staking.deposit")
	StakingWithdrawEventType     = EventType("staking.withdraw")
	StakingClaimEventType        = EventType("staking.claim")
	StakingSecondaryEventType    = EventType("staking.secondary")
	StakingPositionBurnEventType = EventType("staking.burned")
)

// CycleAdvancedEvent is emitted after the clock moves to a new cycle
type CycleAdvancedEvent struct {
	Previous uint64
	Current  uint64
	// Checkpoint is set when Previous closed a checkpoint epoch
	Checkpoint bool
}

// PositionCreatedEvent is emitted when a lock position is minted
type PositionCreatedEvent struct {
	Amount            *uint256.Int
	Owner             asset.Account
	PositionID        uint64
	StartCycle        uint64
	EndCycle          uint64
	YieldSharePercent uint64
}

// LockIncreasedEvent is emitted when a lock gains principal or duration.
// ExtraAmount is zero for a pure time increase.
type LockIncreasedEvent struct {
	ExtraAmount *uint256.Int
	TotalLocked *uint256.Int
	Caller      asset.Account
	PositionID  uint64
	ExtraCycles uint64
	EndCycle    uint64
}

// PositionBurnedEvent is emitted when a lock position is burned and its
// principal released
type PositionBurnedEvent struct {
	Released   *uint256.Int
	Owner      asset.Account
	PositionID uint64
}

// DistributorDepositEvent is emitted when the treasury funds a checkpoint
// epoch
type DistributorDepositEvent struct {
	Amounts []asset.Amount
	Tde     uint64
}

// DistributorClaimEvent carries the resolved share so downstream
// accounting can reconcile rounding
type DistributorClaimEvent struct {
	Share      *uint256.Int
	Recipient  asset.Account
	Payouts    []asset.Amount
	PositionID uint64
	Tde        uint64
}

type StakingDepositEvent struct {
	Amount        *uint256.Int
	Caller        asset.Account
	PositionID    uint64
	EligibleCycle uint64
}

type StakingWithdrawEvent struct {
	Amount     *uint256.Int
	Owner      asset.Account
	PositionID uint64
}

// StakingClaimEvent is emitted for every paid staking claim. Primary is
// zero when only the secondary stream paid.
type StakingClaimEvent struct {
	Primary    *uint256.Int
	Secondary  []asset.Amount
	Owner      asset.Account
	PositionID uint64
	Converted  bool
}

// StakingSecondaryEvent is emitted when a cycle's secondary rewards are
// processed
type StakingSecondaryEvent struct {
	Amounts []asset.Amount
	Cycle   uint64
}

type StakingPositionBurnEvent struct {
	Owner      asset.Account
	PositionID uint64
}
