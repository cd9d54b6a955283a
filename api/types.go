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

import "time"

// RootResponse is returned by GET /.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// AmountJSON is a quantity of one asset. Amount is in base units and
// Display is scaled by the configured decimals.
type AmountJSON struct {
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	Display string `json:"display,omitempty"`
}

type CycleResponse struct {
	Current            uint64 `json:"current"`
	Tde                uint64 `json:"tde"`
	Genesis            uint64 `json:"genesis"`
	CheckpointInterval uint64 `json:"checkpoint_interval"`
	NextCheckpoint     uint64 `json:"next_checkpoint"`
}

type AdvanceResponse struct {
	Cycle uint64 `json:"cycle"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	AmountJSON
}

type CreateLockRequest struct {
	Amount            string `json:"amount"`
	Recipient         string `json:"recipient,omitempty"`
	Duration          uint64 `json:"duration"`
	YieldSharePercent uint64 `json:"yield_share_percent"`
	Managed           bool   `json:"managed,omitempty"`
}

// IncreaseLockRequest extends a lock, adds principal, or both
type IncreaseLockRequest struct {
	Amount      string `json:"amount,omitempty"`
	OnBehalfOf  string `json:"on_behalf_of,omitempty"`
	ExtraCycles uint64 `json:"extra_cycles,omitempty"`
}

type HoldRequest struct {
	Until time.Time `json:"until"`
}

type TransferRequest struct {
	To string `json:"to"`
}

type LockPositionResponse struct {
	HoldUntil         *time.Time `json:"hold_until,omitempty"`
	Owner             string     `json:"owner,omitempty"`
	TotalLocked       string     `json:"total_locked"`
	ID                uint64     `json:"id"`
	StartCycle        uint64     `json:"start_cycle"`
	EndCycle          uint64     `json:"end_cycle"`
	YieldSharePercent uint64     `json:"yield_share_percent"`
	Managed           bool       `json:"managed"`
	Burned            bool       `json:"burned,omitempty"`
}

type LockBalancesResponse struct {
	Governance     string `json:"governance"`
	Metagovernance string `json:"metagovernance"`
	YieldShare     string `json:"yield_share"`
	ID             uint64 `json:"id"`
	Cycle          uint64 `json:"cycle"`
}

type LockTotalsResponse struct {
	Governance     string `json:"governance"`
	Metagovernance string `json:"metagovernance"`
	YieldShare     string `json:"yield_share"`
	Locked         string `json:"locked"`
	Cycle          uint64 `json:"cycle"`
}

// VotingPowerResponse omits a weight the caller has no right to use
type VotingPowerResponse struct {
	Governance     string `json:"governance,omitempty"`
	Metagovernance string `json:"metagovernance,omitempty"`
	ID             uint64 `json:"id"`
	Cycle          uint64 `json:"cycle"`
}

type BurnResponse struct {
	Released string `json:"released"`
}

type DepositCheckpointRequest struct {
	Amounts []AmountJSON `json:"amounts"`
}

type DepositCheckpointResponse struct {
	Tde uint64 `json:"tde"`
}

type CheckpointResponse struct {
	Amounts []AmountJSON `json:"amounts"`
	Tde     uint64       `json:"tde"`
}

type ClaimCheckpointRequest struct {
	Recipient string   `json:"recipient,omitempty"`
	Tdes      []uint64 `json:"tdes"`
}

type CheckpointClaimResponse struct {
	Share      string       `json:"share"`
	Recipient  string       `json:"recipient,omitempty"`
	Payouts    []AmountJSON `json:"payouts"`
	PositionID uint64       `json:"position_id"`
	Tde        uint64       `json:"tde"`
}

type ClaimedResponse struct {
	ID      uint64 `json:"id"`
	Tde     uint64 `json:"tde"`
	Claimed bool   `json:"claimed"`
}

// StakeDepositRequest stakes into position ID, or mints a new position
// when ID is zero
type StakeDepositRequest struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient,omitempty"`
	ID        uint64 `json:"id,omitempty"`
}

type StakeDepositResponse struct {
	ID uint64 `json:"id"`
}

type WithdrawRequest struct {
	Amount string `json:"amount"`
}

type PauseRequest struct {
	Paused bool `json:"paused"`
}

type ProcessSecondaryRequest struct {
	Amounts []AmountJSON `json:"amounts"`
	Cycle   uint64       `json:"cycle"`
}

type ClaimStakingRequest struct {
	Convert bool `json:"convert,omitempty"`
}

type StakePositionResponse struct {
	Owner                string `json:"owner"`
	TotalStaked          string `json:"total_staked"`
	Eligible             string `json:"eligible"`
	Pending              string `json:"pending"`
	ID                   uint64 `json:"id"`
	LastClaimedPrimary   uint64 `json:"last_claimed_primary"`
	LastClaimedSecondary uint64 `json:"last_claimed_secondary"`
}

type StakedEligibleResponse struct {
	Amount    string `json:"amount"`
	ID        uint64 `json:"id"`
	FromCycle uint64 `json:"from_cycle"`
	AsOfCycle uint64 `json:"as_of_cycle"`
}

type StakingTotalsResponse struct {
	Staked          string `json:"staked"`
	EligibleAtCycle string `json:"eligible_at_cycle"`
	Cycle           uint64 `json:"cycle"`
	LastProcessed   uint64 `json:"last_processed"`
	DepositPaused   bool   `json:"deposit_paused"`
}

type StakingClaimResponse struct {
	Primary   string       `json:"primary"`
	Secondary []AmountJSON `json:"secondary"`
}

type CycleRewardsResponse struct {
	Primary   string       `json:"primary"`
	Secondary []AmountJSON `json:"secondary"`
	Cycle     uint64       `json:"cycle"`
}

type JournalEntryResponse struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Caller     string    `json:"caller"`
	Detail     string    `json:"detail,omitempty"`
	PositionID uint64    `json:"position_id,omitempty"`
	Cycle      uint64    `json:"cycle"`
}
