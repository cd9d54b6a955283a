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

import "github.com/blinklabs-io/lockledger/ledgererr"

var (
	ErrZeroAmount = ledgererr.New(
		ledgererr.ClassValidation,
		"DEPOSIT_LTE_0",
		"deposit amount must be greater than zero",
	)
	ErrZeroWithdraw = ledgererr.New(
		ledgererr.ClassValidation,
		"WITHDRAW_LTE_0",
		"withdraw amount must be greater than zero",
	)
	ErrWithdrawExceedsStaked = ledgererr.New(
		ledgererr.ClassValidation,
		"WITHDRAW_EXCEEDS_STAKED_AMOUNT",
		"withdraw amount exceeds the eligible staked amount",
	)
	ErrNoConverter = ledgererr.New(
		ledgererr.ClassValidation,
		"NO_CONVERTER",
		"conversion requested but no converter is configured",
	)
	ErrNotAdmin = ledgererr.New(
		ledgererr.ClassAuthorization,
		"NOT_ADMIN",
		"caller is not the staking admin",
	)
	ErrNotProcessor = ledgererr.New(
		ledgererr.ClassAuthorization,
		"NOT_PROCESSOR",
		"caller is not the secondary reward processor",
	)
	ErrDepositPaused = ledgererr.New(
		ledgererr.ClassTemporal,
		"DEPOSIT_PAUSED",
		"deposits are paused",
	)
	ErrCycleNotElapsed = ledgererr.New(
		ledgererr.ClassTemporal,
		"CYCLE_NOT_ELAPSED",
		"cycle has not elapsed yet",
	)
	ErrSecondaryOutOfOrder = ledgererr.New(
		ledgererr.ClassTemporal,
		"SECONDARY_OUT_OF_ORDER",
		"secondary rewards must be processed for the next unprocessed cycle",
	)
	ErrPositionNotEmpty = ledgererr.New(
		ledgererr.ClassTemporal,
		"POSITION_NOT_EMPTY",
		"position still holds a staked amount",
	)
	ErrAllPrimaryClaimed = ledgererr.New(
		ledgererr.ClassIdempotence,
		"ALL_PRIMARY_CLAIMED_FOR_NOW",
		"primary rewards already claimed up to the last elapsed cycle",
	)
	ErrAllSecondaryClaimed = ledgererr.New(
		ledgererr.ClassIdempotence,
		"ALL_SECONDARY_CLAIMED_FOR_NOW",
		"secondary rewards already claimed up to the last processed cycle",
	)
	ErrNoRewardToClaim = ledgererr.New(
		ledgererr.ClassIdempotence,
		"NO_REWARD_TO_CLAIM",
		"no reward to claim",
	)
)
