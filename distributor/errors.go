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

package distributor

import "github.com/blinklabs-io/lockledger/ledgererr"

var (
	ErrNotTreasury = ledgererr.New(
		ledgererr.ClassAuthorization,
		"NOT_TREASURY",
		"caller is not the treasury",
	)
	ErrEmptyDeposit = ledgererr.New(
		ledgererr.ClassValidation,
		"EMPTY_DEPOSIT",
		"deposit must contain at least one asset",
	)
	ErrZeroAmount = ledgererr.New(
		ledgererr.ClassValidation,
		"LTE_0",
		"amount must be greater than zero",
	)
	ErrNotAvailable = ledgererr.New(
		ledgererr.ClassTemporal,
		"NOT_AVAILABLE",
		"checkpoint epoch has not closed yet",
	)
	ErrPositionNotExisting = ledgererr.New(
		ledgererr.ClassTemporal,
		"NOT_EXISTING_AT_TDE",
		"position did not exist at the checkpoint",
	)
	ErrNoShares = ledgererr.New(
		ledgererr.ClassValidation,
		"NO_SHARES",
		"position has no yield share at the checkpoint",
	)
	ErrAlreadyClaimed = ledgererr.New(
		ledgererr.ClassIdempotence,
		"ALREADY_CLAIMED",
		"checkpoint epoch already claimed for this position",
	)
	ErrUnclaimedPayouts = ledgererr.New(
		ledgererr.ClassTemporal,
		"UNCLAIMED_PAYOUTS",
		"position has checkpoint payouts left to claim",
	)
	ErrDuplicateTde = ledgererr.New(
		ledgererr.ClassValidation,
		"DUPLICATE_TDE",
		"checkpoint epoch listed more than once",
	)
)
