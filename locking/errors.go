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

package locking

import "github.com/blinklabs-io/lockledger/ledgererr"

var (
	ErrZeroAmount = ledgererr.New(
		ledgererr.ClassValidation,
		"LTE_0",
		"amount must be greater than zero",
	)
	ErrZeroDuration = ledgererr.New(
		ledgererr.ClassValidation,
		"DURATION_LTE_0",
		"duration must be greater than zero",
	)
	ErrDurationTooLong = ledgererr.New(
		ledgererr.ClassValidation,
		"MAX_LOCK_EXCEEDED",
		"lock duration exceeds the maximum",
	)
	ErrEndNotCheckpoint = ledgererr.New(
		ledgererr.ClassValidation,
		"END_MUST_BE_TDE_MULTIPLE",
		"lock end cycle must be a checkpoint cycle",
	)
	ErrInvalidYieldSharePercent = ledgererr.New(
		ledgererr.ClassValidation,
		"YS_PERCENT_INVALID",
		"yield share percent must be a multiple of 10 between 0 and 100",
	)
	ErrInvalidRecipient = ledgererr.New(
		ledgererr.ClassValidation,
		"INVALID_RECIPIENT",
		"recipient is not the position owner",
	)
	ErrHoldTooLong = ledgererr.New(
		ledgererr.ClassValidation,
		"HOLD_TOO_LONG",
		"hold exceeds the maximum hold duration",
	)
	ErrLockOver = ledgererr.New(
		ledgererr.ClassTemporal,
		"LOCK_OVER",
		"lock has already expired",
	)
	ErrStillLocked = ledgererr.New(
		ledgererr.ClassTemporal,
		"LOCKED",
		"lock has not expired yet",
	)
	ErrPositionHeld = ledgererr.New(
		ledgererr.ClassTemporal,
		"TOKEN_TIMELOCKED",
		"position is under a manual hold",
	)
	ErrCycleNotExisting = ledgererr.New(
		ledgererr.ClassTemporal,
		"CYCLE_NOT_EXISTING",
		"cycle is at or before the lock history floor",
	)
)
