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
	"errors"
	"time"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/event"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/holiman/uint256"
)

// Advance moves the clock forward one cycle. Ledger advancement hooks run
// before the new cycle is committed.
func (s *System) Advance(caller asset.Account) (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	prev := s.clock.Current()
	next, err := s.clock.Advance(caller)
	if err != nil {
		if errors.Is(err, cycle.ErrAdvanceAborted) {
			// Hooks that ran before the failing one already sealed prev
			if rbErr := s.rollback(); rbErr != nil {
				s.logger.Error(
					"failed to roll back aborted advance",
					"cycle", prev,
					"error", rbErr,
				)
			}
		}
		return 0, s.reject(OpAdvance, caller, err)
	}
	evt := event.CycleAdvancedEvent{
		Previous:   prev,
		Current:    next,
		Checkpoint: s.clock.IsCheckpoint(prev),
	}
	if err := s.commit(OpAdvance, caller, 0, event.CycleAdvancedEventType, evt); err != nil {
		return 0, err
	}
	return next, nil
}

// CreateLock locks principal from caller and mints a position
func (s *System) CreateLock(
	caller asset.Account,
	req locking.CreateRequest,
) (locking.Position, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	pos, err := s.locking.CreatePosition(caller, req)
	if err != nil {
		return locking.Position{}, s.reject(OpCreateLock, caller, err)
	}
	owner := req.Recipient
	if owner == "" {
		owner = caller
	}
	evt := event.PositionCreatedEvent{
		Amount:            pos.TotalLocked.Clone(),
		Owner:             owner,
		PositionID:        pos.ID,
		StartCycle:        pos.StartCycle,
		EndCycle:          pos.EndCycle,
		YieldSharePercent: pos.YieldSharePercent,
	}
	if err := s.commit(OpCreateLock, caller, pos.ID, event.PositionCreatedEventType, evt); err != nil {
		return locking.Position{}, err
	}
	return pos, nil
}

// IncreaseLockAmount adds principal to an active lock
func (s *System) IncreaseLockAmount(
	caller asset.Account,
	id uint64,
	extra *uint256.Int,
	onBehalfOf asset.Account,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.locking.IncreaseLockAmount(caller, id, extra, onBehalfOf); err != nil {
		return s.reject(OpIncreaseLockAmount, caller, err)
	}
	return s.commitIncrease(OpIncreaseLockAmount, caller, id, 0, extra)
}

// IncreaseLockTime moves the end of an active lock out by extraCycles
func (s *System) IncreaseLockTime(
	caller asset.Account,
	id uint64,
	extraCycles uint64,
	onBehalfOf asset.Account,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.locking.IncreaseLockTime(caller, id, extraCycles, onBehalfOf); err != nil {
		return s.reject(OpIncreaseLockTime, caller, err)
	}
	return s.commitIncrease(OpIncreaseLockTime, caller, id, extraCycles, nil)
}

// IncreaseLockTimeAndAmount extends a lock and adds principal in one step
func (s *System) IncreaseLockTimeAndAmount(
	caller asset.Account,
	id uint64,
	extraCycles uint64,
	extra *uint256.Int,
	onBehalfOf asset.Account,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	err := s.locking.IncreaseLockTimeAndAmount(caller, id, extraCycles, extra, onBehalfOf)
	if err != nil {
		return s.reject(OpIncreaseLockTimeAndAmount, caller, err)
	}
	return s.commitIncrease(OpIncreaseLockTimeAndAmount, caller, id, extraCycles, extra)
}

func (s *System) commitIncrease(
	op string,
	caller asset.Account,
	id uint64,
	extraCycles uint64,
	extra *uint256.Int,
) error {
	pos, err := s.locking.Position(id)
	if err != nil {
		return err
	}
	evt := event.LockIncreasedEvent{
		ExtraAmount: new(uint256.Int),
		TotalLocked: pos.TotalLocked.Clone(),
		Caller:      caller,
		PositionID:  id,
		ExtraCycles: extraCycles,
		EndCycle:    pos.EndCycle,
	}
	if extra != nil {
		evt.ExtraAmount.Set(extra)
	}
	return s.commit(op, caller, id, event.LockIncreasedEventType, evt)
}

// SetHold blocks mutation and transfer of a position until the given time
func (s *System) SetHold(caller asset.Account, id uint64, until time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.locking.SetHold(caller, id, until); err != nil {
		return s.reject(OpSetHold, caller, err)
	}
	detail := map[string]string{"until": until.UTC().Format(time.RFC3339)}
	return s.commit(OpSetHold, caller, id, "", detail)
}

// TransferLock hands a lock position to another account
func (s *System) TransferLock(caller asset.Account, id uint64, to asset.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.locking.TransferPosition(caller, id, to); err != nil {
		return s.reject(OpTransferLock, caller, err)
	}
	detail := map[string]string{"to": string(to)}
	return s.commit(OpTransferLock, caller, id, "", detail)
}

// BurnLock releases the principal of an expired lock and destroys it
func (s *System) BurnLock(caller asset.Account, id uint64) (*uint256.Int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	released, err := s.locking.BurnPosition(caller, id)
	if err != nil {
		return nil, s.reject(OpBurnLock, caller, err)
	}
	evt := event.PositionBurnedEvent{
		Released:   released.Clone(),
		Owner:      caller,
		PositionID: id,
	}
	if err := s.commit(OpBurnLock, caller, id, event.PositionBurnedEventType, evt); err != nil {
		return nil, err
	}
	return released, nil
}
