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

package lockledger_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/lockledger"
	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/event"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/staking"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cvg      = asset.ID("CVG")
	stCvg    = asset.ID("stCVG")
	assetX   = asset.ID("X")
	keeper   = asset.Account("keeper")
	treasury = asset.Account("treasury")
)

func balance(id asset.ID, account asset.Account, v uint64) asset.Balance {
	return asset.Balance{Asset: id, Account: account, Value: uint256.NewInt(v)}
}

func newSystem(t *testing.T, dataDir string, opts ...lockledger.ConfigOptionFunc) *lockledger.System {
	t.Helper()
	opts = append([]lockledger.ConfigOptionFunc{
		lockledger.WithDatabasePath(dataDir),
		lockledger.WithPrometheusRegistry(prometheus.NewRegistry()),
		lockledger.WithAdvancer(keeper),
		lockledger.WithTreasury(treasury),
		lockledger.WithStakingAdmin("admin"),
		lockledger.WithProcessor("processor"),
		lockledger.WithPrincipalAsset(cvg),
		lockledger.WithStakedAsset(stCvg),
		lockledger.WithPrimaryAsset(cvg),
		lockledger.WithEmissionPerCycle(uint256.NewInt(100)),
		lockledger.WithNow(func() time.Time {
			return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		}),
		lockledger.WithGenesisBalances(
			balance(cvg, "alice", 1_000_000),
			balance(cvg, "bob", 1_000_000),
			balance(stCvg, "alice", 1_000),
			balance(assetX, treasury, 1_000_000),
		),
	}, opts...)
	s, err := lockledger.New(lockledger.NewConfig(opts...))
	require.NoError(t, err)
	return s
}

func advanceTo(t *testing.T, s *lockledger.System, c uint64) {
	t.Helper()
	for s.Cycle().Current < c {
		_, err := s.Advance(keeper)
		require.NoError(t, err)
	}
}

func lock(t *testing.T, s *lockledger.System, owner asset.Account, v uint64) locking.Position {
	t.Helper()
	pos, err := s.CreateLock(owner, locking.CreateRequest{
		Amount:            uint256.NewInt(v),
		Duration:          36,
		YieldSharePercent: 100,
	})
	require.NoError(t, err)
	return pos
}

func TestGenesisBalances(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	assert.Equal(t, "1000000", s.BalanceOf(cvg, "alice").Dec())
	assert.Equal(t, "1000000", s.BalanceOf(assetX, treasury).Dec())
	info := s.Cycle()
	assert.Equal(t, uint64(1), info.Current)
	assert.Equal(t, uint64(1), info.Tde)
	assert.Equal(t, uint64(12), info.NextCheckpoint)
	entries, err := s.Journal(journal.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, lockledger.OpGenesis, entries[0].Operation)
}

func TestAdvanceRequiresKeeper(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	_, err := s.Advance("mallory")
	require.ErrorIs(t, err, cycle.ErrNotAdvancer)
	assert.Equal(t, ledgererr.ClassAuthorization, ledgererr.ClassOf(err))
	assert.Equal(t, uint64(1), s.Cycle().Current)
	entries, err := s.Journal(journal.ListOptions{Operation: lockledger.OpAdvance})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLockAndCheckpointClaim(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	_, created := s.EventBus().Subscribe(event.PositionCreatedEventType)
	_, claimed := s.EventBus().Subscribe(event.DistributorClaimEventType)

	advanceTo(t, s, 12)
	alice := lock(t, s, "alice", 400)
	bob := lock(t, s, "bob", 1200)
	assert.Equal(t, uint64(48), alice.EndCycle)
	select {
	case evt := <-created:
		data := evt.Data.(event.PositionCreatedEvent)
		assert.Equal(t, alice.ID, data.PositionID)
		assert.Equal(t, asset.Account("alice"), data.Owner)
	case <-time.After(time.Second):
		t.Fatal("no position created event")
	}
	assert.Equal(t, "999600", s.BalanceOf(cvg, "alice").Dec())
	assert.Equal(t, "1600", s.BalanceOf(cvg, lockledger.LockCustody).Dec())

	advanceTo(t, s, 13)
	tde, err := s.DepositCheckpoint(treasury, []asset.Amount{
		asset.NewAmount(assetX, uint256.NewInt(1000)),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tde)
	assert.Len(t, s.TokensDepositedAtTde(2), 1)

	_, err = s.ClaimCheckpoint("alice", alice.ID, 2, "")
	require.ErrorIs(t, err, distributor.ErrNotAvailable)

	advanceTo(t, s, 25)
	rewards, err := s.CheckpointRewards(alice.ID, []uint64{1, 2})
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, uint64(2), rewards[0].Tde)

	res, err := s.ClaimCheckpoint("alice", alice.ID, 2, "")
	require.NoError(t, err)
	require.Len(t, res.Payouts, 1)
	assert.Equal(t, "250 X", res.Payouts[0].String())
	assert.Equal(t, "250", s.BalanceOf(assetX, "alice").Dec())
	assert.True(t, s.IsCheckpointClaimed(alice.ID, 2))
	select {
	case evt := <-claimed:
		assert.Equal(t, alice.ID, evt.Data.(event.DistributorClaimEvent).PositionID)
	case <-time.After(time.Second):
		t.Fatal("no claim event")
	}

	_, err = s.ClaimCheckpoint("alice", alice.ID, 2, "")
	require.ErrorIs(t, err, distributor.ErrAlreadyClaimed)
	assert.Equal(t, ledgererr.ClassIdempotence, ledgererr.ClassOf(err))

	res, err = s.ClaimCheckpoint("bob", bob.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, "750 X", res.Payouts[0].String())

	totals, err := s.LockTotalsAt(24)
	require.NoError(t, err)
	balances, err := s.LockBalancesAt([]uint64{alice.ID, bob.ID}, 24)
	require.NoError(t, err)
	sum := new(uint256.Int).Add(balances[0].YieldShare, balances[1].YieldShare)
	assert.Equal(t, totals.YieldShare.Dec(), sum.Dec())
	assert.Equal(t, "1600", totals.Locked.Dec())

	claims, err := s.Journal(journal.ListOptions{Operation: lockledger.OpClaimCheckpoint})
	require.NoError(t, err)
	assert.Len(t, claims, 2)
}

func TestLockLifecycle(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	advanceTo(t, s, 12)
	pos := lock(t, s, "alice", 400)
	require.NoError(t, s.IncreaseLockAmount("alice", pos.ID, uint256.NewInt(100), ""))
	require.NoError(t, s.IncreaseLockTime("alice", pos.ID, 12, ""))
	updated, err := s.LockPosition(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", updated.TotalLocked.Dec())
	assert.Equal(t, uint64(60), updated.EndCycle)

	require.NoError(t, s.TransferLock("alice", pos.ID, "bob"))
	owner, err := s.LockOwnerOf(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.Account("bob"), owner)

	_, err = s.BurnLock("bob", pos.ID)
	require.ErrorIs(t, err, locking.ErrStillLocked)

	advanceTo(t, s, 61)
	released, err := s.BurnLock("bob", pos.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", released.Dec())
	assert.Equal(t, "1000500", s.BalanceOf(cvg, "bob").Dec())
	burned, err := s.LockPosition(pos.ID)
	require.NoError(t, err)
	assert.True(t, burned.Burned)
	_, err = s.LockOwnerOf(pos.ID)
	require.Error(t, err)
	_, err = s.BurnLock("bob", pos.ID)
	require.Error(t, err)
}

func TestBurnLockWithUnclaimedPayouts(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	pos, err := s.CreateLock("alice", locking.CreateRequest{
		Amount:            uint256.NewInt(1200),
		Duration:          23,
		YieldSharePercent: 100,
	})
	require.NoError(t, err)
	tde, err := s.DepositCheckpoint(treasury, []asset.Amount{
		asset.NewAmount(assetX, uint256.NewInt(1000)),
	})
	require.NoError(t, err)
	advanceTo(t, s, 25)

	_, err = s.BurnLock("alice", pos.ID)
	require.ErrorIs(t, err, distributor.ErrUnclaimedPayouts)
	assert.Equal(t, ledgererr.ClassTemporal, ledgererr.ClassOf(err))
	assert.Equal(t, "998800", s.BalanceOf(cvg, "alice").Dec())

	_, err = s.ClaimCheckpoint("alice", pos.ID, tde, "")
	require.NoError(t, err)
	released, err := s.BurnLock("alice", pos.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200", released.Dec())

	// Past balances of the burned position still add up to the totals
	for c := uint64(1); c <= 25; c++ {
		balances, err := s.LockBalancesAt([]uint64{pos.ID}, c)
		require.NoError(t, err)
		totals, err := s.LockTotalsAt(c)
		require.NoError(t, err)
		assert.Equal(t, totals.YieldShare.Dec(), balances[0].YieldShare.Dec(), "cycle %d", c)
		assert.Equal(t, totals.Metagovernance.Dec(), balances[0].Metagovernance.Dec(), "cycle %d", c)
	}
}

func TestAdvanceAbortedRollsBack(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	pos := lock(t, s, "alice", 1000)
	id, err := s.StakeDeposit("alice", staking.MintNew, uint256.NewInt(1000), "")
	require.NoError(t, err)
	advanceTo(t, s, 2)
	before, err := s.LockTotalsAt(2)
	require.NoError(t, err)

	s.AssetBook().Freeze(cvg)
	_, err = s.Advance(keeper)
	require.ErrorIs(t, err, asset.ErrFrozen)
	require.ErrorIs(t, err, cycle.ErrAdvanceAborted)
	assert.Equal(t, uint64(2), s.Cycle().Current)
	after, err := s.LockTotalsAt(2)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	s.AssetBook().Unfreeze(cvg)
	advanceTo(t, s, 4)
	paid, err := s.ClaimPrimary("alice", id)
	require.NoError(t, err)
	assert.Equal(t, "200", paid.Dec())
	balances, err := s.LockBalancesAt([]uint64{pos.ID}, 3)
	require.NoError(t, err)
	require.Len(t, balances, 1)
}

func TestVotingPowerDelegates(t *testing.T) {
	delegation := access.NewStaticDelegation()
	s := newSystem(t, "", lockledger.WithDelegation(delegation))
	defer s.Close()
	pos, err := s.CreateLock("alice", locking.CreateRequest{
		Amount:            uint256.NewInt(960),
		Duration:          35,
		YieldSharePercent: 50,
	})
	require.NoError(t, err)
	delegation.Set(pos.ID, access.KindVote, "vic")

	owner, err := s.VotingPowerAt("alice", pos.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "175", owner.Governance.Dec())
	assert.Equal(t, "175", owner.Metagovernance.Dec())

	delegate, err := s.VotingPowerAt("vic", pos.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, owner.Governance.Dec(), delegate.Governance.Dec())
	assert.Nil(t, delegate.Metagovernance)

	_, err = s.VotingPowerAt("mallory", pos.ID, 1)
	require.ErrorIs(t, err, access.ErrNotOwnerOrDelegate)
	_, err = s.VotingPowerAt("alice", 99, 1)
	require.Error(t, err)
	assert.Equal(t, ledgererr.ClassNotFound, ledgererr.ClassOf(err))
}

func TestStakingFlow(t *testing.T) {
	s := newSystem(t, "")
	defer s.Close()
	id, err := s.StakeDeposit("alice", staking.MintNew, uint256.NewInt(100), "")
	require.NoError(t, err)
	advanceTo(t, s, 3)
	info, err := s.StakePosition(id)
	require.NoError(t, err)
	assert.Equal(t, "100", info.Eligible.Dec())

	claimable, err := s.ClaimableStaking(id)
	require.NoError(t, err)
	assert.Equal(t, "100", claimable.Primary.Dec())

	paid, err := s.ClaimPrimary("alice", id)
	require.NoError(t, err)
	assert.Equal(t, "100", paid.Dec())
	_, err = s.ClaimPrimary("alice", id)
	require.ErrorIs(t, err, staking.ErrAllPrimaryClaimed)

	require.NoError(t, s.StakeWithdraw("alice", id, uint256.NewInt(100)))
	totals := s.StakingTotalsAt(3)
	assert.Equal(t, "0", totals.Staked.Dec())
	require.NoError(t, s.BurnStake("alice", id))
	assert.Empty(t, s.StakePositions())
	assert.Equal(t, "1000", s.BalanceOf(stCvg, "alice").Dec())

	require.ErrorIs(
		t,
		s.SetStakingDepositPaused("alice", true),
		staking.ErrNotAdmin,
	)
	require.NoError(t, s.SetStakingDepositPaused("admin", true))
	_, err = s.StakeDeposit("alice", staking.MintNew, uint256.NewInt(1), "")
	require.ErrorIs(t, err, staking.ErrDepositPaused)
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	s := newSystem(t, dir)
	advanceTo(t, s, 12)
	pos := lock(t, s, "alice", 400)
	stakeID, err := s.StakeDeposit("alice", staking.MintNew, uint256.NewInt(100), "")
	require.NoError(t, err)
	advanceTo(t, s, 13)
	_, err = s.DepositCheckpoint(treasury, []asset.Amount{
		asset.NewAmount(assetX, uint256.NewInt(1000)),
	})
	require.NoError(t, err)
	before, err := s.LockBalancesAt([]uint64{pos.ID}, 24)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = newSystem(t, dir)
	defer s.Close()
	assert.Equal(t, uint64(13), s.Cycle().Current)
	assert.Equal(t, "999600", s.BalanceOf(cvg, "alice").Dec())
	restored, err := s.LockPosition(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, "400", restored.TotalLocked.Dec())
	after, err := s.LockBalancesAt([]uint64{pos.ID}, 24)
	require.NoError(t, err)
	assert.Equal(t, before[0].YieldShare.Dec(), after[0].YieldShare.Dec())
	info, err := s.StakePosition(stakeID)
	require.NoError(t, err)
	assert.Equal(t, "100", info.TotalStaked.Dec())
	assert.Len(t, s.TokensDepositedAtTde(2), 1)

	// Genesis balances are not credited again
	assert.Equal(t, "999000", s.BalanceOf(assetX, treasury).Dec())
	advanceTo(t, s, 25)
	res, err := s.ClaimCheckpoint("alice", pos.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, "1000 X", res.Payouts[0].String())
}
