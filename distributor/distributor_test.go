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

package distributor_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/distributor"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	principal = asset.ID("CVG")
	assetX    = asset.ID("X")
	assetY    = asset.ID("Y")
	assetZ    = asset.ID("Z")
	treasury  = asset.Account("treasury")
	custody   = asset.Account("distributor-custody")
)

type fixture struct {
	clock       *cycle.Clock
	book        *asset.Book
	delegation  *access.StaticDelegation
	ledger      *locking.Ledger
	distributor *distributor.Distributor
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		book:       asset.NewBook(nil),
		delegation: access.NewStaticDelegation(),
		now:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	var err error
	f.clock, err = cycle.NewClock(cycle.Config{Advancer: "keeper"})
	require.NoError(t, err)
	checker := access.NewChecker(f.delegation)
	registry := prometheus.NewRegistry()
	f.ledger, err = locking.NewLedger(locking.Config{
		Clock:          f.clock,
		Registry:       ownership.NewBook(),
		Transferer:     f.book,
		Access:         checker,
		PrincipalAsset: principal,
		Custody:        "lock-custody",
		PromRegistry:   registry,
		Now:            func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.clock.OnAdvance(f.ledger.OnAdvance)
	f.distributor, err = distributor.New(distributor.Config{
		Clock:        f.clock,
		Locks:        f.ledger,
		Transferer:   f.book,
		Access:       checker,
		Treasury:     treasury,
		Custody:      custody,
		PromRegistry: registry,
	})
	require.NoError(t, err)
	for _, acct := range []asset.Account{"alice", "bob"} {
		require.NoError(t, f.book.Mint(principal, acct, uint256.NewInt(1_000_000)))
	}
	for _, id := range []asset.ID{assetX, assetY, assetZ} {
		require.NoError(t, f.book.Mint(id, treasury, uint256.NewInt(1_000_000)))
	}
	return f
}

func (f *fixture) advanceTo(t *testing.T, c uint64) {
	t.Helper()
	for f.clock.Current() < c {
		_, err := f.clock.Advance("keeper")
		require.NoError(t, err)
	}
}

func (f *fixture) lock(t *testing.T, owner asset.Account, duration uint64, amt uint64, ys uint64) uint64 {
	t.Helper()
	pos, err := f.ledger.CreatePosition(owner, locking.CreateRequest{
		Duration:          duration,
		Amount:            uint256.NewInt(amt),
		YieldSharePercent: ys,
	})
	require.NoError(t, err)
	return pos.ID
}

func (f *fixture) deposit(t *testing.T, amounts ...asset.Amount) uint64 {
	t.Helper()
	tde, err := f.distributor.DepositAssets(treasury, amounts)
	require.NoError(t, err)
	return tde
}

func amt(id asset.ID, v uint64) asset.Amount {
	return asset.NewAmount(id, uint256.NewInt(v))
}

func dec(amounts []asset.Amount) []string {
	ret := make([]string, 0, len(amounts))
	for _, a := range amounts {
		ret = append(ret, a.String())
	}
	return ret
}

// setup locks alice (400) and bob (1200) from cycle 12 to 48 with full
// yield share, so they hold 25% and 75% of every checkpoint until 48
func setup(t *testing.T) (*fixture, uint64, uint64) {
	t.Helper()
	f := newFixture(t)
	f.advanceTo(t, 12)
	alice := f.lock(t, "alice", 36, 400, 100)
	bob := f.lock(t, "bob", 36, 1200, 100)
	f.advanceTo(t, 13)
	return f, alice, bob
}

func TestDepositsAccumulateInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	f.advanceTo(t, 5)
	assert.Equal(t, uint64(1), f.deposit(t, amt(assetX, 5)))
	assert.Equal(t, uint64(1), f.deposit(t, amt(assetY, 10)))
	f.deposit(t, amt(assetX, 10), amt(assetZ, 1))
	assert.Equal(
		t,
		[]string{"15 X", "10 Y", "1 Z"},
		dec(f.distributor.TokensDepositedAtTde(1)),
	)
	assert.Empty(t, f.distributor.TokensDepositedAtTde(2))
	assert.Equal(t, "999985", f.book.BalanceOf(assetX, treasury).Dec())
	assert.Equal(t, "15", f.book.BalanceOf(assetX, custody).Dec())

	// Cycle 12 is still in the first epoch
	f.advanceTo(t, 12)
	assert.Equal(t, uint64(1), f.deposit(t, amt(assetY, 1)))
	f.advanceTo(t, 13)
	assert.Equal(t, uint64(2), f.deposit(t, amt(assetY, 1)))
	assert.Equal(t, []string{"15 X", "11 Y", "1 Z"}, dec(f.distributor.TokensDepositedAtTde(1)))
}

func TestDepositValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.distributor.DepositAssets("alice", []asset.Amount{amt(assetX, 1)})
	require.ErrorIs(t, err, distributor.ErrNotTreasury)
	assert.Equal(t, ledgererr.ClassAuthorization, ledgererr.ClassOf(err))
	_, err = f.distributor.DepositAssets(treasury, nil)
	require.ErrorIs(t, err, distributor.ErrEmptyDeposit)
	_, err = f.distributor.DepositAssets(treasury, []asset.Amount{amt(assetX, 1), amt(assetY, 0)})
	require.ErrorIs(t, err, distributor.ErrZeroAmount)
	assert.Empty(t, f.distributor.TokensDepositedAtTde(1))
	assert.Equal(t, "1000000", f.book.BalanceOf(assetX, treasury).Dec())
}

func TestDepositRollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, amt(assetX, 5))
	f.book.Freeze(assetZ)
	_, err := f.distributor.DepositAssets(treasury, []asset.Amount{
		amt(assetX, 7),
		amt(assetY, 3),
		amt(assetZ, 2),
	})
	require.ErrorIs(t, err, asset.ErrFrozen)
	assert.Equal(t, []string{"5 X"}, dec(f.distributor.TokensDepositedAtTde(1)))
	assert.Equal(t, "999995", f.book.BalanceOf(assetX, treasury).Dec())
	assert.Equal(t, "1000000", f.book.BalanceOf(assetY, treasury).Dec())
	assert.Equal(t, "0", f.book.BalanceOf(assetY, custody).Dec())
}

func TestClaimProRata(t *testing.T) {
	f, alice, bob := setup(t)
	f.deposit(t, amt(assetX, 1000), amt(assetY, 10))
	f.advanceTo(t, 25)

	res, err := f.distributor.Claim("alice", alice, 2, "")
	require.NoError(t, err)
	assert.Equal(t, "25000000000000000000", res.Share.Dec())
	assert.Equal(t, asset.Account("alice"), res.Recipient)
	assert.Equal(t, []string{"250 X", "2 Y"}, dec(res.Payouts))
	assert.Equal(t, "250", f.book.BalanceOf(assetX, "alice").Dec())
	assert.True(t, f.distributor.IsClaimed(alice, 2))

	res, err = f.distributor.Claim("bob", bob, 2, "bob-savings")
	require.NoError(t, err)
	assert.Equal(t, "75000000000000000000", res.Share.Dec())
	assert.Equal(t, []string{"750 X", "7 Y"}, dec(res.Payouts))
	assert.Equal(t, "750", f.book.BalanceOf(assetX, "bob-savings").Dec())

	// Rounding dust stays in custody
	assert.Equal(t, "0", f.book.BalanceOf(assetX, custody).Dec())
	assert.Equal(t, "1", f.book.BalanceOf(assetY, custody).Dec())
}

func TestClaimRejections(t *testing.T) {
	f, alice, bob := setup(t)
	zero := f.lock(t, "alice", 35, 500, 0)
	f.deposit(t, amt(assetX, 1000))

	_, err := f.distributor.Claim("alice", alice, 2, "")
	require.ErrorIs(t, err, distributor.ErrNotAvailable)
	assert.Equal(t, ledgererr.ClassTemporal, ledgererr.ClassOf(err))

	f.advanceTo(t, 24)
	_, err = f.distributor.Claim("alice", alice, 2, "")
	require.ErrorIs(t, err, distributor.ErrNotAvailable)

	f.advanceTo(t, 25)
	late := f.lock(t, "bob", 23, 100, 100)
	_, err = f.distributor.Claim("bob", late, 2, "")
	require.ErrorIs(t, err, distributor.ErrPositionNotExisting)

	// Locked exactly at the first checkpoint, so not part of epoch 1
	_, err = f.distributor.Claim("alice", alice, 1, "")
	require.ErrorIs(t, err, distributor.ErrPositionNotExisting)

	_, err = f.distributor.Claim("alice", zero, 2, "")
	require.ErrorIs(t, err, distributor.ErrNoShares)

	_, err = f.distributor.Claim("bob", alice, 2, "")
	require.ErrorIs(t, err, access.ErrNotOwnerOrDelegate)

	_, err = f.distributor.Claim("alice", 99, 2, "")
	require.ErrorIs(t, err, ownership.ErrNotExisting)

	require.NoError(t, f.ledger.SetHold("alice", alice, f.now.Add(time.Hour)))
	_, err = f.distributor.Claim("alice", alice, 2, "")
	require.ErrorIs(t, err, locking.ErrPositionHeld)
	f.now = f.now.Add(2 * time.Hour)

	_, err = f.distributor.Claim("bob", bob, 2, "")
	require.NoError(t, err)
	_, err = f.distributor.Claim("bob", bob, 2, "")
	require.ErrorIs(t, err, distributor.ErrAlreadyClaimed)
	assert.Equal(t, ledgererr.ClassIdempotence, ledgererr.ClassOf(err))
	assert.Equal(t, "750", f.book.BalanceOf(assetX, "bob").Dec())
}

func TestClaimByDelegate(t *testing.T) {
	f, alice, _ := setup(t)
	f.deposit(t, amt(assetX, 1000))
	f.advanceTo(t, 25)
	f.delegation.Set(alice, access.KindYield, "carol")
	res, err := f.distributor.Claim("carol", alice, 2, "")
	require.NoError(t, err)
	assert.Equal(t, asset.Account("alice"), res.Recipient)
	assert.Equal(t, "250", f.book.BalanceOf(assetX, "alice").Dec())
	assert.Equal(t, "0", f.book.BalanceOf(assetX, "carol").Dec())
}

func TestClaimRollsBackOnTransferFailure(t *testing.T) {
	f, alice, _ := setup(t)
	f.deposit(t, amt(assetX, 1000), amt(assetY, 100))
	f.advanceTo(t, 25)
	f.book.Freeze(assetY)
	_, err := f.distributor.Claim("alice", alice, 2, "")
	require.ErrorIs(t, err, asset.ErrFrozen)
	assert.False(t, f.distributor.IsClaimed(alice, 2))
	assert.Equal(t, "0", f.book.BalanceOf(assetX, "alice").Dec())
	assert.Equal(t, "1000", f.book.BalanceOf(assetX, custody).Dec())

	f.book.Unfreeze(assetY)
	res, err := f.distributor.Claim("alice", alice, 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"250 X", "25 Y"}, dec(res.Payouts))
}

func TestClaimManyIsAllOrNothing(t *testing.T) {
	f, alice, _ := setup(t)
	f.deposit(t, amt(assetX, 1000))
	f.advanceTo(t, 25)
	f.deposit(t, amt(assetX, 400))

	_, err := f.distributor.ClaimMany("alice", alice, []uint64{2, 3}, "")
	require.ErrorIs(t, err, distributor.ErrNotAvailable)
	assert.False(t, f.distributor.IsClaimed(alice, 2))
	_, err = f.distributor.ClaimMany("alice", alice, []uint64{2, 2}, "")
	require.ErrorIs(t, err, distributor.ErrDuplicateTde)

	f.advanceTo(t, 37)
	results, err := f.distributor.ClaimMany("alice", alice, []uint64{2, 3}, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"250 X"}, dec(results[0].Payouts))
	assert.Equal(t, []string{"100 X"}, dec(results[1].Payouts))
	assert.Equal(t, "350", f.book.BalanceOf(assetX, "alice").Dec())
	assert.True(t, f.distributor.IsClaimed(alice, 3))
}

func TestRewardsViewOmitsUnclaimable(t *testing.T) {
	f, alice, _ := setup(t)
	f.deposit(t, amt(assetX, 1000))
	f.advanceTo(t, 25)

	view, err := f.distributor.AllTokenRewardsForTde(alice, []uint64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, uint64(2), view[0].Tde)
	assert.Equal(t, []string{"250 X"}, dec(view[0].Payouts))
	// Views do not pay
	assert.Equal(t, "0", f.book.BalanceOf(assetX, "alice").Dec())

	_, err = f.distributor.Claim("alice", alice, 2, "")
	require.NoError(t, err)
	view, err = f.distributor.AllTokenRewardsForTde(alice, []uint64{1, 2, 3})
	require.NoError(t, err)
	assert.Empty(t, view)
}

func TestClaimWithoutDepositsRecordsShare(t *testing.T) {
	f, alice, _ := setup(t)
	f.advanceTo(t, 25)
	res, err := f.distributor.Claim("alice", alice, 2, "")
	require.NoError(t, err)
	assert.Empty(t, res.Payouts)
	assert.Equal(t, "25000000000000000000", res.Share.Dec())
	assert.True(t, f.distributor.IsClaimed(alice, 2))
}

func TestStateRoundTrip(t *testing.T) {
	f, alice, _ := setup(t)
	f.deposit(t, amt(assetY, 10), amt(assetX, 1000))
	f.advanceTo(t, 25)
	_, err := f.distributor.Claim("alice", alice, 2, "")
	require.NoError(t, err)
	st := f.distributor.State()

	restored, err := distributor.New(distributor.Config{
		Clock:      f.clock,
		Locks:      f.ledger,
		Transferer: f.book,
		Treasury:   treasury,
		Custody:    custody,
	})
	require.NoError(t, err)
	restored.Load(st)
	assert.Equal(t, st, restored.State())
	assert.True(t, restored.IsClaimed(alice, 2))
	assert.Equal(t, []string{"10 Y", "1000 X"}, dec(restored.TokensDepositedAtTde(2)))
}

func TestGuardBurn(t *testing.T) {
	f := newFixture(t)
	id := f.lock(t, "alice", 23, 1200, 100)
	idle := f.lock(t, "bob", 23, 1200, 0)
	tde := f.deposit(t, asset.NewAmount(assetX, uint256.NewInt(1000)))

	// The epoch has not closed, so nothing is claimable yet
	require.NoError(t, f.distributor.GuardBurn(id))

	f.advanceTo(t, 13)
	pending, err := f.distributor.PendingPayouts(id)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, tde, pending[0].Tde)
	err = f.distributor.GuardBurn(id)
	require.ErrorIs(t, err, distributor.ErrUnclaimedPayouts)
	assert.Equal(t, ledgererr.ClassTemporal, ledgererr.ClassOf(err))
	require.NoError(t, f.distributor.GuardBurn(idle))

	_, err = f.distributor.Claim("alice", id, tde, "")
	require.NoError(t, err)
	require.NoError(t, f.distributor.GuardBurn(id))
}
