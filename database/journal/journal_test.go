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

package journal_test

import (
	"testing"

	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendEntry(
	t *testing.T,
	j *journal.Journal,
	op string,
	positionID uint64,
	cycle uint64,
) *journal.Entry {
	t.Helper()
	entry, err := journal.NewEntry(
		op,
		"alice",
		positionID,
		cycle,
		map[string]string{"amount": "100"},
	)
	require.NoError(t, err)
	require.NoError(t, j.Append(entry))
	return entry
}

func TestAppendAndList(t *testing.T) {
	j, err := journal.New("", nil, prometheus.NewRegistry())
	require.NoError(t, err)
	defer j.Close()

	first := appendEntry(t, j, "lock.create", 1, 5)
	appendEntry(t, j, "lock.increase_amount", 1, 6)
	appendEntry(t, j, "lock.create", 2, 6)
	last := appendEntry(t, j, "staking.deposit", 1, 7)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	count, err := j.Count(journal.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	count, err = j.Count(journal.ListOptions{Operation: "lock.create", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	page, err := j.List(journal.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, last.ID, page[1].ID)

	all, err := j.List(journal.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, last.ID, all[3].ID)
	assert.JSONEq(t, `{"amount":"100"}`, all[0].Detail)

	creates, err := j.List(journal.ListOptions{Operation: "lock.create"})
	require.NoError(t, err)
	assert.Len(t, creates, 2)

	pos1, err := j.List(journal.ListOptions{PositionID: 1, FromCycle: 6})
	require.NoError(t, err)
	require.Len(t, pos1, 2)
	assert.Equal(t, "lock.increase_amount", pos1[0].Operation)

	newest, err := j.List(journal.ListOptions{Limit: 1, Descending: true})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, last.ID, newest[0].ID)
}

func TestCommitCycle(t *testing.T) {
	j, err := journal.New("", nil, nil)
	require.NoError(t, err)
	defer j.Close()

	_, ok, err := j.GetCommitCycle()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, j.SetCommitCycle(4))
	require.NoError(t, j.SetCommitCycle(9))
	cycle, ok, err := j.GetCommitCycle()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), cycle)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.New(dir, nil, nil)
	require.NoError(t, err)
	appendEntry(t, j, "distributor.claim", 3, 13)
	require.NoError(t, j.SetCommitCycle(13))
	require.NoError(t, j.Close())

	j, err = journal.New(dir, nil, nil)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.List(journal.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(3), entries[0].PositionID)
	cycle, ok, err := j.GetCommitCycle()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(13), cycle)
}
