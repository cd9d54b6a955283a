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

package database_test

import (
	"testing"

	"github.com/blinklabs-io/lockledger/database"
	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Owner string
	Cycle uint64
}

func TestCommitAndRestore(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(database.Config{DataDir: dir})
	require.NoError(t, err)

	var st testState
	_, ok, err := db.Restore(&st)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Commit(4, testState{Owner: "alice", Cycle: 4}))
	entry, err := journal.NewEntry("cycle.advance", "keeper", 0, 5, nil)
	require.NoError(t, err)
	require.NoError(t, db.Record(entry))
	require.NoError(t, db.Commit(5, testState{Owner: "bob", Cycle: 5}))
	require.NoError(t, db.Close())

	db, err = database.New(database.Config{DataDir: dir})
	require.NoError(t, err)
	defer db.Close()
	cycle, ok, err := db.Restore(&st)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), cycle)
	assert.Equal(t, "bob", st.Owner)
	entries, err := db.Journal().List(journal.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSnapshotAheadIsRepaired(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Commit(2, testState{Cycle: 2}))
	// Simulate a crash between the snapshot and the commit cycle update
	require.NoError(t, db.Snapshots().Save(3, testState{Cycle: 3}))
	require.NoError(t, db.Close())

	db, err = database.New(database.Config{DataDir: dir})
	require.NoError(t, err)
	defer db.Close()
	cycle, ok, err := db.Journal().GetCommitCycle()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), cycle)
}

func TestJournalAheadIsRejected(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Commit(2, testState{Cycle: 2}))
	require.NoError(t, db.Journal().SetCommitCycle(6))
	require.NoError(t, db.Close())

	db, err = database.New(database.Config{DataDir: dir})
	require.ErrorIs(t, err, database.ErrCommitCycleMismatch)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}
