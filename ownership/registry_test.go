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

package ownership_test

import (
	"testing"

	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintTransferBurn(t *testing.T) {
	b := ownership.NewBook()
	id, err := b.Mint("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	require.ErrorIs(t, b.Transfer(id, "bob", "carol"), ownership.ErrNotOwner)
	require.NoError(t, b.Transfer(id, "alice", "bob"))
	owner, err := b.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, "bob", string(owner))
	assert.Equal(t, []uint64{id}, b.TokensOf("bob"))

	require.NoError(t, b.Burn(id))
	_, err = b.OwnerOf(id)
	require.ErrorIs(t, err, ownership.ErrNotExisting)

	id2, err := b.Mint("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id2, "ids are never reused")
}

func TestMintRequiresRecipient(t *testing.T) {
	_, err := ownership.NewBook().Mint("")
	require.ErrorIs(t, err, ownership.ErrInvalidRecipient)
}

func TestLoad(t *testing.T) {
	b := ownership.NewBook()
	b.Load([]ownership.Token{{ID: 4, Owner: "alice"}}, 0)
	assert.Equal(t, uint64(5), b.NextID())
	owner, err := b.OwnerOf(4)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(owner))
}
