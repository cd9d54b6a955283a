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

package access_test

import (
	"testing"

	"github.com/blinklabs-io/lockledger/access"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/blinklabs-io/lockledger/ownership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	delegation := access.NewStaticDelegation()
	delegation.Set(1, access.KindYield, "dave")
	delegation.Set(1, access.KindVote, "vic")
	delegation.Set(1, access.KindMetagovernance, "meg")
	checker := access.NewChecker(delegation, "locker")

	testDefs := []struct {
		name    string
		req     access.Request
		allowed bool
		code    string
	}{
		{
			name:    "owner may do anything",
			req:     access.Request{PositionID: 1, Owner: "alice", Caller: "alice", Action: access.ActionOwner},
			allowed: true,
		},
		{
			name:    "manager may increase a managed position",
			req:     access.Request{PositionID: 1, Owner: "alice", Caller: "locker", Action: access.ActionManageLock, Managed: true},
			allowed: true,
		},
		{
			name: "manager may not increase an unmanaged position",
			req:  access.Request{PositionID: 1, Owner: "alice", Caller: "locker", Action: access.ActionManageLock},
			code: "NOT_OWNER_OR_MANAGER",
		},
		{
			name: "manager may not burn",
			req:  access.Request{PositionID: 1, Owner: "alice", Caller: "locker", Action: access.ActionOwner},
			code: "NOT_OWNER",
		},
		{
			name:    "yield delegate may claim",
			req:     access.Request{PositionID: 1, Owner: "alice", Caller: "dave", Action: access.ActionClaimYield},
			allowed: true,
		},
		{
			name: "yield delegate of another position may not claim",
			req:  access.Request{PositionID: 2, Owner: "alice", Caller: "dave", Action: access.ActionClaimYield},
			code: "NOT_OWNER_OR_DELEGATE",
		},
		{
			name: "stranger may not manage",
			req:  access.Request{PositionID: 1, Owner: "alice", Caller: "eve", Action: access.ActionManageLock, Managed: true},
			code: "NOT_OWNER_OR_MANAGER",
		},
		{
			name:    "vote delegate may vote",
			req:     access.Request{PositionID: 1, Owner: "alice", Caller: "vic", Action: access.ActionVote},
			allowed: true,
		},
		{
			name: "vote delegate may not use metagovernance",
			req:  access.Request{PositionID: 1, Owner: "alice", Caller: "vic", Action: access.ActionMetagovernance},
			code: "NOT_OWNER_OR_DELEGATE",
		},
		{
			name:    "metagovernance delegate may use metagovernance",
			req:     access.Request{PositionID: 1, Owner: "alice", Caller: "meg", Action: access.ActionMetagovernance},
			allowed: true,
		},
		{
			name: "yield delegate may not vote",
			req:  access.Request{PositionID: 1, Owner: "alice", Caller: "dave", Action: access.ActionVote},
			code: "NOT_OWNER_OR_DELEGATE",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			res := checker.Check(testDef.req)
			assert.Equal(t, testDef.allowed, res.Allowed)
			if testDef.allowed {
				assert.NoError(t, res.Error())
				return
			}
			require.Error(t, res.Error())
			assert.Equal(t, testDef.code, res.Code())
			assert.Equal(t, ledgererr.ClassAuthorization, ledgererr.ClassOf(res.Error()))
		})
	}
}

func TestCheckNotOwnerSentinel(t *testing.T) {
	res := access.NewChecker(nil).Check(access.Request{
		PositionID: 3,
		Owner:      "alice",
		Caller:     "bob",
		Action:     access.ActionOwner,
	})
	require.ErrorIs(t, res.Error(), ownership.ErrNotOwner)
}

func TestStaticDelegationClear(t *testing.T) {
	d := access.NewStaticDelegation()
	d.Set(1, access.KindVote, "bob")
	assert.True(t, d.IsDelegateOf(1, "bob", access.KindVote))
	d.Set(1, access.KindVote, "")
	assert.False(t, d.IsDelegateOf(1, "bob", access.KindVote))
}
