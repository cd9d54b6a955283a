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

// Package access contains the capability checks that decide whether a
// caller may act on a position. Guards are pure functions of their inputs.
package access

import (
	"fmt"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/blinklabs-io/lockledger/ownership"
)

var (
	ErrNotOwnerOrManager = ledgererr.New(
		ledgererr.ClassAuthorization,
		"NOT_OWNER_OR_MANAGER",
		"caller is neither the position owner nor an allowed manager",
	)
	ErrNotOwnerOrDelegate = ledgererr.New(
		ledgererr.ClassAuthorization,
		"NOT_OWNER_OR_DELEGATE",
		"caller is neither the position owner nor its delegate",
	)
)

// Action is the kind of operation a caller wants to perform
type Action int

const (
	// ActionOwner covers operations reserved to the owner: transfer, burn,
	// withdraw, hold
	ActionOwner Action = iota
	// ActionManageLock covers increasing amount or duration of a lock.
	// Managers may only act on positions created as managed.
	ActionManageLock
	// ActionClaimYield covers checkpoint distributor claims
	ActionClaimYield
	// ActionVote covers governance weight usage
	ActionVote
	// ActionMetagovernance covers metagovernance weight usage
	ActionMetagovernance
)

func (a Action) String() string {
	switch a {
	case ActionOwner:
		return "owner"
	case ActionManageLock:
		return "manage-lock"
	case ActionClaimYield:
		return "claim-yield"
	case ActionVote:
		return "vote"
	case ActionMetagovernance:
		return "metagovernance"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Request describes a caller acting on a position
type Request struct {
	Owner      asset.Account
	Caller     asset.Account
	PositionID uint64
	Action     Action
	Managed    bool
}

// GuardResult represents the outcome of a guard evaluation
type GuardResult struct {
	err     *ledgererr.Error
	Reason  string
	Allowed bool
}

// Error returns the guard result as an error if not allowed, nil otherwise
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s: %w", r.Reason, r.err)
}

// Code returns the reason code for a denied request
func (r GuardResult) Code() string {
	if r.Allowed || r.err == nil {
		return ""
	}
	return r.err.Code
}

// Checker resolves capability checks against an allowlist of lock managers
// and an external delegation source
type Checker struct {
	delegation Delegation
	managers   map[asset.Account]struct{}
}

func NewChecker(delegation Delegation, managers ...asset.Account) *Checker {
	if delegation == nil {
		delegation = NoDelegation{}
	}
	c := &Checker{
		delegation: delegation,
		managers:   make(map[asset.Account]struct{}, len(managers)),
	}
	for _, m := range managers {
		c.managers[m] = struct{}{}
	}
	return c
}

func (c *Checker) IsManager(account asset.Account) bool {
	_, ok := c.managers[account]
	return ok
}

// Check evaluates whether the caller may perform the requested action
func (c *Checker) Check(req Request) GuardResult {
	if req.Caller == req.Owner && req.Caller != "" {
		return GuardResult{Allowed: true}
	}
	switch req.Action {
	case ActionManageLock:
		if req.Managed && c.IsManager(req.Caller) {
			return GuardResult{Allowed: true}
		}
		return denied(
			ErrNotOwnerOrManager,
			"%s may not manage position %d",
			req.Caller,
			req.PositionID,
		)
	case ActionClaimYield:
		if c.delegation.IsDelegateOf(req.PositionID, req.Caller, KindYield) {
			return GuardResult{Allowed: true}
		}
		return denied(
			ErrNotOwnerOrDelegate,
			"%s may not claim for position %d",
			req.Caller,
			req.PositionID,
		)
	case ActionVote:
		if c.delegation.IsDelegateOf(req.PositionID, req.Caller, KindVote) {
			return GuardResult{Allowed: true}
		}
		return denied(
			ErrNotOwnerOrDelegate,
			"%s may not vote with position %d",
			req.Caller,
			req.PositionID,
		)
	case ActionMetagovernance:
		if c.delegation.IsDelegateOf(req.PositionID, req.Caller, KindMetagovernance) {
			return GuardResult{Allowed: true}
		}
		return denied(
			ErrNotOwnerOrDelegate,
			"%s may not use metagovernance of position %d",
			req.Caller,
			req.PositionID,
		)
	default:
		return denied(
			ownership.ErrNotOwner,
			"%s does not own position %d",
			req.Caller,
			req.PositionID,
		)
	}
}

func denied(err *ledgererr.Error, format string, args ...any) GuardResult {
	return GuardResult{
		Allowed: false,
		Reason:  fmt.Sprintf(format, args...),
		err:     err,
	}
}
